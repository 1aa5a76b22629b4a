package chat

import (
	"context"
	"strings"
	"time"

	"housing-data-go/pkg/models"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// DefaultGeminiModel is the model used for all chat calls.
const DefaultGeminiModel = "gemini-2.5-flash"

const (
	// generateTimeout bounds SQL generation and summary calls.
	generateTimeout = 60 * time.Second
	// searchTimeout bounds the whole grounded search path, retry included.
	// The chat endpoint blocks on it, so it is kept far below generateTimeout.
	searchTimeout = 8 * time.Second
)

// SQLGenerator turns a natural-language question into a SQL query and
// summarizes query results. Implemented by GeminiClient in production and by
// fakes in tests.
type SQLGenerator interface {
	GenerateSQL(ctx context.Context, question, schemaPrompt string) (string, error)
	Summarize(ctx context.Context, question, sqlQuery string, results []map[string]any) (string, error)
}

// GroundedAnswer is the result of a grounded search call.
type GroundedAnswer struct {
	Response   string
	IsGrounded bool
	Sources    []models.Source
}

// GroundedSearcher answers free-form questions, with web grounding when the
// backend supports it.
type GroundedSearcher interface {
	GroundedSearch(ctx context.Context, query string) (*GroundedAnswer, error)
}

// GeminiClient implements SQLGenerator and GroundedSearcher on top of the
// Google GenAI API.
type GeminiClient struct {
	client        *genai.Client
	model         string
	timeout       time.Duration
	searchTimeout time.Duration
	logger        *zap.Logger
}

func NewGeminiClient(ctx context.Context, apiKey, model string, logger *zap.Logger) (*GeminiClient, error) {
	if model == "" {
		model = DefaultGeminiModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, newError(ErrKindGroundingUnavailable, "failed to create GenAI client", err)
	}
	return &GeminiClient{
		client:        client,
		model:         model,
		timeout:       generateTimeout,
		searchTimeout: searchTimeout,
		logger:        logger,
	}, nil
}

// GenerateSQL asks the model for a single SQLite SELECT against the housing
// table. The raw model output still needs cleanSQL before execution.
func (g *GeminiClient) GenerateSQL(ctx context.Context, question, schemaPrompt string) (string, error) {
	prompt := schemaPrompt + `

USER QUESTION: "` + question + `"

Convert this natural language question into a valid SQLite SQL query for the ` + "housing_data" + ` table.

REQUIREMENTS:
1. Generate ONLY the SQL query, no explanations or markdown
2. Use proper SQLite syntax
3. Include appropriate WHERE clauses if filtering is needed
4. Use ORDER BY and LIMIT when appropriate
5. Handle potential NULL values properly
6. Make sure column names match exactly (case-sensitive)
7. Start directly with SELECT

Generate a complete, executable SQL query:
`

	text, err := g.generate(ctx, prompt, &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.1),
		MaxOutputTokens: 500,
	})
	if err != nil {
		return "", newError(ErrKindSQLGeneration, "failed to generate SQL query", err)
	}
	return text, nil
}

// Summarize produces a short prose summary of query results. Rows beyond the
// first ten are elided from the prompt to stay inside token limits.
func (g *GeminiClient) Summarize(ctx context.Context, question, sqlQuery string, results []map[string]any) (string, error) {
	if len(results) == 0 {
		return "No results found for your query.", nil
	}

	display := results
	if len(display) > 10 {
		display = display[:10]
	}
	resultsText := formatResultsJSON(display)
	if len(results) > 10 {
		resultsText += "\n... and more rows"
	}

	prompt := `ORIGINAL QUESTION: "` + question + `"
SQL QUERY: ` + sqlQuery + `
RESULTS: ` + resultsText + `

Provide a clear, concise summary of these results in 2-3 sentences. Focus on key insights and patterns. Include specific numbers and findings.
`

	text, err := g.generate(ctx, prompt, &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.3),
		MaxOutputTokens: 300,
	})
	if err != nil {
		g.logger.Warn("result summary failed", zap.Error(err))
		return "Results found but a summary could not be generated.", nil
	}
	return strings.TrimSpace(text), nil
}

// GroundedSearch answers a query with the Google Search tool enabled and
// extracts the cited sources. When the grounded call fails it retries once
// without grounding; only when both fail does it return
// GroundingUnavailable.
func (g *GeminiClient) GroundedSearch(ctx context.Context, query string) (*GroundedAnswer, error) {
	ctx, cancel := context.WithTimeout(ctx, g.searchTimeout)
	defer cancel()

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(query), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.7),
		MaxOutputTokens: 1000,
		Tools: []*genai.Tool{
			{GoogleSearch: &genai.GoogleSearch{}},
		},
	})
	if err != nil {
		g.logger.Warn("grounded search failed, retrying without grounding", zap.Error(err))
		return g.ungroundedFallback(ctx, query)
	}

	answer := &GroundedAnswer{Response: resp.Text()}
	if len(resp.Candidates) > 0 && resp.Candidates[0].GroundingMetadata != nil {
		answer.IsGrounded = true
		answer.Sources = extractSources(resp.Candidates[0].GroundingMetadata)
	}
	return answer, nil
}

func (g *GeminiClient) ungroundedFallback(ctx context.Context, query string) (*GroundedAnswer, error) {
	text, err := g.generate(ctx, "Please provide a helpful response to this query: "+query, &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.7),
		MaxOutputTokens: 1000,
	})
	if err != nil {
		return nil, newError(ErrKindGroundingUnavailable, "grounded search unavailable", err)
	}
	return &GroundedAnswer{Response: text, IsGrounded: false}, nil
}

func (g *GeminiClient) generate(ctx context.Context, prompt string, cfg *genai.GenerateContentConfig) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// extractSources pulls (title, uri) pairs out of the grounding chunks,
// deduplicated by URI.
func extractSources(meta *genai.GroundingMetadata) []models.Source {
	sources := make([]models.Source, 0, len(meta.GroundingChunks))
	seen := make(map[string]bool)
	for _, chunk := range meta.GroundingChunks {
		if chunk.Web == nil || chunk.Web.URI == "" {
			continue
		}
		if seen[chunk.Web.URI] {
			continue
		}
		seen[chunk.Web.URI] = true
		title := chunk.Web.Title
		if title == "" {
			title = "Unknown"
		}
		sources = append(sources, models.Source{Title: title, URI: chunk.Web.URI})
	}
	return sources
}
