package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"housing-data-go/pkg/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionStore persists chat sessions and their message history.
type SessionStore interface {
	// FindSession returns the user's session with the given public id, or
	// nil when it does not exist or belongs to another user.
	FindSession(ctx context.Context, sessionID string, userID uuid.UUID) (*models.ChatSession, error)
	CreateSession(ctx context.Context, userID uuid.UUID) (*models.ChatSession, error)
	TouchSession(ctx context.Context, id int64) error
	SaveMessage(ctx context.Context, msg *models.ChatMessage) error
}

const (
	sqlFallbackPrefix = "I couldn't query the database directly (SQL error), but here's what I found online:\n\n"
	genFallbackPrefix = "I couldn't generate a database query for that question, but here's what I found online:\n\n"
)

// Router classifies each message and drives it through the query engine or
// the grounded searcher, persisting every turn to the session store. Query
// engine failures downgrade to a grounded fallback rather than surfacing.
type Router struct {
	classifier *Classifier
	engine     *Engine
	searcher   GroundedSearcher
	generator  SQLGenerator
	sessions   SessionStore
	logger     *zap.Logger
}

func NewRouter(classifier *Classifier, engine *Engine, searcher GroundedSearcher, generator SQLGenerator, sessions SessionStore, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		classifier: classifier,
		engine:     engine,
		searcher:   searcher,
		generator:  generator,
		sessions:   sessions,
		logger:     logger,
	}
}

// Handle processes one chat turn for the given user and returns the
// response envelope. The session id in the request is honored when it names
// one of the user's sessions; otherwise a new session is created and its id
// returned for the client to echo on the next turn.
func (r *Router) Handle(ctx context.Context, userID uuid.UUID, req models.ChatRequest) (*models.ChatResponse, error) {
	session, err := r.resolveSession(ctx, userID, req.SessionID)
	if err != nil {
		return nil, err
	}

	var resp *models.ChatResponse
	if r.classifier.IsDataQuery(req.Message) {
		resp, err = r.handleDataQuery(ctx, req.Message)
	} else {
		resp, err = r.handleGeneral(ctx, req.Message)
	}
	if err != nil {
		return nil, err
	}
	resp.SessionID = session.SessionID

	if err := r.persistTurn(ctx, session, req.Message, resp); err != nil {
		// The answer is already computed; losing history is not worth
		// failing the turn.
		r.logger.Error("failed to persist chat turn", zap.Error(err))
	}
	return resp, nil
}

func (r *Router) resolveSession(ctx context.Context, userID uuid.UUID, sessionID string) (*models.ChatSession, error) {
	if sessionID != "" {
		session, err := r.sessions.FindSession(ctx, sessionID, userID)
		if err != nil {
			return nil, err
		}
		if session != nil {
			return session, nil
		}
	}
	return r.sessions.CreateSession(ctx, userID)
}

// handleDataQuery runs the query engine path with grounded fallbacks: SQL
// generation failure and ambiguity fall back with one message, execution
// failure with another, and an unavailable dataset behaves like a
// generation failure.
func (r *Router) handleDataQuery(ctx context.Context, message string) (*models.ChatResponse, error) {
	result, err := r.engine.Run(ctx, message)
	if err != nil {
		kind := KindOf(err)
		r.logger.Warn("data query failed, downgrading to grounded fallback",
			zap.String("kind", string(kind)),
			zap.Error(err))

		prefix := genFallbackPrefix
		if kind == ErrKindSQLExecution {
			prefix = sqlFallbackPrefix
		}
		return r.groundedFallback(ctx, message, prefix)
	}

	summary, err := r.generator.Summarize(ctx, message, result.SQL, result.Rows)
	if err != nil {
		summary = fmt.Sprintf("The query returned %d rows.", len(result.Rows))
	}

	text := formatDataResponse(summary, result.Rows)
	sql := result.SQL
	return &models.ChatResponse{
		Response:     text,
		IsGrounded:   false,
		Sources:      []models.Source{},
		QueryType:    models.QueryTypeDataQuery,
		SQLQuery:     &sql,
		QueryResults: result.Rows,
	}, nil
}

func (r *Router) handleGeneral(ctx context.Context, message string) (*models.ChatResponse, error) {
	answer, err := r.searcher.GroundedSearch(ctx, message)
	if err != nil {
		// GroundingUnavailable must reach the user as plain language,
		// never as a raw error.
		return &models.ChatResponse{
			Response:  "I'm unable to look that up right now. Please try again in a moment.",
			QueryType: models.QueryTypeGeneral,
			Sources:   []models.Source{},
		}, nil
	}

	queryType := models.QueryTypeGeneral
	if answer.IsGrounded {
		queryType = models.QueryTypeGrounded
	}
	return &models.ChatResponse{
		Response:   answer.Response,
		IsGrounded: answer.IsGrounded,
		Sources:    sourcesOrEmpty(answer.Sources),
		QueryType:  queryType,
	}, nil
}

func (r *Router) groundedFallback(ctx context.Context, message, prefix string) (*models.ChatResponse, error) {
	answer, err := r.searcher.GroundedSearch(ctx, message)
	if err != nil {
		return &models.ChatResponse{
			Response:  "I couldn't answer that from the dataset, and the web lookup is unavailable right now. Please try again later.",
			QueryType: models.QueryTypeGroundedFallback,
			Sources:   []models.Source{},
		}, nil
	}
	return &models.ChatResponse{
		Response:   prefix + answer.Response,
		IsGrounded: answer.IsGrounded,
		Sources:    sourcesOrEmpty(answer.Sources),
		QueryType:  models.QueryTypeGroundedFallback,
	}, nil
}

func (r *Router) persistTurn(ctx context.Context, session *models.ChatSession, message string, resp *models.ChatResponse) error {
	msg := &models.ChatMessage{
		SessionID:  session.ID,
		Message:    message,
		Response:   resp.Response,
		IsGrounded: resp.IsGrounded,
		SQLQuery:   resp.SQLQuery,
		QueryType:  resp.QueryType,
	}
	if len(resp.QueryResults) > 0 {
		if data, err := json.Marshal(resp.QueryResults); err == nil {
			s := string(data)
			msg.QueryResults = &s
		}
	}
	if len(resp.Sources) > 0 {
		if data, err := json.Marshal(resp.Sources); err == nil {
			s := string(data)
			msg.GroundingMetadata = &s
		}
	}
	if err := r.sessions.SaveMessage(ctx, msg); err != nil {
		return err
	}
	return r.sessions.TouchSession(ctx, session.ID)
}

// sampleFields are the columns shown in the inline sample listing, in
// display order.
var sampleFields = []string{"ZipCode", "RegionName", "State", "ZMediumRent", "ZMediumValue", "IncomeLimits"}

// formatDataResponse builds the data-query response text: summary, row
// count, and up to three formatted sample rows.
func formatDataResponse(summary string, rows []map[string]any) string {
	var b strings.Builder
	b.WriteString("**Data Analysis Results:**\n\n")
	b.WriteString(summary)

	if len(rows) == 0 {
		return b.String()
	}
	fmt.Fprintf(&b, "\n\n**Found %d records matching your query.**", len(rows))

	sampleCount := len(rows)
	if sampleCount > 3 {
		sampleCount = 3
	}
	fmt.Fprintf(&b, "\n\n**Sample Results (showing %d of %d):**\n", sampleCount, len(rows))
	for i := 0; i < sampleCount; i++ {
		fmt.Fprintf(&b, "\n%d. %s", i+1, formatSampleRow(rows[i]))
	}
	return b.String()
}

func formatSampleRow(row map[string]any) string {
	fields := make([]string, 0, 3)
	for _, name := range sampleFields {
		if len(fields) == 3 {
			break
		}
		value, ok := row[name]
		if !ok || value == nil {
			continue
		}
		fields = append(fields, name+": "+formatSampleValue(name, value))
	}
	if len(fields) == 0 {
		// Fall back to whatever columns the query selected.
		keys := make([]string, 0, len(row))
		for k := range row {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if len(fields) == 3 {
				break
			}
			if row[k] == nil {
				continue
			}
			fields = append(fields, k+": "+formatSampleValue(k, row[k]))
		}
	}
	return strings.Join(fields, ", ")
}

// formatSampleValue renders dollar amounts with separators; everything else
// prints as-is.
func formatSampleValue(name string, value any) string {
	if name == "State" {
		return fmt.Sprintf("%v", value)
	}
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case int64:
		f = float64(v)
	default:
		return fmt.Sprintf("%v", value)
	}
	if f > 1000 {
		return "$" + groupThousands(int64(f+0.5))
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", f), "0"), ".")
}

func groupThousands(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

func sourcesOrEmpty(sources []models.Source) []models.Source {
	if sources == nil {
		return []models.Source{}
	}
	return sources
}
