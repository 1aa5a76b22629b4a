package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"housing-data-go/pkg/fuzzy"
	"housing-data-go/pkg/models"

	"go.uber.org/zap"
)

// DatasetStore is the read side of the ingested dataset.
type DatasetStore interface {
	Available(ctx context.Context) bool
	Schema(ctx context.Context) (*models.DatasetSchema, error)
	Query(ctx context.Context, query string) ([]map[string]any, []string, error)
}

// QueryResult is a successfully executed data query.
type QueryResult struct {
	SQL     string
	Rows    []map[string]any
	Columns []string
}

// columnResolveFloor is the similarity below which an unknown identifier in
// generated SQL is rejected as ambiguous instead of being rewritten to the
// nearest column.
const columnResolveFloor = 0.85

// Engine compiles a natural-language question into SQL via the generator,
// normalizes the result and executes it read-only against the dataset.
type Engine struct {
	store     DatasetStore
	generator SQLGenerator
	logger    *zap.Logger
}

func NewEngine(store DatasetStore, generator SQLGenerator, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{store: store, generator: generator, logger: logger}
}

// Run executes the full question-to-rows path. Failures are typed so the
// Router can pick a fallback: DatasetUnavailable before generation,
// SQLGeneration and AmbiguousColumn during compilation, SQLExecution after.
func (e *Engine) Run(ctx context.Context, question string) (*QueryResult, error) {
	if !e.store.Available(ctx) {
		return nil, newError(ErrKindDatasetUnavailable, "no dataset has been ingested yet", nil)
	}
	schema, err := e.store.Schema(ctx)
	if err != nil {
		return nil, newError(ErrKindDatasetUnavailable, "failed to read dataset schema", err)
	}

	raw, err := e.generator.GenerateSQL(ctx, question, SchemaPrompt(schema))
	if err != nil {
		return nil, err
	}

	sqlQuery := cleanSQL(raw)
	if sqlQuery == "" {
		return nil, newError(ErrKindSQLGeneration, "generator produced no SELECT statement", nil)
	}

	sqlQuery, err = resolveColumns(sqlQuery, schema.ColumnNames())
	if err != nil {
		return nil, err
	}

	rows, columns, err := e.store.Query(ctx, sqlQuery)
	if err != nil {
		return nil, newError(ErrKindSQLExecution, "query execution failed", err)
	}

	e.logger.Debug("data query executed",
		zap.String("sql", sqlQuery),
		zap.Int("rows", len(rows)))
	return &QueryResult{SQL: sqlQuery, Rows: rows, Columns: columns}, nil
}

// SchemaPrompt renders the dataset schema with per-column descriptions for
// the SQL generation prompt.
func SchemaPrompt(schema *models.DatasetSchema) string {
	var b strings.Builder
	b.WriteString("DATABASE SCHEMA FOR HOUSING MARKET DATA:\n\n")
	fmt.Fprintf(&b, "Table: %s (Total rows: %d)\n\nColumns:\n", schema.Table, schema.TotalRows)
	for _, col := range schema.Columns {
		desc := columnDescriptions[col.Name]
		if desc == "" {
			desc = "Real estate data field"
		}
		fmt.Fprintf(&b, "- %s (%s): %s\n", col.Name, col.Type, desc)
	}
	b.WriteString(`
IMPORTANT NOTES:
1. Use SQLite syntax
2. All monetary values are in USD
3. State codes are 2-letter abbreviations
4. NULL values may exist in any column
5. Ratios are decimal values (e.g., 0.01 = 1%)
6. Only query the '` + schema.Table + `' table
7. Use proper WHERE clauses for filtering
8. Consider using LIMIT for large result sets
`)
	return b.String()
}

var columnDescriptions = map[string]string{
	"ZipCode":      "Zillow region identifier",
	"SizeRank":     "City size ranking by population",
	"RegionName":   "City name",
	"State":        "US State abbreviation (e.g., CA, TX, NY)",
	"County":       "County name",
	"City":         "City name (same as RegionName)",
	"ZMediumRent":  "Zillow median rent price in USD",
	"ZMediumValue": "Zillow median home value in USD",
	"NMediumValue": "NAR (Census) median home value in USD",
	"entityid":     "HUD FIPS code for the area",
	"IncomeLimits": "HUD income limits for very low income (50% AMI, 4-person household)",
	"Efficiency":   "HUD Fair Market Rent for efficiency apartment",
	"OneBedroom":   "HUD Fair Market Rent for 1-bedroom apartment",
	"TwoBedroom":   "HUD Fair Market Rent for 2-bedroom apartment",
	"ThreeBedroom": "HUD Fair Market Rent for 3-bedroom apartment",
	"FourBedroom":  "HUD Fair Market Rent for 4-bedroom apartment",
	"ZillowRatio":  "Monthly rent to home value ratio (Zillow data)",
	"NARRatio":     "Monthly rent to home value ratio (NAR data)",
	"ZHRatio":      "HUD 4-bedroom rent to Zillow home value ratio",
	"NHRatio":      "HUD 4-bedroom rent to NAR home value ratio",
}

// cleanSQL strips markdown fences and any prose the model emitted before the
// SELECT, keeping only statement lines.
func cleanSQL(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```sql")
	s = strings.TrimPrefix(s, "```")
	s = strings.ReplaceAll(s, "```", "")
	s = strings.TrimSpace(s)

	var kept []string
	foundSelect := false
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		upper := strings.ToUpper(line)
		switch {
		case foundSelect || strings.HasPrefix(upper, "SELECT"):
			foundSelect = true
			kept = append(kept, line)
		case containsAnyWord(upper, "FROM", "WHERE", "GROUP", "ORDER", "LIMIT", "HAVING"):
			kept = append(kept, line)
		}
	}
	if !foundSelect {
		return ""
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func containsAnyWord(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

var identifierRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// sqlKeywords are identifiers that never refer to columns.
var sqlKeywords = map[string]bool{
	"select": true, "from": true, "where": true, "and": true, "or": true,
	"not": true, "null": true, "is": true, "in": true, "like": true,
	"between": true, "order": true, "by": true, "group": true, "having": true,
	"limit": true, "offset": true, "as": true, "asc": true, "desc": true,
	"distinct": true, "count": true, "sum": true, "avg": true, "min": true,
	"max": true, "round": true, "abs": true, "coalesce": true, "cast": true,
	"case": true, "when": true, "then": true, "else": true, "end": true,
	"join": true, "inner": true, "left": true, "on": true, "union": true,
	"all": true, "exists": true, "integer": true, "real": true, "text": true,
}

// resolveColumns rewrites near-miss column identifiers in generated SQL to
// their actual schema names. An identifier that matches no column well
// enough fails with AmbiguousColumn instead of guessing. Names the query
// itself declares (AS aliases, table aliases) are not column references and
// pass through untouched.
func resolveColumns(sqlQuery string, columns []string) (string, error) {
	exact := make(map[string]string, len(columns))
	for _, c := range columns {
		exact[strings.ToLower(c)] = c
	}
	aliases := declaredAliases(sqlQuery)

	var resolveErr error
	resolved := identifierRe.ReplaceAllStringFunc(sqlQuery, func(ident string) string {
		lower := strings.ToLower(ident)
		if sqlKeywords[lower] || lower == "housing_data" || aliases[lower] {
			return ident
		}
		if canonical, ok := exact[lower]; ok {
			return canonical
		}
		best, score, ok := fuzzy.BestMatch(ident, columns, 0)
		if ok && score >= columnResolveFloor {
			return best
		}
		// Bare words also appear inside string literals; only reject
		// identifiers that look like column references.
		if insideStringLiteral(sqlQuery, ident) {
			return ident
		}
		if resolveErr == nil {
			resolveErr = newError(ErrKindAmbiguousColumn,
				fmt.Sprintf("%q does not match any dataset column", ident), nil)
		}
		return ident
	})
	if resolveErr != nil {
		return "", resolveErr
	}
	return resolved, nil
}

// declaredAliases collects the names a query introduces itself: identifiers
// following AS and table aliases directly after FROM/JOIN housing_data.
// Later references to them (GROUP BY, ORDER BY, HAVING) are covered too
// since matching is by name, not position.
func declaredAliases(sqlQuery string) map[string]bool {
	idents := identifierRe.FindAllString(sqlQuery, -1)
	aliases := make(map[string]bool)
	for i, ident := range idents {
		lower := strings.ToLower(ident)
		if sqlKeywords[lower] {
			continue
		}
		if i > 0 && strings.EqualFold(idents[i-1], "as") {
			aliases[lower] = true
		}
		if i > 1 && strings.EqualFold(idents[i-1], "housing_data") {
			prev := strings.ToLower(idents[i-2])
			if prev == "from" || prev == "join" {
				aliases[lower] = true
			}
		}
	}
	return aliases
}

// insideStringLiteral reports whether the first occurrence of ident sits
// between single quotes.
func insideStringLiteral(sqlQuery, ident string) bool {
	idx := strings.Index(sqlQuery, ident)
	if idx < 0 {
		return false
	}
	return strings.Count(sqlQuery[:idx], "'")%2 == 1
}

// formatResultsJSON renders rows for the summary prompt.
func formatResultsJSON(rows []map[string]any) string {
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", rows)
	}
	return string(data)
}
