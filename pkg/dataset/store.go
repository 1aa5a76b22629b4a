// Package dataset is the durable store for the merged housing table produced
// by the pipeline. It is written once per successful run (replace, not
// append) and read by the chat query engine.
package dataset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"housing-data-go/pkg/models"

	_ "modernc.org/sqlite"
)

// TableName is the single queryable table holding the merged dataset.
const TableName = "housing_data"

// ErrUnavailable is returned when no pipeline run has ever populated the
// store.
var ErrUnavailable = errors.New("dataset not available")

// Store wraps an embedded sqlite database holding the dataset.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the dataset database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset store: %w", err)
	}
	// modernc sqlite serializes writes per connection; one connection keeps
	// replace-all loads and concurrent reads from fighting over locks.
	db.SetMaxOpenConns(1)
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// ColumnNames returns the dataset's column names in table order, usable
// before any data has been ingested.
func ColumnNames() []string {
	names := make([]string, len(datasetColumns))
	for i, c := range datasetColumns {
		names[i] = c.name
	}
	return names
}

var datasetColumns = []struct {
	name string
	typ  string
}{
	{"ZipCode", "INTEGER"},
	{"SizeRank", "INTEGER"},
	{"RegionName", "TEXT"},
	{"State", "TEXT"},
	{"County", "TEXT"},
	{"City", "TEXT"},
	{"ZMediumRent", "REAL"},
	{"ZMediumValue", "REAL"},
	{"NMediumValue", "REAL"},
	{"entityid", "TEXT"},
	{"IncomeLimits", "REAL"},
	{"Efficiency", "REAL"},
	{"OneBedroom", "REAL"},
	{"TwoBedroom", "REAL"},
	{"ThreeBedroom", "REAL"},
	{"FourBedroom", "REAL"},
	{"ZillowRatio", "REAL"},
	{"NARRatio", "REAL"},
	{"ZHRatio", "REAL"},
	{"NHRatio", "REAL"},
}

// ReplaceAll atomically replaces the dataset with the given records.
func (s *Store) ReplaceAll(ctx context.Context, records []models.HousingRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin dataset transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+TableName); err != nil {
		return fmt.Errorf("failed to drop old dataset: %w", err)
	}

	defs := make([]string, len(datasetColumns))
	for i, c := range datasetColumns {
		defs[i] = c.name + " " + c.typ
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", TableName, strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("failed to create dataset table: %w", err)
	}

	names := make([]string, len(datasetColumns))
	marks := make([]string, len(datasetColumns))
	for i, c := range datasetColumns {
		names[i] = c.name
		marks[i] = "?"
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		TableName, strings.Join(names, ", "), strings.Join(marks, ", "))

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("failed to prepare dataset insert: %w", err)
	}
	defer stmt.Close()

	for i := range records {
		r := &records[i]
		_, err := stmt.ExecContext(ctx,
			r.ZipCode, r.SizeRank, r.RegionName, r.State, r.County, r.City,
			nullFloat(r.ZMediumRent), nullFloat(r.ZMediumValue), nullFloat(r.NMediumValue),
			nullString(r.EntityID), nullFloat(r.IncomeLimits),
			nullFloat(r.Efficiency), nullFloat(r.OneBedroom), nullFloat(r.TwoBedroom),
			nullFloat(r.ThreeBedroom), nullFloat(r.FourBedroom),
			nullFloat(r.ZillowRatio), nullFloat(r.NARRatio), nullFloat(r.ZHRatio), nullFloat(r.NHRatio),
		)
		if err != nil {
			return fmt.Errorf("failed to insert dataset row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit dataset: %w", err)
	}
	return nil
}

// Available reports whether a pipeline run has populated the store.
func (s *Store) Available(ctx context.Context) bool {
	var name string
	err := s.db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name=?", TableName,
	).Scan(&name)
	return err == nil
}

// Schema returns the dataset's column layout and row count, or
// ErrUnavailable when no run has populated the store yet.
func (s *Store) Schema(ctx context.Context) (*models.DatasetSchema, error) {
	if !s.Available(ctx) {
		return nil, ErrUnavailable
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", TableName))
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset schema: %w", err)
	}
	defer rows.Close()

	schema := &models.DatasetSchema{Table: TableName}
	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &defaultVal, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan schema row: %w", err)
		}
		schema.Columns = append(schema.Columns, models.DatasetColumn{
			Name:       name,
			Type:       typ,
			Nullable:   notNull == 0,
			PrimaryKey: pk > 0,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dataset schema: %w", err)
	}

	if err := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s", TableName),
	).Scan(&schema.TotalRows); err != nil {
		return nil, fmt.Errorf("failed to count dataset rows: %w", err)
	}

	return schema, nil
}

// Query executes a read-only SELECT against the dataset and returns the
// result rows as ordered column/value maps plus the column order. An empty
// result is a normal outcome, distinct from ErrUnavailable.
func (s *Store) Query(ctx context.Context, query string) ([]map[string]any, []string, error) {
	if !s.Available(ctx) {
		return nil, nil, ErrUnavailable
	}
	if err := validateReadOnly(query); err != nil {
		return nil, nil, err
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	results := make([]map[string]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, fmt.Errorf("failed to scan result row: %w", err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("query failed: %w", err)
	}

	return results, columns, nil
}

// validateReadOnly rejects anything but a single SELECT statement.
func validateReadOnly(query string) error {
	trimmed := strings.TrimSpace(query)
	if !strings.HasPrefix(strings.ToUpper(trimmed), "SELECT") {
		return fmt.Errorf("only SELECT statements are allowed")
	}
	// A trailing semicolon is fine; anything after it is not.
	if rest := strings.TrimSpace(strings.TrimSuffix(trimmed, ";")); strings.Contains(rest, ";") {
		return fmt.Errorf("multiple statements are not allowed")
	}
	upper := strings.ToUpper(trimmed)
	for _, kw := range []string{"INSERT ", "UPDATE ", "DELETE ", "DROP ", "ALTER ", "CREATE ", "ATTACH ", "PRAGMA "} {
		if strings.Contains(upper, kw) {
			return fmt.Errorf("statement contains forbidden keyword %q", strings.TrimSpace(kw))
		}
	}
	return nil
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
