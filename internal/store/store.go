// Package store keeps a SQLite history of classifications.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/joelkehle/ssfinder/internal/classify"
)

var ErrNotFound = errors.New("classification not found")

// timeLayout has fixed-width fractional seconds so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Sources recorded with each classification.
const (
	SourceAPI   = "api"
	SourceCLI   = "cli"
	SourceBatch = "batch"
	SourceMCP   = "mcp"
)

// Record is one stored classification.
type Record struct {
	ID        string          `json:"id"`
	Source    string          `json:"source"`
	Query     classify.Query  `json:"query"`
	Result    classify.Result `json:"result"`
	Trace     classify.Trace  `json:"-"`
	CreatedAt time.Time       `json:"created_at"`
}

type recordRow struct {
	ID                   string  `db:"id"`
	Source               string  `db:"source"`
	Company              string  `db:"company"`
	JobTitle             string  `db:"job_title"`
	JobDescription       string  `db:"job_description"`
	IndustryCode         string  `db:"industry_code"`
	IndustryTitle        string  `db:"industry_title"`
	IndustryConfidence   float64 `db:"industry_confidence"`
	OccupationCode       string  `db:"occupation_code"`
	OccupationTitle      string  `db:"occupation_title"`
	OccupationConfidence float64 `db:"occupation_confidence"`
	CompanyAnalysis      string  `db:"company_analysis"`
	IndustryPath         string  `db:"industry_path"`
	OccupationPath       string  `db:"occupation_path"`
	AICalls              int     `db:"ai_calls"`
	CreatedAt            string  `db:"created_at"`
}

const schema = `
CREATE TABLE IF NOT EXISTS classifications (
	id                    TEXT PRIMARY KEY,
	source                TEXT NOT NULL DEFAULT '',
	company               TEXT NOT NULL,
	job_title             TEXT NOT NULL,
	job_description       TEXT NOT NULL DEFAULT '',
	industry_code         TEXT NOT NULL,
	industry_title        TEXT NOT NULL,
	industry_confidence   REAL NOT NULL,
	occupation_code       TEXT NOT NULL,
	occupation_title      TEXT NOT NULL,
	occupation_confidence REAL NOT NULL,
	company_analysis      TEXT NOT NULL DEFAULT '',
	industry_path         TEXT NOT NULL DEFAULT '',
	occupation_path       TEXT NOT NULL DEFAULT '',
	ai_calls              INTEGER NOT NULL DEFAULT 0,
	created_at            TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS classifications_created_at ON classifications (created_at);
`

type Config struct {
	Clock func() time.Time
	NewID func() string
}

type Store struct {
	db    *sqlx.DB
	clock func() time.Time
	newID func() string
}

func Open(dbPath string, cfg Config) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	s := &Store{db: db, clock: cfg.Clock, newID: cfg.NewID}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save assigns an ID and timestamp to rec and inserts it.
func (s *Store) Save(ctx context.Context, rec Record) (Record, error) {
	rec.ID = s.newID()
	rec.CreatedAt = s.clock().UTC()
	row := toRow(rec)
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO classifications (
		id, source, company, job_title, job_description,
		industry_code, industry_title, industry_confidence,
		occupation_code, occupation_title, occupation_confidence,
		company_analysis, industry_path, occupation_path, ai_calls, created_at
	) VALUES (
		:id, :source, :company, :job_title, :job_description,
		:industry_code, :industry_title, :industry_confidence,
		:occupation_code, :occupation_title, :occupation_confidence,
		:company_analysis, :industry_path, :occupation_path, :ai_calls, :created_at
	)`, row)
	if err != nil {
		return Record{}, fmt.Errorf("insert classification: %w", err)
	}
	return rec, nil
}

func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	var row recordRow
	err := s.db.GetContext(ctx, &row, "SELECT * FROM classifications WHERE id = ?", strings.TrimSpace(id))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get classification %s: %w", id, err)
	}
	return row.record(), nil
}

type ListFilter struct {
	Company string
	Source  string
	Limit   int
	Offset  int
}

// List returns records newest first.
func (s *Store) List(ctx context.Context, f ListFilter) ([]Record, error) {
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	query := "SELECT * FROM classifications WHERE 1=1"
	var args []any
	if c := strings.TrimSpace(f.Company); c != "" {
		query += " AND company LIKE ?"
		args = append(args, "%"+c+"%")
	}
	if src := strings.TrimSpace(f.Source); src != "" {
		query += " AND source = ?"
		args = append(args, src)
	}
	query += " ORDER BY created_at DESC, id LIMIT ? OFFSET ?"
	args = append(args, f.Limit, f.Offset)

	var rows []recordRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list classifications: %w", err)
	}
	out := make([]Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.record())
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM classifications"); err != nil {
		return 0, fmt.Errorf("count classifications: %w", err)
	}
	return n, nil
}

func toRow(rec Record) recordRow {
	return recordRow{
		ID:                   rec.ID,
		Source:               rec.Source,
		Company:              rec.Query.Company,
		JobTitle:             rec.Query.JobTitle,
		JobDescription:       rec.Query.JobDescription,
		IndustryCode:         rec.Result.Industry.Code,
		IndustryTitle:        rec.Result.Industry.Title,
		IndustryConfidence:   rec.Result.Industry.Confidence,
		OccupationCode:       rec.Result.Occupation.Code,
		OccupationTitle:      rec.Result.Occupation.Title,
		OccupationConfidence: rec.Result.Occupation.Confidence,
		CompanyAnalysis:      rec.Result.CompanyAnalysis,
		IndustryPath:         rec.Trace.IndustryPath,
		OccupationPath:       rec.Trace.OccupationPath,
		AICalls:              rec.Trace.AICalls,
		CreatedAt:            rec.CreatedAt.Format(timeLayout),
	}
}

func (r recordRow) record() Record {
	created, _ := time.Parse(time.RFC3339Nano, r.CreatedAt)
	return Record{
		ID:     r.ID,
		Source: r.Source,
		Query: classify.Query{
			Company:        r.Company,
			JobTitle:       r.JobTitle,
			JobDescription: r.JobDescription,
		},
		Result: classify.Result{
			Industry:        classify.Classification{Code: r.IndustryCode, Title: r.IndustryTitle, Confidence: r.IndustryConfidence},
			Occupation:      classify.Classification{Code: r.OccupationCode, Title: r.OccupationTitle, Confidence: r.OccupationConfidence},
			CompanyAnalysis: r.CompanyAnalysis,
		},
		Trace: classify.Trace{
			IndustryPath:   r.IndustryPath,
			OccupationPath: r.OccupationPath,
			AICalls:        r.AICalls,
		},
		CreatedAt: created,
	}
}
