package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/lexiscan/constants"
)

const analysisRunsTable = "analysis_runs"

// AnalysisRun is one audit-log row: a document or text that went through analysis.
type AnalysisRun struct {
	ID         uuid.UUID           `json:"id"`
	CreatedAt  time.Time           `json:"created_at"`
	SourceName string              `json:"source_name"`
	SourceKind string              `json:"source_kind"`
	Pages      int                 `json:"pages"`
	Chars      int                 `json:"chars"`
	Status     constants.RunStatus `json:"status"`
	Summary    string              `json:"summary"`
	Analysis   string              `json:"analysis,omitempty"` // AnalysisResult as JSON
	Error      string              `json:"error,omitempty"`
	ElapsedMS  int64               `json:"elapsed_ms"`
}

type AnalysisRunRepository interface {
	Migrate(ctx context.Context) error
	Record(ctx context.Context, run AnalysisRun) (AnalysisRun, error)
	List(ctx context.Context, limit int) ([]AnalysisRun, error)
}

type analysisRunRepo struct {
	db  *DB
	log *slog.Logger
}

func NewAnalysisRunRepository(db *DB, log *slog.Logger) AnalysisRunRepository {
	if log == nil {
		log = slog.Default()
	}
	return &analysisRunRepo{db: db, log: log}
}

var runColumns = []string{
	"id", "created_at", "source_name", "source_kind", "pages", "chars",
	"status", "summary", "analysis", "error", "elapsed_ms",
}

// analysisRunsDDL is the schema per dialect. ent's builder has no CREATE TABLE,
// so the statements are written out.
var analysisRunsDDL = map[string][]string{
	dialect.SQLite: {
		`CREATE TABLE IF NOT EXISTS analysis_runs (
	id          TEXT PRIMARY KEY NOT NULL,
	created_at  INTEGER NOT NULL,
	source_name TEXT NOT NULL,
	source_kind TEXT NOT NULL,
	pages       INTEGER NOT NULL,
	chars       INTEGER NOT NULL,
	status      TEXT NOT NULL,
	summary     TEXT NOT NULL,
	analysis    TEXT NOT NULL,
	error       TEXT NOT NULL,
	elapsed_ms  INTEGER NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS analysis_runs_created_at ON analysis_runs (created_at)`,
	},
	dialect.Postgres: {
		`CREATE TABLE IF NOT EXISTS analysis_runs (
	id          VARCHAR(36) PRIMARY KEY,
	created_at  BIGINT NOT NULL,
	source_name TEXT NOT NULL,
	source_kind VARCHAR(16) NOT NULL,
	pages       INTEGER NOT NULL,
	chars       INTEGER NOT NULL,
	status      VARCHAR(32) NOT NULL,
	summary     TEXT NOT NULL,
	analysis    TEXT NOT NULL,
	error       TEXT NOT NULL,
	elapsed_ms  BIGINT NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS analysis_runs_created_at ON analysis_runs (created_at)`,
	},
}

// Migrate creates the audit table and its index when missing.
func (r *analysisRunRepo) Migrate(ctx context.Context) error {
	stmts, ok := analysisRunsDDL[r.db.dialect]
	if !ok {
		return fmt.Errorf("migrate %s: unsupported dialect %q", analysisRunsTable, r.db.dialect)
	}
	for _, stmt := range stmts {
		if err := r.db.drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			r.log.Error("analysis_runs migrate failed", "dialect", r.db.dialect, "err", err)
			return fmt.Errorf("migrate %s: %w", analysisRunsTable, err)
		}
	}
	return nil
}

func (r *analysisRunRepo) Record(ctx context.Context, run AnalysisRun) (AnalysisRun, error) {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	run.CreatedAt = run.CreatedAt.UTC().Truncate(time.Millisecond)

	query, args := entsql.Dialect(r.db.dialect).
		Insert(analysisRunsTable).
		Columns(runColumns...).
		Values(
			run.ID.String(), run.CreatedAt.UnixMilli(), run.SourceName, run.SourceKind,
			run.Pages, run.Chars, string(run.Status), run.Summary, run.Analysis, run.Error, run.ElapsedMS,
		).
		Query()
	if err := r.db.drv.Exec(ctx, query, args, nil); err != nil {
		r.log.Error("analysis_run record failed", "source", run.SourceName, "err", err)
		return AnalysisRun{}, err
	}
	r.log.Info("analysis_run recorded", "id", run.ID, "status", run.Status, "source", run.SourceName)
	return run, nil
}

// List returns up to limit runs, newest first. limit <= 0 means 50.
func (r *analysisRunRepo) List(ctx context.Context, limit int) ([]AnalysisRun, error) {
	if limit <= 0 {
		limit = 50
	}
	t := entsql.Table(analysisRunsTable)
	query, args := entsql.Dialect(r.db.dialect).
		Select(runColumns...).
		From(t).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id")).
		Limit(limit).
		Query()

	rows := &entsql.Rows{}
	if err := r.db.drv.Query(ctx, query, args, rows); err != nil {
		r.log.Error("analysis_run list failed", "err", err)
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make([]AnalysisRun, 0, limit)
	for rows.Next() {
		var (
			run       AnalysisRun
			id        string
			createdAt int64
			status    string
		)
		if err := rows.Scan(&id, &createdAt, &run.SourceName, &run.SourceKind, &run.Pages, &run.Chars,
			&status, &run.Summary, &run.Analysis, &run.Error, &run.ElapsedMS); err != nil {
			return nil, fmt.Errorf("scan analysis_run: %w", err)
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("analysis_run id %q: %w", id, err)
		}
		run.ID = parsed
		run.CreatedAt = time.UnixMilli(createdAt).UTC()
		run.Status = constants.RunStatus(status)
		out = append(out, run)
	}
	return out, rows.Err()
}
