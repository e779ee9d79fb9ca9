package idiommatcher

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var _ ResultStore = (*SQLiteStore)(nil)

// RunRecord describes one stored analysis of a source/target pair
type RunRecord struct {
	ID             string
	CreatedAt      time.Time
	SourceLanguage string
	TargetLanguage string
	Mode           string
	Report         Report
}

// SQLiteStore persists runs and matches in a SQLite database
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger Logger
}

// storedTimeLayout is fixed-width so created_at sorts as text
const storedTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const resultSchema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    created_at TEXT NOT NULL,
    source_language TEXT NOT NULL,
    target_language TEXT NOT NULL,
    mode TEXT NOT NULL,
    report_json TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS matches (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    set_name TEXT NOT NULL,
    position INTEGER NOT NULL,
    layout TEXT NOT NULL,
    source_language TEXT NOT NULL,
    source_idiom TEXT NOT NULL,
    source_context TEXT NOT NULL,
    target_language TEXT NOT NULL,
    target_idiom TEXT NOT NULL,
    target_context TEXT NOT NULL,
    translation TEXT NOT NULL,
    score REAL NOT NULL,
    idiom_similarity REAL NOT NULL,
    context_similarity REAL NOT NULL,
    lexical_overlap REAL NOT NULL,
    rank INTEGER NOT NULL,
    source_index INTEGER NOT NULL,
    target_index INTEGER NOT NULL,
    PRIMARY KEY (run_id, set_name, position)
);

CREATE INDEX IF NOT EXISTS idx_matches_score ON matches(run_id, set_name, score DESC);
`

// OpenResultStore opens or creates the results database at path
func OpenResultStore(path string, logger Logger) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Pairs may finish concurrently; one connection serializes writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(resultSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &SQLiteStore{db: db, path: path, logger: orDiscard(logger)}, nil
}

// Path returns the database file path
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveRun stores run and every match set in one transaction and returns the run ID.
// A new ID is generated when run.ID is empty. Sets are stored in name order.
func (s *SQLiteStore) SaveRun(ctx context.Context, run RunRecord, sets map[string]MatchSet) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	reportJSON, err := json.Marshal(run.Report)
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, source_language, target_language, mode, report_json)
         VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.CreatedAt.UTC().Format(storedTimeLayout),
		run.SourceLanguage,
		run.TargetLanguage,
		run.Mode,
		string(reportJSON),
	); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO matches (
            run_id, set_name, position, layout,
            source_language, source_idiom, source_context,
            target_language, target_idiom, target_context, translation,
            score, idiom_similarity, context_similarity, lexical_overlap,
            rank, source_index, target_index
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare match insert: %w", err)
	}
	defer stmt.Close()

	names := make([]string, 0, len(sets))
	for name := range sets {
		names = append(names, name)
	}
	slices.Sort(names)

	total := 0
	for _, name := range names {
		set := sets[name]
		for pos, m := range set.Matches {
			if _, err := stmt.ExecContext(ctx,
				run.ID, name, pos, string(set.Layout),
				m.SourceLanguage, m.SourceIdiom, m.SourceContext,
				m.TargetLanguage, m.TargetIdiom, m.TargetContext, m.Translation,
				m.Score, m.IdiomSimilarity, m.ContextSimilarity, m.LexicalOverlap,
				m.Rank, m.SourceIndex, m.TargetIndex,
			); err != nil {
				return "", fmt.Errorf("insert match %s/%d: %w", name, pos, err)
			}
		}
		total += set.Len()
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit run: %w", err)
	}

	s.logger.Infof("SaveRun completed, run_id: %s, source: %s, target: %s, sets: %d, matches: %d",
		run.ID, run.SourceLanguage, run.TargetLanguage, len(sets), total)

	return run.ID, nil
}

// Runs lists stored runs, newest first
func (s *SQLiteStore) Runs(ctx context.Context) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, source_language, target_language, mode, report_json
         FROM runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var (
			run        RunRecord
			createdAt  string
			reportJSON string
		)
		if err := rows.Scan(&run.ID, &createdAt, &run.SourceLanguage, &run.TargetLanguage,
			&run.Mode, &reportJSON); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if run.CreatedAt, err = time.Parse(storedTimeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at of run %s: %w", run.ID, err)
		}
		if err := json.Unmarshal([]byte(reportJSON), &run.Report); err != nil {
			return nil, fmt.Errorf("decode report of run %s: %w", run.ID, err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// Matches returns one stored match set of a run in its original order
func (s *SQLiteStore) Matches(ctx context.Context, runID, setName string) (MatchSet, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT layout, source_language, source_idiom, source_context,
                target_language, target_idiom, target_context, translation,
                score, idiom_similarity, context_similarity, lexical_overlap,
                rank, source_index, target_index
         FROM matches WHERE run_id = ? AND set_name = ? ORDER BY position`,
		runID, setName)
	if err != nil {
		return MatchSet{}, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()

	set := MatchSet{Matches: []Match{}}
	for rows.Next() {
		var (
			m      Match
			layout string
		)
		if err := rows.Scan(&layout, &m.SourceLanguage, &m.SourceIdiom, &m.SourceContext,
			&m.TargetLanguage, &m.TargetIdiom, &m.TargetContext, &m.Translation,
			&m.Score, &m.IdiomSimilarity, &m.ContextSimilarity, &m.LexicalOverlap,
			&m.Rank, &m.SourceIndex, &m.TargetIndex); err != nil {
			return MatchSet{}, fmt.Errorf("scan match: %w", err)
		}
		set.Layout = Layout(layout)
		set.Matches = append(set.Matches, m)
	}

	return set, rows.Err()
}
