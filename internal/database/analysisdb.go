package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/deepvision/internal/report"
)

// FileName is the database file created inside the data directory.
const FileName = "deepvision.db"

// DefaultListLimit is used when ListOptions.Limit is not positive.
const DefaultListLimit = 20

// ErrNotFound is returned when no analysis has the requested ID.
var ErrNotFound = errors.New("analysis not found")

// AnalysisDB provides SQLite-based storage for analysis documents.
// It is safe for concurrent use.
type AnalysisDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures AnalysisDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates an AnalysisDB in dbDir.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*AnalysisDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file; mode=rwc allows it.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	adb := &AnalysisDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := adb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return adb, nil
}

// Path returns the database file path.
func (adb *AnalysisDB) Path() string {
	return adb.dbPath
}

// Close closes the database connection.
func (adb *AnalysisDB) Close() error {
	return adb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (adb *AnalysisDB) createTables() error {
	schema := `
	-- Analyses store complete response documents as JSON
	CREATE TABLE IF NOT EXISTS analyses (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		sha3_256 TEXT NOT NULL,
		format TEXT NOT NULL,
		verdict TEXT NOT NULL,
		score INTEGER NOT NULL,
		degraded INTEGER NOT NULL DEFAULT 0,
		analyzed_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_analyses_sha3 ON analyses(sha3_256);
	CREATE INDEX IF NOT EXISTS idx_analyses_verdict ON analyses(verdict);
	CREATE INDEX IF NOT EXISTS idx_analyses_analyzed_at ON analyses(analyzed_at);

	-- Tool results track each adapter's outcome per analysis
	CREATE TABLE IF NOT EXISTS tool_results (
		analysis_id TEXT NOT NULL REFERENCES analyses(id) ON DELETE CASCADE,
		tool TEXT NOT NULL,
		status TEXT NOT NULL,
		findings INTEGER NOT NULL DEFAULT 0,
		error TEXT,
		PRIMARY KEY (analysis_id, tool)
	);

	CREATE INDEX IF NOT EXISTS idx_tool_results_tool ON tool_results(tool);
	`

	_, err := adb.db.ExecContext(context.Background(), schema)
	return err
}

// Save stores a document. Saving a document with an existing ID replaces it.
func (adb *AnalysisDB) Save(ctx context.Context, doc *report.Document) error {
	reportJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	analyzedAt := doc.AnalyzedAt
	if analyzedAt.IsZero() {
		analyzedAt = time.Now()
	}

	tx, err := adb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after commit
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tool_results WHERE analysis_id = ?`, doc.ID); err != nil {
		return fmt.Errorf("failed to clear tool results: %w", err)
	}

	query := `
	INSERT INTO analyses (id, filename, sha3_256, format, verdict, score, degraded, analyzed_at, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		filename = excluded.filename,
		sha3_256 = excluded.sha3_256,
		format = excluded.format,
		verdict = excluded.verdict,
		score = excluded.score,
		degraded = excluded.degraded,
		analyzed_at = excluded.analyzed_at,
		report_json = excluded.report_json
	`
	_, err = tx.ExecContext(ctx, query,
		doc.ID,
		doc.Filename,
		doc.Fingerprint,
		doc.Format,
		doc.FinalReport.Verdict,
		doc.FinalReport.SuspicionScore,
		boolToInt(doc.FinalReport.Degraded),
		analyzedAt.UTC().Format(timeLayout),
		string(reportJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO tool_results (analysis_id, tool, status, findings, error)
	VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare tool results: %w", err)
	}
	defer stmt.Close()

	for _, id := range doc.OrderedToolIDs() {
		tr := doc.ToolReports[id]
		if _, err := stmt.ExecContext(ctx, doc.ID, id, tr.Status, tr.Findings(), nullString(tr.Error)); err != nil {
			return fmt.Errorf("failed to save tool result %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit analysis: %w", err)
	}
	return nil
}

// Get retrieves a document by run ID. It returns ErrNotFound if there is
// none.
func (adb *AnalysisDB) Get(ctx context.Context, id string) (*report.Document, error) {
	var reportJSON string
	err := adb.db.QueryRowContext(ctx, `SELECT report_json FROM analyses WHERE id = ?`, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}

	var doc report.Document
	if err := json.Unmarshal([]byte(reportJSON), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &doc, nil
}

// AnalysisSummary is a history row without the full document.
type AnalysisSummary struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	Fingerprint string    `json:"sha3_256"`
	Format      string    `json:"format"`
	Verdict     string    `json:"verdict"`
	Score       int       `json:"suspicion_score"`
	Degraded    bool      `json:"degraded"`
	AnalyzedAt  time.Time `json:"analyzed_at"`
}

// ListOptions filters and pages List.
type ListOptions struct {
	// Limit caps the number of rows. Non-positive means DefaultListLimit.
	Limit int
	// Offset skips rows.
	Offset int
	// Verdict keeps only rows with this verdict when set.
	Verdict string
}

// List returns analyses, newest first.
func (adb *AnalysisDB) List(ctx context.Context, opts ListOptions) ([]AnalysisSummary, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `
	SELECT id, filename, sha3_256, format, verdict, score, degraded, analyzed_at
	FROM analyses
	WHERE (? = '' OR verdict = ?)
	ORDER BY analyzed_at DESC, id
	LIMIT ? OFFSET ?
	`
	rows, err := adb.db.QueryContext(ctx, query, opts.Verdict, opts.Verdict, limit, max(opts.Offset, 0))
	if err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}
	return scanSummaries(rows)
}

// FindByFingerprint returns earlier analyses of the same file, newest first.
func (adb *AnalysisDB) FindByFingerprint(ctx context.Context, sha3 string) ([]AnalysisSummary, error) {
	query := `
	SELECT id, filename, sha3_256, format, verdict, score, degraded, analyzed_at
	FROM analyses
	WHERE sha3_256 = ?
	ORDER BY analyzed_at DESC, id
	`
	rows, err := adb.db.QueryContext(ctx, query, sha3)
	if err != nil {
		return nil, fmt.Errorf("failed to find analyses: %w", err)
	}
	return scanSummaries(rows)
}

// Delete removes an analysis. Deleting an unknown ID returns ErrNotFound.
func (adb *AnalysisDB) Delete(ctx context.Context, id string) error {
	tx, err := adb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // no-op after commit
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tool_results WHERE analysis_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete tool results: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM analyses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete analysis: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return tx.Commit()
}

// ToolStat summarizes one tool's outcomes across the history.
type ToolStat struct {
	Tool         string `json:"tool"`
	Runs         int    `json:"runs"`
	Successes    int    `json:"successes"`
	Errors       int    `json:"errors"`
	NotInstalled int    `json:"not_installed"`
	WithFindings int    `json:"with_findings"`
}

// ToolStats aggregates tool outcomes, ordered by tool name.
func (adb *AnalysisDB) ToolStats(ctx context.Context) ([]ToolStat, error) {
	query := `
	SELECT tool,
		COUNT(*),
		SUM(CASE WHEN status = 'Success' THEN 1 ELSE 0 END),
		SUM(CASE WHEN status = 'Error' THEN 1 ELSE 0 END),
		SUM(CASE WHEN status = 'Not Installed' THEN 1 ELSE 0 END),
		SUM(CASE WHEN status = 'Success' AND findings > 0 THEN 1 ELSE 0 END)
	FROM tool_results
	GROUP BY tool
	ORDER BY tool
	`
	rows, err := adb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate tool results: %w", err)
	}
	defer rows.Close()

	var stats []ToolStat
	for rows.Next() {
		var s ToolStat
		if err := rows.Scan(&s.Tool, &s.Runs, &s.Successes, &s.Errors, &s.NotInstalled, &s.WithFindings); err != nil {
			return nil, fmt.Errorf("failed to scan tool stat: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func scanSummaries(rows *sql.Rows) ([]AnalysisSummary, error) {
	defer rows.Close()

	var results []AnalysisSummary
	for rows.Next() {
		var s AnalysisSummary
		var degraded int
		var analyzedAt string
		if err := rows.Scan(&s.ID, &s.Filename, &s.Fingerprint, &s.Format, &s.Verdict, &s.Score, &degraded, &analyzedAt); err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		s.Degraded = degraded != 0
		s.AnalyzedAt = parseTimestamp(analyzedAt)
		results = append(results, s)
	}
	return results, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// timeLayout has a fixed width so that stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timeLayout,                // Format written by Save
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
