package database

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/sha3"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/emailharvester/internal/config"
	"github.com/nao1215/emailharvester/internal/model"
)

// FileName is the archive database file name inside the data directory.
const FileName = "emailharvester.db"

// RunDB stores finished runs and their rows.
type RunDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures RunDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the archive in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is
// returned.
func Open(dbDir string, opts Options) (*RunDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &RunDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return rdb, nil
}

// Path returns the database file path.
func (rdb *RunDB) Path() string {
	return rdb.dbPath
}

// Close closes the database connection.
func (rdb *RunDB) Close() error {
	return rdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (rdb *RunDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		config_digest TEXT NOT NULL,
		queries INTEGER DEFAULT 0,
		candidate_urls INTEGER DEFAULT 0,
		pages_scanned INTEGER DEFAULT 0,
		worker_failures INTEGER DEFAULT 0,
		unique_emails INTEGER DEFAULT 0,
		verifications INTEGER DEFAULT 0,
		preview INTEGER DEFAULT 0,
		cancelled INTEGER DEFAULT 0,
		error TEXT,
		quality_summary TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS run_rows (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		email TEXT NOT NULL,
		first_seen_source TEXT,
		all_sources TEXT,
		domain TEXT,
		mx_ok TEXT,
		hunter_result TEXT,
		hunter_confidence TEXT,
		quality TEXT,
		date_scraped_utc TEXT,
		notes TEXT,
		UNIQUE(run_id, email)
	);

	CREATE INDEX IF NOT EXISTS idx_rows_run ON run_rows(run_id);
	CREATE INDEX IF NOT EXISTS idx_rows_email ON run_rows(email);
	`

	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// RunRecord is the archived summary of one run.
type RunRecord struct {
	ID             int64
	StartedAt      time.Time
	FinishedAt     time.Time
	ConfigDigest   string
	Queries        int
	CandidateURLs  int
	PagesScanned   int
	WorkerFailures int
	UniqueEmails   int
	Verifications  int
	Preview        bool
	Cancelled      bool
	Error          string

	// QualitySummary maps quality labels to row counts.
	QualitySummary map[string]int
}

// SaveRun stores harvest and its rows in one transaction and returns the
// new run ID.
func (rdb *RunDB) SaveRun(ctx context.Context, harvest *model.Harvest, digest string) (int64, error) {
	qualityJSON, err := json.Marshal(harvest.QualityCounts())
	if err != nil {
		return 0, fmt.Errorf("failed to serialize quality summary: %w", err)
	}

	tx, err := rdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	result, err := tx.ExecContext(ctx, `
	INSERT INTO runs (started_at, finished_at, config_digest, queries, candidate_urls,
		pages_scanned, worker_failures, unique_emails, verifications, preview, cancelled,
		error, quality_summary)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		harvest.StartedAt.UTC().Format(time.RFC3339Nano),
		harvest.FinishedAt.UTC().Format(time.RFC3339Nano),
		digest,
		len(harvest.Queries),
		len(harvest.CandidateURLs),
		harvest.PagesScanned,
		harvest.WorkerFailures,
		len(harvest.Rows),
		len(harvest.Verifications),
		harvest.Preview,
		harvest.Cancelled,
		harvest.ErrorMessage,
		string(qualityJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save run: %w", err)
	}

	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run ID: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO run_rows (run_id, email, first_seen_source, all_sources, domain, mx_ok,
		hunter_result, hunter_confidence, quality, date_scraped_utc, notes)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare row insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range harvest.Rows {
		if _, err := stmt.ExecContext(ctx, runID,
			row.Email,
			row.FirstSeenSource,
			row.AllSources,
			row.Domain,
			row.MXOK,
			row.HunterResult,
			row.HunterConfidence,
			row.Quality,
			row.DateScrapedUTC,
			row.Notes,
		); err != nil {
			return 0, fmt.Errorf("failed to save row %s: %w", row.Email, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

// runColumns is the column list read into a RunRecord.
const runColumns = `id, started_at, finished_at, config_digest, queries, candidate_urls,
	pages_scanned, worker_failures, unique_emails, verifications, preview, cancelled,
	error, quality_summary`

// ListRuns returns the most recent runs first. A non-positive limit returns
// every run.
func (rdb *RunDB) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := rdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

// GetRun returns the run with the given ID, or nil if it does not exist.
func (rdb *RunDB) GetRun(ctx context.Context, id int64) (*RunRecord, error) {
	row := rdb.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return run, err
}

// GetRunRows returns the rows of a run sorted by email.
func (rdb *RunDB) GetRunRows(ctx context.Context, runID int64) ([]model.OutputRow, error) {
	rows, err := rdb.db.QueryContext(ctx, `
	SELECT email, first_seen_source, all_sources, domain, mx_ok, hunter_result,
		hunter_confidence, quality, date_scraped_utc, notes
	FROM run_rows
	WHERE run_id = ?
	ORDER BY email
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	defer rows.Close()

	var out []model.OutputRow
	for rows.Next() {
		var r model.OutputRow
		if err := rows.Scan(
			&r.Email,
			&r.FirstSeenSource,
			&r.AllSources,
			&r.Domain,
			&r.MXOK,
			&r.HunterResult,
			&r.HunterConfidence,
			&r.Quality,
			&r.DateScrapedUTC,
			&r.Notes,
		); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, r)
	}

	return out, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRun reads one runs row.
func scanRun(s rowScanner) (*RunRecord, error) {
	var run RunRecord
	var startedAt, finishedAt string
	var errMsg, qualityJSON sql.NullString

	err := s.Scan(
		&run.ID,
		&startedAt,
		&finishedAt,
		&run.ConfigDigest,
		&run.Queries,
		&run.CandidateURLs,
		&run.PagesScanned,
		&run.WorkerFailures,
		&run.UniqueEmails,
		&run.Verifications,
		&run.Preview,
		&run.Cancelled,
		&errMsg,
		&qualityJSON,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run.StartedAt = parseTimestamp(startedAt)
	run.FinishedAt = parseTimestamp(finishedAt)
	run.Error = errMsg.String

	run.QualitySummary = make(map[string]int)
	if qualityJSON.Valid && qualityJSON.String != "" {
		if err := json.Unmarshal([]byte(qualityJSON.String), &run.QualitySummary); err != nil {
			run.QualitySummary = make(map[string]int)
		}
	}

	return &run, nil
}

// timestampFormats contains the timestamp formats that may be stored.
// More specific formats come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05", // SQLite default datetime format
	"2006-01-02T15:04:05",
}

// parseTimestamp tries each known format and returns the zero time when
// none matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// digestInput is the part of a config that determines what a run does.
// Keys, output paths and transport settings are excluded.
type digestInput struct {
	Categories             []string `json:"categories"`
	Seeds                  []string `json:"seeds"`
	UseSelenium            bool     `json:"use_selenium"`
	UseHunter              bool     `json:"use_hunter"`
	UseHunterDomainSearch  bool     `json:"use_hunter_domain_search"`
	Preview                bool     `json:"preview"`
	MaxHunterVerifications int      `json:"max_hunter_verifications"`
	MaxResultsPerQuery     int      `json:"max_results_per_query"`
	Workers                int      `json:"workers"`
	MinDelay               float64  `json:"min_delay"`
	MaxDelay               float64  `json:"max_delay"`
	UserAgent              string   `json:"user_agent"`
}

// ConfigDigest returns a hex SHA3-256 digest identifying the inputs of a
// run, so runs over the same inputs can be recognized in the history.
func ConfigDigest(cfg *config.Config) string {
	data, err := json.Marshal(digestInput{
		Categories:             cfg.Categories,
		Seeds:                  cfg.Seeds,
		UseSelenium:            cfg.UseSelenium,
		UseHunter:              cfg.UseHunter,
		UseHunterDomainSearch:  cfg.UseHunterDomainSearch,
		Preview:                cfg.PreviewMode(),
		MaxHunterVerifications: cfg.MaxHunterVerifications,
		MaxResultsPerQuery:     cfg.MaxResultsPerQuery,
		Workers:                cfg.Workers,
		MinDelay:               cfg.MinDelay,
		MaxDelay:               cfg.MaxDelay,
		UserAgent:              cfg.UserAgent,
	})
	if err != nil {
		return ""
	}

	sum := sha3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
