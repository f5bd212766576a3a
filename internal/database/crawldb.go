package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/pagewalk/internal/model"
)

// FileName is the name of the history database inside its directory.
const FileName = "pagewalk.db"

// CrawlDB provides SQLite-based storage for crawl history.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures CrawlDB behavior.
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

// Open opens or creates a CrawlDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (run a crawl first)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc creates it.
	dsn := dbPath + "?mode=rw&_pragma=foreign_keys(1)"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc&_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables() error {
	schema := `
	-- One row per crawl
	CREATE TABLE IF NOT EXISTS crawls (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		site TEXT NOT NULL,
		start_url TEXT NOT NULL,
		last_url TEXT,
		termination TEXT NOT NULL,
		error TEXT,
		fragment_count INTEGER NOT NULL DEFAULT 0,
		pages_visited INTEGER NOT NULL DEFAULT 0,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_crawls_site ON crawls(site);
	CREATE INDEX IF NOT EXISTS idx_crawls_started ON crawls(started_at);

	-- Fragments in crawl order
	CREATE TABLE IF NOT EXISTS fragments (
		crawl_id INTEGER NOT NULL REFERENCES crawls(id) ON DELETE CASCADE,
		ordinal INTEGER NOT NULL,
		locator TEXT NOT NULL,
		label TEXT NOT NULL DEFAULT '',
		text TEXT NOT NULL,
		hash TEXT NOT NULL,
		PRIMARY KEY (crawl_id, ordinal)
	);

	-- Pages fetched by a crawl
	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		crawl_id INTEGER NOT NULL REFERENCES crawls(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		status_code INTEGER,
		content_type TEXT,
		title TEXT,
		raw_hash TEXT,
		fetched_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_pages_crawl ON pages(crawl_id);
	CREATE INDEX IF NOT EXISTS idx_pages_url ON pages(url);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// CrawlRecord is the stored summary of one crawl.
type CrawlRecord struct {
	ID            int64
	Site          string
	StartURL      string
	LastURL       string
	Termination   model.Termination
	Error         string
	FragmentCount int
	PagesVisited  int
	StartedAt     time.Time
	FinishedAt    time.Time
}

// PageRecord is one fetched page of a crawl.
type PageRecord struct {
	URL         string
	StatusCode  int
	ContentType string
	Title       string
	RawHash     string
	FetchedAt   time.Time
}

// SaveCrawl stores a finished crawl with its fragments and pages in one
// transaction and returns the new crawl ID.
func (cdb *CrawlDB) SaveCrawl(ctx context.Context, site string, result *model.CrawlResult, pages []PageRecord) (id int64, err error) {
	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
	INSERT INTO crawls (site, start_url, last_url, termination, error, fragment_count, pages_visited, started_at, finished_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		site,
		result.Start,
		result.LastLocator,
		result.Termination.String(),
		result.ErrorMessage,
		result.Count(),
		result.PagesVisited,
		formatTimestamp(result.StartedAt),
		formatTimestamp(result.FinishedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert crawl: %w", err)
	}

	id, err = res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get crawl id: %w", err)
	}

	for _, f := range result.Fragments {
		if _, err = tx.ExecContext(ctx, `
		INSERT INTO fragments (crawl_id, ordinal, locator, label, text, hash)
		VALUES (?, ?, ?, ?, ?, ?)
		`, id, f.Ordinal, f.Locator, f.Label, f.Text, f.Hash()); err != nil {
			return 0, fmt.Errorf("failed to insert section %d: %w", f.Ordinal, err)
		}
	}

	for _, p := range pages {
		if _, err = tx.ExecContext(ctx, `
		INSERT INTO pages (crawl_id, url, status_code, content_type, title, raw_hash, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		`, id, p.URL, p.StatusCode, p.ContentType, p.Title, p.RawHash, formatTimestamp(p.FetchedAt)); err != nil {
			return 0, fmt.Errorf("failed to insert page %s: %w", p.URL, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit crawl: %w", err)
	}
	return id, nil
}

// GetCrawl retrieves a crawl by ID. It returns nil when no crawl has the ID.
func (cdb *CrawlDB) GetCrawl(ctx context.Context, id int64) (*CrawlRecord, error) {
	row := cdb.db.QueryRowContext(ctx, `
	SELECT id, site, start_url, last_url, termination, error, fragment_count, pages_visited, started_at, finished_at
	FROM crawls
	WHERE id = ?
	`, id)

	record, err := scanCrawl(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get crawl: %w", err)
	}
	return record, nil
}

// ListCrawls returns crawls, newest first. An empty site lists every site.
// A limit of 0 or less returns all crawls.
func (cdb *CrawlDB) ListCrawls(ctx context.Context, site string, limit int) ([]CrawlRecord, error) {
	query := `
	SELECT id, site, start_url, last_url, termination, error, fragment_count, pages_visited, started_at, finished_at
	FROM crawls
	WHERE 1=1
	`
	args := make([]any, 0, 2)

	if site != "" {
		query += " AND site = ?"
		args = append(args, site)
	}

	query += " ORDER BY started_at DESC, id DESC"

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list crawls: %w", err)
	}
	defer rows.Close()

	var records []CrawlRecord
	for rows.Next() {
		record, err := scanCrawl(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan crawl: %w", err)
		}
		records = append(records, *record)
	}

	return records, rows.Err()
}

// GetFragments returns the fragments of a crawl in ordinal order.
func (cdb *CrawlDB) GetFragments(ctx context.Context, crawlID int64) ([]model.Fragment, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT ordinal, locator, label, text
	FROM fragments
	WHERE crawl_id = ?
	ORDER BY ordinal
	`, crawlID)
	if err != nil {
		return nil, fmt.Errorf("failed to get fragments: %w", err)
	}
	defer rows.Close()

	var fragments []model.Fragment
	for rows.Next() {
		var f model.Fragment
		if err := rows.Scan(&f.Ordinal, &f.Locator, &f.Label, &f.Text); err != nil {
			return nil, fmt.Errorf("failed to scan fragment: %w", err)
		}
		fragments = append(fragments, f)
	}

	return fragments, rows.Err()
}

// GetPages returns the pages fetched by a crawl in fetch order.
func (cdb *CrawlDB) GetPages(ctx context.Context, crawlID int64) ([]PageRecord, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT url, status_code, content_type, title, raw_hash, fetched_at
	FROM pages
	WHERE crawl_id = ?
	ORDER BY id
	`, crawlID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pages: %w", err)
	}
	defer rows.Close()

	var pages []PageRecord
	for rows.Next() {
		var (
			p         PageRecord
			fetchedAt string
		)
		if err := rows.Scan(&p.URL, &p.StatusCode, &p.ContentType, &p.Title, &p.RawHash, &fetchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		p.FetchedAt = parseTimestamp(fetchedAt)
		pages = append(pages, p)
	}

	return pages, rows.Err()
}

// Result rebuilds a CrawlResult from a stored crawl and its fragments.
func (cdb *CrawlDB) Result(ctx context.Context, id int64) (*model.CrawlResult, error) {
	record, err := cdb.GetCrawl(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, nil
	}

	fragments, err := cdb.GetFragments(ctx, id)
	if err != nil {
		return nil, err
	}
	if fragments == nil {
		fragments = make([]model.Fragment, 0)
	}

	return &model.CrawlResult{
		Start:        record.StartURL,
		Fragments:    fragments,
		PagesVisited: record.PagesVisited,
		LastLocator:  record.LastURL,
		Termination:  record.Termination,
		ErrorMessage: record.Error,
		StartedAt:    record.StartedAt,
		FinishedAt:   record.FinishedAt,
	}, nil
}

// DeleteCrawl removes a crawl with its fragments and pages.
// It reports whether a crawl was deleted.
func (cdb *CrawlDB) DeleteCrawl(ctx context.Context, id int64) (bool, error) {
	res, err := cdb.db.ExecContext(ctx, "DELETE FROM crawls WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete crawl: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete crawl: %w", err)
	}
	return n > 0, nil
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCrawl(row rowScanner) (*CrawlRecord, error) {
	var (
		record      CrawlRecord
		lastURL     sql.NullString
		termination string
		errMsg      sql.NullString
		startedAt   string
		finishedAt  string
	)

	if err := row.Scan(
		&record.ID,
		&record.Site,
		&record.StartURL,
		&lastURL,
		&termination,
		&errMsg,
		&record.FragmentCount,
		&record.PagesVisited,
		&startedAt,
		&finishedAt,
	); err != nil {
		return nil, err
	}

	t, err := model.ParseTermination(termination)
	if err != nil {
		return nil, err
	}

	record.LastURL = lastURL.String
	record.Termination = t
	record.Error = errMsg.String
	record.StartedAt = parseTimestamp(startedAt)
	record.FinishedAt = parseTimestamp(finishedAt)

	return &record, nil
}

// formatTimestamp stores times in UTC with nanoseconds so that text order
// is chronological order.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,          // Format written by formatTimestamp
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
