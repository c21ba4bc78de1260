package votedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/mediatrack/internal/model"
)

// FileName is the database file created inside the database directory.
const FileName = "mediatrack.db"

// ErrEmptyImageURL is returned for votes and lookups without an identity.
var ErrEmptyImageURL = errors.New("image URL is empty")

// VoteDB stores vote tallies in SQLite.
type VoteDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string

	now func() time.Time
}

// Options configures VoteDB behavior.
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

// Open opens or creates a VoteDB in dbDir.
func Open(dbDir string, opts Options) (*VoteDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	vdb := &VoteDB{
		db:     db,
		dbPath: dbPath,
		now:    time.Now,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := vdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return vdb, nil
}

// Close closes the database connection.
func (vdb *VoteDB) Close() error {
	return vdb.db.Close()
}

// Path returns the database file path.
func (vdb *VoteDB) Path() string {
	return vdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (vdb *VoteDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS image_votes (
		image_url TEXT PRIMARY KEY,
		fake_votes INTEGER NOT NULL DEFAULT 0 CHECK (fake_votes >= 0),
		real_votes INTEGER NOT NULL DEFAULT 0 CHECK (real_votes >= 0),
		last_updated TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_votes_updated ON image_votes(last_updated);
	`

	_, err := vdb.db.ExecContext(context.Background(), schema)
	return err
}

// Tally returns the counters for imageURL, or zeros when it has none.
func (vdb *VoteDB) Tally(ctx context.Context, imageURL string) (model.Tally, error) {
	if imageURL == "" {
		return model.Tally{}, ErrEmptyImageURL
	}

	query := `
	SELECT image_url, fake_votes, real_votes, last_updated
	FROM image_votes
	WHERE image_url = ?
	`

	t, err := scanTally(vdb.db.QueryRowContext(ctx, query, imageURL))
	if errors.Is(err, sql.ErrNoRows) {
		return model.NewTally(imageURL), nil
	}
	if err != nil {
		return model.Tally{}, fmt.Errorf("failed to get votes: %w", err)
	}
	return t, nil
}

// Vote increments one counter and returns the updated row.
func (vdb *VoteDB) Vote(ctx context.Context, imageURL string, isFake bool) (model.Tally, error) {
	if imageURL == "" {
		return model.Tally{}, ErrEmptyImageURL
	}

	fakeDelta, realDelta := 0, 1
	if isFake {
		fakeDelta, realDelta = 1, 0
	}

	query := `
	INSERT INTO image_votes (image_url, fake_votes, real_votes, last_updated)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(image_url) DO UPDATE SET
		fake_votes = fake_votes + excluded.fake_votes,
		real_votes = real_votes + excluded.real_votes,
		last_updated = excluded.last_updated
	RETURNING image_url, fake_votes, real_votes, last_updated
	`

	now := vdb.now().UTC().Format(time.RFC3339Nano)
	t, err := scanTally(vdb.db.QueryRowContext(ctx, query, imageURL, fakeDelta, realDelta, now))
	if err != nil {
		return model.Tally{}, fmt.Errorf("failed to update votes: %w", err)
	}
	return t, nil
}

// All returns every tally, most recently updated first.
func (vdb *VoteDB) All(ctx context.Context) ([]model.Tally, error) {
	query := `
	SELECT image_url, fake_votes, real_votes, last_updated
	FROM image_votes
	ORDER BY last_updated DESC, image_url
	`

	rows, err := vdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}
	defer rows.Close()

	tallies := make([]model.Tally, 0)
	for rows.Next() {
		t, err := scanTally(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan votes: %w", err)
		}
		tallies = append(tallies, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}
	return tallies, nil
}

// Count returns the number of identities with votes.
func (vdb *VoteDB) Count(ctx context.Context) (int, error) {
	var count int
	if err := vdb.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM image_votes").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count votes: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTally(row rowScanner) (model.Tally, error) {
	var t model.Tally
	var lastUpdated string
	if err := row.Scan(&t.ImageURL, &t.FakeVotes, &t.RealVotes, &lastUpdated); err != nil {
		return model.Tally{}, err
	}
	t.LastUpdated = parseTimestamp(lastUpdated)
	return t, nil
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,          // Written by Vote
	time.RFC3339,              // Full RFC3339 format
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp parses a stored timestamp, returning zero time when no
// format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
