package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rbright/rehearse/internal/analysis"
	"github.com/rbright/rehearse/internal/logging"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Get for an unknown session ID.
var ErrNotFound = errors.New("history record not found")

const defaultListLimit = 20

const schema = `
	CREATE TABLE IF NOT EXISTS analyses (
		id TEXT PRIMARY KEY,
		question TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		mimeType TEXT NOT NULL,
		bytes INTEGER NOT NULL,
		startedAt REAL NOT NULL,
		analyzedAt REAL NOT NULL,
		confidenceScore INTEGER NOT NULL,
		transcript TEXT NOT NULL DEFAULT '',
		eyeContact TEXT NOT NULL DEFAULT '',
		facialExpressions TEXT NOT NULL DEFAULT '',
		speakingStyle TEXT NOT NULL DEFAULT '',
		feedbackPoints TEXT NOT NULL DEFAULT '[]'
	);
	CREATE INDEX IF NOT EXISTS analyses_analyzed_at ON analyses(analyzedAt);
`

// Store is read/write access to the history database.
type Store struct {
	db *sql.DB
}

// DefaultPath returns $XDG_STATE_HOME/rehearse/history.sqlite.
func DefaultPath() (string, error) {
	dir, err := logging.StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.sqlite"), nil
}

// Open opens (creating if needed) the database at path. ":memory:" is
// accepted for tests.
func Open(path string) (*Store, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// one connection keeps ":memory:" a single database
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts or replaces rec.
func (s *Store) Save(ctx context.Context, rec Record) error {
	if strings.TrimSpace(rec.ID) == "" {
		return errors.New("history record requires an id")
	}
	points := rec.Result.FeedbackPoints
	if points == nil {
		points = analysis.Points{}
	}
	feedback, err := json.Marshal(points)
	if err != nil {
		return fmt.Errorf("encode feedback points: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO analyses (
			id, question, notes, mimeType, bytes, startedAt, analyzedAt,
			confidenceScore, transcript, eyeContact, facialExpressions, speakingStyle, feedbackPoints
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID, rec.Question, rec.Notes, rec.MimeType, rec.Bytes,
		unixFromTime(rec.StartedAt), unixFromTime(rec.AnalyzedAt),
		int(rec.Result.ConfidenceScore), rec.Result.Transcript, rec.Result.EyeContact,
		rec.Result.FacialExpressions, rec.Result.SpeakingStyle, string(feedback),
	)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

// List returns the newest records first. limit <= 0 uses a default of 20.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, question, notes, mimeType, bytes, startedAt, analyzedAt,
			confidenceScore, transcript, eyeContact, facialExpressions, speakingStyle, feedbackPoints
		FROM analyses
		ORDER BY analyzedAt DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query analyses: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Get returns one record by session ID.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, question, notes, mimeType, bytes, startedAt, analyzedAt,
			confidenceScore, transcript, eyeContact, facialExpressions, speakingStyle, feedbackPoints
		FROM analyses
		WHERE id = ?
	`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var rec Record
	var startedAt, analyzedAt float64
	var score int
	var feedback string
	err := row.Scan(&rec.ID, &rec.Question, &rec.Notes, &rec.MimeType, &rec.Bytes,
		&startedAt, &analyzedAt, &score, &rec.Result.Transcript, &rec.Result.EyeContact,
		&rec.Result.FacialExpressions, &rec.Result.SpeakingStyle, &feedback)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("scan analysis: %w", err)
	}
	rec.StartedAt = timeFromUnix(startedAt)
	rec.AnalyzedAt = timeFromUnix(analyzedAt)
	rec.Result.ConfidenceScore = analysis.Score(score)
	if err := json.Unmarshal([]byte(feedback), &rec.Result.FeedbackPoints); err != nil {
		return Record{}, fmt.Errorf("decode feedback points: %w", err)
	}
	if len(rec.Result.FeedbackPoints) == 0 {
		rec.Result.FeedbackPoints = nil
	}
	return rec, nil
}

func unixFromTime(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.UnixNano()) / 1e9
}

func timeFromUnix(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
