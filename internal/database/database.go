package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"smsview/internal/constants"
	apperrors "smsview/internal/errors"
	"smsview/internal/migrations"
	"smsview/internal/models"
	"smsview/internal/security"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// MemoryPath opens a journal that lives only as long as the process.
const MemoryPath = ":memory:"

// Journal records the outcome of every backup load. It stores file metadata
// only, never message content.
type Journal struct {
	db         *sql.DB
	maxEntries int
}

func New(dbPath string, maxEntries int) (*Journal, error) {
	if dbPath != MemoryPath {
		if err := security.ValidateFilePath(dbPath); err != nil {
			return nil, fmt.Errorf("invalid journal path: %w", err)
		}

		file, err := os.OpenFile(dbPath, os.O_RDWR|os.O_CREATE, 0600) // #nosec G304 - validated above
		if err != nil {
			return nil, fmt.Errorf("failed to create journal file: %w", err)
		}
		if err := file.Close(); err != nil {
			return nil, fmt.Errorf("failed to close journal file: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// one connection keeps :memory: databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, closeWith(db, fmt.Errorf("failed to ping journal: %w", err))
	}

	scripts, err := migrations.All()
	if err != nil {
		return nil, closeWith(db, err)
	}
	for _, m := range scripts {
		if _, err := db.Exec(m.Script); err != nil {
			return nil, closeWith(db, fmt.Errorf("failed to apply %s: %w", m.Name, err))
		}
	}

	if maxEntries <= 0 {
		maxEntries = constants.DefaultJournalEntries
	}
	return &Journal{db: db, maxEntries: maxEntries}, nil
}

func closeWith(db *sql.DB, err error) error {
	if closeErr := db.Close(); closeErr != nil {
		return fmt.Errorf("%w (close error: %v)", err, closeErr)
	}
	return err
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// Record stores a load event and trims the journal to its size limit.
func (j *Journal) Record(ctx context.Context, event *models.LoadEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO load_events (
			id, generation, file_name, size_bytes, digest,
			message_count, status, error_code, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := j.db.ExecContext(ctx, query,
		event.ID,
		int64(event.Generation),
		event.FileName,
		event.SizeBytes,
		event.Digest,
		event.MessageCount,
		string(event.Status),
		event.ErrorCode,
		event.CreatedAt,
	)
	if err != nil {
		return apperrors.NewDatabaseError("insert load event", err)
	}

	prune := `
		DELETE FROM load_events
		WHERE id NOT IN (
			SELECT id FROM load_events ORDER BY created_at DESC, rowid DESC LIMIT ?
		)
	`
	if _, err := j.db.ExecContext(ctx, prune, j.maxEntries); err != nil {
		return apperrors.NewDatabaseError("prune load events", err)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]models.LoadEvent, error) {
	if limit <= 0 {
		limit = constants.DefaultRecentLoadsLimit
	}

	query := `
		SELECT id, generation, file_name, size_bytes, digest,
			   message_count, status, error_code, created_at
		FROM load_events
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`
	rows, err := j.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, apperrors.NewDatabaseError("query load events", err)
	}
	defer rows.Close()

	events := []models.LoadEvent{}
	for rows.Next() {
		var (
			event      models.LoadEvent
			generation int64
			status     string
		)
		if err := rows.Scan(
			&event.ID,
			&generation,
			&event.FileName,
			&event.SizeBytes,
			&event.Digest,
			&event.MessageCount,
			&status,
			&event.ErrorCode,
			&event.CreatedAt,
		); err != nil {
			return nil, apperrors.NewDatabaseError("scan load event", err)
		}
		event.Generation = uint64(generation)
		event.Status = models.LoadStatus(status)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError("iterate load events", err)
	}
	return events, nil
}
