package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"memer/internal/model"
	"memer/migrations"
)

// ErrNotFound is returned when a channel document does not exist.
var ErrNotFound = errors.New("not found")

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection: keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// ListChannels returns every stored channel document ordered by insertion.
func (s *SQLite) ListChannels(ctx context.Context) ([]model.ChannelDocument, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT channel, name, nsfw, time FROM channels ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query channels: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var docs []model.ChannelDocument
	for rows.Next() {
		d, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *d)
	}
	return docs, rows.Err()
}

// UpsertChannel updates the row matching doc.Channel and inserts a new one
// only when nothing matched. Both steps run in one transaction.
func (s *SQLite) UpsertChannel(ctx context.Context, doc model.ChannelDocument) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE channels SET name = ?, nsfw = ?, time = ? WHERE channel = ?`,
		doc.Name, boolToInt(doc.Sensitive), doc.Time, doc.Channel,
	)
	if err != nil {
		return fmt.Errorf("update channel: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}

	if n == 0 {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO channels (channel, name, nsfw, time) VALUES (?, ?, ?, ?)`,
			doc.Channel, doc.Name, boolToInt(doc.Sensitive), doc.Time,
		); err != nil {
			return fmt.Errorf("insert channel: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetChannel returns a single document by its channel key.
func (s *SQLite) GetChannel(ctx context.Context, channel string) (*model.ChannelDocument, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT channel, name, nsfw, time FROM channels WHERE channel = ?`, channel,
	)
	d, err := scanChannel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("channel %s: %w", channel, ErrNotFound)
	}
	return d, err
}

// CountChannels returns the number of stored documents.
func (s *SQLite) CountChannels(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM channels`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count channels: %w", err)
	}
	return n, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type scannable interface {
	Scan(dest ...any) error
}

func scanChannel(row scannable) (*model.ChannelDocument, error) {
	var d model.ChannelDocument
	var nsfw int
	if err := row.Scan(&d.Channel, &d.Name, &nsfw, &d.Time); err != nil {
		return nil, fmt.Errorf("scan channel: %w", err)
	}
	d.Sensitive = nsfw == 1
	return &d, nil
}
