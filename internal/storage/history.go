package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/t77yq/deadline-bot/internal/model"
)

// HistoryStorage defines the interface for deadline lifecycle history
type HistoryStorage interface {
	// Emit stores a lifecycle event
	Emit(ctx context.Context, event *model.DeadlineEvent) error

	// List retrieves a channel's events, newest first. An empty channelID lists every channel.
	List(ctx context.Context, channelID string, offset, limit int) ([]*model.DeadlineEvent, error)

	// Count returns the number of events stored for a channel, or for every channel when empty
	Count(ctx context.Context, channelID string) (int, error)

	// DeleteBefore deletes events older than the specified time
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// SQLiteHistory implements HistoryStorage using SQLite
type SQLiteHistory struct {
	logger *zap.Logger
	db     *sql.DB
}

// NewSQLiteHistory opens (or creates) the history database at dbPath
func NewSQLiteHistory(logger *zap.Logger, dbPath string) (*SQLiteHistory, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	storage := &SQLiteHistory{
		logger: logger.Named("history"),
		db:     db,
	}

	if err := storage.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	return storage, nil
}

// initialize creates the necessary tables if they don't exist
func (s *SQLiteHistory) initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS deadline_events (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			channel_id TEXT NOT NULL,
			message_id TEXT,
			target_time DATETIME NOT NULL,
			percent REAL NOT NULL DEFAULT 0,
			error TEXT,
			occurred_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_deadline_events_channel_id ON deadline_events(channel_id);
		CREATE INDEX IF NOT EXISTS idx_deadline_events_occurred_at ON deadline_events(occurred_at);
	`)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	return nil
}

// Emit implements HistoryStorage.Emit
func (s *SQLiteHistory) Emit(ctx context.Context, event *model.DeadlineEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO deadline_events (
			id, type, channel_id, message_id, target_time, percent, error, occurred_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		string(event.Type),
		event.ChannelID,
		sql.NullString{String: event.MessageID, Valid: event.MessageID != ""},
		event.TargetTime.UTC(),
		event.Percent,
		sql.NullString{String: event.Error, Valid: event.Error != ""},
		event.OccurredAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to store deadline event: %w", err)
	}
	return nil
}

// List implements HistoryStorage.List
func (s *SQLiteHistory) List(ctx context.Context, channelID string, offset, limit int) ([]*model.DeadlineEvent, error) {
	query := "SELECT id, type, channel_id, message_id, target_time, percent, error, occurred_at FROM deadline_events"
	args := make([]interface{}, 0, 3)

	if channelID != "" {
		query += " WHERE channel_id = ?"
		args = append(args, channelID)
	}

	query += " ORDER BY occurred_at DESC, rowid DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list deadline events: %w", err)
	}
	defer rows.Close()

	var events []*model.DeadlineEvent
	for rows.Next() {
		event := &model.DeadlineEvent{}
		var eventType string
		var messageID, errorStr sql.NullString

		err := rows.Scan(
			&event.ID,
			&eventType,
			&event.ChannelID,
			&messageID,
			&event.TargetTime,
			&event.Percent,
			&errorStr,
			&event.OccurredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deadline event: %w", err)
		}

		event.Type = model.DeadlineEventType(eventType)
		if messageID.Valid {
			event.MessageID = messageID.String
		}
		if errorStr.Valid {
			event.Error = errorStr.String
		}

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}

	return events, nil
}

// Count implements HistoryStorage.Count
func (s *SQLiteHistory) Count(ctx context.Context, channelID string) (int, error) {
	query := "SELECT COUNT(*) FROM deadline_events"
	args := make([]interface{}, 0, 1)

	if channelID != "" {
		query += " WHERE channel_id = ?"
		args = append(args, channelID)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count deadline events: %w", err)
	}
	return count, nil
}

// DeleteBefore implements HistoryStorage.DeleteBefore
func (s *SQLiteHistory) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM deadline_events WHERE occurred_at < ?", before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete deadline events: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	s.logger.Info("Deleted old deadline events",
		zap.Time("before", before),
		zap.Int64("deleted", affected))

	return affected, nil
}

// Close closes the database connection
func (s *SQLiteHistory) Close() error {
	return s.db.Close()
}
