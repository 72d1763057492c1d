package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"no-lights-dtek/internal/models"
)

type DB struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &DB{Pool: pool}, nil
}

func (db *DB) Close() {
	db.Pool.Close()
}

// Migrate creates the schema if it doesn't exist.
func (db *DB) Migrate(ctx context.Context) error {
	sql := `
	CREATE TABLE IF NOT EXISTS status_events (
		id             BIGSERIAL PRIMARY KEY,
		subscriber_id  BIGINT NOT NULL,
		status         TEXT NOT NULL,
		address        TEXT NOT NULL DEFAULT '',
		group_name     TEXT,
		reason         TEXT,
		timestamp      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_status_events_subscriber_time
		ON status_events (subscriber_id, timestamp DESC);
	`
	_, err := db.Pool.Exec(ctx, sql)
	return err
}

// RecordStatusEvent logs a status change for the history endpoint.
func (db *DB) RecordStatusEvent(ctx context.Context, e *models.StatusEvent) error {
	return db.Pool.QueryRow(ctx, `
		INSERT INTO status_events (subscriber_id, status, address, group_name, reason, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, e.SubscriberID, e.Status, e.Address, e.GroupName, e.Reason, e.Timestamp).Scan(&e.ID)
}

// GetStatusHistory returns status events for a subscriber within a time range.
func (db *DB) GetStatusHistory(ctx context.Context, subscriberID int64, from, to time.Time) ([]*models.StatusEvent, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, subscriber_id, status, address, group_name, reason, timestamp
		FROM status_events
		WHERE subscriber_id = $1 AND timestamp >= $2 AND timestamp <= $3
		ORDER BY timestamp ASC
	`, subscriberID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.StatusEvent
	for rows.Next() {
		var e models.StatusEvent
		if err := rows.Scan(&e.ID, &e.SubscriberID, &e.Status, &e.Address, &e.GroupName, &e.Reason, &e.Timestamp); err != nil {
			return nil, err
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}
