// Package mirror copies synced calendar events into a Postgres table so other
// services (the hosted dashboard) can read them. The local Badger store stays
// the source of truth; the mirror is written after each successful sync.
package mirror

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/manav03panchal/projecthub/internal/model"
)

// Schema creates the mirrored table. The mirror never runs it on its own;
// setup scripts and tests apply it.
const Schema = `
CREATE TABLE IF NOT EXISTS synced_events (
	calendar_sync_id TEXT        NOT NULL,
	occurrence_uid   TEXT        NOT NULL,
	uid              TEXT        NOT NULL,
	title            TEXT        NOT NULL,
	description      TEXT        NOT NULL DEFAULT '',
	location         TEXT        NOT NULL DEFAULT '',
	url              TEXT        NOT NULL DEFAULT '',
	start_time       TIMESTAMPTZ NOT NULL,
	end_time         TIMESTAMPTZ NOT NULL,
	all_day          BOOLEAN     NOT NULL DEFAULT FALSE,
	organizer        TEXT        NOT NULL DEFAULT '',
	attendees        TEXT[]      NOT NULL DEFAULT '{}',
	recurring        BOOLEAN     NOT NULL DEFAULT FALSE,
	status           TEXT        NOT NULL DEFAULT '',
	project_sid      TEXT        NOT NULL DEFAULT '',
	content_hash     TEXT        NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (calendar_sync_id, occurrence_uid)
);
CREATE INDEX IF NOT EXISTS synced_events_start_idx ON synced_events (start_time);
`

const upsertEvent = `
	INSERT INTO synced_events (
		calendar_sync_id, occurrence_uid, uid, title, description, location, url,
		start_time, end_time, all_day, organizer, attendees, recurring, status,
		project_sid, content_hash, updated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW())
	ON CONFLICT (calendar_sync_id, occurrence_uid) DO UPDATE SET
		uid=EXCLUDED.uid,
		title=EXCLUDED.title,
		description=EXCLUDED.description,
		location=EXCLUDED.location,
		url=EXCLUDED.url,
		start_time=EXCLUDED.start_time,
		end_time=EXCLUDED.end_time,
		all_day=EXCLUDED.all_day,
		organizer=EXCLUDED.organizer,
		attendees=EXCLUDED.attendees,
		recurring=EXCLUDED.recurring,
		status=EXCLUDED.status,
		project_sid=EXCLUDED.project_sid,
		content_hash=EXCLUDED.content_hash,
		updated_at=NOW()
	WHERE synced_events.content_hash <> EXCLUDED.content_hash
`

// ErrSchemaMissing is returned when the synced_events table does not exist.
var ErrSchemaMissing = errors.New("synced_events table does not exist")

// Open connects through the pgx database/sql driver and verifies the
// connection.
func Open(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetMaxIdleConns(2)
	db.SetMaxOpenConns(4)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return db, nil
}

// PostgresMirror writes synced events to Postgres.
type PostgresMirror struct {
	db *sql.DB
}

// NewPostgresMirror wraps an open database.
func NewPostgresMirror(db *sql.DB) *PostgresMirror {
	return &PostgresMirror{db: db}
}

// DB returns the underlying pool.
func (m *PostgresMirror) DB() *sql.DB {
	return m.db
}

// Ping checks the connection.
func (m *PostgresMirror) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

// Close closes the pool.
func (m *PostgresMirror) Close() error {
	return m.db.Close()
}

// UpsertEvents inserts or updates events in one transaction. Rows whose
// content hash is unchanged are left alone.
func (m *PostgresMirror) UpsertEvents(ctx context.Context, syncID string, events []*model.SyncedEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertEvent)
	if err != nil {
		return classify(fmt.Errorf("prepare upsert: %w", err))
	}
	defer stmt.Close()

	for _, ev := range events {
		attendees := ev.Attendees
		if attendees == nil {
			attendees = []string{}
		}
		if _, err := stmt.ExecContext(ctx,
			syncID, ev.OccurrenceUID, ev.UID, ev.Title, ev.Description, ev.Location, ev.URL,
			ev.Start.UTC(), ev.End.UTC(), ev.AllDay, ev.Organizer, attendees, ev.Recurring, ev.Status,
			ev.ProjectSID, ev.Hash,
		); err != nil {
			return classify(fmt.Errorf("upsert event %s: %w", ev.OccurrenceUID, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert: %w", err)
	}
	return nil
}

// DeleteMissing removes rows of syncID whose occurrence UID is not in keep.
// An empty keep removes every row of the sync.
func (m *PostgresMirror) DeleteMissing(ctx context.Context, syncID string, keep []string) error {
	var err error
	if len(keep) == 0 {
		_, err = m.db.ExecContext(ctx, `DELETE FROM synced_events WHERE calendar_sync_id=$1`, syncID)
	} else {
		_, err = m.db.ExecContext(ctx, `
			DELETE FROM synced_events
			WHERE calendar_sync_id=$1 AND NOT (occurrence_uid = ANY($2))
		`, syncID, keep)
	}
	if err != nil {
		return classify(fmt.Errorf("delete missing events: %w", err))
	}
	return nil
}

// Count returns the number of mirrored rows for syncID.
func (m *PostgresMirror) Count(ctx context.Context, syncID string) (int, error) {
	var n int
	err := m.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM synced_events WHERE calendar_sync_id=$1`, syncID).Scan(&n)
	if err != nil {
		return 0, classify(fmt.Errorf("count events: %w", err))
	}
	return n, nil
}

// classify maps an undefined_table error to ErrSchemaMissing.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "42P01" {
		return fmt.Errorf("%w: %v", ErrSchemaMissing, err)
	}
	return err
}
