// Package repository implements the event registry and the user profile
// store. PostgreSQL is accessed with pgx directly (no ORM); profiles can
// alternatively live in DynamoDB, and in-memory variants back tests and
// single-process deployments.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/eventportal/internal/model"
)

const eventColumns = `id, title, date_label, starts_at, time_label, format, location, description,
	image_url, xp, capacity, booked_count, participants, tags, skills, requirements,
	learning_outcomes, instructor, meeting_link, external_link, duration, status, updated_at`

// PostgresEvents is the event registry backed by PostgreSQL.
type PostgresEvents struct {
	db  *pgxpool.Pool
	now func() time.Time
}

// NewPostgresEvents constructs a PostgresEvents.
func NewPostgresEvents(db *pgxpool.Pool) *PostgresEvents {
	return &PostgresEvents{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func scanEvent(row pgx.Row) (*model.Event, error) {
	var e model.Event
	var status string
	err := row.Scan(
		&e.ID, &e.Title, &e.Date, &e.StartsAt, &e.Time, &e.Format, &e.Location, &e.Description,
		&e.ImageURL, &e.XP, &e.Capacity, &e.RosterSize, &e.Participants, &e.Tags, &e.Skills, &e.Requirements,
		&e.LearningOutcomes, &e.Instructor, &e.MeetingLink, &e.ExternalLink, &e.Duration, &status, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Status = model.Status(status)
	return &e, nil
}

// List returns all events ordered by start time ascending, undated last.
func (r *PostgresEvents) List(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+eventColumns+`
		 FROM events
		 ORDER BY starts_at ASC NULLS LAST, title, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// Get returns a single event or model.ErrNotFound.
func (r *PostgresEvents) Get(ctx context.Context, id string) (*model.Event, error) {
	e, err := scanEvent(r.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// IsRegistered reports whether userID holds a seat in eventID.
func (r *PostgresEvents) IsRegistered(ctx context.Context, eventID, userID string) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM registrations WHERE event_id = $1 AND user_id = $2)`,
		eventID, userID,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check registration: %w", err)
	}
	return ok, nil
}

// Book adds userID to the event roster inside a single transaction.
//
// The event row is locked with SELECT … FOR UPDATE, so concurrent bookings for
// the same event queue behind each other and each one sees the committed
// booked_count of its predecessor. The seat increment is additionally guarded
// by booked_count < capacity and the roster row by a unique (event_id, user_id)
// constraint, so neither overbooking nor a duplicate seat can be committed
// even if the lock were bypassed.
//
// Checks run in order: missing event, existing seat, closed event, full event.
func (r *PostgresEvents) Book(ctx context.Context, eventID, userID string) (*model.Registration, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var status string
	err = tx.QueryRow(ctx,
		`SELECT status FROM events WHERE id = $1 FOR UPDATE`,
		eventID,
	).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("lock event row: %w", err)
	}

	var registered bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM registrations WHERE event_id = $1 AND user_id = $2)`,
		eventID, userID,
	).Scan(&registered)
	if err != nil {
		return nil, fmt.Errorf("check duplicate: %w", err)
	}
	if registered {
		return nil, model.ErrAlreadyRegistered
	}

	if model.Status(status) != model.StatusPublished {
		return nil, model.ErrEventClosed
	}

	now := r.now()
	tag, err := tx.Exec(ctx,
		`UPDATE events
		 SET booked_count = booked_count + 1, participants = participants + 1, updated_at = $2
		 WHERE id = $1 AND booked_count < capacity`,
		eventID, now,
	)
	if err != nil {
		return nil, fmt.Errorf("increment booked_count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, model.ErrEventFull
	}

	reg := &model.Registration{
		ID:        uuid.New().String(),
		EventID:   eventID,
		UserID:    userID,
		CreatedAt: now,
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO registrations (id, event_id, user_id, created_at)
		 VALUES ($1, $2, $3, $4)`,
		reg.ID, reg.EventID, reg.UserID, reg.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, model.ErrAlreadyRegistered
		}
		return nil, fmt.Errorf("insert registration: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return reg, nil
}

// Roster returns all registrations for an event, oldest first.
func (r *PostgresEvents) Roster(ctx context.Context, eventID string) ([]model.Registration, error) {
	var exists bool
	if err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, eventID,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check event: %w", err)
	}
	if !exists {
		return nil, model.ErrNotFound
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, event_id, user_id, created_at
		 FROM registrations
		 WHERE event_id = $1
		 ORDER BY created_at ASC, id`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		var reg model.Registration
		if err := rows.Scan(&reg.ID, &reg.EventID, &reg.UserID, &reg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

// Upsert stores catalog events. Display fields follow the catalog; the
// roster, the participants counter and a locally set terminal status are
// kept. Capacity never drops below the number of seats already granted.
func (r *PostgresEvents) Upsert(ctx context.Context, events []model.Event) error {
	if len(events) == 0 {
		return nil
	}

	now := r.now()
	batch := &pgx.Batch{}
	for _, e := range events {
		batch.Queue(
			`INSERT INTO events (
				id, title, date_label, starts_at, time_label, format, location, description,
				image_url, xp, capacity, participants, tags, skills, requirements,
				learning_outcomes, instructor, meeting_link, external_link, duration, status, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
			ON CONFLICT (id) DO UPDATE SET
				title = EXCLUDED.title,
				date_label = EXCLUDED.date_label,
				starts_at = EXCLUDED.starts_at,
				time_label = EXCLUDED.time_label,
				format = EXCLUDED.format,
				location = EXCLUDED.location,
				description = EXCLUDED.description,
				image_url = EXCLUDED.image_url,
				xp = EXCLUDED.xp,
				capacity = GREATEST(EXCLUDED.capacity, events.booked_count),
				tags = EXCLUDED.tags,
				skills = EXCLUDED.skills,
				requirements = EXCLUDED.requirements,
				learning_outcomes = EXCLUDED.learning_outcomes,
				instructor = EXCLUDED.instructor,
				meeting_link = EXCLUDED.meeting_link,
				external_link = EXCLUDED.external_link,
				duration = EXCLUDED.duration,
				status = CASE WHEN events.status IN ('cancelled', 'completed') THEN events.status ELSE EXCLUDED.status END,
				updated_at = EXCLUDED.updated_at`,
			e.ID, e.Title, e.Date, e.StartsAt, e.Time, e.Format, e.Location, e.Description,
			e.ImageURL, e.XP, e.Capacity, e.Participants, nonNil(e.Tags), nonNil(e.Skills), nonNil(e.Requirements),
			nonNil(e.LearningOutcomes), e.Instructor, e.MeetingLink, e.ExternalLink, e.Duration, string(e.Status), now,
		)
	}

	if err := r.db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert events: %w", err)
	}
	return nil
}

// SetStatus changes the status of an event.
func (r *PostgresEvents) SetStatus(ctx context.Context, id string, status model.Status) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE events SET status = $2, updated_at = $3 WHERE id = $1`,
		id, string(status), r.now(),
	)
	if err != nil {
		return fmt.Errorf("set event status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
