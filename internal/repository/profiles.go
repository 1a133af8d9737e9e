package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Shivanand-hulikatti/eventportal/internal/model"
)

const profileColumns = `id, name, email, avatar, created_at, last_login_at, updated_at, xp,
	registered_events, completed_events, skills, pref_notifications, pref_email_updates, pref_language,
	last_event_view, last_event_registration, total_events_completed, total_xp_earned`

// PostgresProfiles is the user profile store backed by PostgreSQL.
type PostgresProfiles struct {
	db  *pgxpool.Pool
	now func() time.Time
}

// NewPostgresProfiles constructs a PostgresProfiles.
func NewPostgresProfiles(db *pgxpool.Pool) *PostgresProfiles {
	return &PostgresProfiles{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func scanProfile(row pgx.Row, extra ...any) (*model.Profile, error) {
	var p model.Profile
	dest := []any{
		&p.ID, &p.Name, &p.Email, &p.Avatar, &p.CreatedAt, &p.LastLoginAt, &p.UpdatedAt, &p.XP,
		&p.RegisteredEvents, &p.CompletedEvents, &p.Skills,
		&p.Preferences.Notifications, &p.Preferences.EmailUpdates, &p.Preferences.Language,
		&p.Metadata.LastEventView, &p.Metadata.LastEventRegistration,
		&p.Metadata.TotalEventsCompleted, &p.Metadata.TotalXPEarned,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	p.Normalize()
	return &p, nil
}

// GetOrCreate returns the profile for identity.ID, creating it on first
// sign-in. Existing profiles get their last login time and any non-empty
// display fields (name, email, avatar) refreshed.
func (r *PostgresProfiles) GetOrCreate(ctx context.Context, identity model.Identity) (*model.Profile, bool, error) {
	fresh := model.NewProfile(identity, r.now())

	var created bool
	p, err := scanProfile(r.db.QueryRow(ctx,
		`INSERT INTO profiles (id, name, email, avatar, created_at, last_login_at, updated_at,
			pref_notifications, pref_email_updates, pref_language)
		 VALUES ($1, $2, $3, $4, $5, $5, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE SET
			name = COALESCE(NULLIF(EXCLUDED.name, ''), profiles.name),
			email = COALESCE(NULLIF(EXCLUDED.email, ''), profiles.email),
			avatar = COALESCE(NULLIF(EXCLUDED.avatar, ''), profiles.avatar),
			last_login_at = EXCLUDED.last_login_at
		 RETURNING `+profileColumns+`, (xmax = 0)`,
		fresh.ID, fresh.Name, fresh.Email, fresh.Avatar, fresh.CreatedAt,
		fresh.Preferences.Notifications, fresh.Preferences.EmailUpdates, fresh.Preferences.Language,
	), &created)
	if err != nil {
		return nil, false, fmt.Errorf("upsert profile: %w", err)
	}
	return p, created, nil
}

// Get returns the profile for userID or model.ErrNotFound.
func (r *PostgresProfiles) Get(ctx context.Context, userID string) (*model.Profile, error) {
	p, err := scanProfile(r.db.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = $1`, userID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// AddEvent mirrors eventID into the user's registered events. Calling it
// again for the same pair leaves the set unchanged.
func (r *PostgresProfiles) AddEvent(ctx context.Context, userID, eventID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE profiles SET
			registered_events = CASE WHEN $2 = ANY(registered_events)
				THEN registered_events ELSE array_append(registered_events, $2) END,
			last_event_registration = $2,
			updated_at = $3
		 WHERE id = $1`,
		userID, eventID, r.now(),
	)
	if err != nil {
		return fmt.Errorf("add event to profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// AwardXP credits xp for a completed event once. It reports false when the
// event was already credited.
func (r *PostgresProfiles) AwardXP(ctx context.Context, userID, eventID string, xp int) (bool, error) {
	if xp < 0 {
		return false, fmt.Errorf("award xp: negative amount %d", xp)
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE profiles SET
			xp = xp + $3,
			completed_events = array_append(completed_events, $2),
			total_events_completed = total_events_completed + 1,
			total_xp_earned = total_xp_earned + $3,
			updated_at = $4
		 WHERE id = $1 AND NOT ($2 = ANY(completed_events))`,
		userID, eventID, xp, r.now(),
	)
	if err != nil {
		return false, fmt.Errorf("award xp: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	if _, err := r.Get(ctx, userID); err != nil {
		return false, err
	}
	return false, nil
}

// UpdatePreferences applies a partial preferences change.
func (r *PostgresProfiles) UpdatePreferences(ctx context.Context, userID string, u model.PreferencesUpdate) (*model.Profile, error) {
	p, err := scanProfile(r.db.QueryRow(ctx,
		`UPDATE profiles SET
			pref_notifications = COALESCE($2, pref_notifications),
			pref_email_updates = COALESCE($3, pref_email_updates),
			pref_language = COALESCE($4, pref_language),
			updated_at = $5
		 WHERE id = $1
		 RETURNING `+profileColumns,
		userID, u.Notifications, u.EmailUpdates, u.Language, r.now(),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("update preferences: %w", err)
	}
	return p, nil
}

// AddSkill adds a skill to the profile's skill set.
func (r *PostgresProfiles) AddSkill(ctx context.Context, userID, skill string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE profiles SET
			skills = CASE WHEN $2 = ANY(skills) THEN skills ELSE array_append(skills, $2) END,
			updated_at = $3
		 WHERE id = $1`,
		userID, skill, r.now(),
	)
	if err != nil {
		return fmt.Errorf("add skill: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// RecordView remembers the last event the user opened.
func (r *PostgresProfiles) RecordView(ctx context.Context, userID, eventID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE profiles SET last_event_view = $2 WHERE id = $1`,
		userID, eventID,
	)
	if err != nil {
		return fmt.Errorf("record view: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}
