package model

import (
	"slices"
	"time"
)

// DefaultLanguage is the preference language for new profiles.
const DefaultLanguage = "en"

// Preferences are user-controlled notification and locale settings.
type Preferences struct {
	Notifications bool   `json:"notifications" dynamodbav:"notifications"`
	EmailUpdates  bool   `json:"email_updates" dynamodbav:"emailUpdates"`
	Language      string `json:"language" dynamodbav:"language"`
}

// ProfileMetadata tracks derived counters and the most recent interactions.
type ProfileMetadata struct {
	LastEventView         string `json:"last_event_view,omitempty" dynamodbav:"lastEventView,omitempty"`
	LastEventRegistration string `json:"last_event_registration,omitempty" dynamodbav:"lastEventRegistration,omitempty"`
	TotalEventsCompleted  int    `json:"total_events_completed" dynamodbav:"totalEventsCompleted"`
	TotalXPEarned         int    `json:"total_xp_earned" dynamodbav:"totalXPEarned"`
}

// Profile is the per-user state kept by the portal. It is created on first
// sign-in and never hard-deleted.
type Profile struct {
	ID               string          `json:"id" dynamodbav:"id"`
	Name             string          `json:"name" dynamodbav:"name"`
	Email            string          `json:"email" dynamodbav:"email"`
	Avatar           string          `json:"avatar" dynamodbav:"avatar"`
	CreatedAt        time.Time       `json:"created_at" dynamodbav:"createdAt,unixtime"`
	LastLoginAt      time.Time       `json:"last_login_at" dynamodbav:"lastLoginAt,unixtime"`
	UpdatedAt        time.Time       `json:"updated_at" dynamodbav:"updatedAt,unixtime"`
	XP               int             `json:"xp" dynamodbav:"xp"`
	RegisteredEvents []string        `json:"registered_events" dynamodbav:"registeredEvents,stringset,omitempty"`
	CompletedEvents  []string        `json:"completed_events" dynamodbav:"completedEvents,stringset,omitempty"`
	Skills           []string        `json:"skills" dynamodbav:"skills,stringset,omitempty"`
	Preferences      Preferences     `json:"preferences" dynamodbav:"preferences"`
	Metadata         ProfileMetadata `json:"metadata" dynamodbav:"metadata"`
}

// NewProfile returns the initial profile for an identity signing in for the
// first time.
func NewProfile(id Identity, now time.Time) *Profile {
	return &Profile{
		ID:               id.ID,
		Name:             id.Name,
		Email:            id.Email,
		Avatar:           id.Avatar,
		CreatedAt:        now,
		LastLoginAt:      now,
		UpdatedAt:        now,
		RegisteredEvents: []string{},
		CompletedEvents:  []string{},
		Skills:           []string{},
		Preferences: Preferences{
			Notifications: true,
			EmailUpdates:  true,
			Language:      DefaultLanguage,
		},
	}
}

// HasEvent reports whether the profile holds a seat in the event.
func (p *Profile) HasEvent(eventID string) bool {
	return slices.Contains(p.RegisteredEvents, eventID)
}

// HasCompleted reports whether XP for the event was already awarded.
func (p *Profile) HasCompleted(eventID string) bool {
	return slices.Contains(p.CompletedEvents, eventID)
}

// Normalize replaces nil slices with empty ones so that JSON clients always
// see arrays.
func (p *Profile) Normalize() {
	if p.RegisteredEvents == nil {
		p.RegisteredEvents = []string{}
	}
	if p.CompletedEvents == nil {
		p.CompletedEvents = []string{}
	}
	if p.Skills == nil {
		p.Skills = []string{}
	}
}

// PreferencesUpdate is a partial preferences change; nil fields are left
// untouched.
type PreferencesUpdate struct {
	Notifications *bool   `json:"notifications"`
	EmailUpdates  *bool   `json:"email_updates"`
	Language      *string `json:"language"`
}

// Apply merges the update into p.
func (u PreferencesUpdate) Apply(p *Preferences) {
	if u.Notifications != nil {
		p.Notifications = *u.Notifications
	}
	if u.EmailUpdates != nil {
		p.EmailUpdates = *u.EmailUpdates
	}
	if u.Language != nil {
		p.Language = *u.Language
	}
}

// Fields lists the names of the preferences present in the update.
func (u PreferencesUpdate) Fields() []string {
	var fields []string
	if u.Notifications != nil {
		fields = append(fields, "notifications")
	}
	if u.EmailUpdates != nil {
		fields = append(fields, "email_updates")
	}
	if u.Language != nil {
		fields = append(fields, "language")
	}
	return fields
}
