package model

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
)

// SignInRequest carries the identity provider's ID token.
type SignInRequest struct {
	IDToken string `json:"id_token"`
}

// Validate checks that an ID token is present.
func (r SignInRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.IDToken, validation.Required),
	)
}

// AddSkillRequest adds one skill to the caller's profile.
type AddSkillRequest struct {
	Skill string `json:"skill"`
}

// Validate trims the skill name and checks its length.
func (r *AddSkillRequest) Validate() error {
	r.Skill = strings.TrimSpace(r.Skill)
	return validation.ValidateStruct(r,
		validation.Field(&r.Skill, validation.Required, validation.Length(1, 64)),
	)
}

// ValidatePreferences checks a partial preferences update.
func ValidatePreferences(u PreferencesUpdate) error {
	if u.Language == nil {
		return nil
	}
	return validation.Validate(*u.Language,
		validation.Required,
		validation.Length(2, 16),
	)
}

// SessionResponse is returned by the sign-in and session endpoints.
type SessionResponse struct {
	User    Identity `json:"user"`
	Profile *Profile `json:"profile,omitempty"`
}

// EventDetail is an event plus the caller's registration state.
type EventDetail struct {
	Event
	Registered bool `json:"registered"`
	Remaining  int  `json:"remaining"`
}

// CompletionResult summarises an event completion run.
type CompletionResult struct {
	EventID   string `json:"event_id"`
	Awarded   int    `json:"awarded"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
	XPPerSeat int    `json:"xp_per_seat"`
}

// SyncResult summarises a catalog sync.
type SyncResult struct {
	Fetched int `json:"fetched"`
	Dropped int `json:"dropped"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error             string `json:"error"`
	AlreadyRegistered bool   `json:"already_registered,omitempty"`
}
