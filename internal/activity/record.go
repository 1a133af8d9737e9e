// Package activity ships user activity records to an analytics sink without
// blocking the request path.
package activity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Kind names an activity.
type Kind string

const (
	MemberRegister Kind = "member_register"
	MemberLogin    Kind = "member_login"
	MemberUpdate   Kind = "member_update"
	ViewEvent      Kind = "view_event"
	RegisterEvent  Kind = "register_event"
	XPEarned       Kind = "xp_earned"
	SkillAdded     Kind = "skill_added"
	PageView       Kind = "page_view"
)

// Anonymous is recorded as the user of activity without a signed-in user.
const Anonymous = "anonymous"

// SchemaVersion is carried with every shipped record.
const SchemaVersion = 1

// Record is one activity entry.
type Record struct {
	ID      string         `json:"id"`
	Kind    Kind           `json:"type"`
	UserID  string         `json:"user_id"`
	EventID string         `json:"event_id,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	At      time.Time      `json:"timestamp"`
}

// New returns a record stamped with a fresh id and the current time. An empty
// userID is recorded as Anonymous.
func New(kind Kind, userID, eventID string, details map[string]any) Record {
	if userID == "" {
		userID = Anonymous
	}
	return Record{
		ID:      uuid.NewString(),
		Kind:    kind,
		UserID:  userID,
		EventID: eventID,
		Details: details,
		At:      time.Now().UTC(),
	}
}

// Sink receives batches of records.
type Sink interface {
	Write(ctx context.Context, records []Record) error
	Close() error
}

// Emitter is what services depend on to record activity.
type Emitter interface {
	Emit(r Record)
}

// Discard is an Emitter that drops everything.
type Discard struct{}

// Emit drops the record.
func (Discard) Emit(Record) {}
