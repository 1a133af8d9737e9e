// Package model defines the core domain types for the event portal.
package model

import (
	"fmt"
	"time"
)

// Status is the publication state of an event.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// ParseStatus maps a raw status string onto a Status. Entries served by the
// content delivery API carry no status and are published by definition.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case "":
		return StatusPublished, nil
	case StatusDraft, StatusPublished, StatusCancelled, StatusCompleted:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown event status %q", s)
}

// Terminal reports whether the status is set locally and must survive a
// catalog sync.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// Instructor is display data attached to an event.
type Instructor struct {
	Name      string   `json:"name"`
	Role      string   `json:"role"`
	Avatar    string   `json:"avatar"`
	Bio       string   `json:"bio"`
	Expertise []string `json:"expertise"`
}

// Event is a schedulable activity with a capacity-limited roster.
type Event struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Date             string     `json:"date"`
	StartsAt         *time.Time `json:"starts_at,omitempty"`
	Time             string     `json:"time"`
	Format           string     `json:"format"`
	Location         string     `json:"location,omitempty"`
	Description      string     `json:"description"`
	ImageURL         string     `json:"image_url"`
	XP               int        `json:"xp"`
	Capacity         int        `json:"capacity"`
	Tags             []string   `json:"tags"`
	Skills           []string   `json:"skills"`
	Requirements     []string   `json:"requirements"`
	Instructor       Instructor `json:"instructor"`
	LearningOutcomes []string   `json:"learning_outcomes,omitempty"`
	MeetingLink      string     `json:"meeting_link,omitempty"`
	ExternalLink     string     `json:"external_link,omitempty"`
	Duration         string     `json:"duration,omitempty"`
	Status           Status     `json:"status"`
	Participants     int        `json:"participants"`
	RosterSize       int        `json:"roster_size"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Remaining returns the number of available seats.
func (e *Event) Remaining() int {
	if n := e.Capacity - e.RosterSize; n > 0 {
		return n
	}
	return 0
}

// IsFull returns true when no seats remain.
func (e *Event) IsFull() bool {
	return e.RosterSize >= e.Capacity
}

// Open reports whether the event currently accepts registrations.
func (e *Event) Open() bool {
	return e.Status == StatusPublished
}

// Before orders events by start time ascending. Undated events sort last and
// ties fall back to the title so listings are stable.
func (e *Event) Before(o *Event) bool {
	switch {
	case e.StartsAt == nil && o.StartsAt == nil:
	case e.StartsAt == nil:
		return false
	case o.StartsAt == nil:
		return true
	case !e.StartsAt.Equal(*o.StartsAt):
		return e.StartsAt.Before(*o.StartsAt)
	}
	if e.Title != o.Title {
		return e.Title < o.Title
	}
	return e.ID < o.ID
}

// Registration represents a user's seat in an event.
type Registration struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Identity is the stable user identity established by the identity provider.
// Only ID matters for correctness; the rest is display data.
type Identity struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar"`
}
