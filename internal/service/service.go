// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the storage layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/eventportal/internal/activity"
	"github.com/Shivanand-hulikatti/eventportal/internal/model"
)

// EventRegistry stores events and their rosters. Book must be atomic per
// event: the roster never exceeds capacity.
type EventRegistry interface {
	List(ctx context.Context) ([]model.Event, error)
	Get(ctx context.Context, id string) (*model.Event, error)
	IsRegistered(ctx context.Context, eventID, userID string) (bool, error)
	Book(ctx context.Context, eventID, userID string) (*model.Registration, error)
	Roster(ctx context.Context, eventID string) ([]model.Registration, error)
	Upsert(ctx context.Context, events []model.Event) error
	SetStatus(ctx context.Context, id string, status model.Status) error
}

// ProfileStore persists one profile per user id.
type ProfileStore interface {
	GetOrCreate(ctx context.Context, identity model.Identity) (*model.Profile, bool, error)
	Get(ctx context.Context, userID string) (*model.Profile, error)
	AddEvent(ctx context.Context, userID, eventID string) error
	AwardXP(ctx context.Context, userID, eventID string, xp int) (bool, error)
	UpdatePreferences(ctx context.Context, userID string, u model.PreferencesUpdate) (*model.Profile, error)
	AddSkill(ctx context.Context, userID, skill string) error
	RecordView(ctx context.Context, userID, eventID string) error
}

// EventService is the read side of the event registry.
type EventService struct {
	events   EventRegistry
	profiles ProfileStore
	activity activity.Emitter
	logger   *zap.Logger
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(events EventRegistry, profiles ProfileStore, emitter activity.Emitter, logger *zap.Logger) *EventService {
	return &EventService{events: events, profiles: profiles, activity: emitter, logger: logger}
}

// ListEvents returns all events ordered by date ascending.
func (s *EventService) ListEvents(ctx context.Context) ([]model.Event, error) {
	events, err := s.events.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if events == nil {
		events = []model.Event{}
	}
	return events, nil
}

// Lookup returns the event with the given id. A missing event is reported
// through ok, not as an error.
func (s *EventService) Lookup(ctx context.Context, id string) (model.Event, bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return model.Event{}, false, nil
	}
	event, err := s.events.Get(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return model.Event{}, false, nil
	}
	if err != nil {
		return model.Event{}, false, fmt.Errorf("get event: %w", err)
	}
	return *event, true, nil
}

// IsRegistered reports whether userID holds a seat in eventID. Unknown
// events report false.
func (s *EventService) IsRegistered(ctx context.Context, eventID, userID string) (bool, error) {
	if eventID == "" || userID == "" {
		return false, nil
	}
	ok, err := s.events.IsRegistered(ctx, eventID, userID)
	if err != nil {
		return false, fmt.Errorf("check registration: %w", err)
	}
	return ok, nil
}

// ViewEvent looks up an event for display. userID may be empty for
// anonymous visitors; signed-in views are remembered on the profile.
func (s *EventService) ViewEvent(ctx context.Context, id, userID string) (model.EventDetail, bool, error) {
	event, ok, err := s.Lookup(ctx, id)
	if err != nil || !ok {
		return model.EventDetail{}, ok, err
	}

	detail := model.EventDetail{Event: event, Remaining: event.Remaining()}
	if userID != "" {
		if detail.Registered, err = s.IsRegistered(ctx, event.ID, userID); err != nil {
			return model.EventDetail{}, false, err
		}
		if err := s.profiles.RecordView(ctx, userID, event.ID); err != nil {
			s.logger.Debug("record view failed", zap.String("user_id", userID), zap.String("event_id", event.ID), zap.Error(err))
		}
	}

	s.activity.Emit(activity.New(activity.ViewEvent, userID, event.ID, map[string]any{
		"title": event.Title,
	}))
	return detail, true, nil
}

// Roster returns all registrations for an event.
func (s *EventService) Roster(ctx context.Context, eventID string) ([]model.Registration, error) {
	roster, err := s.events.Roster(ctx, eventID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("list roster: %w", err)
	}
	if roster == nil {
		roster = []model.Registration{}
	}
	return roster, nil
}
