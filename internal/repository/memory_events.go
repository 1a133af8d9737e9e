package repository

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/eventportal/internal/model"
)

type memoryEvent struct {
	event  model.Event
	roster []model.Registration
	seats  map[string]struct{}
}

// MemoryEvents is an in-process event registry. A single mutex makes every
// Book call a critical section, so the roster can never exceed capacity.
type MemoryEvents struct {
	mu     sync.RWMutex
	events map[string]*memoryEvent
	now    func() time.Time
}

// NewMemoryEvents constructs an empty MemoryEvents.
func NewMemoryEvents() *MemoryEvents {
	return &MemoryEvents{
		events: make(map[string]*memoryEvent),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func cloneEvent(e model.Event) model.Event {
	e.Tags = slices.Clone(e.Tags)
	e.Skills = slices.Clone(e.Skills)
	e.Requirements = slices.Clone(e.Requirements)
	e.LearningOutcomes = slices.Clone(e.LearningOutcomes)
	e.Instructor.Expertise = slices.Clone(e.Instructor.Expertise)
	if e.StartsAt != nil {
		t := *e.StartsAt
		e.StartsAt = &t
	}
	return e
}

// List returns all events ordered by start time ascending, undated last.
func (r *MemoryEvents) List(_ context.Context) ([]model.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := make([]model.Event, 0, len(r.events))
	for _, me := range r.events {
		events = append(events, cloneEvent(me.event))
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Before(&events[j]) })
	return events, nil
}

// Get returns a single event or model.ErrNotFound.
func (r *MemoryEvents) Get(_ context.Context, id string) (*model.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	me, ok := r.events[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	e := cloneEvent(me.event)
	return &e, nil
}

// IsRegistered reports whether userID holds a seat in eventID.
func (r *MemoryEvents) IsRegistered(_ context.Context, eventID, userID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	me, ok := r.events[eventID]
	if !ok {
		return false, nil
	}
	_, seated := me.seats[userID]
	return seated, nil
}

// Book adds userID to the event roster. Checks run in order: missing event,
// existing seat, closed event, full event.
func (r *MemoryEvents) Book(_ context.Context, eventID, userID string) (*model.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	me, ok := r.events[eventID]
	if !ok {
		return nil, model.ErrNotFound
	}
	if _, seated := me.seats[userID]; seated {
		return nil, model.ErrAlreadyRegistered
	}
	if !me.event.Open() {
		return nil, model.ErrEventClosed
	}
	if len(me.roster) >= me.event.Capacity {
		return nil, model.ErrEventFull
	}

	now := r.now()
	reg := model.Registration{
		ID:        uuid.New().String(),
		EventID:   eventID,
		UserID:    userID,
		CreatedAt: now,
	}
	me.roster = append(me.roster, reg)
	me.seats[userID] = struct{}{}
	me.event.RosterSize = len(me.roster)
	me.event.Participants++
	me.event.UpdatedAt = now
	return &reg, nil
}

// Roster returns all registrations for an event, oldest first.
func (r *MemoryEvents) Roster(_ context.Context, eventID string) ([]model.Registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	me, ok := r.events[eventID]
	if !ok {
		return nil, model.ErrNotFound
	}
	return slices.Clone(me.roster), nil
}

// Upsert stores catalog events with the same rules as PostgresEvents.Upsert.
func (r *MemoryEvents) Upsert(_ context.Context, events []model.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for _, e := range events {
		e = cloneEvent(e)
		e.UpdatedAt = now

		me, ok := r.events[e.ID]
		if !ok {
			e.RosterSize = 0
			r.events[e.ID] = &memoryEvent{event: e, seats: make(map[string]struct{})}
			continue
		}

		prev := me.event
		e.RosterSize = prev.RosterSize
		e.Participants = prev.Participants
		e.Capacity = max(e.Capacity, prev.RosterSize)
		if prev.Status.Terminal() {
			e.Status = prev.Status
		}
		me.event = e
	}
	return nil
}

// SetStatus changes the status of an event.
func (r *MemoryEvents) SetStatus(_ context.Context, id string, status model.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	me, ok := r.events[id]
	if !ok {
		return model.ErrNotFound
	}
	me.event.Status = status
	me.event.UpdatedAt = r.now()
	return nil
}
