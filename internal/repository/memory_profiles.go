package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/eventportal/internal/model"
)

// MemoryProfiles is an in-process user profile store.
type MemoryProfiles struct {
	mu       sync.RWMutex
	profiles map[string]*model.Profile
	now      func() time.Time
}

// NewMemoryProfiles constructs an empty MemoryProfiles.
func NewMemoryProfiles() *MemoryProfiles {
	return &MemoryProfiles{
		profiles: make(map[string]*model.Profile),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func cloneProfile(p *model.Profile) *model.Profile {
	c := *p
	c.RegisteredEvents = slices.Clone(p.RegisteredEvents)
	c.CompletedEvents = slices.Clone(p.CompletedEvents)
	c.Skills = slices.Clone(p.Skills)
	c.Normalize()
	return &c
}

// GetOrCreate returns the profile for identity.ID, creating it on first
// sign-in. Existing profiles get their last login time and any non-empty
// display fields refreshed.
func (r *MemoryProfiles) GetOrCreate(_ context.Context, identity model.Identity) (*model.Profile, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if p, ok := r.profiles[identity.ID]; ok {
		p.LastLoginAt = now
		refreshDisplay(p, identity)
		return cloneProfile(p), false, nil
	}
	p := model.NewProfile(identity, now)
	r.profiles[p.ID] = p
	return cloneProfile(p), true, nil
}

func refreshDisplay(p *model.Profile, identity model.Identity) {
	if identity.Name != "" {
		p.Name = identity.Name
	}
	if identity.Email != "" {
		p.Email = identity.Email
	}
	if identity.Avatar != "" {
		p.Avatar = identity.Avatar
	}
}

// Get returns the profile for userID or model.ErrNotFound.
func (r *MemoryProfiles) Get(_ context.Context, userID string) (*model.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[userID]
	if !ok {
		return nil, model.ErrNotFound
	}
	return cloneProfile(p), nil
}

func (r *MemoryProfiles) update(userID string, fn func(p *model.Profile) bool) (*model.Profile, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.profiles[userID]
	if !ok {
		return nil, false, model.ErrNotFound
	}
	changed := fn(p)
	if changed {
		p.UpdatedAt = r.now()
	}
	return cloneProfile(p), changed, nil
}

// AddEvent mirrors eventID into the user's registered events.
func (r *MemoryProfiles) AddEvent(_ context.Context, userID, eventID string) error {
	_, _, err := r.update(userID, func(p *model.Profile) bool {
		if !p.HasEvent(eventID) {
			p.RegisteredEvents = append(p.RegisteredEvents, eventID)
		}
		p.Metadata.LastEventRegistration = eventID
		return true
	})
	return err
}

// AwardXP credits xp for a completed event once.
func (r *MemoryProfiles) AwardXP(_ context.Context, userID, eventID string, xp int) (bool, error) {
	if xp < 0 {
		return false, fmt.Errorf("award xp: negative amount %d", xp)
	}
	_, changed, err := r.update(userID, func(p *model.Profile) bool {
		if p.HasCompleted(eventID) {
			return false
		}
		p.XP += xp
		p.CompletedEvents = append(p.CompletedEvents, eventID)
		p.Metadata.TotalEventsCompleted++
		p.Metadata.TotalXPEarned += xp
		return true
	})
	return changed, err
}

// UpdatePreferences applies a partial preferences change.
func (r *MemoryProfiles) UpdatePreferences(_ context.Context, userID string, u model.PreferencesUpdate) (*model.Profile, error) {
	p, _, err := r.update(userID, func(p *model.Profile) bool {
		u.Apply(&p.Preferences)
		return true
	})
	return p, err
}

// AddSkill adds a skill to the profile's skill set.
func (r *MemoryProfiles) AddSkill(_ context.Context, userID, skill string) error {
	_, _, err := r.update(userID, func(p *model.Profile) bool {
		if slices.Contains(p.Skills, skill) {
			return false
		}
		p.Skills = append(p.Skills, skill)
		return true
	})
	return err
}

// RecordView remembers the last event the user opened.
func (r *MemoryProfiles) RecordView(_ context.Context, userID, eventID string) error {
	_, _, err := r.update(userID, func(p *model.Profile) bool {
		p.Metadata.LastEventView = eventID
		return false
	})
	return err
}
