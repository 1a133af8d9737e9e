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

// RegistrationService links user profiles to event rosters. It is the only
// writer of rosters and the only path that awards XP.
type RegistrationService struct {
	events   EventRegistry
	profiles ProfileStore
	activity activity.Emitter
	logger   *zap.Logger
}

// NewRegistrationService constructs a RegistrationService.
func NewRegistrationService(events EventRegistry, profiles ProfileStore, emitter activity.Emitter, logger *zap.Logger) *RegistrationService {
	return &RegistrationService{events: events, profiles: profiles, activity: emitter, logger: logger}
}

// Register books a seat for userID in eventID and mirrors the event into the
// user's profile. Domain failures are returned as the model sentinels:
// ErrProfileNotFound, ErrNotFound, ErrAlreadyRegistered, ErrEventClosed and
// ErrEventFull.
func (s *RegistrationService) Register(ctx context.Context, eventID, userID string) (*model.Registration, error) {
	eventID = strings.TrimSpace(eventID)
	userID = strings.TrimSpace(userID)
	if eventID == "" {
		return nil, fmt.Errorf("%w: event id is required", model.ErrInvalidInput)
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", model.ErrInvalidInput)
	}

	// A seat is never granted without a profile to mirror it into.
	if _, err := s.profiles.Get(ctx, userID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.ErrProfileNotFound
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}

	reg, err := s.events.Book(ctx, eventID, userID)
	switch {
	case errors.Is(err, model.ErrAlreadyRegistered):
		// The roster is authoritative; converge the profile in case an
		// earlier mirror write was lost.
		if err := s.profiles.AddEvent(ctx, userID, eventID); err != nil {
			s.logger.Warn("re-apply registration mirror failed",
				zap.String("event_id", eventID), zap.String("user_id", userID), zap.Error(err))
		}
		return nil, model.ErrAlreadyRegistered
	case errors.Is(err, model.ErrNotFound),
		errors.Is(err, model.ErrEventClosed),
		errors.Is(err, model.ErrEventFull):
		return nil, err
	case err != nil:
		return nil, fmt.Errorf("register for event: %w", err)
	}

	if err := s.profiles.AddEvent(ctx, userID, eventID); err != nil {
		s.logger.Error("registration mirror failed",
			zap.String("event_id", eventID), zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("mirror registration: %w", err)
	}

	s.activity.Emit(activity.New(activity.RegisterEvent, userID, eventID, map[string]any{
		"registration_id": reg.ID,
	}))
	return reg, nil
}

// Complete marks an event completed and credits its XP to every roster
// member. Crediting is idempotent per user and event, so Complete may be
// re-run to retry failed awards.
func (s *RegistrationService) Complete(ctx context.Context, eventID string) (*model.CompletionResult, error) {
	event, err := s.events.Get(ctx, eventID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if event.Status == model.StatusCancelled {
		return nil, fmt.Errorf("%w: event was cancelled", model.ErrEventClosed)
	}

	if event.Status != model.StatusCompleted {
		if err := s.events.SetStatus(ctx, eventID, model.StatusCompleted); err != nil {
			return nil, fmt.Errorf("complete event: %w", err)
		}
	}

	roster, err := s.events.Roster(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}

	res := &model.CompletionResult{EventID: eventID, XPPerSeat: event.XP}
	for _, reg := range roster {
		awarded, err := s.profiles.AwardXP(ctx, reg.UserID, eventID, event.XP)
		switch {
		case err != nil:
			res.Failed++
			s.logger.Error("award xp failed",
				zap.String("event_id", eventID), zap.String("user_id", reg.UserID), zap.Error(err))
		case awarded:
			res.Awarded++
			s.activity.Emit(activity.New(activity.XPEarned, reg.UserID, eventID, map[string]any{
				"xp": event.XP,
			}))
		default:
			res.Skipped++
		}
	}

	s.logger.Info("event completed",
		zap.String("event_id", eventID),
		zap.Int("awarded", res.Awarded),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed),
	)
	return res, nil
}
