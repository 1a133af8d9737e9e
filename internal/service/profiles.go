package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Shivanand-hulikatti/eventportal/internal/activity"
	"github.com/Shivanand-hulikatti/eventportal/internal/model"
)

// ProfileService manages the signed-in user's profile.
type ProfileService struct {
	profiles ProfileStore
	activity activity.Emitter
}

// NewProfileService constructs a ProfileService.
func NewProfileService(profiles ProfileStore, emitter activity.Emitter) *ProfileService {
	return &ProfileService{profiles: profiles, activity: emitter}
}

// SignIn creates the profile on first sign-in and refreshes last-login
// metadata afterwards.
func (s *ProfileService) SignIn(ctx context.Context, identity model.Identity) (*model.Profile, error) {
	if identity.ID == "" {
		return nil, fmt.Errorf("%w: identity has no id", model.ErrInvalidInput)
	}
	p, created, err := s.profiles.GetOrCreate(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	kind := activity.MemberLogin
	if created {
		kind = activity.MemberRegister
	}
	s.activity.Emit(activity.New(kind, identity.ID, "", map[string]any{
		"email": identity.Email,
	}))
	return p, nil
}

// Profile returns the stored profile of userID.
func (s *ProfileService) Profile(ctx context.Context, userID string) (*model.Profile, error) {
	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// UpdatePreferences applies a partial preferences change.
func (s *ProfileService) UpdatePreferences(ctx context.Context, userID string, u model.PreferencesUpdate) (*model.Profile, error) {
	if err := model.ValidatePreferences(u); err != nil {
		return nil, fmt.Errorf("%w: language: %v", model.ErrInvalidInput, err)
	}
	fields := u.Fields()
	if len(fields) == 0 {
		return s.Profile(ctx, userID)
	}

	p, err := s.profiles.UpdatePreferences(ctx, userID, u)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("update preferences: %w", err)
	}
	s.activity.Emit(activity.New(activity.MemberUpdate, userID, "", map[string]any{
		"fields": fields,
	}))
	return p, nil
}

// AddSkill adds a skill to the profile and returns the updated profile.
func (s *ProfileService) AddSkill(ctx context.Context, userID string, req model.AddSkillRequest) (*model.Profile, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidInput, err)
	}
	if err := s.profiles.AddSkill(ctx, userID, req.Skill); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("add skill: %w", err)
	}
	s.activity.Emit(activity.New(activity.SkillAdded, userID, "", map[string]any{
		"skill": req.Skill,
	}))
	return s.Profile(ctx, userID)
}
