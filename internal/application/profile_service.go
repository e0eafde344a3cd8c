package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/example/room-booking/internal/policy"
)

// ProfileService registers and returns the stored identity of principals.
// Credentials are verified outside the core; the service only keeps profile data.
type ProfileService struct {
	profiles ProfileDirectory
	now      func() time.Time
	logger   *slog.Logger
}

// NewProfileService wires dependencies for the profile service.
func NewProfileService(profiles ProfileDirectory, now func() time.Time) *ProfileService {
	return NewProfileServiceWithLogger(profiles, now, nil)
}

// NewProfileServiceWithLogger wires dependencies for the profile service with a specified logger.
func NewProfileServiceWithLogger(profiles ProfileDirectory, now func() time.Time, logger *slog.Logger) *ProfileService {
	if now == nil {
		now = time.Now
	}
	return &ProfileService{profiles: profiles, now: now, logger: defaultLogger(logger)}
}

// Register stores the caller's profile under the caller's id with the role the identity
// boundary verified.
func (s *ProfileService) Register(ctx context.Context, params RegisterProfileParams) (profile Profile, err error) {
	if s == nil {
		err = fmt.Errorf("ProfileService is nil")
		return
	}
	if s.profiles == nil {
		err = fmt.Errorf("profile directory not configured")
		return
	}

	logger := serviceLogger(ctx, s.logger, "ProfileService", "Register",
		"actor_id", params.Actor.ID,
	)
	defer func() {
		if err != nil {
			logger.Log(ctx, logLevelFor(err), "failed to register profile", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "profile registered", "role", string(profile.Role))
	}()

	if params.Actor.IsAnonymous() {
		err = forbidden(params.Actor, "register profile")
		return
	}

	input := normalizeProfileInput(params.Input)
	if vErr := validateProfileInput(input); vErr.HasErrors() {
		err = vErr
		return
	}

	role := params.Actor.Role
	if !role.Valid() || role == policy.RoleAnonymous {
		role = policy.RoleUser
	}

	now := s.now()
	profile, err = s.profiles.CreateProfile(ctx, Profile{
		ID:        params.Actor.ID,
		FullName:  input.FullName,
		Division:  input.Division,
		Email:     input.Email,
		Phone:     input.Phone,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		err = mapRepoError("create profile", err)
	}
	return
}

// GetProfile returns a full profile to its owner or to an administrator.
func (s *ProfileService) GetProfile(ctx context.Context, actor policy.Actor, id string) (Profile, error) {
	if s == nil {
		return Profile{}, fmt.Errorf("ProfileService is nil")
	}
	if s.profiles == nil {
		return Profile{}, fmt.Errorf("profile directory not configured")
	}
	if actor.IsAnonymous() || (actor.ID != id && !actor.IsAdmin()) {
		return Profile{}, forbidden(actor, "view profile")
	}

	profile, err := s.profiles.GetProfile(ctx, id)
	if err != nil {
		err = mapRepoError("get profile", err)
		serviceLogger(ctx, s.logger, "ProfileService", "GetProfile", "profile_id", id).
			Log(ctx, logLevelFor(err), "failed to get profile", "error", err, "error_kind", ErrorKind(err))
		return Profile{}, err
	}
	return profile, nil
}

func normalizeProfileInput(input ProfileInput) ProfileInput {
	return ProfileInput{
		FullName: strings.TrimSpace(input.FullName),
		Division: strings.TrimSpace(input.Division),
		Email:    strings.ToLower(strings.TrimSpace(input.Email)),
		Phone:    strings.TrimSpace(input.Phone),
	}
}

func validateProfileInput(input ProfileInput) *ValidationError {
	vErr := &ValidationError{}

	if input.FullName == "" {
		vErr.add("full_name", "full name is required")
	}
	if input.Email != "" {
		if _, err := mail.ParseAddress(input.Email); err != nil {
			vErr.add("email", "email is invalid")
		}
	}

	return vErr
}
