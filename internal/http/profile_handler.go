package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/policy"
)

type profileService interface {
	Register(ctx context.Context, params application.RegisterProfileParams) (application.Profile, error)
	GetProfile(ctx context.Context, actor policy.Actor, id string) (application.Profile, error)
}

// ProfileHandler serves the caller's own profile.
type ProfileHandler struct {
	service   profileService
	responder responder
	logger    *slog.Logger
}

func NewProfileHandler(service profileService, logger *slog.Logger) *ProfileHandler {
	base := defaultLogger(logger)
	return &ProfileHandler{service: service, responder: newResponder(base), logger: base}
}

// Register handles POST /profiles/me.
func (h *ProfileHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !h.responder.decode(w, r, &req) {
		return
	}

	profile, err := h.service.Register(r.Context(), application.RegisterProfileParams{
		Actor: ActorFromContext(r.Context()),
		Input: application.ProfileInput{
			FullName: req.FullName,
			Division: req.Division,
			Email:    req.Email,
			Phone:    req.Phone,
		},
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	handlerLogger(r.Context(), h.logger, "ProfileHandler", "Register").InfoContext(r.Context(), "profile registered")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, profileResponse{Profile: toProfileDTO(profile)})
}

// Me handles GET /profiles/me.
func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor := ActorFromContext(r.Context())
	profile, err := h.service.GetProfile(r.Context(), actor, actor.ID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, profileResponse{Profile: toProfileDTO(profile)})
}

type profileRequest struct {
	FullName string `json:"full_name" validate:"required,max=200"`
	Division string `json:"division" validate:"max=200"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone" validate:"max=50"`
}

type profileResponse struct {
	Profile profileDTO `json:"profile"`
}

type profileDTO struct {
	ID        string `json:"id"`
	FullName  string `json:"full_name"`
	Division  string `json:"division,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

func toProfileDTO(p application.Profile) profileDTO {
	return profileDTO{
		ID:        p.ID,
		FullName:  p.FullName,
		Division:  p.Division,
		Email:     p.Email,
		Phone:     p.Phone,
		Role:      string(p.Role),
		CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
	}
}
