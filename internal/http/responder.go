package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/room-booking/internal/application"
)

const maxBodyBytes = 1 << 20

var errBadRequestBody = errors.New("request body is not valid JSON")

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	return responder{logger: defaultLogger(logger)}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
	}
	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// writeValidation reports request level field errors found before reaching a service.
func (r responder) writeValidation(ctx context.Context, w http.ResponseWriter, fields map[string]string) {
	r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
		ErrorCode: "VALIDATION_FAILED",
		Message:   "request contains invalid fields",
		Errors:    fields,
	})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	var (
		vErr        *application.ValidationError
		forbidden   *application.ForbiddenError
		conflictErr *application.ConflictError
	)
	switch {
	case errors.As(err, &vErr):
		r.writeValidation(ctx, w, vErr.FieldErrors)
	case errors.As(err, &forbidden) && forbidden.Anonymous:
		r.writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{
			ErrorCode: "AUTH_REQUIRED",
			Message:   "authentication is required",
		})
	case errors.Is(err, application.ErrForbidden):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "AUTH_FORBIDDEN",
			Message:   "you are not allowed to perform this action",
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{
			ErrorCode: "NOT_FOUND",
			Message:   "the requested resource was not found",
		})
	case errors.Is(err, application.ErrAlreadyExists):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "ALREADY_EXISTS",
			Message:   "the resource already exists",
		})
	case errors.Is(err, application.ErrInvalidState):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "INVALID_STATE",
			Message:   err.Error(),
		})
	case errors.As(err, &conflictErr):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode:            "BOOKING_CONFLICT",
			Message:              "the room is already booked for part of this window",
			ConflictingBookingID: conflictErr.ConflictingBookingID,
		})
	case errors.Is(err, application.ErrStoreUnavailable):
		r.writeJSON(ctx, w, http.StatusServiceUnavailable, errorResponse{
			ErrorCode: "STORE_UNAVAILABLE",
			Message:   "the booking store is temporarily unavailable",
		})
	default:
		r.loggerFor(ctx).ErrorContext(ctx, "unexpected service error", "error", err)
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "internal server error"})
	}
}

// decode reads a JSON body into dst and runs struct validation. It writes the error
// response itself and reports false when the handler should stop.
func (r responder) decode(w http.ResponseWriter, req *http.Request, dst any) bool {
	return r.decodeBody(w, req, dst, false)
}

// decodeBody writes the 400 or 422 response itself and reports whether the handler may
// continue. With allowEmpty, a body that holds no JSON value at all leaves dst untouched.
func (r responder) decodeBody(w http.ResponseWriter, req *http.Request, dst any, allowEmpty bool) bool {
	ctx := req.Context()
	if req.Body == nil || req.Body == http.NoBody {
		if allowEmpty {
			return true
		}
		r.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return false
	}
	decoder := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return true
		}
		r.loggerFor(ctx).WarnContext(ctx, "failed to decode request body", "error", err)
		r.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return false
	}
	if fields := validateStruct(dst); len(fields) > 0 {
		r.writeValidation(ctx, w, fields)
		return false
	}
	return true
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

type errorResponse struct {
	ErrorCode            string            `json:"error_code,omitempty"`
	Message              string            `json:"message"`
	Errors               map[string]string `json:"errors,omitempty"`
	ConflictingBookingID string            `json:"conflicting_booking_id,omitempty"`
}

// decodeOptional behaves like decode but accepts an empty body, chunked or not.
func (r responder) decodeOptional(w http.ResponseWriter, req *http.Request, dst any) bool {
	return r.decodeBody(w, req, dst, true)
}
