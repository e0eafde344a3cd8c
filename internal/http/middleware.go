package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/example/room-booking/internal/policy"
)

// RequestIDHeader echoes the generated request id back to the caller.
const RequestIDHeader = "X-Request-Id"

const requestIDAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// TokenVerifier turns a bearer token into an actor.
type TokenVerifier interface {
	Verify(token string) (policy.Actor, error)
}

// Authenticate resolves the bearer token into the request actor. Requests without a
// token continue as anonymous. A token that fails verification is rejected with 401.
func Authenticate(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				responder.writeJSON(r.Context(), w, http.StatusUnauthorized, errorResponse{
					ErrorCode: "AUTH_INVALID",
					Message:   "authorization header must use the Bearer scheme",
				})
				return
			}
			if token == "" {
				next.ServeHTTP(w, r.WithContext(ContextWithActor(r.Context(), policy.Anonymous())))
				return
			}

			actor, err := verifier.Verify(token)
			if err != nil {
				handlerLogger(r.Context(), logger, "Authenticate", "").
					WarnContext(r.Context(), "rejected bearer token", "error", err)
				responder.writeJSON(r.Context(), w, http.StatusUnauthorized, errorResponse{
					ErrorCode: "AUTH_INVALID",
					Message:   "token is invalid or expired",
				})
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithActor(r.Context(), actor)))
		})
	}
}

// bearerToken returns the token of an Authorization header. ok is false when the header
// is present but not a bearer credential.
func bearerToken(r *http.Request) (token string, ok bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", true
	}
	scheme, value, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

// RequestLogger attaches a logger tagged with a fresh request id and logs one line per
// completed request.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	base = defaultLogger(base)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := gonanoid.Generate(requestIDAlphabet, 12)
			if err != nil {
				id = "unknown"
			}
			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)
			w.Header().Set(RequestIDHeader, id)

			ctx := ContextWithLogger(r.Context(), logger)
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(recorder, r.WithContext(ctx))

			level := slog.LevelInfo
			if recorder.status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.Log(ctx, level, "request completed", "status", recorder.status, "duration", time.Since(start))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}
