package application

import (
	"errors"
	"fmt"
	"testing"

	"github.com/example/room-booking/internal/policy"
)

func TestValidationError(t *testing.T) {
	t.Parallel()

	t.Run("message and emptiness", func(t *testing.T) {
		t.Parallel()
		cases := []struct {
			name    string
			err     *ValidationError
			message string
			has     bool
		}{
			{name: "nil", err: nil, message: ""},
			{name: "no fields", err: &ValidationError{}, message: "validation failed"},
			{name: "with fields", err: &ValidationError{FieldErrors: map[string]string{"room_id": "room_id is required"}}, message: "validation failed", has: true},
		}
		for _, tc := range cases {
			if got := tc.err.Error(); got != tc.message {
				t.Fatalf("%s: Error() = %q, want %q", tc.name, got, tc.message)
			}
			if tc.err != nil && tc.err.HasErrors() != tc.has {
				t.Fatalf("%s: HasErrors() = %v, want %v", tc.name, !tc.has, tc.has)
			}
		}
	})

	t.Run("collects fields keeping the first message", func(t *testing.T) {
		t.Parallel()
		vErr := &ValidationError{}
		vErr.add("time", "start must be before end")
		vErr.add("time", "time must be within the day")
		vErr.merge(&ValidationError{FieldErrors: map[string]string{"title": "title is required"}})
		vErr.merge(nil)

		want := map[string]string{
			"time":  "start must be before end",
			"title": "title is required",
		}
		if len(vErr.FieldErrors) != len(want) {
			t.Fatalf("expected %d fields, got %v", len(want), vErr.FieldErrors)
		}
		for field, msg := range want {
			if got := vErr.FieldErrors[field]; got != msg {
				t.Fatalf("field %s: got %q, want %q", field, got, msg)
			}
		}
	})
}

func TestTypedErrorsMatchSentinels(t *testing.T) {
	t.Parallel()

	cause := errors.New("dial tcp: refused")
	cases := []struct {
		name     string
		err      error
		sentinel error
	}{
		{name: "forbidden", err: &ForbiddenError{Action: policy.ActionApprove}, sentinel: ErrForbidden},
		{name: "invalid state", err: &InvalidStateError{BookingID: "b1", Status: StatusCancelled, Action: policy.ActionCancel}, sentinel: ErrInvalidState},
		{name: "conflict", err: &ConflictError{BookingID: "b1", ConflictingBookingID: "b2"}, sentinel: ErrConflict},
		{name: "store", err: &StoreUnavailableError{Operation: "list bookings", Err: cause}, sentinel: ErrStoreUnavailable},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			wrapped := fmt.Errorf("handler: %w", tc.err)
			if !errors.Is(wrapped, tc.sentinel) {
				t.Fatalf("expected %v to match %v", wrapped, tc.sentinel)
			}
			if !isApplicationError(wrapped) {
				t.Fatalf("expected %v to be classified as application error", wrapped)
			}
		})
	}

	if !errors.Is(&StoreUnavailableError{Operation: "x", Err: cause}, cause) {
		t.Fatalf("expected store error to unwrap to its cause")
	}
	if isApplicationError(cause) {
		t.Fatalf("plain errors are not application errors")
	}
}

func TestForbiddenErrorMessage(t *testing.T) {
	t.Parallel()

	anon := forbidden(policy.Anonymous(), policy.ActionSubmit)
	if got := anon.Error(); got != "authentication required to submit" {
		t.Fatalf("unexpected message %q", got)
	}
	user := forbidden(policy.Actor{ID: "u1", Role: policy.RoleUser}, policy.ActionApprove)
	if got := user.Error(); got != "not allowed to approve" {
		t.Fatalf("unexpected message %q", got)
	}
}
