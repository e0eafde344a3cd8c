package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/room-booking/internal/policy"
)

func TestProfileService_Register(t *testing.T) {
	t.Parallel()

	t.Run("requires an identity", func(t *testing.T) {
		t.Parallel()
		svc := NewProfileService(newFakeStore(), nil)

		_, err := svc.Register(context.Background(), RegisterProfileParams{
			Actor: policy.Anonymous(),
			Input: ProfileInput{FullName: "Ada"},
		})
		var fErr *ForbiddenError
		if !errors.As(err, &fErr) || !fErr.Anonymous {
			t.Fatalf("expected anonymous ForbiddenError, got %v", err)
		}
	})

	t.Run("validates input", func(t *testing.T) {
		t.Parallel()
		svc := NewProfileService(newFakeStore(), nil)

		_, err := svc.Register(context.Background(), RegisterProfileParams{
			Actor: testUser,
			Input: ProfileInput{FullName: "  ", Email: "not-an-email"},
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		for _, field := range []string{"full_name", "email"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("expected %s error, got %v", field, vErr.FieldErrors)
			}
		}
	})

	t.Run("stores the caller profile with the token role", func(t *testing.T) {
		t.Parallel()
		store := newFakeStore()
		svc := NewProfileService(store, func() time.Time { return testNow })

		profile, err := svc.Register(context.Background(), RegisterProfileParams{
			Actor: testAdmin,
			Input: ProfileInput{FullName: " Ada Lovelace ", Email: " ADA@example.com ", Division: "R&D"},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if profile.ID != testAdmin.ID || profile.Role != policy.RoleAdmin {
			t.Fatalf("unexpected profile %+v", profile)
		}
		if profile.FullName != "Ada Lovelace" || profile.Email != "ada@example.com" {
			t.Fatalf("expected normalized input, got %+v", profile)
		}
		if !profile.CreatedAt.Equal(testNow) {
			t.Fatalf("expected clock timestamp, got %v", profile.CreatedAt)
		}
	})

	t.Run("records the verified role per caller", func(t *testing.T) {
		t.Parallel()
		cases := []struct {
			actor policy.Actor
			want  policy.Role
		}{
			{actor: testUser, want: policy.RoleUser},
			{actor: superAdmin, want: policy.RoleSuperAdmin},
		}
		for _, tc := range cases {
			svc := NewProfileService(newFakeStore(), func() time.Time { return testNow })
			profile, err := svc.Register(context.Background(), RegisterProfileParams{
				Actor: tc.actor,
				Input: ProfileInput{FullName: "Grace Hopper", Email: "grace@example.com"},
			})
			if err != nil {
				t.Fatalf("%s: unexpected error: %v", tc.actor.ID, err)
			}
			if profile.Role != tc.want {
				t.Fatalf("%s: expected role %s, got %s", tc.actor.ID, tc.want, profile.Role)
			}
		}
	})

	t.Run("second registration is rejected", func(t *testing.T) {
		t.Parallel()
		store := newFakeStore()
		svc := NewProfileService(store, nil)
		params := RegisterProfileParams{Actor: testUser, Input: ProfileInput{FullName: "Ada"}}

		if _, err := svc.Register(context.Background(), params); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := svc.Register(context.Background(), params); !errors.Is(err, ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})
}

func TestProfileService_GetProfile(t *testing.T) {
	t.Parallel()

	store := seededStore()
	svc := NewProfileService(store, nil)

	cases := []struct {
		name    string
		actor   policy.Actor
		id      string
		wantErr error
	}{
		{name: "self", actor: testUser, id: testUser.ID},
		{name: "admin", actor: testAdmin, id: testUser.ID},
		{name: "other user", actor: otherUser, id: testUser.ID, wantErr: ErrForbidden},
		{name: "anonymous", actor: policy.Anonymous(), id: testUser.ID, wantErr: ErrForbidden},
		{name: "missing", actor: testAdmin, id: "ghost", wantErr: ErrNotFound},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			profile, err := svc.GetProfile(context.Background(), tc.actor, tc.id)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil || profile.ID != tc.id {
				t.Fatalf("expected profile %s, got %+v %v", tc.id, profile, err)
			}
		})
	}
}
