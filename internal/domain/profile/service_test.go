package profile

import (
	"context"
	"errors"
	"testing"

	"barbershop/backend/internal/models"
	"barbershop/backend/internal/store"
)

func TestNormalizePhone(t *testing.T) {
	ok := map[string]string{
		"0501234567":       "0501234567",
		"501234567":        "0501234567",
		"+972 50-123-4567": "0501234567",
		"972501234567":     "0501234567",
		"050 123 4567":     "0501234567",
	}
	// full-width digits
	ok["\uff10\uff15\uff10\uff11\uff12\uff13\uff14\uff15\uff16\uff17"] = "0501234567"
	for in, want := range ok {
		got, err := NormalizePhone(in)
		if err != nil {
			t.Fatalf("NormalizePhone(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("NormalizePhone(%q) = %s, want %s", in, got, want)
		}
	}
	for _, in := range []string{"", "12345", "0401234567", "05012345678", "phone"} {
		if _, err := NormalizePhone(in); !IsErrBadRequest(err) {
			t.Fatalf("NormalizePhone(%q): expected bad request, got %v", in, err)
		}
	}
}

func TestTelLink(t *testing.T) {
	cases := map[string]string{
		"0501234567":    "tel:+972501234567",
		"501234567":     "tel:+972501234567",
		"+972501234567": "tel:+972501234567",
		"":              "",
	}
	for in, want := range cases {
		if got := TelLink(in); got != want {
			t.Fatalf("TelLink(%q) = %s, want %s", in, got, want)
		}
	}
}

type revokerFunc func(ctx context.Context, uid string) error

func (f revokerFunc) RevokeRefreshTokens(ctx context.Context, uid string) error { return f(ctx, uid) }

func TestResolveRoutes(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	s := NewService(NewRepo(mem), nil, "barber", nil)

	sess, err := s.Resolve(ctx, models.Identity{UID: "barber"})
	if err != nil || sess.Route != RouteAdmin {
		t.Fatalf("admin uid: %+v %v", sess, err)
	}
	sess, err = s.Resolve(ctx, models.Identity{UID: "other-admin", Admin: true})
	if err != nil || sess.Route != RouteAdmin {
		t.Fatalf("admin claim: %+v %v", sess, err)
	}

	alice := models.Identity{UID: "alice", Email: "a@example.com"}
	sess, err = s.Resolve(ctx, alice)
	if err != nil || sess.Route != RouteNeedsPhone {
		t.Fatalf("new user: %+v %v", sess, err)
	}

	p, err := s.SavePhone(ctx, alice, UpdatePhoneInput{Phone: " 050-123-4567 "})
	if err != nil {
		t.Fatal(err)
	}
	if p.DisplayName != "User" || p.Phone != "0501234567" {
		t.Fatalf("saved profile = %+v", p)
	}
	sess, err = s.Resolve(ctx, alice)
	if err != nil || sess.Route != RouteClient || sess.Profile.Phone != "0501234567" {
		t.Fatalf("client: %+v %v", sess, err)
	}

	if _, err := s.Resolve(ctx, models.Identity{}); !IsErrUnauthorized(err) {
		t.Fatalf("anonymous: expected unauthorized, got %v", err)
	}
}

func TestResolveFailureRevokesSession(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	mem.FailOn = func(op store.Op, path string) error {
		if op == store.OpGet {
			return errors.New("permission denied")
		}
		return nil
	}
	var revoked []string
	s := NewService(NewRepo(mem), revokerFunc(func(_ context.Context, uid string) error {
		revoked = append(revoked, uid)
		return nil
	}), "", nil)

	_, err := s.Resolve(ctx, models.Identity{UID: "alice"})
	if !IsErrSetupFailed(err) {
		t.Fatalf("expected setup failure, got %v", err)
	}
	if len(revoked) != 1 || revoked[0] != "alice" {
		t.Fatalf("revoked = %v", revoked)
	}
}

func TestPhone(t *testing.T) {
	ctx := context.Background()
	s := NewService(NewRepo(store.NewMemory()), nil, "", nil)
	phone, err := s.Phone(ctx, "nobody")
	if err != nil || phone != "" {
		t.Fatalf("Phone(nobody) = %q, %v", phone, err)
	}
	if _, err := s.GetProfile(ctx, "nobody"); !IsErrNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}
