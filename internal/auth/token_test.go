package auth

import (
	"errors"
	"testing"
	"time"
)

func TestSignParse_Roundtrip(t *testing.T) {
	want := Identity{UserID: "u-42", Role: RoleAdmin}
	token, err := Sign("secret", want, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	got, err := Parse("secret", token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != want {
		t.Fatalf("identity = %+v, want %+v", got, want)
	}
}

func TestParse_WrongSecret(t *testing.T) {
	token, err := Sign("secret", Identity{UserID: "u1", Role: RoleUser}, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := Parse("other", token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParse_Garbage(t *testing.T) {
	if _, err := Parse("secret", "not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParse_Expired(t *testing.T) {
	token, err := Sign("secret", Identity{UserID: "u1", Role: RoleUser}, -time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := Parse("secret", token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestParse_UnknownRole(t *testing.T) {
	token, err := Sign("secret", Identity{UserID: "u1", Role: "superuser"}, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := Parse("secret", token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for unknown role, got %v", err)
	}
}
