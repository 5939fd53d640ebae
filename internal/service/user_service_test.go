package service

import (
	"errors"
	"testing"

	"github.com/tangerine/internal/db"
)

func TestUserService_Authenticate(t *testing.T) {
	gdb := setupServiceTestDB(t)
	if err := db.EnsureUser(gdb, db.UserSeed{Username: "admin", Password: "s3cret", IsSuperuser: true}); err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	svc := NewUserService(gdb)

	user, err := svc.Authenticate(" admin ", "s3cret")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if !user.IsSuperuser {
		t.Fatalf("superuser flag lost")
	}

	for _, pw := range []string{"wrong", ""} {
		if _, err := svc.Authenticate("admin", pw); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("password %q: expected ErrInvalidCredentials, got %v", pw, err)
		}
	}
	if _, err := svc.Authenticate("nobody", "s3cret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user: expected ErrInvalidCredentials, got %v", err)
	}

	if got, err := svc.Get(user.ID); err != nil || got.Username != "admin" {
		t.Fatalf("get: %v, %v", got, err)
	}
	if _, err := svc.Get(user.ID + 100); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestIdentityForFallsBackToUsername(t *testing.T) {
	if who := IdentityFor(nil); who.Authenticated {
		t.Fatalf("nil user must be anonymous")
	}
	who := IdentityFor(&db.User{Username: "ghost", Email: "g@example.com"})
	if !who.Authenticated || who.DisplayName != "ghost" || who.Email != "g@example.com" {
		t.Fatalf("unexpected identity %+v", who)
	}
	named := IdentityFor(&db.User{Username: "ada", FirstName: "Ada", LastName: "Lovelace"})
	if named.DisplayName != "Ada Lovelace" {
		t.Fatalf("expected full name, got %q", named.DisplayName)
	}
}
