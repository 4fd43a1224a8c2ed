package services_test

import (
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"oakmart/internal/repos"
	"oakmart/internal/services"
)

func TestRegisterAndLogin(t *testing.T) {
	db := memdb(t)
	svc := services.NewAuthService(repos.NewUserRepo(db))

	u, err := svc.Register("sid-1", "Jane Doe", "jane@test.local", "s3cret9")
	if err != nil {
		t.Fatal(err)
	}
	if u.Role != "customer" || u.ID == "" {
		t.Fatalf("bad new user: %+v", u)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte("s3cret9")) != nil {
		t.Fatal("stored hash should verify against the password")
	}

	// The registration session is already bound.
	cur, err := svc.CurrentUser("sid-1")
	if err != nil || cur.ID != u.ID {
		t.Fatalf("session not bound: %v %+v", err, cur)
	}

	if _, err := svc.Register("sid-2", "Jane Two", "JANE@test.local", "s3cret9"); !errors.Is(err, services.ErrEmailTaken) {
		t.Fatalf("want ErrEmailTaken, got %v", err)
	}

	if _, err := svc.Login("sid-3", "jane@test.local", "wrong-pass"); !errors.Is(err, services.ErrBadCreds) {
		t.Fatalf("want ErrBadCreds, got %v", err)
	}
	if _, err := svc.Login("sid-3", "jane@test.local", "s3cret9"); err != nil {
		t.Fatal(err)
	}
	if cur, err := svc.CurrentUser("sid-3"); err != nil || cur.ID != u.ID {
		t.Fatalf("login session not bound: %v", err)
	}

	if err := svc.Logout("sid-3"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CurrentUser("sid-3"); err == nil {
		t.Fatal("logged-out session should not resolve")
	}
}

func TestLoginUnknownEmail(t *testing.T) {
	db := memdb(t)
	svc := services.NewAuthService(repos.NewUserRepo(db))

	if _, err := svc.Login("sid-1", "nobody@test.local", "whatever"); !errors.Is(err, services.ErrBadCreds) {
		t.Fatalf("want ErrBadCreds, got %v", err)
	}
}
