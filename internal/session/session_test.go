package session_test

import (
	"errors"
	"testing"
	"time"

	"github.com/joestump/recipe-sync/internal/session"
)

var secret = []byte("test-secret")

func TestSignAndFromToken(t *testing.T) {
	token, err := session.Sign(secret, "user-1", "alice", time.Hour)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	id, err := session.FromToken(token)
	if err != nil {
		t.Fatalf("FromToken: %v", err)
	}
	if id.UserID != "user-1" {
		t.Errorf("UserID = %q, want %q", id.UserID, "user-1")
	}
	if id.Username != "alice" {
		t.Errorf("Username = %q, want %q", id.Username, "alice")
	}
	if !id.IsCurrentUser("user-1") || id.IsCurrentUser("user-2") {
		t.Error("IsCurrentUser should match only the token subject")
	}
}

func TestVerify(t *testing.T) {
	token, err := session.Sign(secret, "user-1", "alice", time.Hour)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, err := session.Verify(secret, token); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if _, err := session.Verify([]byte("other"), token); !errors.Is(err, session.ErrInvalidToken) {
		t.Errorf("Verify with wrong secret = %v, want ErrInvalidToken", err)
	}
}

func TestFromToken_Garbage(t *testing.T) {
	if _, err := session.FromToken("not-a-jwt"); err == nil {
		t.Error("FromToken(garbage) should fail")
	}
}

func TestFromToken_NoSubject(t *testing.T) {
	token, err := session.Sign(secret, "", "nobody", 0)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, err := session.FromToken(token); !errors.Is(err, session.ErrNoSubject) {
		t.Errorf("FromToken = %v, want ErrNoSubject", err)
	}
}

func TestIsCurrentUser_NilIdentity(t *testing.T) {
	var id *session.Identity
	if id.IsCurrentUser("user-1") {
		t.Error("nil identity is nobody")
	}
}
