package httpapi

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"warungpos/internal/domain"
	"warungpos/internal/store"
)

type userStoreStub struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func (s *userStoreStub) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[strings.ToLower(email)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &user, nil
}

func newAuthStub(t *testing.T, verified bool) *userStoreStub {
	t.Helper()
	hash, err := hashPassword("rahasia1")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return &userStoreStub{
		users: map[string]domain.User{
			"sari@warung.test": {
				ID:        "usr-1",
				Name:      "Bu Sari",
				Email:     "sari@warung.test",
				Password:  hash,
				Role:      domain.RoleOwner,
				Verified:  verified,
				CreatedAt: time.Now().UTC(),
			},
		},
	}
}

func TestLoginIssuesTokenThatParsesBackToActor(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, newAuthStub(t, true))

	resp, err := manager.Login(context.Background(), domain.LoginRequest{
		Email:    "Sari@Warung.Test",
		Password: "rahasia1",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Token == "" {
		t.Fatalf("expected a token in the login response")
	}

	actor, err := manager.ParseToken(resp.Token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if actor.ID != "usr-1" || actor.Name != "Bu Sari" || actor.Role != domain.RoleOwner {
		t.Fatalf("unexpected actor: %+v", actor)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, newAuthStub(t, true))

	_, err := manager.Login(context.Background(), domain.LoginRequest{
		Email:    "sari@warung.test",
		Password: "salah",
	})
	if err == nil {
		t.Fatalf("expected login with wrong password to fail")
	}
}

func TestLoginRejectsUnverifiedAccount(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, newAuthStub(t, false))

	_, err := manager.Login(context.Background(), domain.LoginRequest{
		Email:    "sari@warung.test",
		Password: "rahasia1",
	})
	if err == nil || !strings.Contains(err.Error(), "not verified") {
		t.Fatalf("expected unverified account rejection, got %v", err)
	}
}

func TestParseTokenRejectsGarbageAndForeignSecrets(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, newAuthStub(t, true))

	if _, err := manager.ParseToken("not-a-jwt"); err == nil {
		t.Fatalf("expected garbage token to be rejected")
	}

	other := NewAuthManager("another-secret", time.Hour, newAuthStub(t, true))
	token, err := other.TokenFor(&domain.User{ID: "usr-2", Name: "X", Role: domain.RoleOwner})
	if err != nil {
		t.Fatalf("token for: %v", err)
	}
	if _, err := manager.ParseToken(token); err == nil {
		t.Fatalf("expected token signed with a different secret to be rejected")
	}
}

func TestTokenForExpires(t *testing.T) {
	manager := NewAuthManager("test-secret", -time.Minute, newAuthStub(t, true))
	// NewAuthManager falls back to a sane TTL for non-positive values.
	token, err := manager.TokenFor(&domain.User{ID: "usr-1", Name: "Bu Sari", Role: domain.RoleOwner})
	if err != nil {
		t.Fatalf("token for: %v", err)
	}
	if _, err := manager.ParseToken(token); err != nil {
		t.Fatalf("expected default TTL token to parse, got %v", err)
	}
}

func TestVerifyPasswordRejectsPlainTextStorage(t *testing.T) {
	if verifyPassword("plain-not-a-hash", "plain-not-a-hash") {
		t.Fatalf("expected plain-text stored password to be rejected")
	}
}
