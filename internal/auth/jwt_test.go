package auth_test

import (
	"testing"

	"github.com/google/uuid"

	"mosaico/internal/auth"
)

func TestTokenService_IssueVerify(t *testing.T) {
	ts := auth.NewTokenService([]byte("test-secret-key-32-bytes-long!!"))
	topicID := uuid.New()

	key, err := ts.Issue(topicID)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	got, err := ts.Verify(key)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got != topicID {
		t.Errorf("Verify: got %v, want %v", got, topicID)
	}
}

func TestTokenService_VerifyRejectsForeignSecret(t *testing.T) {
	issuer := auth.NewTokenService([]byte("issuer-secret-key-32-bytes-long!"))
	verifier := auth.NewTokenService([]byte("other-secret-key-32-bytes-long!!"))

	key, err := issuer.Issue(uuid.New())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := verifier.Verify(key); err == nil {
		t.Error("Verify: expected error for key signed with a different secret")
	}
}

func TestTokenService_VerifyRejectsGarbage(t *testing.T) {
	ts := auth.NewTokenService([]byte("test-secret-key-32-bytes-long!!"))
	if _, err := ts.Verify("not-a-jwt"); err == nil {
		t.Error("Verify: expected error for malformed token")
	}
}
