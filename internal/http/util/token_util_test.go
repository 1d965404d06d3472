package util

import (
	"errors"
	"testing"
	"time"
)

func TestGrantSigner_RoundTrip(t *testing.T) {
	signer := NewGrantSigner([]byte("test-secret"), time.Minute)

	token, err := signer.Issue("visitor-1")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if err := signer.Validate("visitor-1", token); err != nil {
		t.Fatalf("Validate rejected a fresh token: %v", err)
	}
}

func TestGrantSigner_WrongVisitor(t *testing.T) {
	signer := NewGrantSigner([]byte("test-secret"), time.Minute)

	token, err := signer.Issue("visitor-1")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if err := signer.Validate("visitor-2", token); !errors.Is(err, ErrInvalidGrant) {
		t.Fatalf("expected ErrInvalidGrant for a different visitor, got %v", err)
	}
}

func TestGrantSigner_Expired(t *testing.T) {
	signer := NewGrantSigner([]byte("test-secret"), -time.Second)

	token, err := signer.Issue("visitor-1")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if err := signer.Validate("visitor-1", token); !errors.Is(err, ErrInvalidGrant) {
		t.Fatalf("expected ErrInvalidGrant for an expired token, got %v", err)
	}
}

func TestGrantSigner_Malformed(t *testing.T) {
	signer := NewGrantSigner([]byte("test-secret"), time.Minute)

	for _, token := range []string{"", "nodot", "bad.!!!", "a.b"} {
		if err := signer.Validate("visitor-1", token); !errors.Is(err, ErrInvalidGrant) {
			t.Fatalf("expected ErrInvalidGrant for %q, got %v", token, err)
		}
	}
}

func TestGrantSigner_MissingSecret(t *testing.T) {
	signer := NewGrantSigner(nil, time.Minute)

	if _, err := signer.Issue("visitor-1"); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret on issue, got %v", err)
	}
	if err := signer.Validate("visitor-1", "a.b"); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret on validate, got %v", err)
	}
}
