package model

import (
	"errors"
	"testing"
	"time"
)

const testUUID = "68201321-9dd2-4fb3-92b1-24367f38a7d6"

func intPtr(v int) *int { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func TestVisitor_Tokenise(t *testing.T) {
	visitor := &Visitor{UUID: testUUID}

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bare url", "google.com", "google.com?vuid=" + testUUID},
		{"replaces existing vuid", "google.com?vuid=123", "google.com?vuid=" + testUUID},
		{"appends to existing query", "example.com?a=1&b=2", "example.com?a=1&b=2&vuid=" + testUUID},
		{"replaces vuid in place", "example.com?a=1&vuid=old&b=2", "example.com?a=1&vuid=" + testUUID + "&b=2"},
		{"full url with path", "https://example.com/docs?page=2", "https://example.com/docs?page=2&vuid=" + testUUID},
		{"trailing question mark", "example.com?", "example.com?vuid=" + testUUID},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := visitor.Tokenise(tc.in); got != tc.want {
				t.Fatalf("Tokenise(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNewVisitor_Defaults(t *testing.T) {
	visitor := NewVisitor("foo@bar.com")

	if visitor.UUID == "" {
		t.Fatal("expected UUID to be generated")
	}
	if !visitor.IsActive {
		t.Fatal("expected new visitor to be active")
	}
	if visitor.CreatedAt.IsZero() {
		t.Fatal("expected CreatedAt to be set")
	}
	if visitor.ExpiresAt == nil {
		t.Fatal("expected default expiry to be set")
	}
	if got, want := *visitor.ExpiresAt, visitor.CreatedAt.Add(DefaultPassExpiry); !got.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, got)
	}
	if visitor.MaximumVisits != nil {
		t.Fatal("expected no visit cap by default")
	}
	if visitor.VisitsCount != 0 {
		t.Fatalf("expected zero visits, got %d", visitor.VisitsCount)
	}
}

func TestVisitor_HasExpired(t *testing.T) {
	yesterday := time.Now().Add(-24 * time.Hour)
	tomorrow := time.Now().Add(24 * time.Hour)

	if (&Visitor{ExpiresAt: nil}).HasExpired() {
		t.Fatal("nil expiry must never expire")
	}
	if (&Visitor{ExpiresAt: timePtr(tomorrow)}).HasExpired() {
		t.Fatal("future expiry should not be expired")
	}
	if !(&Visitor{ExpiresAt: timePtr(yesterday)}).HasExpired() {
		t.Fatal("past expiry should be expired")
	}
}

func TestVisitor_HasExceededMaximumVisits(t *testing.T) {
	if (&Visitor{MaximumVisits: nil, VisitsCount: 1000}).HasExceededMaximumVisits() {
		t.Fatal("nil cap must be unlimited")
	}
	if (&Visitor{MaximumVisits: intPtr(10), VisitsCount: 10}).HasExceededMaximumVisits() {
		t.Fatal("count equal to cap is still within the cap")
	}
	if !(&Visitor{MaximumVisits: intPtr(10), VisitsCount: 11}).HasExceededMaximumVisits() {
		t.Fatal("count above cap should exceed")
	}
}

func TestVisitor_IsValid(t *testing.T) {
	yesterday := time.Now().Add(-24 * time.Hour)
	tomorrow := time.Now().Add(24 * time.Hour)

	cases := []struct {
		name          string
		isActive      bool
		expiresAt     *time.Time
		maximumVisits *int
		visitsCount   int
		want          bool
	}{
		{"active not expired", true, timePtr(tomorrow), nil, 0, true},
		{"at visit cap", true, timePtr(tomorrow), intPtr(10), 10, true},
		{"inactive", false, timePtr(tomorrow), nil, 0, false},
		{"inactive and expired", false, timePtr(yesterday), nil, 0, false},
		{"expired", true, timePtr(yesterday), nil, 0, false},
		{"never expires", true, nil, nil, 0, true},
		{"inactive never expires", false, nil, nil, 0, false},
		{"inactive over cap", false, nil, intPtr(10), 11, false},
		{"over visit cap", true, timePtr(tomorrow), intPtr(10), 11, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			visitor := &Visitor{
				IsActive:      tc.isActive,
				ExpiresAt:     tc.expiresAt,
				MaximumVisits: tc.maximumVisits,
				VisitsCount:   tc.visitsCount,
			}
			if got := visitor.IsValid(); got != tc.want {
				t.Fatalf("IsValid() = %v, want %v", got, tc.want)
			}

			err := visitor.Validate()
			if tc.want && err != nil {
				t.Fatalf("Validate() returned %v for a valid pass", err)
			}
			if !tc.want && !errors.Is(err, ErrInvalidVisitorPass) {
				t.Fatalf("Validate() = %v, want ErrInvalidVisitorPass", err)
			}
		})
	}
}
