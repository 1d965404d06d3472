package model

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultPassExpiry is how long a freshly issued pass stays usable.
const DefaultPassExpiry = 30 * 24 * time.Hour

// TokenParam is the query parameter carrying the visitor UUID in tokenised URLs.
const TokenParam = "vuid"

// ErrInvalidVisitorPass signals that a pass failed validation at an access gate.
var ErrInvalidVisitorPass = errors.New("visitor pass is invalid")

// Visitor is a time-limited, optionally visit-capped access pass stored in Postgres.
// A nil ExpiresAt never expires; a nil MaximumVisits is unlimited.
type Visitor struct {
	ID            uint       `db:"id" gorm:"primaryKey"`
	UUID          string     `db:"uuid" gorm:"size:36;uniqueIndex;not null"`
	Email         string     `db:"email" gorm:"size:254"`
	IsActive      bool       `db:"is_active" gorm:"not null;default:true"`
	ExpiresAt     *time.Time `db:"expires_at" gorm:"index"`
	MaximumVisits *int       `db:"maximum_visits"`
	VisitsCount   int        `db:"visits_count" gorm:"not null;default:0"`
	CreatedAt     time.Time  `db:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time  `db:"updated_at" gorm:"autoUpdateTime"`
}

// NewVisitor returns a pass with defaults applied: fresh UUID, active,
// expiry thirty days out, zero visits and no visit cap.
func NewVisitor(email string) *Visitor {
	now := time.Now()
	expires := now.Add(DefaultPassExpiry)
	return &Visitor{
		UUID:      uuid.NewString(),
		Email:     email,
		IsActive:  true,
		ExpiresAt: &expires,
		CreatedAt: now,
	}
}

// HasExpired reports whether the expiry timestamp is strictly in the past.
func (v *Visitor) HasExpired() bool {
	return v.ExpiresAt != nil && v.ExpiresAt.Before(time.Now())
}

// HasExceededMaximumVisits reports whether the visit counter went past the cap.
func (v *Visitor) HasExceededMaximumVisits() bool {
	return v.MaximumVisits != nil && v.VisitsCount > *v.MaximumVisits
}

// IsValid reports whether the pass can be used right now.
func (v *Visitor) IsValid() bool {
	return v.IsActive && !v.HasExpired() && !v.HasExceededMaximumVisits()
}

// Validate returns ErrInvalidVisitorPass when IsValid is false.
func (v *Visitor) Validate() error {
	if !v.IsValid() {
		return ErrInvalidVisitorPass
	}
	return nil
}

// Tokenise stamps the visitor UUID onto target as the vuid query parameter.
// An existing vuid value is replaced in place; every other parameter, and
// their order, is left untouched.
func (v *Visitor) Tokenise(target string) string {
	base, query, hasQuery := strings.Cut(target, "?")
	if !hasQuery || query == "" {
		return base + "?" + TokenParam + "=" + v.UUID
	}

	pairs := strings.Split(query, "&")
	replaced := false
	for i, pair := range pairs {
		name, _, _ := strings.Cut(pair, "=")
		if name == TokenParam {
			pairs[i] = TokenParam + "=" + v.UUID
			replaced = true
		}
	}
	if !replaced {
		pairs = append(pairs, TokenParam+"="+v.UUID)
	}
	return base + "?" + strings.Join(pairs, "&")
}
