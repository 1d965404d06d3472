package service

import (
	"context"
	"fmt"
	"time"

	"github.com/yinan077/PassGate/internal/app/model"
	"github.com/yinan077/PassGate/internal/app/repository"
)

// PassCache is a best-effort read-through cache keyed by visitor UUID.
// Implementations must never fail a request: misses and backend errors
// both surface as a plain miss.
type PassCache interface {
	Get(ctx context.Context, vuid string) (*model.Visitor, bool)
	Set(ctx context.Context, visitor *model.Visitor)
	Invalidate(ctx context.Context, vuid string)
}

// VisitorService defines behaviour-level operations on visitor passes.
type VisitorService interface {
	CreateVisitor(ctx context.Context, input CreateVisitorInput) (*model.Visitor, error)
	GetVisitor(ctx context.Context, vuid string) (*model.Visitor, error)
	ListVisitors(ctx context.Context, limit, offset int) ([]model.Visitor, error)
	UpdateVisitor(ctx context.Context, vuid string, input UpdateVisitorInput) (*model.Visitor, error)
	Deactivate(ctx context.Context, vuid string) (*model.Visitor, error)
	Reactivate(ctx context.Context, vuid string) (*model.Visitor, error)
	AddVisit(ctx context.Context, vuid string) (*model.Visitor, error)
}

type visitorService struct {
	repo  repository.VisitorRepository
	cache PassCache
}

// NewVisitorService returns a service backed by the given repository.
// The cache may be nil, in which case every read hits the repository.
func NewVisitorService(repo repository.VisitorRepository, cache PassCache) VisitorService {
	return &visitorService{repo: repo, cache: cache}
}

// CreateVisitorInput captures data required to issue a pass. A nil ExpiresAt
// keeps the default thirty-day window unless NeverExpires is set.
type CreateVisitorInput struct {
	Email         string
	ExpiresAt     *time.Time
	NeverExpires  bool
	MaximumVisits *int
}

// UpdateVisitorInput captures fields that can be changed on an existing pass.
type UpdateVisitorInput struct {
	Email         *string
	ExpiresAt     *time.Time
	NeverExpires  bool
	MaximumVisits *int
}

func (s *visitorService) CreateVisitor(ctx context.Context, input CreateVisitorInput) (*model.Visitor, error) {
	visitor := model.NewVisitor(input.Email)
	if input.NeverExpires {
		visitor.ExpiresAt = nil
	} else if input.ExpiresAt != nil {
		visitor.ExpiresAt = input.ExpiresAt
	}
	visitor.MaximumVisits = input.MaximumVisits

	if err := s.repo.Create(ctx, visitor); err != nil {
		return nil, fmt.Errorf("create visitor: %w", err)
	}

	s.cacheSet(ctx, visitor)
	return visitor, nil
}

func (s *visitorService) GetVisitor(ctx context.Context, vuid string) (*model.Visitor, error) {
	if s.cache != nil {
		if visitor, ok := s.cache.Get(ctx, vuid); ok {
			return visitor, nil
		}
	}

	visitor, err := s.repo.GetByUUID(ctx, vuid)
	if err != nil {
		return nil, fmt.Errorf("get visitor: %w", err)
	}

	s.cacheSet(ctx, visitor)
	return visitor, nil
}

func (s *visitorService) ListVisitors(ctx context.Context, limit, offset int) ([]model.Visitor, error) {
	visitors, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list visitors: %w", err)
	}
	return visitors, nil
}

func (s *visitorService) UpdateVisitor(ctx context.Context, vuid string, input UpdateVisitorInput) (*model.Visitor, error) {
	visitor, err := s.repo.GetByUUID(ctx, vuid)
	if err != nil {
		return nil, fmt.Errorf("load visitor: %w", err)
	}

	fields := map[string]interface{}{}
	if input.Email != nil {
		fields["email"] = *input.Email
	}
	if input.NeverExpires {
		fields["expires_at"] = nil
	} else if input.ExpiresAt != nil {
		fields["expires_at"] = *input.ExpiresAt
	}
	if input.MaximumVisits != nil {
		fields["maximum_visits"] = *input.MaximumVisits
	}

	if len(fields) > 0 {
		if err := s.repo.UpdateFields(ctx, visitor.ID, fields); err != nil {
			return nil, fmt.Errorf("update visitor: %w", err)
		}
		if err := s.repo.Refresh(ctx, visitor); err != nil {
			return nil, fmt.Errorf("refresh visitor: %w", err)
		}
	}

	s.cacheSet(ctx, visitor)
	return visitor, nil
}

// Deactivate flips the active flag off and persists that single field.
func (s *visitorService) Deactivate(ctx context.Context, vuid string) (*model.Visitor, error) {
	visitor, err := s.repo.GetByUUID(ctx, vuid)
	if err != nil {
		return nil, fmt.Errorf("load visitor: %w", err)
	}

	if err := s.repo.UpdateFields(ctx, visitor.ID, map[string]interface{}{
		"is_active": false,
	}); err != nil {
		return nil, fmt.Errorf("deactivate visitor: %w", err)
	}
	if err := s.repo.Refresh(ctx, visitor); err != nil {
		return nil, fmt.Errorf("refresh visitor: %w", err)
	}

	s.cacheSet(ctx, visitor)
	return visitor, nil
}

// Reactivate makes a pass fully usable again: it clears all three invalidity
// causes at once, pushing the expiry a full default window into the future and
// zeroing the visit counter rather than only flipping the active flag.
func (s *visitorService) Reactivate(ctx context.Context, vuid string) (*model.Visitor, error) {
	visitor, err := s.repo.GetByUUID(ctx, vuid)
	if err != nil {
		return nil, fmt.Errorf("load visitor: %w", err)
	}

	expires := time.Now().Add(model.DefaultPassExpiry)
	if err := s.repo.UpdateFields(ctx, visitor.ID, map[string]interface{}{
		"is_active":    true,
		"expires_at":   expires,
		"visits_count": 0,
	}); err != nil {
		return nil, fmt.Errorf("reactivate visitor: %w", err)
	}
	if err := s.repo.Refresh(ctx, visitor); err != nil {
		return nil, fmt.Errorf("refresh visitor: %w", err)
	}

	s.cacheSet(ctx, visitor)
	return visitor, nil
}

// AddVisit bumps the visit counter. Uncapped passes are not tracked: when
// MaximumVisits is nil this is a no-op and nothing is written.
func (s *visitorService) AddVisit(ctx context.Context, vuid string) (*model.Visitor, error) {
	visitor, err := s.repo.GetByUUID(ctx, vuid)
	if err != nil {
		return nil, fmt.Errorf("load visitor: %w", err)
	}

	if visitor.MaximumVisits == nil {
		return visitor, nil
	}

	if err := s.repo.IncrementVisits(ctx, visitor.ID); err != nil {
		return nil, fmt.Errorf("add visit: %w", err)
	}
	if err := s.repo.Refresh(ctx, visitor); err != nil {
		return nil, fmt.Errorf("refresh visitor: %w", err)
	}

	s.cacheSet(ctx, visitor)
	return visitor, nil
}

func (s *visitorService) cacheSet(ctx context.Context, visitor *model.Visitor) {
	if s.cache != nil {
		s.cache.Set(ctx, visitor)
	}
}
