package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/yinan077/PassGate/internal/app/model"
)

func TestKnownPasses_AddAndTest(t *testing.T) {
	known := NewKnownPasses(1000, 0.01)

	known.Add("abc")
	if !known.MightContain("abc") {
		t.Fatal("added vuid must be reported as possibly present")
	}
}

func TestKnownPasses_Seed(t *testing.T) {
	visitors := make([]model.Visitor, 0, seedPageSize+5)
	for i := 0; i < seedPageSize+5; i++ {
		visitors = append(visitors, model.Visitor{UUID: fmt.Sprintf("pass-%d", i)})
	}

	repo := &mockVisitorRepository{
		listFn: func(ctx context.Context, limit, offset int) ([]model.Visitor, error) {
			if offset >= len(visitors) {
				return nil, nil
			}
			end := offset + limit
			if end > len(visitors) {
				end = len(visitors)
			}
			return visitors[offset:end], nil
		},
	}

	known := NewKnownPasses(10000, 0.01)
	if err := known.Seed(context.Background(), repo); err != nil {
		t.Fatalf("Seed returned error: %v", err)
	}

	for _, v := range []string{"pass-0", "pass-999", fmt.Sprintf("pass-%d", seedPageSize+4)} {
		if !known.MightContain(v) {
			t.Fatalf("expected seeded vuid %s to be present", v)
		}
	}
}
