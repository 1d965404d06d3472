package service

import (
	"context"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/yinan077/PassGate/internal/app/repository"
)

const seedPageSize = 1000

// KnownPasses is a bloom-filter front for the gate: a definite "no" lets the
// handler skip the cache and database entirely for garbage vuids. False
// positives just fall through to a normal lookup.
type KnownPasses struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

// NewKnownPasses sizes the filter for the expected number of passes and the
// acceptable false-positive rate.
func NewKnownPasses(capacity uint, fpRate float64) *KnownPasses {
	return &KnownPasses{
		filter: bloom.NewWithEstimates(capacity, fpRate),
	}
}

// Add marks a vuid as issued.
func (k *KnownPasses) Add(vuid string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.filter.AddString(vuid)
}

// MightContain reports whether vuid could belong to an issued pass.
func (k *KnownPasses) MightContain(vuid string) bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.filter.TestString(vuid)
}

// Seed loads every stored pass UUID into the filter, paging through the
// repository so startup stays bounded in memory.
func (k *KnownPasses) Seed(ctx context.Context, repo repository.VisitorRepository) error {
	offset := 0
	for {
		visitors, err := repo.List(ctx, seedPageSize, offset)
		if err != nil {
			return err
		}
		for _, v := range visitors {
			k.Add(v.UUID)
		}
		if len(visitors) < seedPageSize {
			return nil
		}
		offset += seedPageSize
	}
}
