package repository

import (
	"context"
	"sync"
	"time"
)

type MemoryQuotaRepository struct {
	mu      sync.Mutex
	windows map[int64]*rateLimitEntry
	now     func() time.Time
}

func NewMemoryQuotaRepository() *MemoryQuotaRepository {
	return &MemoryQuotaRepository{
		windows: make(map[int64]*rateLimitEntry),
		now:     time.Now,
	}
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func (r *MemoryQuotaRepository) CheckRateLimit(_ context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	entry, ok := r.windows[userID]
	if !ok || !now.Before(entry.expiresAt) {
		entry = &rateLimitEntry{expiresAt: now.Add(window)}
		r.windows[userID] = entry
	}
	entry.count++

	return entry.count <= limit, nil
}

// Prune drops windows that have already expired.
func (r *MemoryQuotaRepository) Prune() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for id, entry := range r.windows {
		if !now.Before(entry.expiresAt) {
			delete(r.windows, id)
		}
	}
}
