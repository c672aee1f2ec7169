package feedback

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// MemoryStore is an in-process reference Store, suitable for tests and
// single-instance deployments without an external feedback database.
type MemoryStore struct {
	mu      sync.Mutex
	entries []*Data
	nextID  int
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Save(_ context.Context, data *Data) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.entries = append(m.entries, data)
	return strconv.Itoa(m.nextID), nil
}

func (m *MemoryStore) GetBySession(_ context.Context, sessionID string, limit int) ([]*Data, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*Data
	for _, d := range m.entries {
		if d.SessionID != sessionID {
			continue
		}
		out = append(out, d)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) GetStatistics(_ context.Context, start, end *time.Time) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var stats Stats
	for _, d := range m.entries {
		if start != nil && d.Timestamp.Before(*start) {
			continue
		}
		if end != nil && d.Timestamp.After(*end) {
			continue
		}
		stats.Total++
		if d.Rating == RatingUp {
			stats.Upvotes++
		} else {
			stats.Downvotes++
		}
	}
	return stats, nil
}

var _ Store = (*MemoryStore)(nil)
