package adapters

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/voiceast/server/domain/entities"
	"github.com/voiceast/server/domain/repositories"
)

const commonIntentsLimit = 10

// MemoryStore is an in-memory implementation of repositories.Store.
// It is used when no MongoDB URL is configured; everything is lost on restart.
type MemoryStore struct {
	mu          sync.RWMutex
	commands    []*entities.CommandRecord // oldest first
	preferences map[string]entities.Preference
	memories    []entities.Memory // oldest first
	now         func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		preferences: make(map[string]entities.Preference),
		now:         time.Now,
	}
}

// Ping implements repositories.Store
func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Save implements repositories.CommandRepository
func (m *MemoryStore) Save(ctx context.Context, record *entities.CommandRecord) error {
	if record == nil {
		return errors.New("record cannot be nil")
	}

	if err := record.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Store a copy to prevent external modifications
	recordCopy := *record
	if recordCopy.ID.IsZero() {
		recordCopy.ID = primitive.NewObjectID()
	}
	m.commands = append(m.commands, &recordCopy)
	return nil
}

// History implements repositories.CommandRepository, newest first
func (m *MemoryStore) History(ctx context.Context, limit int) ([]*entities.CommandRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sorted := make([]*entities.CommandRecord, len(m.commands))
	copy(sorted, m.commands)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})

	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}

	result := make([]*entities.CommandRecord, len(sorted))
	for i, record := range sorted {
		recordCopy := *record
		result[i] = &recordCopy
	}
	return result, nil
}

// Clear implements repositories.CommandRepository
func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.commands = nil
	return nil
}

// Statistics implements repositories.CommandRepository
func (m *MemoryStore) Statistics(ctx context.Context) (entities.Statistics, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var successful int64
	counts := make(map[string]int64)
	for _, record := range m.commands {
		if record.Success {
			successful++
		}
		counts[record.Intent]++
	}

	common := make([]entities.IntentCount, 0, len(counts))
	for intent, count := range counts {
		common = append(common, entities.IntentCount{Intent: intent, Count: count})
	}
	sort.Slice(common, func(i, j int) bool {
		if common[i].Count != common[j].Count {
			return common[i].Count > common[j].Count
		}
		return common[i].Intent < common[j].Intent
	})
	if len(common) > commonIntentsLimit {
		common = common[:commonIntentsLimit]
	}

	return entities.NewStatistics(int64(len(m.commands)), successful, common), nil
}

// Get implements repositories.PreferenceRepository
func (m *MemoryStore) Get(ctx context.Context, key string) (interface{}, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pref, exists := m.preferences[key]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	return pref.Value, nil
}

// Set implements repositories.PreferenceRepository
func (m *MemoryStore) Set(ctx context.Context, key string, value interface{}) error {
	if key == "" {
		return errors.New("preference key cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.preferences[key] = entities.Preference{Key: key, Value: value, UpdatedAt: m.now().UTC()}
	return nil
}

// AddMemory implements repositories.MemoryRepository
func (m *MemoryStore) AddMemory(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.New("memory text cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.memories = append(m.memories, entities.Memory{Text: text, Timestamp: m.now().UTC()})
	return nil
}

// SearchMemories implements repositories.MemoryRepository. Matching is a case
// insensitive substring test, newest first; an empty query matches everything.
func (m *MemoryStore) SearchMemories(ctx context.Context, query string, limit int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	query = strings.ToLower(strings.TrimSpace(query))
	result := []string{}
	for i := len(m.memories) - 1; i >= 0; i-- {
		if limit > 0 && len(result) >= limit {
			break
		}
		text := m.memories[i].Text
		if query == "" || strings.Contains(strings.ToLower(text), query) {
			result = append(result, text)
		}
	}
	return result, nil
}
