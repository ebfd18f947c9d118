package repositories

import (
	"context"
	"errors"

	"github.com/voiceast/server/domain/entities"
)

// ErrNotFound is returned when a requested document does not exist
var ErrNotFound = errors.New("not found")

// CommandRepository stores the command history
type CommandRepository interface {
	Save(ctx context.Context, record *entities.CommandRecord) error
	History(ctx context.Context, limit int) ([]*entities.CommandRecord, error)
	Clear(ctx context.Context) error
	Statistics(ctx context.Context) (entities.Statistics, error)
}

// PreferenceRepository stores user preferences
type PreferenceRepository interface {
	// Get returns ErrNotFound when the key has never been set
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}) error
}

// MemoryRepository stores free text memories used as interpreter context
type MemoryRepository interface {
	AddMemory(ctx context.Context, text string) error
	SearchMemories(ctx context.Context, query string, limit int) ([]string, error)
}

// Store bundles the persistence collaborators
type Store interface {
	CommandRepository
	PreferenceRepository
	MemoryRepository
	Ping(ctx context.Context) error
}
