package persistence

import (
	"fmt"

	"github.com/BaSui01/agentsalon/config"
)

// NewTranscriptStore creates a TranscriptStore based on the configuration.
// The "none" backend returns a nil store and no error.
func NewTranscriptStore(cfg config.TranscriptConfig) (TranscriptStore, error) {
	switch StoreType(cfg.Backend) {
	case StoreTypeNone, "":
		return nil, nil
	case StoreTypeMemory:
		return NewMemoryTranscriptStore(), nil
	case StoreTypeRedis:
		store, err := NewRedisTranscriptStore(cfg.Redis)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported transcript store type: %s", cfg.Backend)
	}
}

// MustNewTranscriptStore creates a TranscriptStore or panics on error.
//
// WARNING: only for application initialization; use NewTranscriptStore elsewhere.
func MustNewTranscriptStore(cfg config.TranscriptConfig) TranscriptStore {
	store, err := NewTranscriptStore(cfg)
	if err != nil {
		panic(fmt.Sprintf("failed to create transcript store: %v", err))
	}
	return store
}
