package persistence

import (
	"context"
	"errors"
	"time"
)

// Common errors
var (
	ErrNotFound     = errors.New("not found")
	ErrStoreClosed  = errors.New("store is closed")
	ErrInvalidInput = errors.New("invalid input")
)

// StoreType represents the type of storage backend
type StoreType string

const (
	StoreTypeNone   StoreType = "none"
	StoreTypeMemory StoreType = "memory"
	StoreTypeRedis  StoreType = "redis"
)

// EntryKind 记录条目类型
type EntryKind string

const (
	// EntryUtterance 一次完整发言
	EntryUtterance EntryKind = "utterance"
	// EntryAssignment 主持人指派发言人，Content 为理由
	EntryAssignment EntryKind = "assignment"
	// EntryFinished 会话正常结束，Content 为结束原因
	EntryFinished EntryKind = "finished"
	// EntryError 会话因错误终止，Content 为错误信息
	EntryError EntryKind = "error"
)

// Entry is one line of a session transcript.
type Entry struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Kind      EntryKind `json:"kind"`
	Round     int       `json:"round"`
	Speaker   string    `json:"speaker,omitempty"`
	Content   string    `json:"content,omitempty"`
	Reasoning string    `json:"reasoning,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the base interface for all persistent stores
type Store interface {
	// Close closes the store and releases resources
	Close() error

	// Ping checks if the store is healthy
	Ping(ctx context.Context) error
}

// TranscriptStore keeps the ordered entries of each session.
type TranscriptStore interface {
	Store

	// Append adds an entry to the end of its session. ID and CreatedAt are
	// filled in when empty.
	Append(ctx context.Context, entry *Entry) error

	// Entries returns a session's entries in append order.
	// Returns ErrNotFound for an unknown session.
	Entries(ctx context.Context, sessionID string) ([]*Entry, error)

	// Sessions lists known session IDs, sorted.
	Sessions(ctx context.Context) ([]string, error)

	// Delete removes a session. Returns ErrNotFound for an unknown session.
	Delete(ctx context.Context, sessionID string) error
}

// prepare validates an entry and fills in generated fields
func prepare(entry *Entry, newID func() string) error {
	if entry == nil || entry.SessionID == "" || entry.Kind == "" {
		return ErrInvalidInput
	}
	if entry.ID == "" {
		entry.ID = newID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	return nil
}
