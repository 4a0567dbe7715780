package persistence

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// MemoryTranscriptStore 是 TranscriptStore 的内存实现。
// 适合开发和测试，数据在重启后丢失。
type MemoryTranscriptStore struct {
	mu       sync.RWMutex
	sessions map[string][]*Entry
	closed   bool
}

// NewMemoryTranscriptStore 创建内存记录存储
func NewMemoryTranscriptStore() *MemoryTranscriptStore {
	return &MemoryTranscriptStore{sessions: make(map[string][]*Entry)}
}

// Close 关闭存储
func (s *MemoryTranscriptStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Ping 检查存储是否可用
func (s *MemoryTranscriptStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// Append 追加一条记录
func (s *MemoryTranscriptStore) Append(ctx context.Context, entry *Entry) error {
	if err := prepare(entry, uuid.NewString); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	e := *entry
	s.sessions[e.SessionID] = append(s.sessions[e.SessionID], &e)
	return nil
}

// Entries 返回会话的全部记录副本
func (s *MemoryTranscriptStore) Entries(ctx context.Context, sessionID string) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	entries, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return lo.Map(entries, func(e *Entry, _ int) *Entry {
		c := *e
		return &c
	}), nil
}

// Sessions 返回所有会话 ID
func (s *MemoryTranscriptStore) Sessions(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	ids := lo.Keys(s.sessions)
	slices.Sort(ids)
	return ids, nil
}

// Delete 删除会话
func (s *MemoryTranscriptStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	if _, ok := s.sessions[sessionID]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, sessionID)
	return nil
}
