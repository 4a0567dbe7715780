package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/BaSui01/agentsalon/config"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisTranscriptStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	cfg := config.DefaultRedisConfig()
	cfg.Addr = mr.Addr()
	store, err := NewRedisTranscriptStore(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, mr
}

// testTranscriptStore 对任意后端运行同一组用例
func testTranscriptStore(t *testing.T, store TranscriptStore) {
	ctx := context.Background()

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, store.Ping(ctx))
	})

	t.Run("AppendAndEntries", func(t *testing.T) {
		first := &Entry{SessionID: "s1", Kind: EntryUtterance, Round: 1, Speaker: "alice", Content: "Knock knock."}
		require.NoError(t, store.Append(ctx, first))
		assert.NotEmpty(t, first.ID)
		assert.False(t, first.CreatedAt.IsZero())

		require.NoError(t, store.Append(ctx, &Entry{SessionID: "s1", Kind: EntryUtterance, Round: 1, Speaker: "bob", Content: "Who's there?", Reasoning: "play along"}))
		require.NoError(t, store.Append(ctx, &Entry{SessionID: "s1", Kind: EntryFinished, Round: 1, Content: "max_rounds"}))

		entries, err := store.Entries(ctx, "s1")
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, first.ID, entries[0].ID)
		assert.Equal(t, "Knock knock.", entries[0].Content)
		assert.Equal(t, "play along", entries[1].Reasoning)
		assert.Equal(t, EntryFinished, entries[2].Kind)
	})

	t.Run("InvalidInput", func(t *testing.T) {
		assert.ErrorIs(t, store.Append(ctx, nil), ErrInvalidInput)
		assert.ErrorIs(t, store.Append(ctx, &Entry{Kind: EntryUtterance}), ErrInvalidInput)
		assert.ErrorIs(t, store.Append(ctx, &Entry{SessionID: "s1"}), ErrInvalidInput)
	})

	t.Run("UnknownSession", func(t *testing.T) {
		_, err := store.Entries(ctx, "nope")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, store.Delete(ctx, "nope"), ErrNotFound)
	})

	t.Run("SessionsAndDelete", func(t *testing.T) {
		require.NoError(t, store.Append(ctx, &Entry{SessionID: "s0", Kind: EntryError, Content: "boom"}))

		ids, err := store.Sessions(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"s0", "s1"}, ids)

		require.NoError(t, store.Delete(ctx, "s0"))
		ids, err = store.Sessions(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"s1"}, ids)
	})
}

func TestMemoryTranscriptStore(t *testing.T) {
	store := NewMemoryTranscriptStore()
	testTranscriptStore(t, store)

	t.Run("EntriesAreCopies", func(t *testing.T) {
		ctx := context.Background()
		entries, err := store.Entries(ctx, "s1")
		require.NoError(t, err)
		entries[0].Content = "changed"

		again, err := store.Entries(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, "Knock knock.", again[0].Content)
	})

	t.Run("Closed", func(t *testing.T) {
		require.NoError(t, store.Close())
		assert.ErrorIs(t, store.Ping(context.Background()), ErrStoreClosed)
		assert.ErrorIs(t, store.Append(context.Background(), &Entry{SessionID: "s", Kind: EntryUtterance}), ErrStoreClosed)
	})
}

func TestRedisTranscriptStore(t *testing.T) {
	store, mr := newRedisStore(t)
	testTranscriptStore(t, store)

	assert.True(t, mr.Exists("agentsalon:transcript:session:s1"))
	assert.True(t, mr.Exists("agentsalon:transcript:sessions"))
}

func TestRedisTranscriptStore_TTL(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, &Entry{SessionID: "short", Kind: EntryUtterance, Content: "hi"}))
	assert.Equal(t, 7*24*time.Hour, mr.TTL("agentsalon:transcript:session:short"))

	mr.FastForward(8 * 24 * time.Hour)

	_, err := store.Entries(ctx, "short")
	assert.ErrorIs(t, err, ErrNotFound)
	ids, err := store.Sessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestNewRedisTranscriptStore_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.DefaultRedisConfig()
	cfg.Addr = mr.Addr()
	mr.Close()

	_, err := NewRedisTranscriptStore(cfg)
	assert.Error(t, err)
}

func TestNewTranscriptStore(t *testing.T) {
	store, err := NewTranscriptStore(config.TranscriptConfig{Backend: "none"})
	require.NoError(t, err)
	assert.Nil(t, store)

	store, err = NewTranscriptStore(config.TranscriptConfig{Backend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryTranscriptStore{}, store)

	mr := miniredis.RunT(t)
	cfg := config.DefaultTranscriptConfig()
	cfg.Backend = "redis"
	cfg.Redis.Addr = mr.Addr()
	store, err = NewTranscriptStore(cfg)
	require.NoError(t, err)
	assert.IsType(t, &RedisTranscriptStore{}, store)
	require.NoError(t, store.Close())

	_, err = NewTranscriptStore(config.TranscriptConfig{Backend: "file"})
	assert.Error(t, err)
}
