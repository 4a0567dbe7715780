package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/BaSui01/agentsalon/agent/conversation"
	"github.com/BaSui01/agentsalon/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func feed(events ...conversation.Event) <-chan conversation.Event {
	ch := make(chan conversation.Event, len(events))
	for _, ev := range events {
		ev.SessionID = "sess"
		ch <- ev
	}
	close(ch)
	return ch
}

func TestRecorder_Tee(t *testing.T) {
	store := NewMemoryTranscriptStore()
	rec := NewRecorder(store, zaptest.NewLogger(t))

	in := feed(
		conversation.Event{Type: conversation.EventHostDeciding, Speaker: "moderator"},
		conversation.Event{Type: conversation.EventContentPiece, Speaker: "moderator", Text: "Welcome"},
		conversation.Event{Type: conversation.EventRound, Round: 1},
		conversation.Event{Type: conversation.EventHostDeciding, Round: 1, Speaker: "moderator"},
		conversation.Event{Type: conversation.EventNextSpeaker, Round: 1, Speaker: "bob", Reason: "fresh voice"},
		conversation.Event{Type: conversation.EventSpeakerTurn, Round: 1, Speaker: "bob"},
		conversation.Event{Type: conversation.EventReasoningPiece, Round: 1, Speaker: "bob", Text: "hmm"},
		conversation.Event{Type: conversation.EventContentPiece, Round: 1, Speaker: "bob", Text: "Knock "},
		conversation.Event{Type: conversation.EventContentPiece, Round: 1, Speaker: "bob", Text: "knock."},
		conversation.Event{Type: conversation.EventTaskFinished, Round: 1, Reason: "completed"},
	)

	out := testutil.Drain(rec.Tee(testutil.TestContext(t), in))
	assert.Len(t, out, 10)

	entries, err := store.Entries(context.Background(), "sess")
	require.NoError(t, err)
	require.Len(t, entries, 4)

	assert.Equal(t, EntryUtterance, entries[0].Kind)
	assert.Equal(t, "moderator", entries[0].Speaker)
	assert.Equal(t, "Welcome", entries[0].Content)

	assert.Equal(t, EntryAssignment, entries[1].Kind)
	assert.Equal(t, "bob", entries[1].Speaker)
	assert.Equal(t, "fresh voice", entries[1].Content)

	assert.Equal(t, EntryUtterance, entries[2].Kind)
	assert.Equal(t, "Knock knock.", entries[2].Content)
	assert.Equal(t, "hmm", entries[2].Reasoning)
	assert.Equal(t, 1, entries[2].Round)

	assert.Equal(t, EntryFinished, entries[3].Kind)
	assert.Equal(t, "completed", entries[3].Content)
}

func TestRecorder_ErrorEntry(t *testing.T) {
	store := NewMemoryTranscriptStore()
	rec := NewRecorder(store, nil)

	in := feed(
		conversation.Event{Type: conversation.EventSpeakerTurn, Round: 1, Speaker: "alice"},
		conversation.Event{Type: conversation.EventContentPiece, Round: 1, Speaker: "alice", Text: "half"},
		conversation.Event{Type: conversation.EventError, Round: 1, Text: "alice: upstream error"},
	)
	testutil.Drain(rec.Tee(testutil.TestContext(t), in))

	entries, err := store.Entries(context.Background(), "sess")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "half", entries[0].Content)
	assert.Equal(t, EntryError, entries[1].Kind)
	assert.Equal(t, "alice: upstream error", entries[1].Content)
}

func TestRecorder_SkipsSilentTurns(t *testing.T) {
	store := NewMemoryTranscriptStore()
	rec := NewRecorder(store, nil)

	in := feed(
		conversation.Event{Type: conversation.EventRound, Round: 1},
		conversation.Event{Type: conversation.EventHostDeciding, Round: 1, Speaker: "moderator"},
		conversation.Event{Type: conversation.EventTaskFinished, Round: 1, Reason: "max_rounds"},
	)
	testutil.Drain(rec.Tee(testutil.TestContext(t), in))

	entries, err := store.Entries(context.Background(), "sess")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, EntryFinished, entries[0].Kind)
}

func TestRecorder_KeepsRecordingAfterCancel(t *testing.T) {
	store := NewMemoryTranscriptStore()
	rec := NewRecorder(store, nil)

	in := make(chan conversation.Event)
	ctx, cancel := context.WithCancel(context.Background())
	out := rec.Tee(ctx, in)
	cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		in <- conversation.Event{Type: conversation.EventSpeakerTurn, SessionID: "sess", Speaker: "alice"}
		in <- conversation.Event{Type: conversation.EventContentPiece, SessionID: "sess", Speaker: "alice", Text: "partial"}
		close(in)
	}()
	<-done
	testutil.Drain(out)

	entries, err := store.Entries(context.Background(), "sess")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "partial", entries[0].Content)
}

type failingStore struct{ *MemoryTranscriptStore }

func (failingStore) Append(context.Context, *Entry) error { return errors.New("disk full") }

func TestRecorder_StoreFailureDoesNotBlock(t *testing.T) {
	rec := NewRecorder(failingStore{NewMemoryTranscriptStore()}, zaptest.NewLogger(t))
	in := feed(
		conversation.Event{Type: conversation.EventSpeakerTurn, Speaker: "alice"},
		conversation.Event{Type: conversation.EventContentPiece, Speaker: "alice", Text: "hi"},
		conversation.Event{Type: conversation.EventTaskFinished, Reason: "completed"},
	)
	assert.Len(t, testutil.Drain(rec.Tee(testutil.TestContext(t), in)), 3)
}
