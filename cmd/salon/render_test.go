package main

import (
	"strings"
	"testing"

	"github.com/BaSui01/agentsalon/agent/conversation"
	"github.com/stretchr/testify/assert"
)

func renderAll(events ...conversation.Event) string {
	var b strings.Builder
	r := newRenderer(&b, "moderator")
	for _, ev := range events {
		r.render(ev)
	}
	return b.String()
}

func TestRenderer_Rotation(t *testing.T) {
	out := renderAll(
		conversation.Event{Type: conversation.EventRound, Round: 1, TotalRounds: 2},
		conversation.Event{Type: conversation.EventSpeakerTurn, Speaker: "alice"},
		conversation.Event{Type: conversation.EventContentPiece, Speaker: "alice", Text: "Hi"},
		conversation.Event{Type: conversation.EventContentPiece, Speaker: "alice", Text: " there"},
		conversation.Event{Type: conversation.EventHostDeciding, Speaker: "moderator"},
		conversation.Event{Type: conversation.EventSpeakerTurn, Speaker: "bob"},
		conversation.Event{Type: conversation.EventReasoningPiece, Speaker: "bob", Text: "hmm"},
		conversation.Event{Type: conversation.EventContentPiece, Speaker: "bob", Text: "Ok"},
		conversation.Event{Type: conversation.EventTaskFinished, Reason: "max_rounds", Round: 2, TotalRounds: 2},
	)

	want := "\n=== Round 1/2 ===\n" +
		"\n[alice] Hi there\n" +
		"\n(moderator is deciding...)\n" +
		"\n[bob] (thinking) hmm\nOk\n" +
		"\n--- finished (max_rounds) after 2 of 2 rounds ---\n"
	assert.Equal(t, want, out)
}

func TestRenderer_VisibleHostAndAssignment(t *testing.T) {
	out := renderAll(
		conversation.Event{Type: conversation.EventHostDeciding, Speaker: "moderator"},
		conversation.Event{Type: conversation.EventContentPiece, Speaker: "moderator", Text: "Welcome"},
		conversation.Event{Type: conversation.EventNextSpeaker, Speaker: "bob", Reason: "fresh voice"},
		conversation.Event{Type: conversation.EventSpeakerTurn, Speaker: "bob"},
		conversation.Event{Type: conversation.EventContentPiece, Speaker: "bob", Text: "b1"},
	)

	want := "\n(moderator is deciding...)\n" +
		"\n[moderator] Welcome\n" +
		"\n-> moderator picks bob: fresh voice\n" +
		"\n[bob] b1"
	assert.Equal(t, want, out)
}

func TestRenderer_Error(t *testing.T) {
	out := renderAll(
		conversation.Event{Type: conversation.EventSpeakerTurn, Speaker: "alice"},
		conversation.Event{Type: conversation.EventError, Text: "alice: boom"},
	)
	assert.Equal(t, "\n[alice] \n\n!!! conversation failed: alice: boom\n", out)
}
