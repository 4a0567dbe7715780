package main

import (
	"fmt"
	"io"

	"github.com/BaSui01/agentsalon/agent/conversation"
)

// renderer 把事件流写成可读的对话文本。
// 同一发言人的连续片段拼接为一段；推理片段以 "(thinking)" 开头单独成段。
type renderer struct {
	w    io.Writer
	host string

	speaker   string
	reasoning bool
}

func newRenderer(w io.Writer, host string) *renderer {
	return &renderer{w: w, host: host}
}

func (r *renderer) render(ev conversation.Event) {
	switch ev.Type {
	case conversation.EventRound:
		r.endTurn()
		fmt.Fprintf(r.w, "\n=== Round %d/%d ===\n", ev.Round, ev.TotalRounds)

	case conversation.EventSpeakerTurn:
		r.endTurn()
		r.begin(ev.Speaker)

	case conversation.EventHostDeciding:
		r.endTurn()
		fmt.Fprintf(r.w, "\n(%s is deciding...)\n", ev.Speaker)

	case conversation.EventContentPiece:
		if r.speaker != ev.Speaker {
			r.endTurn()
			r.begin(ev.Speaker)
		}
		if r.reasoning {
			r.reasoning = false
			fmt.Fprint(r.w, "\n")
		}
		fmt.Fprint(r.w, ev.Text)

	case conversation.EventReasoningPiece:
		if r.speaker != ev.Speaker {
			r.endTurn()
			r.begin(ev.Speaker)
		}
		if !r.reasoning {
			r.reasoning = true
			fmt.Fprint(r.w, "(thinking) ")
		}
		fmt.Fprint(r.w, ev.Text)

	case conversation.EventNextSpeaker:
		r.endTurn()
		fmt.Fprintf(r.w, "\n-> %s picks %s: %s\n", r.host, ev.Speaker, ev.Reason)

	case conversation.EventTaskFinished:
		r.endTurn()
		fmt.Fprintf(r.w, "\n--- finished (%s) after %d of %d rounds ---\n", ev.Reason, ev.Round, ev.TotalRounds)

	case conversation.EventError:
		r.endTurn()
		fmt.Fprintf(r.w, "\n!!! conversation failed: %s\n", ev.Text)
	}
}

func (r *renderer) begin(speaker string) {
	r.speaker = speaker
	fmt.Fprintf(r.w, "\n[%s] ", speaker)
}

// endTurn 结束当前发言段
func (r *renderer) endTurn() {
	if r.speaker != "" {
		fmt.Fprint(r.w, "\n")
	}
	r.speaker = ""
	r.reasoning = false
}
