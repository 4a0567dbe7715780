package persistence

import (
	"context"
	"strings"

	"github.com/BaSui01/agentsalon/agent/conversation"
	"go.uber.org/zap"
)

// Recorder 把会话事件流写入 TranscriptStore。
//
// 同一发言人的连续片段合并为一条 utterance 记录；没有任何片段的发言
// （例如未展示的主持人发言）不记录。写入失败只记日志，不影响事件流。
type Recorder struct {
	store  TranscriptStore
	logger *zap.Logger
}

// NewRecorder 创建 Recorder
func NewRecorder(store TranscriptStore, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		store:  store,
		logger: logger.With(zap.String("component", "transcript_recorder")),
	}
}

// Tee 转发 in 中的每个事件并同时记录。
//
// 返回的通道在 in 关闭后关闭。ctx 结束后不再转发但继续读完 in 并记录，
// 已到达的部分记录仍会写入。
func (r *Recorder) Tee(ctx context.Context, in <-chan conversation.Event) <-chan conversation.Event {
	out := make(chan conversation.Event)
	go func() {
		defer close(out)
		w := &transcriptWriter{recorder: r, ctx: context.WithoutCancel(ctx)}
		forwarding := true
		for ev := range in {
			w.observe(ev)
			if !forwarding {
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				forwarding = false
			}
		}
		w.flush()
	}()
	return out
}

// transcriptWriter 在事件之间累积当前发言
type transcriptWriter struct {
	recorder  *Recorder
	ctx       context.Context
	current   *Entry
	content   strings.Builder
	reasoning strings.Builder
}

func (w *transcriptWriter) observe(ev conversation.Event) {
	switch ev.Type {
	case conversation.EventSpeakerTurn, conversation.EventHostDeciding:
		w.flush()
		w.start(ev)

	case conversation.EventContentPiece, conversation.EventReasoningPiece:
		if w.current == nil || w.current.Speaker != ev.Speaker {
			w.flush()
			w.start(ev)
		}
		if ev.Type == conversation.EventContentPiece {
			w.content.WriteString(ev.Text)
		} else {
			w.reasoning.WriteString(ev.Text)
		}

	case conversation.EventRound:
		w.flush()

	case conversation.EventNextSpeaker:
		w.flush()
		w.append(&Entry{SessionID: ev.SessionID, Kind: EntryAssignment, Round: ev.Round, Speaker: ev.Speaker, Content: ev.Reason})

	case conversation.EventTaskFinished:
		w.flush()
		w.append(&Entry{SessionID: ev.SessionID, Kind: EntryFinished, Round: ev.Round, Content: ev.Reason})

	case conversation.EventError:
		w.flush()
		w.append(&Entry{SessionID: ev.SessionID, Kind: EntryError, Round: ev.Round, Content: ev.Text})
	}
}

func (w *transcriptWriter) start(ev conversation.Event) {
	w.current = &Entry{SessionID: ev.SessionID, Kind: EntryUtterance, Round: ev.Round, Speaker: ev.Speaker}
}

// flush 写入当前发言；没有内容时丢弃
func (w *transcriptWriter) flush() {
	e := w.current
	w.current = nil
	defer w.content.Reset()
	defer w.reasoning.Reset()

	if e == nil || (w.content.Len() == 0 && w.reasoning.Len() == 0) {
		return
	}
	e.Content = w.content.String()
	e.Reasoning = w.reasoning.String()
	w.append(e)
}

func (w *transcriptWriter) append(e *Entry) {
	if err := w.recorder.store.Append(w.ctx, e); err != nil {
		w.recorder.logger.Warn("failed to record transcript entry",
			zap.String("session_id", e.SessionID),
			zap.String("kind", string(e.Kind)),
			zap.Error(err))
	}
}
