package conversation

import "time"

// EventType 事件类型
type EventType string

const (
	EventRound          EventType = "round"           // 新一轮开始
	EventSpeakerTurn    EventType = "speaker_turn"    // 参与者开始发言
	EventContentPiece   EventType = "content_piece"   // 正文片段
	EventReasoningPiece EventType = "reasoning_piece" // 推理片段
	EventHostDeciding   EventType = "host_deciding"   // 主持人开始发言
	EventNextSpeaker    EventType = "next_speaker"    // 主持人指派了发言人
	EventTaskFinished   EventType = "task_finished"   // 会话正常结束
	EventError          EventType = "error"           // 会话因错误终止
)

// FinishReason 会话结束原因
type FinishReason string

const (
	FinishCompleted FinishReason = "completed"  // 主持人标记完成
	FinishMaxRounds FinishReason = "max_rounds" // 达到最大轮数
)

// Event 会话事件。
//
// 同一发言人的 content_piece 与 reasoning_piece 是同一段发言的连续片段。
// task_finished 与 error 是最后一个事件。
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
	// Round 从 1 开始；开场发言为 0
	Round       int    `json:"round"`
	TotalRounds int    `json:"total_rounds"`
	Speaker     string `json:"speaker,omitempty"`
	Text        string `json:"text,omitempty"`
	// Reason next_speaker 的指派理由，或 task_finished 的结束原因
	Reason string    `json:"reason,omitempty"`
	Err    error     `json:"-"`
	Time   time.Time `json:"time"`
}

// Terminal 是否为最后一个事件
func (e Event) Terminal() bool {
	return e.Type == EventTaskFinished || e.Type == EventError
}
