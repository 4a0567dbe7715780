package agent

import "sync"

// Utterance 一位发言人完成的一段发言
type Utterance struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// Inbox 两次发言之间收到的其他参与者发言，按到达顺序保存。
// 只追加，Drain 一次取走全部内容。
type Inbox struct {
	mu      sync.Mutex
	entries []Utterance
}

// Push 追加一条发言
func (in *Inbox) Push(u Utterance) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.entries = append(in.entries, u)
}

// Drain 取走并清空所有发言
func (in *Inbox) Drain() []Utterance {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := in.entries
	in.entries = nil
	return out
}

// Len 返回待处理发言数
func (in *Inbox) Len() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.entries)
}
