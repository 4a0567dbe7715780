package agent

import "errors"

var (
	// ErrConfigInvalid Agent 配置无效
	ErrConfigInvalid = errors.New("invalid agent config")

	// ErrAgentBusy Agent 正在发言
	ErrAgentBusy = errors.New("agent is busy")

	// ErrNotHost 只有主持人才能回答该查询
	ErrNotHost = errors.New("agent is not the host")

	// ErrNoToolCall 最近一次发言没有工具调用
	ErrNoToolCall = errors.New("no tool call in the last turn")

	// ErrUnexpectedTool 最近一次工具调用不是期望的工具
	ErrUnexpectedTool = errors.New("unexpected tool call")

	// ErrUnknownSpeaker 主持人指定的发言人不在参与者列表中
	ErrUnknownSpeaker = errors.New("unknown speaker")
)
