package conversation

import "errors"

var (
	// ErrNoAgents 没有配置参与者
	ErrNoAgents = errors.New("conversation: no agents configured")
	// ErrNoHost 没有配置主持人或主持人不是 host 类型
	ErrNoHost = errors.New("conversation: host not configured")
	// ErrDuplicateAgent 参与者重名
	ErrDuplicateAgent = errors.New("conversation: duplicate agent name")
	// ErrReservedName 参与者与主持人重名
	ErrReservedName = errors.New("conversation: name reserved by the host")
	// ErrUnknownMode 未知的模式
	ErrUnknownMode = errors.New("conversation: unknown chat mode")
	// ErrInvalidRounds 轮数必须为正
	ErrInvalidRounds = errors.New("conversation: rounds must be positive")
	// ErrAlreadyRunning 同一个 Salon 上已有会话在进行
	ErrAlreadyRunning = errors.New("conversation: already running")
)
