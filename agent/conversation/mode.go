// Package conversation drives multi-agent salon conversations.
package conversation

import (
	"fmt"
	"strings"
)

// Mode 决定一轮内的发言顺序
type Mode string

const (
	ModeRotation    Mode = "rotation"    // 参与者依次发言，主持人收尾
	ModeAssignment  Mode = "assignment"  // 主持人每轮指派一位发言人
	ModeCompetition Mode = "competition" // 主持人开场，其后同 rotation
)

// ParseMode 解析模式名称，大小写与首尾空白不敏感
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
	return m, nil
}

// Valid 是否为已知模式
func (m Mode) Valid() bool {
	switch m {
	case ModeRotation, ModeAssignment, ModeCompetition:
		return true
	}
	return false
}

// HasOpening 主持人是否先于第一轮发言
func (m Mode) HasOpening() bool {
	return m == ModeAssignment || m == ModeCompetition
}

// Assigns 主持人是否负责指派发言人
func (m Mode) Assigns() bool { return m == ModeAssignment }

func (m Mode) String() string { return string(m) }
