package agent

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Assignment 主持人通过 determine_next_speaker 做出的指派
type Assignment struct {
	Speaker string `json:"next_speaker"`
	Reason  string `json:"reason"`
}

// IsTaskMarkedComplete 最近一次发言是否调用了 mark_task_as_completed 且 all_steps_done 为 true
func (a *Agent) IsTaskMarkedComplete() bool {
	if !a.IsHost() {
		return false
	}
	call := a.LastCall()
	if call == nil || call.Name != CompletionToolName {
		return false
	}
	done, _ := call.Arguments[argAllStepsDone].(bool)
	return done
}

// ChooseNextSpeaker 读取最近一次 determine_next_speaker 调用。
// 指定的发言人必须在 participants 中。
func (a *Agent) ChooseNextSpeaker(participants []string) (Assignment, error) {
	if !a.IsHost() {
		return Assignment{}, fmt.Errorf("%s: %w", a.cfg.Name, ErrNotHost)
	}
	call := a.LastCall()
	if call == nil {
		return Assignment{}, ErrNoToolCall
	}
	if call.Name != NextSpeakerToolName {
		return Assignment{}, fmt.Errorf("%w: %s", ErrUnexpectedTool, call.Name)
	}

	speaker, _ := call.Arguments[argNextSpeaker].(string)
	speaker = strings.TrimSpace(speaker)
	if !lo.Contains(participants, speaker) {
		return Assignment{}, fmt.Errorf("%w: %q", ErrUnknownSpeaker, speaker)
	}
	reason, _ := call.Arguments[argReason].(string)
	return Assignment{Speaker: speaker, Reason: strings.TrimSpace(reason)}, nil
}
