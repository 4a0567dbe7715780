package agent

import (
	"strconv"
	"strings"

	"github.com/BaSui01/agentsalon/config"
	"github.com/samber/lo"
)

// OpeningRound 开场发言使用的轮次哨兵，不渲染轮次页脚
const OpeningRound = -1

// Profile 参与者名称与角色设定
type Profile struct {
	Name    string
	Persona string
}

// ParticipantPrompt 生成参与者的系统提示词：前缀 + 其他参与者列表 + 后缀
func ParticipantPrompt(tpl config.PromptTemplate, self Profile, everyone []Profile) string {
	others := lo.Filter(everyone, func(p Profile, _ int) bool { return p.Name != self.Name })
	return renderPrompt(tpl.Prefix, tpl.Participant, tpl.Suffix, self, others)
}

// HostPrompt 生成主持人的系统提示词，列出所有参与者。
// suffix 非空时替换模板后缀（assignment 模式）。
func HostPrompt(tpl config.PromptTemplate, suffix string, host Profile, participants []Profile) string {
	if suffix == "" {
		suffix = tpl.Suffix
	}
	return renderPrompt(tpl.Prefix, tpl.Participant, suffix, host, participants)
}

func renderPrompt(prefix, line, suffix string, self Profile, others []Profile) string {
	var b strings.Builder
	b.WriteString(roleReplacer(self).Replace(prefix))
	for _, p := range others {
		b.WriteString(roleReplacer(p).Replace(line))
	}
	b.WriteString(suffix)
	return b.String()
}

func roleReplacer(p Profile) *strings.Replacer {
	return strings.NewReplacer("{role}", p.Name, "{role_prompt}", p.Persona)
}

// Directive 渲染指派发言时广播给所有参与者的指令
func Directive(tpl string, speaker, reason string) string {
	return strings.NewReplacer("{speaker}", speaker, "{reason}", reason).Replace(tpl)
}

// FoldInbox 把待处理消息折叠为一条 user 消息。
// round 从 0 开始，页脚显示 round+1；OpeningRound 不渲染页脚。
func FoldInbox(tpl config.InboxTemplate, entries []Utterance, round, totalRounds int) string {
	var b strings.Builder
	b.WriteString(tpl.Prefix)
	for _, e := range entries {
		b.WriteString(strings.NewReplacer("{speaker}", e.Speaker, "{message}", e.Text).Replace(tpl.Speaker))
	}
	b.WriteString(tpl.Suffix)
	if round > OpeningRound {
		b.WriteString(strings.NewReplacer(
			"{current_round}", strconv.Itoa(round+1),
			"{total_rounds}", strconv.Itoa(totalRounds),
		).Replace(tpl.RoundIndex))
	}
	return b.String()
}
