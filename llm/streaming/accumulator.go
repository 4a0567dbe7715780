package streaming

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BaSui01/agentsalon/llm"
)

// Accumulator 重组一次回复中被拆成多段的工具调用。
//
// 同一轮内远端不会交错发送两个工具调用，所以只跟踪一个：
// 名称取第一个带名称的片段，参数文本按到达顺序拼接，流结束后只解析一次。
type Accumulator struct {
	started bool
	id      string
	name    string
	args    strings.Builder
}

// Add 追加一个片段。nil 片段被忽略。
func (a *Accumulator) Add(delta *llm.ToolCallDelta) {
	if delta == nil {
		return
	}
	a.started = true
	if a.id == "" {
		a.id = delta.ID
	}
	if a.name == "" {
		a.name = delta.Name
	}
	a.args.WriteString(delta.Arguments)
}

// Started 报告是否收到过任何片段。
func (a *Accumulator) Started() bool { return a.started }

// Reset 清空状态以便复用。
func (a *Accumulator) Reset() {
	*a = Accumulator{}
}

// Finish 解析拼接后的参数。未收到片段时返回 (nil, nil)。
// 参数为空视为 {}；不是合法 JSON 对象时返回 LLM_TOOL_ARGUMENTS 错误。
func (a *Accumulator) Finish() (*llm.FunctionCall, error) {
	if !a.started {
		return nil, nil
	}
	if a.name == "" {
		return nil, &llm.Error{
			Code:    llm.ErrToolArguments,
			Message: "tool call fragments carried no function name",
		}
	}

	raw := strings.TrimSpace(a.args.String())
	args := map[string]any{}
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return nil, &llm.Error{
				Code:    llm.ErrToolArguments,
				Message: fmt.Sprintf("tool %q arguments: %v", a.name, err),
			}
		}
		if args == nil {
			// "null"
			return nil, &llm.Error{
				Code:    llm.ErrToolArguments,
				Message: fmt.Sprintf("tool %q arguments: not an object", a.name),
			}
		}
	}

	return &llm.FunctionCall{
		ID:        a.id,
		Name:      a.name,
		Arguments: args,
	}, nil
}
