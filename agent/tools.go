package agent

import (
	"encoding/json"

	"github.com/BaSui01/agentsalon/llm"
)

// 主持人工具名称
const (
	CompletionToolName  = "mark_task_as_completed"
	NextSpeakerToolName = "determine_next_speaker"
)

// 工具参数名称
const (
	argAllStepsDone = "all_steps_done"
	argNextSpeaker  = "next_speaker"
	argReason       = "reason"
)

// CompletionTool 返回结束讨论的工具定义
func CompletionTool() llm.ToolSchema {
	return llm.ToolSchema{
		Name:        CompletionToolName,
		Description: "Call this function when the task is fully completed.",
		Parameters: mustSchema(map[string]any{
			"type": "object",
			"properties": map[string]any{
				argAllStepsDone: map[string]any{
					"type":        "boolean",
					"description": "Confirms all steps are done.",
				},
			},
			"required": []string{argAllStepsDone},
		}),
	}
}

// NextSpeakerTool 返回指定下一位发言人的工具定义。
// names 非空时 next_speaker 带 enum 约束。
func NextSpeakerTool(names []string) llm.ToolSchema {
	speaker := map[string]any{
		"type": "string",
		"description": "The exact name of the participant who should speak next. " +
			"This name must be one of the participants listed in your initial role description.",
	}
	if len(names) > 0 {
		speaker["enum"] = names
	}
	return llm.ToolSchema{
		Name: NextSpeakerToolName,
		Description: "Call this function to select which participant should speak next. " +
			"You must choose a speaker from the list of participants provided in your role description.",
		Parameters: mustSchema(map[string]any{
			"type": "object",
			"properties": map[string]any{
				argNextSpeaker: speaker,
				argReason: map[string]any{
					"type":        "string",
					"description": "A brief explanation for choosing this particular speaker to speak next.",
				},
			},
			"required": []string{argNextSpeaker, argReason},
		}),
	}
}

// HostTools 返回主持人的工具集。assignment 模式额外包含 determine_next_speaker。
func HostTools(assignment bool, names []string) []llm.ToolSchema {
	if !assignment {
		return []llm.ToolSchema{CompletionTool()}
	}
	return []llm.ToolSchema{CompletionTool(), NextSpeakerTool(names)}
}

func mustSchema(v map[string]any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
