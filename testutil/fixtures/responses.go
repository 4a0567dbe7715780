// =============================================================================
// 📦 测试数据工厂 - SSE 流式响应帧
// =============================================================================
// 构造 OpenAI 兼容端点返回的 `data:` 帧，用于解码器、Provider 与会话测试
// =============================================================================
package fixtures

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DoneFrame 流结束标记
const DoneFrame = "data: [DONE]\n\n"

// =============================================================================
// 🎯 单帧工厂
// =============================================================================

// ContentFrame 返回一个正文增量帧
func ContentFrame(text string) string {
	return deltaFrame(map[string]any{"content": text})
}

// ReasoningFrame 返回一个推理增量帧
func ReasoningFrame(text string) string {
	return deltaFrame(map[string]any{"reasoning_content": text})
}

// ToolCallFrame 返回一个工具调用片段帧。id 与 name 为空时省略。
func ToolCallFrame(id, name, arguments string) string {
	fn := map[string]any{"arguments": arguments}
	if name != "" {
		fn["name"] = name
	}
	call := map[string]any{"index": 0, "function": fn}
	if id != "" {
		call["id"] = id
		call["type"] = "function"
	}
	return deltaFrame(map[string]any{"tool_calls": []any{call}})
}

// ErrorFrame 返回一个没有 choices 的 error 帧
func ErrorFrame(message string) string {
	return frame(map[string]any{
		"error": map[string]any{"message": message, "type": "server_error"},
	})
}

func deltaFrame(delta map[string]any) string {
	return frame(map[string]any{
		"id":     "chatcmpl-test",
		"object": "chat.completion.chunk",
		"choices": []any{
			map[string]any{"index": 0, "delta": delta},
		},
	})
}

func frame(payload map[string]any) string {
	data, err := json.Marshal(payload)
	if err != nil {
		panic(fmt.Sprintf("fixtures: marshal frame: %v", err))
	}
	return "data: " + string(data) + "\n\n"
}

// =============================================================================
// 🧩 组合工厂
// =============================================================================

// ToolCallFrames 把一次工具调用拆成 parts 个参数片段。
// 第一个片段携带 id 与 name，后续只携带参数。
func ToolCallFrames(name string, args map[string]any, parts int) []string {
	data, err := json.Marshal(args)
	if err != nil {
		panic(fmt.Sprintf("fixtures: marshal tool args: %v", err))
	}
	raw := string(data)
	if parts < 1 {
		parts = 1
	}
	size := (len(raw) + parts - 1) / parts
	if size == 0 {
		size = 1
	}

	var frames []string
	for i := 0; i < len(raw); i += size {
		end := min(i+size, len(raw))
		if i == 0 {
			frames = append(frames, ToolCallFrame("call_test", name, raw[i:end]))
			continue
		}
		frames = append(frames, ToolCallFrame("", "", raw[i:end]))
	}
	return frames
}

// Utterance 把一段发言拆成若干正文帧，并以 [DONE] 结束
func Utterance(pieces ...string) string {
	var b strings.Builder
	for _, p := range pieces {
		b.WriteString(ContentFrame(p))
	}
	b.WriteString(DoneFrame)
	return b.String()
}

// SSEBody 拼接帧并以 [DONE] 结束
func SSEBody(frames ...string) string {
	return strings.Join(frames, "") + DoneFrame
}

// CompletionCall 返回主持人调用 mark_task_as_completed 的完整响应体
func CompletionCall(done bool) string {
	return SSEBody(ToolCallFrames("mark_task_as_completed", map[string]any{"all_steps_done": done}, 2)...)
}

// NextSpeakerCall 返回主持人调用 determine_next_speaker 的完整响应体
func NextSpeakerCall(speaker, reason string) string {
	return SSEBody(ToolCallFrames("determine_next_speaker", map[string]any{
		"next_speaker": speaker,
		"reason":       reason,
	}, 3)...)
}
