package streaming

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/BaSui01/agentsalon/llm"
)

func decodeAll(t *testing.T, input string) ([]llm.StreamChunk, error) {
	t.Helper()
	dec := NewDecoder(strings.NewReader(input), "test", nil)
	var out []llm.StreamChunk
	for {
		chunk, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, chunk)
	}
}

func TestDecoder_ContentPieces(t *testing.T) {
	input := "data: {\"choices\":[{\"delta\":{\"content\":\"Hi\"}}]}\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\" there\"}}]}\n" +
		"data: [DONE]\n"

	chunks, err := decodeAll(t, input)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, llm.DeltaContent, chunks[0].Kind)
	assert.Equal(t, "Hi", chunks[0].Text)
	assert.Equal(t, llm.DeltaContent, chunks[1].Kind)
	assert.Equal(t, " there", chunks[1].Text)
}

func TestDecoder_LineHandling(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "blank and comment lines ignored",
			input: "\n: keep-alive\nevent: message\ndata: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n\n",
			want:  []string{"a"},
		},
		{
			name:  "no space after prefix",
			input: "data:{\"choices\":[{\"delta\":{\"content\":\"b\"}}]}\n",
			want:  []string{"b"},
		},
		{
			name:  "crlf line endings",
			input: "data: {\"choices\":[{\"delta\":{\"content\":\"c\"}}]}\r\ndata: [DONE]\r\n",
			want:  []string{"c"},
		},
		{
			name:  "final line without newline",
			input: "data: {\"choices\":[{\"delta\":{\"content\":\"d\"}}]}",
			want:  []string{"d"},
		},
		{
			name:  "connection closes without sentinel",
			input: "data: {\"choices\":[{\"delta\":{\"content\":\"e\"}}]}\n",
			want:  []string{"e"},
		},
		{
			name:  "role-only and empty deltas emit nothing",
			input: "data: {\"choices\":[{\"delta\":{\"role\":\"assistant\"}}]}\ndata: {\"choices\":[{\"delta\":{\"content\":\"\"}}]}\ndata: {\"choices\":[]}\ndata: {\"choices\":[{}]}\n",
			want:  nil,
		},
		{
			name:  "empty input",
			input: "",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := decodeAll(t, tt.input)
			require.NoError(t, err)
			var got []string
			for _, c := range chunks {
				got = append(got, c.Text)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecoder_DeltaPriority(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		wantKind llm.DeltaKind
		wantText string
	}{
		{
			name:     "tool call wins over content",
			payload:  `{"choices":[{"delta":{"content":"x","reasoning_content":"r","tool_calls":[{"index":0,"function":{"name":"f","arguments":"{"}}]}}]}`,
			wantKind: llm.DeltaToolCall,
		},
		{
			name:     "content wins over reasoning",
			payload:  `{"choices":[{"delta":{"content":"x","reasoning_content":"r"}}]}`,
			wantKind: llm.DeltaContent,
			wantText: "x",
		},
		{
			name:     "reasoning alone",
			payload:  `{"choices":[{"delta":{"reasoning_content":"thinking"}}]}`,
			wantKind: llm.DeltaReasoning,
			wantText: "thinking",
		},
		{
			name:     "empty tool calls fall through to content",
			payload:  `{"choices":[{"delta":{"content":"y","tool_calls":[]}}]}`,
			wantKind: llm.DeltaContent,
			wantText: "y",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := decodeAll(t, "data: "+tt.payload+"\n")
			require.NoError(t, err)
			require.Len(t, chunks, 1)
			assert.Equal(t, tt.wantKind, chunks[0].Kind)
			assert.Equal(t, tt.wantText, chunks[0].Text)
		})
	}
}

func TestDecoder_ToolCallFragment(t *testing.T) {
	input := `data: {"choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_1","type":"function","function":{"name":"mark_task_as_completed","arguments":""}}]}}]}` + "\n" +
		`data: {"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"all_steps_done\""}}]}}]}` + "\n" +
		`data: {"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":": true}"}}]}}]}` + "\n" +
		"data: [DONE]\n"

	chunks, err := decodeAll(t, input)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	var acc Accumulator
	for _, c := range chunks {
		require.Equal(t, llm.DeltaToolCall, c.Kind)
		acc.Add(c.ToolCall)
	}
	call, err := acc.Finish()
	require.NoError(t, err)
	assert.Equal(t, "call_1", call.ID)
	assert.Equal(t, "mark_task_as_completed", call.Name)
	assert.Equal(t, true, call.Arguments["all_steps_done"])
}

func TestDecoder_MalformedPayloadSkipped(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	input := "data: {not json\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n" +
		"data: [1,2\n" +
		"data: [DONE]\n"

	dec := NewDecoder(strings.NewReader(input), "test", zap.New(core))
	chunk, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, "ok", chunk.Text)

	_, err = dec.Next()
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 2, dec.Skipped())
	assert.Equal(t, 2, logs.FilterMessage("skipping malformed stream payload").Len())
}

func TestDecoder_ErrorFrameIsFatal(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantMsg string
	}{
		{
			name:    "object error",
			payload: `{"error":{"message":"model is overloaded","type":"server_error"}}`,
			wantMsg: "model is overloaded (type: server_error)",
		},
		{
			name:    "string error",
			payload: `{"error":"bad things"}`,
			wantMsg: "bad things",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := "data: {\"choices\":[{\"delta\":{\"content\":\"before\"}}]}\n" +
				"data: " + tt.payload + "\n" +
				"data: {\"choices\":[{\"delta\":{\"content\":\"after\"}}]}\n"

			chunks, err := decodeAll(t, input)
			require.Error(t, err)
			require.Len(t, chunks, 1)
			assert.Equal(t, "before", chunks[0].Text)

			var llmErr *llm.Error
			require.ErrorAs(t, err, &llmErr)
			assert.Equal(t, llm.ErrStreamError, llmErr.Code)
			assert.Equal(t, tt.wantMsg, llmErr.Message)
			assert.Equal(t, "test", llmErr.Provider)
		})
	}
}

func TestDecoder_EmptyErrorIsIgnored(t *testing.T) {
	for _, errField := range []string{"null", "{}", "false", `""`, "0", "[]"} {
		t.Run(errField, func(t *testing.T) {
			input := "data: {\"choices\":[],\"error\":" + errField + "}\n" +
				"data: {\"choices\":[{\"delta\":{\"content\":\"still here\"}}]}\n" +
				"data: [DONE]\n"
			chunks, err := decodeAll(t, input)
			require.NoError(t, err)
			require.Len(t, chunks, 1)
			assert.Equal(t, "still here", chunks[0].Text)
		})
	}
}

type failingReader struct {
	data string
	err  error
	done bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.done {
		r.done = true
		return copy(p, r.data), nil
	}
	return 0, r.err
}

func TestDecoder_ReadErrorIsFatal(t *testing.T) {
	r := &failingReader{
		data: "data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n",
		err:  errors.New("connection reset by peer"),
	}
	dec := NewDecoder(r, "test", nil)

	chunk, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, "partial", chunk.Text)

	_, err = dec.Next()
	var llmErr *llm.Error
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, llm.ErrUpstreamError, llmErr.Code)
	assert.Contains(t, llmErr.Message, "connection reset")

	// sticky
	_, again := dec.Next()
	assert.Equal(t, err, again)
}

// TestProperty_DoneTerminates 验证 [DONE] 之后的任何行都不会产生增量。
func TestProperty_DoneTerminates(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("no deltas after [DONE]", prop.ForAll(
		func(before, after []string) bool {
			var sb strings.Builder
			for _, s := range before {
				sb.WriteString(`data: {"choices":[{"delta":{"content":"` + s + `"}}]}` + "\n")
			}
			sb.WriteString("data: [DONE]\n")
			for _, s := range after {
				sb.WriteString(`data: {"choices":[{"delta":{"content":"` + s + `"}}]}` + "\n")
				sb.WriteString(`data: {"error":{"message":"` + s + `"}}` + "\n")
			}

			chunks, err := decodeAll(t, sb.String())
			if err != nil {
				return false
			}
			want := 0
			for _, s := range before {
				if s != "" {
					want++
				}
			}
			return len(chunks) == want
		},
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.AlphaString()),
	))

	properties.TestingRun(t)
}

type trackingBody struct {
	io.Reader
	closed bool
}

func (b *trackingBody) Close() error {
	b.closed = true
	return nil
}

func TestStream_DeliversAndCloses(t *testing.T) {
	body := &trackingBody{Reader: strings.NewReader(
		"data: {\"choices\":[{\"delta\":{\"reasoning_content\":\"hmm\"}}]}\n" +
			"data: {\"choices\":[{\"delta\":{\"content\":\"yes\"}}]}\n" +
			"data: [DONE]\n")}

	var sum Summary
	doneCalled := make(chan struct{})
	ch := Stream(context.Background(), body, "test", nil, func(s Summary) {
		sum = s
		close(doneCalled)
	})

	var got []llm.StreamChunk
	for c := range ch {
		got = append(got, c)
	}
	<-doneCalled

	require.Len(t, got, 2)
	assert.Equal(t, llm.DeltaReasoning, got[0].Kind)
	assert.Equal(t, llm.DeltaContent, got[1].Kind)
	assert.NoError(t, sum.Err)
	assert.Equal(t, 2, sum.Deltas)
	assert.Zero(t, sum.Skipped)
	assert.True(t, body.closed)
}

func TestStream_ErrorChunkIsLast(t *testing.T) {
	body := io.NopCloser(strings.NewReader(
		"data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n" +
			"data: {\"error\":{\"message\":\"boom\"}}\n" +
			"data: {\"choices\":[{\"delta\":{\"content\":\"b\"}}]}\n"))

	var got []llm.StreamChunk
	for c := range Stream(context.Background(), body, "test", nil, nil) {
		got = append(got, c)
	}

	require.Len(t, got, 2)
	assert.Nil(t, got[0].Err)
	require.NotNil(t, got[1].Err)
	assert.Equal(t, llm.ErrStreamError, got[1].Err.Code)
}

func TestStream_ContextCancel(t *testing.T) {
	pr, pw := io.Pipe()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	ch := Stream(ctx, pr, "test", nil, func(s Summary) { done <- s.Err })

	_, err := pw.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n"))
	require.NoError(t, err)
	first := <-ch
	assert.Equal(t, "a", first.Text)

	cancel()
	// 上游仍在写入，但消费者已经离开
	go func() {
		_, _ = pw.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\"b\"}}]}\n"))
		_ = pw.Close()
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("stream goroutine did not exit after cancel")
	}
}
