package tokenizer

import (
	"fmt"
	"sync"

	"github.com/BaSui01/agentsalon/llm"
	"github.com/pkoukk/tiktoken-go"
)

// TiktokenTokenizer 为 OpenAI 系列模型使用 tiktoken 精确计数.
// 编码数据在第一次计数时加载，可能需要下载.
type TiktokenTokenizer struct {
	model     string
	encoding  string
	maxTokens int
	enc       *tiktoken.Tiktoken
	once      sync.Once
	initErr   error
}

type encodingInfo struct {
	encoding  string
	maxTokens int
}

// modelEncodings 将模型名称前缀映射到 tiktoken 编码和上下文大小。
var modelEncodings = map[string]encodingInfo{
	"gpt-4o":        {encoding: "o200k_base", maxTokens: 128000},
	"gpt-4.1":       {encoding: "o200k_base", maxTokens: 1047576},
	"o1":            {encoding: "o200k_base", maxTokens: 200000},
	"o3":            {encoding: "o200k_base", maxTokens: 200000},
	"gpt-4-turbo":   {encoding: "cl100k_base", maxTokens: 128000},
	"gpt-4":         {encoding: "cl100k_base", maxTokens: 8192},
	"gpt-3.5-turbo": {encoding: "cl100k_base", maxTokens: 16385},
}

// NewTiktokenTokenizer 为给定模型创建 tiktoken 分词器，未知模型使用 cl100k_base.
func NewTiktokenTokenizer(model string) *TiktokenTokenizer {
	info, ok := modelEncodings[model]
	if !ok {
		bestLen := 0
		for prefix, i := range modelEncodings {
			if len(prefix) > bestLen && len(model) >= len(prefix) && model[:len(prefix)] == prefix {
				info, bestLen = i, len(prefix)
			}
		}
		if bestLen == 0 {
			info = encodingInfo{encoding: "cl100k_base", maxTokens: 8192}
		}
	}

	return &TiktokenTokenizer{
		model:     model,
		encoding:  info.encoding,
		maxTokens: info.maxTokens,
	}
}

func (t *TiktokenTokenizer) init() error {
	t.once.Do(func() {
		enc, err := tiktoken.GetEncoding(t.encoding)
		if err != nil {
			t.initErr = fmt.Errorf("init tiktoken encoding %s: %w", t.encoding, err)
			return
		}
		t.enc = enc
	})
	return t.initErr
}

func (t *TiktokenTokenizer) CountTokens(text string) (int, error) {
	if err := t.init(); err != nil {
		return 0, err
	}
	return len(t.enc.Encode(text, nil, nil)), nil
}

func (t *TiktokenTokenizer) CountMessages(messages []llm.Message) (int, error) {
	if err := t.init(); err != nil {
		return 0, err
	}

	total := 0
	for _, msg := range messages {
		// <|start|>role\n content<|end|>\n
		total += messageOverhead
		total += len(t.enc.Encode(msg.Content, nil, nil))
		total += len(t.enc.Encode(string(msg.Role), nil, nil))
	}
	return total + replyPriming, nil
}

func (t *TiktokenTokenizer) MaxTokens() int {
	return t.maxTokens
}

func (t *TiktokenTokenizer) Name() string {
	return fmt.Sprintf("tiktoken[%s]", t.encoding)
}

// Warm 预先加载编码数据，避免第一次发言时才下载.
func (t *TiktokenTokenizer) Warm() error {
	return t.init()
}

// RegisterOpenAITokenizers 为所有已知的 OpenAI 模型前缀注册 tiktoken 分词器。
// 已注册的前缀保持不变.
func RegisterOpenAITokenizers() {
	modelTokenizersMu.Lock()
	defer modelTokenizersMu.Unlock()
	for model := range modelEncodings {
		if _, ok := modelTokenizers[model]; ok {
			continue
		}
		modelTokenizers[model] = NewTiktokenTokenizer(model)
	}
}
