package tokenizer

import (
	"strings"
	"sync"

	"github.com/BaSui01/agentsalon/llm"
)

// Tokenizer 统一的 token 计数接口，用于估算每次发言请求的 prompt 大小.
type Tokenizer interface {
	// CountTokens 返回给定文本的 token 数.
	CountTokens(text string) (int, error)

	// CountMessages 返回消息列表的总 token 数,
	// 包括每条消息的开销（角色标记、分隔符等）。
	CountMessages(messages []llm.Message) (int, error)

	// MaxTokens 返回模型的最大上下文长度.
	MaxTokens() int

	// Name 返回分词器的名称.
	Name() string
}

// 全局分词器注册表，键为模型名或模型名前缀.
var (
	modelTokenizers   = make(map[string]Tokenizer)
	modelTokenizersMu sync.RWMutex
)

// RegisterTokenizer 为给定的模型名称注册分词器.
func RegisterTokenizer(model string, t Tokenizer) {
	modelTokenizersMu.Lock()
	defer modelTokenizersMu.Unlock()
	modelTokenizers[model] = t
}

// lookup 精确匹配优先，其次取最长前缀匹配.
func lookup(model string) (Tokenizer, bool) {
	modelTokenizersMu.RLock()
	defer modelTokenizersMu.RUnlock()

	if t, ok := modelTokenizers[model]; ok {
		return t, true
	}

	var best Tokenizer
	bestLen := 0
	for prefix, t := range modelTokenizers {
		if len(prefix) > bestLen && strings.HasPrefix(model, prefix) {
			best, bestLen = t, len(prefix)
		}
	}
	return best, best != nil
}

// defaultsOnce 首次查找前注册内置的 OpenAI 分词器.
var defaultsOnce sync.Once

// ForModel 返回模型的分词器，没有注册时回退到估算器.
func ForModel(model string) Tokenizer {
	defaultsOnce.Do(RegisterOpenAITokenizers)
	if t, ok := lookup(model); ok {
		return t
	}
	return NewEstimatorTokenizer(model, 0)
}

// messageOverhead 每条消息的角色与分隔符开销.
const messageOverhead = 4

// replyPriming 会话末尾为助手回复预留的开销.
const replyPriming = 3
