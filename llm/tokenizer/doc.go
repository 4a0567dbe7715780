// Package tokenizer 提供统一的 Token 计数接口，
// 支持 tiktoken 精确计数与 CJK 估算器。
// 参与者在每次发言前用它估算 prompt 大小，写入指标并在接近上下文上限时告警。
package tokenizer
