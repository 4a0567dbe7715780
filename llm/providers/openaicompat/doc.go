// Package openaicompat 实现 OpenAI Chat Completions 兼容端点的流式 Provider。
//
// DeepSeek、Qwen、GLM 等服务商共用同一线上格式，沙龙为每个配置的端点
// 创建一个 Provider。每次请求都会：
//
//   - 从共享的 pool.Gate 获取并发槽位，直到响应流读完或取消后才释放
//   - 以 stream=true 发送 POST 请求，携带 Bearer 认证
//   - 把 >= 400 的状态码映射为 *llm.Error 直接返回
//   - 把响应体交给 streaming.Stream 逐行解码
//
// Usage:
//
//	gate := pool.NewGate(pool.GateConfig{MaxConcurrent: 4})
//	p := openaicompat.New(openaicompat.Config{
//	    ProviderName: "deepseek",
//	    APIKey:       cfg.APIKey,
//	    BaseURL:      "https://api.deepseek.com",
//	}, gate, collector, logger)
package openaicompat
