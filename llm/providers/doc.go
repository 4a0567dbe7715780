// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 providers 定义 OpenAI 兼容聊天补全端点的线上格式，以及所有 Provider
共享的错误映射逻辑。具体的 HTTP 客户端位于子包 openaicompat，SSE 解码位于
llm/streaming。

# 核心类型

  - OpenAICompatRequest — 流式请求体（model、messages、temperature、top_p、
    max_tokens、penalty、stream、tools）
  - OpenAICompatStreamChunk — 一个 `data:` 帧的负载，含 choices[].delta 与顶层 error
  - OpenAICompatToolCallDelta — 工具调用片段，arguments 为 JSON 文本的一段

# 核心函数

  - MapHTTPError — 将 HTTP 状态码映射为语义化的 llm.Error（含 Retryable 标记）
  - ReadErrorMessage — 读取非 2xx 响应体中的错误消息
  - ErrorFrameMessage — 从对象或字符串形式的 error 字段中提取消息
  - BuildStreamRequest — llm.ChatRequest 到线上请求体的转换，stream 固定为 true
*/
package providers
