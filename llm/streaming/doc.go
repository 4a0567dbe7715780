// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 streaming 负责把 OpenAI 兼容端点的 SSE 响应还原为类型化增量，
并重组被拆分的工具调用。

# 解码规则

  - 输入按行处理，空行与非 `data:` 前缀的行被忽略（容忍注释与心跳行）。
  - 前缀之后的内容去掉首尾空白；等于 `[DONE]` 时正常结束，不再读取后续输入。
  - 其余内容按一个 JSON 负载解析；解析失败记录 Warn 日志并跳过。
  - choices[0].delta 中按 tool_calls、content、reasoning_content 的优先级
    最多产出一个增量。
  - 没有 choices 但带有顶层 error 的负载是致命的，返回 LLM_STREAM_ERROR。

# 核心类型

  - Decoder — 拉取式解码器，Next 返回下一个增量，io.EOF 表示正常结束。
  - Stream — 在 goroutine 中运行 Decoder，通过通道推送增量并在结束时关闭 body。
  - Accumulator — 拼接工具调用参数文本，流结束后只解析一次。
*/
package streaming
