// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 llm 定义与模型服务商无关的请求、消息、流式增量与错误类型。

# 概述

沙龙中的每个参与者都通过 [Provider] 发起一次流式补全请求。
本包只描述边界：请求体 [ChatRequest]、历史消息 [Message]、
流式增量 [StreamChunk] 与统一错误 [Error]。具体的 HTTP 协议
在 llm/providers/openaicompat 中实现，逐行解码在 llm/streaming 中实现。

# 错误语义

  - 传输失败（连接错误、非 2xx 状态）与流内 error 帧都是致命错误，
    以 *[Error] 形式返回或在 [StreamChunk].Err 中携带
  - 单个数据帧 JSON 解析失败只记录日志并跳过，不会出现在这里
  - 工具调用参数拼接完成后解析失败使用 [ErrToolArguments]

本项目不提供自动重试，是否重启会话由调用方决定。
*/
package llm
