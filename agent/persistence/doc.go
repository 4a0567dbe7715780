// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 persistence 保存沙龙会话的对话记录。

# 概述

TranscriptStore 以会话 ID 为键按顺序保存记录条目（Entry）。
Recorder 插在 Salon 的事件通道与展示层之间：原样转发事件，
同时把同一发言人的连续片段合并为一条 utterance 记录，
并记录指派、正常结束与错误终止。

# 后端

  - MemoryTranscriptStore：进程内存储，适合开发与测试
  - RedisTranscriptStore：每个会话一个 List，Set 作为会话索引，
    可配置过期时间

NewTranscriptStore 按 config.TranscriptConfig 选择后端，
backend 为 none 时返回 nil，调用方不创建 Recorder。
*/
package persistence
