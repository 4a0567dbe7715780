// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的指标采集，覆盖流式请求、
并发闸门与会话轮转三个维度。

# 概述

Collector 通过 promauto 注册全部指标，按 namespace 隔离。
所有 Record/Observe 方法对 nil *Collector 安全，未启用指标时
调用方直接持有 nil 即可，无需额外判断。

# 主要能力

  - LLM 指标：请求总数与耗时（按 provider/model/status），
    解码增量数、被跳过的畸形负载数、估算的 prompt token 数。
  - 闸门指标：等待槽位耗时 Histogram、当前占用槽位 Gauge。
  - Salon 指标：发言次数与耗时（按 speaker/role/status）、
    轮次计数（按 mode）、会话结局计数（按 mode/outcome）。
*/
package metrics
