// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 提供暴露 Prometheus 指标与健康检查的小型 HTTP 服务器。

# 核心类型

  - Manager：封装 net/http.Server，提供非阻塞 Start、阻塞直到
    ctx 结束的 Run 以及带超时的优雅关闭 Shutdown。
  - NewHandler：注册 GET /metrics（promhttp）与 GET /health。
    任一 HealthCheck 失败时 /health 返回 503 与各项检查结果。

cmd/salon 在 metrics.enabled 为 true 时与会话并行运行该服务器。
*/
package server
