// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 AgentSalon 命令行程序入口。

# 概述

cmd/salon 加载 YAML 配置，组装参与者、主持人与共享请求闸门，
运行一次沙龙对话并把事件流渲染到标准输出。日志写标准错误。

# 子命令

  - chat     — 运行一次对话；--topic --rounds --mode 覆盖配置
  - health   — 请求指标服务的 /health
  - version  — 打印构建信息

# 运行时行为

  - 启动前读取当前目录的 .env（godotenv），环境变量前缀 SALON_
  - metrics.enabled 时与对话并行运行 /metrics 与 /health 服务（errgroup），
    对话结束后服务随之关闭
  - SIGINT/SIGTERM 取消对话，在发言之间与片段之间生效，退出码 0
  - 对话以 error 事件结束时退出码 1
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
