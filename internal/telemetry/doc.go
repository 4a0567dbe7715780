// Package telemetry 封装 OpenTelemetry SDK 初始化逻辑，
// 为沙龙提供集中式的 TracerProvider 和 MeterProvider 配置。
//
// 一场对话导出为一棵 span 树：salon.chat 下挂每次 agent.speak，
// 其下再挂 llm.stream。End 与 Outcome 统一 success / cancelled / error
// 三种结果，指标标签与日志使用同一套取值。
// 当遥测功能禁用时，使用 noop 实现，不连接任何外部服务。
package telemetry
