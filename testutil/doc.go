// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
Package testutil 提供沙龙测试的共享工具和辅助函数。

# 概述

testutil 包为整个项目的单元测试提供统一的辅助能力，
避免各包重复实现相似的测试基础设施。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 异步断言: AssertEventuallyTrue / WaitFor / WaitForChannel
  - 数据工具: MustJSON / MustParseJSON
  - 流式辅助: CollectStreamChunks / CollectStreamContent /
    SendChunksToChannel / Drain
  - SSE 测试服务器: SSEServer 按顺序回放响应体并记录请求

# 子包

  - testutil/mocks: MockProvider，按顺序回放 SSE 响应体
  - testutil/fixtures: SSE 帧工厂与参与者配置工厂
*/
package testutil
