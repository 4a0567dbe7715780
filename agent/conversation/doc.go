// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 conversation 提供沙龙式多智能体对话编排。

# 概述

Salon 是一个按模式参数化的轮流发言状态机：

	Idle → Opening → RoundActive → {AgentTurn, HostTurn} → (RoundActive | Terminated)

同一会话内任何时刻只有一位发言人在说话。每次发言结束后，
正文投递到其他所有人（参与者与主持人）的待处理队列；
去掉空白后为空的发言不投递。

# 模式

  - rotation：参与者按配置顺序各发言一次，主持人最后发言，
    其发言投递给所有参与者
  - assignment：主持人开场；此后每轮主持人通过 determine_next_speaker
    指派一位参与者，指令广播给所有参与者后由被指派者发言。
    指派不存在的参与者是致命错误，不会开始该参与者的发言
  - competition：主持人开场，其后与 rotation 相同

主持人调用 mark_task_as_completed 且 all_steps_done 为 true，
或达到最大轮数时，会话结束。

# 事件

Chat 返回事件通道，依次产生 round、speaker_turn、content_piece、
reasoning_piece、host_deciding、next_speaker，最后是 task_finished
或 error。ctx 取消时通道直接关闭，Err 返回取消原因。

rotation 与 competition 模式下主持人的片段默认不发出，
由 Config.ShowHostUtterance 控制。
*/
package conversation
