// Copyright 2024 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a MIT license that can be
// found in the LICENSE file.

/*
Package agent implements one salon participant: a role-bound model with its own
message history and a pending inbox of what the others said since its last turn.

# Overview

An [Agent] is either a plain participant or the host ([KindHost]). Both share the
same [Agent.Speak] operation; the host differs only in the tool definitions sent
with each request and in two queries over its last tool call:

  - [Agent.IsTaskMarkedComplete]: the host called mark_task_as_completed with
    all_steps_done set to true
  - [Agent.ChooseNextSpeaker]: the host called determine_next_speaker naming a
    configured participant

# Turn Contract

Each Speak call:

 1. drains the [Inbox] and folds it into one user message via [FoldInbox]
 2. streams a completion through the configured llm.Provider
 3. forwards content and reasoning pieces as they arrive
 4. accumulates tool call fragments with streaming.Accumulator
 5. on a clean end, appends the user message and one assistant message to History

A failed or cancelled turn leaves History untouched. Cross-agent delivery is the
orchestrator's job; an Agent never touches another Agent's state.

# Prompts

[ParticipantPrompt] and [HostPrompt] render the system prompt from config
templates with {role} and {role_prompt} placeholders. [Directive] renders the
assignment broadcast with {speaker} and {reason}.
*/
package agent
