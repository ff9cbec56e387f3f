// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
Package learn drives evolutionary training of Tangled Program Graphs across a
fleet of agents that periodically exchange their best branches.

# Agents

A Learner owns one tpg.Graph and evolves it one generation at a time.
LearningAgent is the reference Learner: it grows roots by cloning and
mutating existing ones, scores every root over an Environment and drops the
worst fraction.

FLAgent wraps a Learner with a queue of received branch roots. Its Train
loop merges the queue into the learner's graph at every aggregation
boundary, that is every generation g with

	g == NbGenerationPerAggregation * (aggregation + 1)

and never in the middle of a generation.

# Fleet

FLAgentManager owns the agents, addressed by AgentID, and a Topology giving
for each agent the set of agents it may send its best root to. A training
round at an aggregation boundary runs in four phases separated by barriers:

 1. exchange: every sender appends its best root to its receivers' queues
 2. extraction: every queued branch is copied out of its source graph
 3. merge: every agent merges its own branches, agents in parallel
 4. evolution: every agent trains one generation, agents in parallel

Extraction only runs while no graph is being written, and a merge only
writes the graph of the agent that performs it.

# Observability

Progress is logged with zap and reported to an optional Recorder. Rounds
and merges are traced with OpenTelemetry. Deliveries may be appended to an
ExchangeJournal and graphs may be persisted after each merge phase through
a Snapshotter.
*/
package learn
