// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
Package tpg models the Tangled Program Graph owned by each learning agent.

# Overview

A Graph is an ordered collection of vertices and edges. Vertices come in
two kinds, selected by a tag rather than by dynamic type:

  - Team: an internal decision node whose outgoing edges bid for control
  - Action: a terminal node identified by an action ID from the
    environment's fixed action space

Every edge carries a *program.Program used to compute its bid. Edges of a
single graph may share a program; copying an edge into another graph must
clone it.

A vertex without incoming edges is a root. A graph usually holds several
roots, one per policy of the population.

# Reachability

Closure walks the outgoing edges from a root and returns every reachable
vertex and traversed edge exactly once, even when teams form cycles. It is
the extraction step of the branch merge implemented in package mutator.

# Export

GraphDefinition is the serializable form of a graph (JSON or YAML). It is
produced by Export and turned back into a graph by Import. A program table
keeps programs shared by several edges shared after a round trip.

# Concurrency

A Graph is not safe for concurrent use. It is owned by exactly one agent,
which serializes every read and write.
*/
package tpg
