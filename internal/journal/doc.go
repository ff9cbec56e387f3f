// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 BSD 风格的许可证管理
// 可以在 LICENSE 文件中找到。

/*
Package journal 将联邦训练中的分支交换记录到 Redis stream.

每次聚合的每一次投递 (发送者 -> 接收者) 写入一条 stream 记录, 字段包括
代数、发送者、接收者以及分支的顶点数和边数. stream 键为
"<key_prefix>:<run_id>:exchanges", 通过 MAXLEN ~ 限制长度.

写入经过 golang.org/x/time/rate 限流. 日志只用于观察, 写入失败由调用方
记录而不会中断训练.
*/
package journal
