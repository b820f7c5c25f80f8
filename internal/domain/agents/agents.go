// Package agents 实现对话编排：路由 Agent 判定消息类型，
// 再分派给数学 Agent 或知识库 Agent 处理。
package agents

// Agent 名称常量，同时作为路由决策的返回值出现在响应里
const (
	AgentRouter    = "RouterAgent"
	AgentMath      = "MathAgent"
	AgentKnowledge = "KnowledgeAgent"
)

// Result 单个 Agent 的处理结果
type Result struct {
	// ResponseMsg 面向用户的回复文本
	ResponseMsg string `json:"response_msg"`
	// Data Agent 特定的附加数据（知识库命中的文档来源等）
	Data any `json:"data,omitempty"`
}

// WorkflowStep 记录一次请求经过的 Agent 链路
type WorkflowStep struct {
	Agent    string `json:"agent"`
	Decision string `json:"decision,omitempty"`
}
