package agents

import (
	"context"
	"fmt"
	"strings"

	applog "sabio/internal/platform/log"
	"sabio/internal/provider"
)

const routerPrompt = `You are a RouterAgent. Your job is to decide which agent should handle a query.

Agents:
- MathAgent: for any simple math, calculations, numbers, or formulas.
- KnowledgeAgent: for general knowledge, facts, or information.

Query: %q

Return ONLY "MathAgent" or "KnowledgeAgent".`

// Router 用轻量 LLM 判定消息应由哪个 Agent 处理，
// LLM 不可用时退化为正则启发式（数学句式匹配则走数学 Agent）
type Router struct {
	llm       provider.LLMProvider // 可为 nil
	model     string
	math      *MathAgent
	knowledge *KnowledgeAgent
}

// NewRouter 创建路由 Agent，llm 为 nil 时只用启发式路由
func NewRouter(llm provider.LLMProvider, model string, math *MathAgent, kb *KnowledgeAgent) *Router {
	return &Router{llm: llm, model: model, math: math, knowledge: kb}
}

// RouteAndHandle 路由消息并执行对应 Agent，返回决策、处理结果和完整链路
func (r *Router) RouteAndHandle(ctx context.Context, message string) (string, *Result, []WorkflowStep, error) {
	chosen := r.route(ctx, message)
	applog.Info("[RouterAgent] Routing decision", "agent", chosen)

	workflow := []WorkflowStep{
		{Agent: AgentRouter, Decision: chosen},
		{Agent: chosen},
	}

	switch chosen {
	case AgentMath:
		return chosen, &Result{ResponseMsg: r.math.Solve(message)}, workflow, nil
	default:
		result, err := r.knowledge.Answer(ctx, message)
		if err != nil {
			return chosen, nil, workflow, err
		}
		return chosen, result, workflow, nil
	}
}

// route 判定目标 Agent。LLM 返回值不是 MathAgent 时一律视为 KnowledgeAgent
func (r *Router) route(ctx context.Context, message string) string {
	if r.llm == nil {
		return r.heuristic(message)
	}

	resp, err := r.llm.Complete(ctx, &provider.CompletionRequest{
		Model: r.model,
		Messages: []provider.Message{
			{Role: "user", Content: fmt.Sprintf(routerPrompt, message)},
		},
		Temperature: 0,
		MaxTokens:   24,
	})
	if err != nil {
		applog.Warn("[RouterAgent] LLM routing failed, using heuristic", "error", err)
		return r.heuristic(message)
	}

	if strings.Contains(resp.Content, AgentMath) {
		return AgentMath
	}
	return AgentKnowledge
}

func (r *Router) heuristic(message string) string {
	if r.math.Looks(message) {
		return AgentMath
	}
	return AgentKnowledge
}
