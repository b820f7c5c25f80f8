package agents

import (
	"context"
	"fmt"
	"strings"

	"sabio/internal/domain/knowledge"
	applog "sabio/internal/platform/log"
	"sabio/internal/provider"
)

// noInfoMessage 知识库无命中时的兜底回复（帮助中心内容为葡语）
const noInfoMessage = "Desculpe, não encontrei informações sobre isso na nossa central de ajuda. " +
	"Você pode reformular a pergunta ou entrar em contato com o suporte."

// DocumentSource 回答引用的文档来源
type DocumentSource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// KnowledgeAgent 基于帮助中心知识库回答问题：
// 检索相关文档，拼装上下文后交给 LLM 生成回答。
// LLM 不可用时退化为直接返回命中文档的摘要
type KnowledgeAgent struct {
	retriever *knowledge.Retriever
	llm       provider.LLMProvider // 可为 nil
	model     string
}

// NewKnowledgeAgent 创建知识库 Agent，llm 为 nil 时仅做检索
func NewKnowledgeAgent(retriever *knowledge.Retriever, llm provider.LLMProvider, model string) *KnowledgeAgent {
	return &KnowledgeAgent{retriever: retriever, llm: llm, model: model}
}

// Answer 回答问题，返回的 Result.Data 为命中文档来源列表
func (a *KnowledgeAgent) Answer(ctx context.Context, question string) (*Result, error) {
	docs, err := a.retriever.Retrieve(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}

	if len(docs) == 0 {
		applog.Info("[KnowledgeAgent] No documents found", "question_len", len(question))
		return &Result{ResponseMsg: noInfoMessage}, nil
	}

	sources := make([]DocumentSource, len(docs))
	for i, d := range docs {
		sources[i] = DocumentSource{Title: d.Title, URL: d.URL}
	}

	answer := a.generate(ctx, question, docs)
	return &Result{ResponseMsg: answer, Data: sources}, nil
}

// generate 调用 LLM 生成回答，失败时退化为文档摘要
func (a *KnowledgeAgent) generate(ctx context.Context, question string, docs []knowledge.Document) string {
	if a.llm == nil {
		return summarizeDocs(docs)
	}

	resp, err := a.llm.Complete(ctx, &provider.CompletionRequest{
		Model: a.model,
		Messages: []provider.Message{
			{Role: "system", Content: "Você é um assistente de suporte. Responda em português, " +
				"usando apenas o contexto fornecido. Se o contexto não contiver a resposta, diga que não sabe."},
			{Role: "user", Content: buildContextPrompt(question, docs)},
		},
		Temperature: 0,
		MaxTokens:   512,
	})
	if err != nil {
		applog.Warn("[KnowledgeAgent] LLM completion failed, falling back to document summary", "error", err)
		return summarizeDocs(docs)
	}

	content := strings.TrimSpace(resp.Content)
	if content == "" {
		return summarizeDocs(docs)
	}
	return content
}

func buildContextPrompt(question string, docs []knowledge.Document) string {
	var sb strings.Builder
	sb.WriteString("Contexto da central de ajuda:\n\n")
	for i, d := range docs {
		fmt.Fprintf(&sb, "[%d] %s\n%s\n\n", i+1, d.Title, d.Text)
	}
	sb.WriteString("Pergunta: ")
	sb.WriteString(question)
	return sb.String()
}

// summarizeDocs 无 LLM 时的降级回答：罗列命中文档的标题和正文片段
func summarizeDocs(docs []knowledge.Document) string {
	var sb strings.Builder
	sb.WriteString("Encontrei estes artigos relacionados à sua pergunta:\n\n")
	for _, d := range docs {
		fmt.Fprintf(&sb, "• %s\n%s\n\n", d.Title, d.Text)
	}
	return strings.TrimSpace(sb.String())
}
