package knowledge

import (
	applog "sabio/internal/platform/log"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ── HuggingFace 兼容 Embedder 实现 ────────────────────────────

// HFEmbedder 调用 HuggingFace Inference API 兼容的 feature-extraction 端点
type HFEmbedder struct {
	baseURL    string
	apiKey     string
	model      string
	dims       int
	charBudget int
	client     *http.Client
}

// HFEmbedderConfig 配置
type HFEmbedderConfig struct {
	BaseURL    string // e.g. https://api-inference.huggingface.co
	APIKey     string
	Model      string // e.g. sentence-transformers/all-MiniLM-L6-v2
	Dims       int    // 向量维度
	CharBudget int    // 送入模型前的字符截断长度
}

// NewHFEmbedder 创建 Embedder
func NewHFEmbedder(cfg HFEmbedderConfig) *HFEmbedder {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api-inference.huggingface.co"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = "sentence-transformers/all-MiniLM-L6-v2"
	}
	if cfg.Dims <= 0 {
		cfg.Dims = 384
	}
	if cfg.CharBudget <= 0 {
		cfg.CharBudget = 1000
	}

	return &HFEmbedder{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dims:       cfg.Dims,
		charBudget: cfg.CharBudget,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Dims 返回向量维度
func (e *HFEmbedder) Dims() int {
	return e.dims
}

type featureExtractionRequest struct {
	Inputs string `json:"inputs"`
}

// Embed 将文本转为向量。输入先按字符预算截断以约束成本与延迟；
// 服务端可能返回 batch-of-one 的嵌套结果，这里统一展开为扁平向量
func (e *HFEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	text = truncateRunes(strings.TrimSpace(text), e.charBudget)
	if text == "" {
		return nil, fmt.Errorf("empty text")
	}

	start := time.Now()

	body, err := json.Marshal(featureExtractionRequest{Inputs: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := e.baseURL + "/pipeline/feature-extraction/" + e.model
	httpReq, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("embedding request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedding API error (%d): %s", resp.StatusCode, string(respBody))
	}

	vector, err := unwrapVector(respBody)
	if err != nil {
		return nil, err
	}

	applog.Debug("[Knowledge/Embedder] Text embedded",
		"chars", len(text),
		"dims", len(vector),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return vector, nil
}

// unwrapVector 解析响应：扁平向量或 batch-of-one 的嵌套向量
func unwrapVector(data []byte) ([]float32, error) {
	var flat []float32
	if err := json.Unmarshal(data, &flat); err == nil && len(flat) > 0 {
		return flat, nil
	}

	var nested [][]float32
	if err := json.Unmarshal(data, &nested); err == nil && len(nested) > 0 && len(nested[0]) > 0 {
		return nested[0], nil
	}

	return nil, fmt.Errorf("unexpected embedding response shape: %s", truncateRunes(string(data), 120))
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
