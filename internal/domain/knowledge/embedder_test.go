package knowledge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// TestEmbedFlatVector 扁平向量响应直接返回
func TestEmbedFlatVector(t *testing.T) {
	var gotPath, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[0.1, 0.2, 0.3]`))
	}))
	defer server.Close()

	embedder := NewHFEmbedder(HFEmbedderConfig{
		BaseURL: server.URL,
		APIKey:  "hf_test",
		Model:   "sentence-transformers/all-MiniLM-L6-v2",
	})

	vec, err := embedder.Embed(context.Background(), "como funciona o pix")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vec) != 3 {
		t.Fatalf("expected 3 dims, got %d", len(vec))
	}
	if !strings.Contains(gotPath, "/pipeline/feature-extraction/sentence-transformers/all-MiniLM-L6-v2") {
		t.Errorf("unexpected request path %q", gotPath)
	}
	if gotAuth != "Bearer hf_test" {
		t.Errorf("unexpected authorization header %q", gotAuth)
	}
}

// TestEmbedNestedVector batch-of-one 嵌套响应被展开
func TestEmbedNestedVector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`[[0.5, 0.5]]`))
	}))
	defer server.Close()

	embedder := NewHFEmbedder(HFEmbedderConfig{BaseURL: server.URL})
	vec, err := embedder.Embed(context.Background(), "taxa de antecipação")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vec) != 2 || vec[0] != 0.5 {
		t.Errorf("nested vector not unwrapped: %v", vec)
	}
}

// TestEmbedTruncation 超出字符预算的文本先截断再发送
func TestEmbedTruncation(t *testing.T) {
	var gotLen int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req featureExtractionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		gotLen = len([]rune(req.Inputs))
		w.Write([]byte(`[1.0]`))
	}))
	defer server.Close()

	embedder := NewHFEmbedder(HFEmbedderConfig{BaseURL: server.URL, CharBudget: 50})
	long := strings.Repeat("maquininha ", 40)
	if _, err := embedder.Embed(context.Background(), long); err != nil {
		t.Fatalf("embed: %v", err)
	}
	if gotLen != 50 {
		t.Errorf("input truncated to %d runes, want 50", gotLen)
	}
}

// TestEmbedErrorResponses 空文本与服务端错误都向上传播
func TestEmbedErrorResponses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	embedder := NewHFEmbedder(HFEmbedderConfig{BaseURL: server.URL})
	if _, err := embedder.Embed(context.Background(), "   "); err == nil {
		t.Error("expected error for blank text")
	}
	if _, err := embedder.Embed(context.Background(), "pergunta"); err == nil {
		t.Error("expected error for non-200 response")
	}
}

// TestUnwrapVectorShapes 响应形状解析
func TestUnwrapVectorShapes(t *testing.T) {
	if _, err := unwrapVector([]byte(`{"error":"bad input"}`)); err == nil {
		t.Error("expected error for object response")
	}
	if _, err := unwrapVector([]byte(`[]`)); err == nil {
		t.Error("expected error for empty vector")
	}
}
