package knowledge

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	cases := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0, 0}, []float32{1, 0, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"zero magnitude", []float32{0, 0}, []float32{1, 1}, 0},
		{"dims mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0},
		{"both empty", nil, nil, 0},
	}

	for _, tc := range cases {
		got := CosineSimilarity(tc.a, tc.b)
		if math.IsNaN(got) {
			t.Errorf("%s: got NaN", tc.name)
		}
		if math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

// TestQuestionKey 近似问法（重音、标点、词序差异）必须落到同一个 key
func TestQuestionKey(t *testing.T) {
	base := questionKey("Como acompanhar meu pedido?")
	variants := []string{
		"como acompanhar pedido",
		"Pedido!! Como acompanhar???",
		"acompanhar... como PEDIDO",
	}
	for _, v := range variants {
		if got := questionKey(v); got != base {
			t.Errorf("questionKey(%q) = %q, want %q", v, got, base)
		}
	}

	if got := questionKey("transferência"); got != questionKey("transferencia") {
		t.Errorf("accented variant produced different key: %q", got)
	}

	// 全是短词或空串时退化为 generic
	if got := questionKey("é o a de"); got != "generic" {
		t.Errorf("short-token question: got %q, want generic", got)
	}
	if got := questionKey(""); got != "generic" {
		t.Errorf("empty question: got %q, want generic", got)
	}

	// key 必须截断到上限以内
	long := questionKey("acompanhamento transferencia pagamento maquininha cartao credito estorno")
	if len([]rune(long)) > questionKeyMaxLen {
		t.Errorf("key exceeds max length: %d", len([]rune(long)))
	}
}

func seedEmbedding(t *testing.T, cache *memCache, url, title string, vec []float32) {
	t.Helper()
	doc := EmbeddedDocument{
		Document:  Document{Title: title, URL: url, Text: title + " body text"},
		Embedding: vec,
	}
	if err := cache.Set(context.Background(), keyEmbeddingPfx+url, doc, 0); err != nil {
		t.Fatalf("seed embedding: %v", err)
	}
}

// TestRankOrdering 结果按相似度降序，低于阈值的文档被过滤
func TestRankOrdering(t *testing.T) {
	cache := newMemCache()
	cfg := testConfig()

	seedEmbedding(t, cache, "https://h/a", "Exact match", []float32{1, 0})
	seedEmbedding(t, cache, "https://h/b", "Close match", []float32{0.8, 0.6})
	seedEmbedding(t, cache, "https://h/c", "Unrelated", []float32{0, 1})

	embedder := &stubEmbedder{defaultVec: []float32{1, 0}}
	store := NewEmbeddingStore(cache, embedder, cfg)
	ranker := NewRanker(cache, store, embedder, cfg)

	results, err := ranker.Rank(context.Background(), "como funciona o pagamento", 0)
	if err != nil {
		t.Fatalf("rank failed: %v", err)
	}

	// Unrelated 的相似度为 0，低于 MinSimilarity 0.3，应被过滤
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Document.Title != "Exact match" {
		t.Errorf("first result = %q, want Exact match", results[0].Document.Title)
	}
	if results[1].Document.Title != "Close match" {
		t.Errorf("second result = %q, want Close match", results[1].Document.Title)
	}
	if results[0].Similarity < results[1].Similarity {
		t.Error("results not in descending similarity order")
	}
}

// TestRankCacheHit 命中检索缓存时不再调用 Embedder
func TestRankCacheHit(t *testing.T) {
	cache := newMemCache()
	cfg := testConfig()

	seedEmbedding(t, cache, "https://h/a", "Pix article", []float32{1, 0})

	embedder := &stubEmbedder{defaultVec: []float32{1, 0}}
	store := NewEmbeddingStore(cache, embedder, cfg)
	ranker := NewRanker(cache, store, embedder, cfg)

	question := "como fazer um pix agora"
	first, err := ranker.Rank(context.Background(), question, 0)
	if err != nil {
		t.Fatalf("first rank failed: %v", err)
	}
	if len(first) == 0 {
		t.Fatal("expected results on first rank")
	}

	// 第二次调用改为会报错的 Embedder：仍应从缓存返回同样的结果
	embedder.err = errors.New("embedding service down")
	second, err := ranker.Rank(context.Background(), question, 0)
	if err != nil {
		t.Fatalf("cached rank failed: %v", err)
	}
	if len(second) != len(first) {
		t.Fatalf("cached results differ: got %d, want %d", len(second), len(first))
	}
	if second[0].Document.URL != first[0].Document.URL {
		t.Errorf("cached first result = %q, want %q", second[0].Document.URL, first[0].Document.URL)
	}
}

// TestRankLimit limit 截断返回条数
func TestRankLimit(t *testing.T) {
	cache := newMemCache()
	cfg := testConfig()

	for i := 0; i < 8; i++ {
		seedEmbedding(t, cache, fmt.Sprintf("https://h/doc%d", i), fmt.Sprintf("Doc %d", i), []float32{1, 0})
	}

	embedder := &stubEmbedder{defaultVec: []float32{1, 0}}
	store := NewEmbeddingStore(cache, embedder, cfg)
	ranker := NewRanker(cache, store, embedder, cfg)

	results, err := ranker.Rank(context.Background(), "pergunta qualquer sobre taxas", 3)
	if err != nil {
		t.Fatalf("rank failed: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("expected 3 results, got %d", len(results))
	}
}
