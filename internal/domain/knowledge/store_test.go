package knowledge

import (
	"context"
	"testing"
)

// TestStoreIfAbsentIdempotent 重复入库不重新向量化
func TestStoreIfAbsentIdempotent(t *testing.T) {
	cache := newMemCache()
	embedder := &stubEmbedder{defaultVec: []float32{0.1, 0.2, 0.3}}
	store := NewEmbeddingStore(cache, embedder, testConfig())

	doc := Document{Title: "Pix", URL: "https://h/pix", Text: "Como usar o pix."}

	if err := store.StoreIfAbsent(context.Background(), doc); err != nil {
		t.Fatalf("first store: %v", err)
	}
	if err := store.StoreIfAbsent(context.Background(), doc); err != nil {
		t.Fatalf("second store: %v", err)
	}
	if n := embedder.callCount(); n != 1 {
		t.Errorf("embedder called %d times, want 1", n)
	}
}

// TestStoreIfAbsentEmptyVector 空向量视为失败
func TestStoreIfAbsentEmptyVector(t *testing.T) {
	cache := newMemCache()
	embedder := &stubEmbedder{defaultVec: []float32{}}
	store := NewEmbeddingStore(cache, embedder, testConfig())

	doc := Document{Title: "Pix", URL: "https://h/pix", Text: "texto"}
	if err := store.StoreIfAbsent(context.Background(), doc); err == nil {
		t.Error("expected error for empty embedding vector")
	}

	// 失败的文档不应留下缓存条目
	if data, _ := cache.Get(context.Background(), keyEmbeddingPfx+doc.URL); data != nil {
		t.Error("failed embedding must not be cached")
	}
}

// TestAllSkipsCorruptedEntries 损坏和空向量条目被跳过
func TestAllSkipsCorruptedEntries(t *testing.T) {
	cache := newMemCache()
	embedder := &stubEmbedder{defaultVec: []float32{1, 0}}
	store := NewEmbeddingStore(cache, embedder, testConfig())

	seedEmbedding(t, cache, "https://h/good", "Good", []float32{1, 0})
	seedEmbedding(t, cache, "https://h/empty", "Empty", nil)
	cache.mu.Lock()
	cache.data[keyEmbeddingPfx+"https://h/corrupt"] = []byte("{not json")
	cache.mu.Unlock()

	docs, err := store.All(context.Background())
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 valid document, got %d", len(docs))
	}
	if docs[0].Title != "Good" {
		t.Errorf("unexpected document %q", docs[0].Title)
	}
}
