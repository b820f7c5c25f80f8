package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func newTestRetriever(fetcher Fetcher, embedder Embedder, cache CacheStore, cfg *Config) *Retriever {
	crawler := newTestCrawler(fetcher, cache, cfg)
	store := NewEmbeddingStore(cache, embedder, cfg)
	ranker := NewRanker(cache, store, embedder, cfg)
	return NewRetriever(crawler, store, ranker, cache, cfg)
}

// TestRetrieveCrawlFallback 向量库为空时走爬取回退：
// 爬完入库、重试检索，最终返回排好序的文档
func TestRetrieveCrawlFallback(t *testing.T) {
	cfg := testConfig()
	cache := newMemCache()
	fetcher := newStubFetcher(buildHelpCenter(1, 2))
	embedder := &stubEmbedder{defaultVec: []float32{1, 0}}
	retriever := newTestRetriever(fetcher, embedder, cache, cfg)

	docs, err := retriever.Retrieve(context.Background(), "como funciona o pagamento")
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}

	// 入库后向量条目必须存在
	for n := 1; n <= 2; n++ {
		if data, _ := cache.Get(context.Background(), keyEmbeddingPfx+articleURL(n)); data == nil {
			t.Errorf("missing embedding for %s", articleURL(n))
		}
	}

	// quick 标记记录了刚处理过的 URL
	data, _ := cache.Get(context.Background(), keyQuickProcessed)
	if data == nil {
		t.Fatal("quick marker not written")
	}
	var processed []string
	if err := json.Unmarshal(data, &processed); err != nil {
		t.Fatalf("quick marker corrupted: %v", err)
	}
	if len(processed) != 2 {
		t.Errorf("quick marker has %d urls, want 2", len(processed))
	}
}

// TestRetrieveCollectionHints 关键词命中路由表时直接爬目标 collection，
// 不再抓根页
func TestRetrieveCollectionHints(t *testing.T) {
	cfg := testConfig()
	cfg.CollectionHints = map[string][]string{
		"pedido": {collectionURL(1)},
	}
	cache := newMemCache()
	fetcher := newStubFetcher(buildHelpCenter(1, 1))
	embedder := &stubEmbedder{defaultVec: []float32{1, 0}}
	retriever := newTestRetriever(fetcher, embedder, cache, cfg)

	docs, err := retriever.Retrieve(context.Background(), "Onde está meu pedido?")
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	if n := fetcher.callCount(testRoot); n != 0 {
		t.Errorf("root page fetched %d times, want 0", n)
	}
}

// TestRetrieveRawFallback 向量化全程不可用时返回原始爬取结果而非错误
func TestRetrieveRawFallback(t *testing.T) {
	cfg := testConfig()
	cache := newMemCache()
	fetcher := newStubFetcher(buildHelpCenter(1, 2))
	embedder := &stubEmbedder{err: errors.New("model unavailable")}
	retriever := newTestRetriever(fetcher, embedder, cache, cfg)

	docs, err := retriever.Retrieve(context.Background(), "taxa da maquininha")
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 raw documents, got %d", len(docs))
	}
	// 向量化失败的文档不应落库
	if data, _ := cache.Get(context.Background(), keyEmbeddingPfx+articleURL(1)); data != nil {
		t.Error("embedding must not be stored when embedder fails")
	}
}

// TestRetrieveNothingFound 站点没有任何 collection 时返回空集而非错误
func TestRetrieveNothingFound(t *testing.T) {
	cfg := testConfig()
	cache := newMemCache()
	fetcher := newStubFetcher(map[string]string{
		testRoot: "<html><body><p>em manutenção</p></body></html>",
	})
	embedder := &stubEmbedder{defaultVec: []float32{1, 0}}
	retriever := newTestRetriever(fetcher, embedder, cache, cfg)

	docs, err := retriever.Retrieve(context.Background(), "qualquer coisa")
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("expected no documents, got %d", len(docs))
	}
}

// TestRetrieveQuickMarkerSkips 最近处理过的 URL 在再摄取时被跳过
func TestRetrieveQuickMarkerSkips(t *testing.T) {
	cfg := testConfig()
	cache := newMemCache()
	fetcher := newStubFetcher(buildHelpCenter(1, 1))
	embedder := &stubEmbedder{defaultVec: []float32{1, 0}}

	if err := cache.Set(context.Background(), keyQuickProcessed, []string{articleURL(1)}, 0); err != nil {
		t.Fatalf("seed quick marker: %v", err)
	}

	retriever := newTestRetriever(fetcher, embedder, cache, cfg)
	docs, err := retriever.Retrieve(context.Background(), "como usar o cartão")
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	// 入库被跳过，检索重试无结果，最终走原始文档兜底
	if len(docs) != 1 {
		t.Fatalf("expected raw fallback document, got %d", len(docs))
	}
	if data, _ := cache.Get(context.Background(), keyEmbeddingPfx+articleURL(1)); data != nil {
		t.Error("recently processed article must not be re-embedded")
	}
}
