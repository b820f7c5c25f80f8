package knowledge

import (
	applog "sabio/internal/platform/log"
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// EmbeddingStore 以 embedding:<url> 为 key 在 TTL 缓存中持久化
// {article, vector} 对，可按模式枚举全部已存向量
type EmbeddingStore struct {
	cache    CacheStore
	embedder Embedder
	config   *Config
}

// NewEmbeddingStore 创建向量存储
func NewEmbeddingStore(cache CacheStore, embedder Embedder, cfg *Config) *EmbeddingStore {
	return &EmbeddingStore{
		cache:    cache,
		embedder: embedder,
		config:   cfg,
	}
}

// StoreIfAbsent 为文档生成并存储向量。已有缓存条目时完全跳过
// 重算（幂等再摄取）；向量化失败对该文档是致命的，向上传播
func (s *EmbeddingStore) StoreIfAbsent(ctx context.Context, doc Document) error {
	key := keyEmbeddingPfx + doc.URL

	if data, err := s.cache.Get(ctx, key); err == nil && data != nil {
		applog.Debug("[Knowledge/Store] Embedding exists, skipping", "url", doc.URL)
		return nil
	}

	// 标题 + 正文一并向量化，截断在 Embedder 内完成
	vector, err := s.embedder.Embed(ctx, doc.Title+" "+doc.Text)
	if err != nil {
		return fmt.Errorf("embed %s: %w", doc.URL, err)
	}
	if len(vector) == 0 {
		return fmt.Errorf("embed %s: empty vector", doc.URL)
	}

	embedded := EmbeddedDocument{Document: doc, Embedding: vector}
	ttl := time.Duration(s.config.CacheTTLSeconds) * time.Second
	if err := s.cache.Set(ctx, key, embedded, ttl); err != nil {
		return fmt.Errorf("store embedding %s: %w", doc.URL, err)
	}

	applog.Info("[Knowledge/Store] Embedding stored", "title", doc.Title, "url", doc.URL)
	return nil
}

// All 枚举全部已存向量。损坏或向量为空的条目跳过
func (s *EmbeddingStore) All(ctx context.Context) ([]EmbeddedDocument, error) {
	keys, err := s.cache.Keys(ctx, keyEmbeddingPfx+"*")
	if err != nil {
		return nil, fmt.Errorf("enumerate embeddings: %w", err)
	}

	docs := make([]EmbeddedDocument, 0, len(keys))
	for _, key := range keys {
		data, err := s.cache.Get(ctx, key)
		if err != nil || data == nil {
			continue
		}
		var doc EmbeddedDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			applog.Warn("[Knowledge/Store] Corrupted embedding entry", "key", key, "error", err)
			continue
		}
		if len(doc.Embedding) == 0 {
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
