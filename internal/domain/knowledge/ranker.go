package knowledge

import (
	applog "sabio/internal/platform/log"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
	"unicode"
)

// Ranker 余弦相似度排序器。结果按问题的归一化 key 缓存，
// 近似问法（措辞、重音、词序差异）命中同一条目
type Ranker struct {
	cache    CacheStore
	store    *EmbeddingStore
	embedder Embedder
	config   *Config
}

// NewRanker 创建排序器
func NewRanker(cache CacheStore, store *EmbeddingStore, embedder Embedder, cfg *Config) *Ranker {
	return &Ranker{
		cache:    cache,
		store:    store,
		embedder: embedder,
		config:   cfg,
	}
}

// Rank 返回与问题最相关的至多 limit 篇文档，按相似度降序。
// 结果文本已按预算压缩；空结果不写缓存
func (r *Ranker) Rank(ctx context.Context, question string, limit int) ([]SimilarityResult, error) {
	if limit <= 0 {
		limit = r.config.MaxContextDocs
	}

	key := keySearchCachePfx + questionKey(question)
	if data, err := r.cache.Get(ctx, key); err == nil && data != nil {
		var cached []SimilarityResult
		if json.Unmarshal(data, &cached) == nil {
			applog.Debug("[Knowledge/Ranker] Cache hit", "key", key, "results", len(cached))
			return cached, nil
		}
		applog.Warn("[Knowledge/Ranker] Cached result corrupted, recomputing", "key", key)
	}

	queryVector, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	docs, err := r.store.All(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]SimilarityResult, 0, len(docs))
	for _, doc := range docs {
		sim := CosineSimilarity(queryVector, doc.Embedding)
		if r.config.BatchMode && sim < r.config.MinSimilarity {
			continue
		}
		results = append(results, SimilarityResult{Document: doc.Document, Similarity: sim})
	}

	// 稳定排序：相同分数保持枚举顺序，保证结果可复现
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > limit {
		results = results[:limit]
	}

	for i := range results {
		results[i].Document.Text = Compress(
			results[i].Document.Text,
			r.config.CompressCharBudget,
			r.config.PriorityKeywords,
		)
	}

	if len(results) > 0 {
		ttl := time.Duration(r.config.QuickTTLSeconds) * time.Second
		if err := r.cache.Set(ctx, key, results, ttl); err != nil {
			applog.Warn("[Knowledge/Ranker] Failed to cache results", "key", key, "error", err)
		}
	}

	applog.Info("[Knowledge/Ranker] Ranked",
		"question_key", key,
		"candidates", len(docs),
		"results", len(results),
	)
	return results, nil
}

// CosineSimilarity 计算两个向量的余弦相似度 dot(a,b)/(‖a‖·‖b‖)。
// 任一向量模为零或维度不一致时返回 0 而非 NaN
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, magA, magB float64
	for i := range a {
		av, bv := float64(a[i]), float64(b[i])
		dot += av * bv
		magA += av * av
		magB += bv * bv
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

const questionKeyMaxLen = 64

// questionKey 问题的归一化缓存 key：折叠重音、转小写、按非字母数字
// 切词、仅保留长度 >3 的词、排序后拼接并截断。
// 有意让近似问法共享缓存条目
func questionKey(question string) string {
	folded := strings.ToLower(FoldAccents(question))

	tokens := strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var kept []string
	for _, tok := range tokens {
		if len([]rune(tok)) > 3 {
			kept = append(kept, tok)
		}
	}
	if len(kept) == 0 {
		return "generic"
	}
	sort.Strings(kept)

	return truncateRunes(strings.Join(kept, "_"), questionKeyMaxLen)
}
