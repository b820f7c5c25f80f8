package knowledge

import (
	applog "sabio/internal/platform/log"
	"context"
	"encoding/json"
	"strings"
	"time"
)

// Retriever 检索调度器：向量检索 -> 爬取回退 -> 入库后重试一次 ->
// 原始文档兜底 -> 空结果。crawl→store→retry 循环每次调用至多走一轮，
// 保证延迟有界
type Retriever struct {
	crawler *Crawler
	store   *EmbeddingStore
	ranker  *Ranker
	cache   CacheStore
	config  *Config
}

// NewRetriever 创建检索调度器
func NewRetriever(crawler *Crawler, store *EmbeddingStore, ranker *Ranker, cache CacheStore, cfg *Config) *Retriever {
	return &Retriever{
		crawler: crawler,
		store:   store,
		ranker:  ranker,
		cache:   cache,
		config:  cfg,
	}
}

// Retrieve 返回与问题最相关的至多 MaxContextDocs 篇文档。
// 找不到任何内容时返回空集而非错误，由调用方给出用户话术
func (r *Retriever) Retrieve(ctx context.Context, question string) ([]Document, error) {
	limit := r.config.MaxContextDocs

	// 1. 向量检索
	results, err := r.ranker.Rank(ctx, question, limit)
	if err != nil {
		// 检索失败退化为爬取，而不是直接报错
		applog.Warn("[Knowledge/Retriever] Embedding search failed, falling back to crawl", "error", err)
	}
	if len(results) > 0 {
		return documentsOf(results), nil
	}

	// 2. 爬取回退。整个 crawl+embed 尝试受硬超时约束
	ingestCtx, cancel := context.WithTimeout(ctx, time.Duration(r.config.IngestTimeoutSeconds)*time.Second)
	defer cancel()

	targets := r.targetCollections(ingestCtx, question)
	if len(targets) == 0 {
		applog.Warn("[Knowledge/Retriever] No target collections available")
		return []Document{}, nil
	}

	var crawled []Document
	for _, collectionURL := range targets {
		if ingestCtx.Err() != nil {
			applog.Warn("[Knowledge/Retriever] Ingestion deadline reached, stopping crawl",
				"crawled", len(crawled))
			break
		}
		crawled = append(crawled, r.crawler.CrawlCollection(ingestCtx, collectionURL)...)
	}
	if len(crawled) == 0 {
		return []Document{}, nil
	}

	// 3. 入库并重试一次检索
	stored := r.ingest(ingestCtx, crawled)
	if stored > 0 {
		results, err = r.ranker.Rank(ctx, question, limit)
		if err != nil {
			applog.Warn("[Knowledge/Retriever] Post-ingestion search failed", "error", err)
		}
		if len(results) > 0 {
			return documentsOf(results), nil
		}
	}

	// 4. 原始爬取结果兜底（未排序）
	applog.Info("[Knowledge/Retriever] Returning raw crawled documents", "count", len(crawled))
	if len(crawled) > limit {
		crawled = crawled[:limit]
	}
	return crawled, nil
}

// ingest 将爬到的文档写入向量存储，返回成功条数。
// quick 标记内的 URL 是最近一小时刚处理过的，直接跳过
func (r *Retriever) ingest(ctx context.Context, docs []Document) int {
	recent := make(map[string]bool)
	if data, err := r.cache.Get(ctx, keyQuickProcessed); err == nil && data != nil {
		var urls []string
		if json.Unmarshal(data, &urls) == nil {
			for _, u := range urls {
				recent[u] = true
			}
		}
	}

	stored := 0
	var processed []string
	for _, doc := range docs {
		if ctx.Err() != nil {
			applog.Warn("[Knowledge/Retriever] Ingestion deadline reached, stopping", "stored", stored)
			break
		}
		if recent[doc.URL] {
			continue
		}
		if err := r.store.StoreIfAbsent(ctx, doc); err != nil {
			// 向量化失败对单篇是致命的，但不中断批次其余文档
			applog.Warn("[Knowledge/Retriever] Skipping document", "url", doc.URL, "error", err)
			continue
		}
		stored++
		processed = append(processed, doc.URL)
	}

	if len(processed) > 0 {
		ttl := time.Duration(r.config.QuickTTLSeconds) * time.Second
		if err := r.cache.Set(ctx, keyQuickProcessed, processed, ttl); err != nil {
			applog.Warn("[Knowledge/Retriever] Failed to write quick marker", "error", err)
		}
	}

	applog.Info("[Knowledge/Retriever] Ingestion finished", "crawled", len(docs), "stored", stored)
	return stored
}

// targetCollections 决定爬取哪些 collection：关键词路由表命中的优先，
// 问题为空或无命中时取站点前 N 个 collection
func (r *Retriever) targetCollections(ctx context.Context, question string) []string {
	folded := strings.ToLower(FoldAccents(question))

	seen := make(map[string]bool)
	var targets []string
	for keyword, urls := range r.config.CollectionHints {
		if keyword == "" || !strings.Contains(folded, strings.ToLower(FoldAccents(keyword))) {
			continue
		}
		for _, u := range urls {
			if !seen[u] {
				seen[u] = true
				targets = append(targets, u)
			}
		}
	}
	if len(targets) > 0 {
		applog.Info("[Knowledge/Retriever] Collections selected by keyword hints", "count", len(targets))
		return targets
	}

	all, err := r.crawler.ResolveCollections(ctx)
	if err != nil {
		applog.Warn("[Knowledge/Retriever] Failed to resolve collections", "error", err)
		return nil
	}
	if max := r.config.DefaultCollections; max > 0 && len(all) > max {
		all = all[:max]
	}
	return all
}

func documentsOf(results []SimilarityResult) []Document {
	docs := make([]Document, len(results))
	for i, res := range results {
		docs[i] = res.Document
	}
	return docs
}
