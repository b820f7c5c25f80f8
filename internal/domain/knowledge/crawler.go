package knowledge

import (
	applog "sabio/internal/platform/log"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Crawler 带缓存的爬取层。三个粒度各自 cache-aside：
// collection 列表、每个 collection 的文章列表、单篇文章内容。
// 任一单元失败只影响自身，不中断兄弟单元
type Crawler struct {
	fetcher   Fetcher
	extractor *Extractor
	cache     CacheStore
	config    *Config
}

// NewCrawler 创建爬取层
func NewCrawler(fetcher Fetcher, extractor *Extractor, cache CacheStore, cfg *Config) *Crawler {
	return &Crawler{
		fetcher:   fetcher,
		extractor: extractor,
		cache:     cache,
		config:    cfg,
	}
}

func (c *Crawler) cacheTTL() time.Duration {
	return time.Duration(c.config.CacheTTLSeconds) * time.Second
}

// cacheLookup 读缓存并反序列化。缓存不可用视同 miss
func (c *Crawler) cacheLookup(ctx context.Context, key string, dest any) bool {
	data, err := c.cache.Get(ctx, key)
	if err != nil {
		applog.Warn("[Knowledge/Crawler] Cache read failed, treating as miss", "key", key, "error", err)
		return false
	}
	if data == nil {
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		applog.Warn("[Knowledge/Crawler] Cached value corrupted, treating as miss", "key", key, "error", err)
		return false
	}
	return true
}

func (c *Crawler) cacheWrite(ctx context.Context, key string, value any) {
	if err := c.cache.Set(ctx, key, value, c.cacheTTL()); err != nil {
		applog.Warn("[Knowledge/Crawler] Cache write failed", "key", key, "error", err)
	}
}

// ResolveCollections 解析帮助中心根页，返回 collection URL 列表
func (c *Crawler) ResolveCollections(ctx context.Context) ([]string, error) {
	var cached []string
	if c.cacheLookup(ctx, keyCollections, &cached) {
		return cached, nil
	}

	rootURL := c.config.RootURL()
	html, err := c.fetcher.Fetch(ctx, rootURL)
	if err != nil {
		return nil, fmt.Errorf("fetch root page: %w", err)
	}

	urls := c.extractor.CollectionLinks(html)
	if len(urls) == 0 {
		applog.Warn("[Knowledge/Crawler] No collections found on root page", "url", rootURL)
		return nil, nil
	}

	c.cacheWrite(ctx, keyCollections, urls)
	applog.Info("[Knowledge/Crawler] Collections resolved", "count", len(urls))
	return urls, nil
}

// ResolveArticles 返回一个 collection 下的文章 URL 列表，
// 上限 MaxArticlesPerCollection 以约束爬取成本
func (c *Crawler) ResolveArticles(ctx context.Context, collectionURL string) ([]string, error) {
	key := keyCollectionPfx + collectionURL
	var cached []string
	if c.cacheLookup(ctx, key, &cached) {
		return cached, nil
	}

	html, err := c.fetcher.Fetch(ctx, collectionURL)
	if err != nil {
		return nil, fmt.Errorf("fetch collection %s: %w", collectionURL, err)
	}

	urls := c.extractor.ArticleLinks(html)
	if max := c.config.MaxArticlesPerCollection; max > 0 && len(urls) > max {
		urls = urls[:max]
	}
	// 两段策略都落空：空 collection，不是错误
	if len(urls) == 0 {
		applog.Info("[Knowledge/Crawler] Collection has no discoverable articles", "collection", collectionURL)
		return nil, nil
	}

	c.cacheWrite(ctx, key, urls)
	return urls, nil
}

// ResolveDocument 抓取并解析单篇文章
func (c *Crawler) ResolveDocument(ctx context.Context, articleURL string) (Document, error) {
	key := keyArticlePfx + articleURL
	var cached Document
	if c.cacheLookup(ctx, key, &cached) {
		return cached, nil
	}

	html, err := c.fetcher.Fetch(ctx, articleURL)
	if err != nil {
		return Document{}, fmt.Errorf("fetch article %s: %w", articleURL, err)
	}

	doc, err := c.extractor.Article(html, articleURL)
	if err != nil {
		return Document{}, err
	}

	c.cacheWrite(ctx, key, doc)
	return doc, nil
}

// CrawlCollection 抓取一个 collection 下的全部文章。
// 固定批大小并发（每批 FetchBatchSize 个），整批全部返回后再开下一批，
// 约束峰值连接数；单篇失败记日志并跳过，不取消同批其他抓取
func (c *Crawler) CrawlCollection(ctx context.Context, collectionURL string) []Document {
	urls, err := c.ResolveArticles(ctx, collectionURL)
	if err != nil {
		applog.Warn("[Knowledge/Crawler] Skipping collection", "collection", collectionURL, "error", err)
		return nil
	}
	if len(urls) == 0 {
		return nil
	}

	batchSize := c.config.FetchBatchSize
	if batchSize <= 0 {
		batchSize = 3
	}

	results := make([]*Document, len(urls))
	var mu sync.Mutex

	for start := 0; start < len(urls); start += batchSize {
		if ctx.Err() != nil {
			break
		}
		end := start + batchSize
		if end > len(urls) {
			end = len(urls)
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			idx, articleURL := i, urls[i]
			g.Go(func() error {
				doc, err := c.ResolveDocument(gctx, articleURL)
				if err != nil {
					applog.Warn("[Knowledge/Crawler] Skipping article", "url", articleURL, "error", err)
					return nil // 单元失败不传播，兄弟单元继续
				}
				mu.Lock()
				results[idx] = &doc
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
	}

	var docs []Document
	for _, d := range results {
		if d != nil {
			docs = append(docs, *d)
		}
	}
	applog.Info("[Knowledge/Crawler] Collection crawled",
		"collection", collectionURL,
		"articles", len(urls),
		"fetched", len(docs),
	)
	return docs
}
