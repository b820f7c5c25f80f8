package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

// ── 测试替身 ─────────────────────────────────────────────────

// memCache 内存 CacheStore，忽略 TTL
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.data[key]
	if !ok {
		return nil, nil
	}
	return data, nil
}

func (c *memCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = data
	return nil
}

func (c *memCache) Keys(_ context.Context, pattern string) ([]string, error) {
	prefix := strings.TrimSuffix(pattern, "*")
	c.mu.Lock()
	defer c.mu.Unlock()
	var keys []string
	for k := range c.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// stubEmbedder 按文本精确匹配返回向量，未配置的文本返回默认向量
type stubEmbedder struct {
	mu         sync.Mutex
	vectors    map[string][]float32
	defaultVec []float32
	calls      int
	err        error
}

func (e *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	if v, ok := e.vectors[text]; ok {
		return v, nil
	}
	return e.defaultVec, nil
}

func (e *stubEmbedder) Dims() int {
	return len(e.defaultVec)
}

func (e *stubEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// stubFetcher 按 URL 返回预置 HTML，并统计每个 URL 的抓取次数
type stubFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	fail  map[string]bool
	calls map[string]int
}

func newStubFetcher(pages map[string]string) *stubFetcher {
	return &stubFetcher{
		pages: pages,
		fail:  make(map[string]bool),
		calls: make(map[string]int),
	}
}

func (f *stubFetcher) Fetch(_ context.Context, url string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[url]++
	if f.fail[url] {
		return "", fmt.Errorf("fetch %s: unexpected status 500", url)
	}
	html, ok := f.pages[url]
	if !ok {
		return "", fmt.Errorf("fetch %s: unexpected status 404", url)
	}
	return html, nil
}

func (f *stubFetcher) callCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

// testConfig 测试用默认配置
func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.FetchBatchSize = 3
	cfg.IngestTimeoutSeconds = 30
	return cfg
}
