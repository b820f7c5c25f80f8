package knowledge

import (
	applog "sabio/internal/platform/log"
	"os"
	"strconv"
	"strings"
)

// Config 知识检索模块配置
type Config struct {
	// 帮助中心站点
	BaseURL      string `json:"base_url"`
	LocalePrefix string `json:"locale_prefix"` // 路径前缀，如 /pt-BR

	// 爬取配置
	MaxArticlesPerCollection int `json:"max_articles_per_collection"` // 每个 collection 最多抓取的文章数
	FetchBatchSize           int `json:"fetch_batch_size"`            // 并发抓取批大小
	FetchTimeoutSeconds      int `json:"fetch_timeout_seconds"`
	IngestTimeoutSeconds     int `json:"ingest_timeout_seconds"` // 单次 crawl+embed 总超时
	DefaultCollections       int `json:"default_collections"`    // 无关键词命中时爬取前 N 个 collection

	// 检索配置
	MaxContextDocs int     `json:"max_context_docs"` // 返回给生成器的最大文档数
	MinSimilarity  float64 `json:"min_similarity"`   // batch 模式下的相似度下限
	BatchMode      bool    `json:"batch_mode"`

	// 向量化 / 压缩
	EmbedCharBudget    int `json:"embed_char_budget"`    // 送入向量化前的截断长度
	CompressCharBudget int `json:"compress_char_budget"` // 单篇上下文压缩预算

	// 缓存 TTL（秒）。CacheTTL=0 表示文章/collection 缓存不过期
	CacheTTLSeconds int `json:"cache_ttl_seconds"`
	QuickTTLSeconds int `json:"quick_ttl_seconds"` // 检索结果缓存与 quick 标记

	// 高价值关键词：压缩时优先保留包含这些词的句子
	PriorityKeywords []string `json:"priority_keywords,omitempty"`

	// 关键词 -> collection URL 的启发式路由表。纯配置数据，
	// 跟随目标站点结构调整，不承诺稳定语义
	CollectionHints map[string][]string `json:"collection_hints,omitempty"`

	// 后台预热任务的 cron 表达式，空则禁用
	RefreshCron string `json:"refresh_cron,omitempty"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		BaseURL:                  "https://ajuda.infinitepay.io",
		LocalePrefix:             "/pt-BR",
		MaxArticlesPerCollection: 5,
		FetchBatchSize:           3,
		FetchTimeoutSeconds:      10,
		IngestTimeoutSeconds:     30,
		DefaultCollections:       3,
		MaxContextDocs:           5,
		MinSimilarity:            0.3,
		BatchMode:                true,
		EmbedCharBudget:          1000,
		CompressCharBudget:       1200,
		CacheTTLSeconds:          0,
		QuickTTLSeconds:          3600,
		PriorityKeywords: []string{
			"pedido", "pagamento", "cartao", "maquininha",
			"taxa", "conta", "pix", "transferencia", "link",
		},
	}
}

// ApplyEnv 从环境变量覆盖配置
func (c *Config) ApplyEnv() {
	if v := os.Getenv("KNOWLEDGE_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("KNOWLEDGE_LOCALE_PREFIX"); v != "" {
		c.LocalePrefix = v
	}
	applyPositiveInt("KNOWLEDGE_MAX_ARTICLES", &c.MaxArticlesPerCollection)
	applyPositiveInt("KNOWLEDGE_FETCH_BATCH_SIZE", &c.FetchBatchSize)
	applyPositiveInt("KNOWLEDGE_FETCH_TIMEOUT", &c.FetchTimeoutSeconds)
	applyPositiveInt("KNOWLEDGE_INGEST_TIMEOUT", &c.IngestTimeoutSeconds)
	applyPositiveInt("KNOWLEDGE_DEFAULT_COLLECTIONS", &c.DefaultCollections)
	applyPositiveInt("KNOWLEDGE_MAX_CONTEXT_DOCS", &c.MaxContextDocs)
	applyPositiveInt("KNOWLEDGE_EMBED_CHAR_BUDGET", &c.EmbedCharBudget)
	applyPositiveInt("KNOWLEDGE_COMPRESS_CHAR_BUDGET", &c.CompressCharBudget)

	if v := os.Getenv("KNOWLEDGE_MIN_SIMILARITY"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= -1 && f <= 1 {
			c.MinSimilarity = f
		}
	}
	if v := os.Getenv("KNOWLEDGE_BATCH_MODE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.BatchMode = b
		}
	}
	if v := os.Getenv("KNOWLEDGE_CACHE_TTL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.CacheTTLSeconds = n
		}
	}
	applyPositiveInt("KNOWLEDGE_QUICK_TTL", &c.QuickTTLSeconds)

	if v := os.Getenv("KNOWLEDGE_PRIORITY_KEYWORDS"); v != "" {
		var kws []string
		for _, kw := range strings.Split(v, ",") {
			if kw = strings.TrimSpace(kw); kw != "" {
				kws = append(kws, kw)
			}
		}
		if len(kws) > 0 {
			c.PriorityKeywords = kws
		}
	}
	if v := os.Getenv("KNOWLEDGE_REFRESH_CRON"); v != "" {
		c.RefreshCron = v
	}

	applog.Info("[Knowledge] Config loaded",
		"base_url", c.BaseURL,
		"max_articles_per_collection", c.MaxArticlesPerCollection,
		"fetch_batch_size", c.FetchBatchSize,
		"max_context_docs", c.MaxContextDocs,
		"min_similarity", c.MinSimilarity,
		"batch_mode", c.BatchMode,
		"quick_ttl", c.QuickTTLSeconds,
	)
}

// RootURL 帮助中心本地化首页
func (c *Config) RootURL() string {
	return strings.TrimRight(c.BaseURL, "/") + c.LocalePrefix + "/"
}

func applyPositiveInt(key string, target *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*target = n
		}
	}
}
