package knowledge

// Document 帮助中心的一篇文章，url 为稳定唯一标识
type Document struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Text  string `json:"text"`
}

// EmbeddedDocument Document + 向量。写入缓存时向量必须非空
type EmbeddedDocument struct {
	Document
	Embedding []float32 `json:"embedding"`
}

// SimilarityResult 单条检索结果，similarity ∈ [-1, 1]
type SimilarityResult struct {
	Document   Document `json:"document"`
	Similarity float64  `json:"similarity"`
}

// ── 缓存 key 约定 ─────────────────────────────────────────────
// 其他模块不得占用这些前缀，模式枚举（如 embedding:*）依赖它们。

const (
	keyCollections    = "collections:root"
	keyCollectionPfx  = "collection:"
	keyArticlePfx     = "article:"
	keyEmbeddingPfx   = "embedding:"
	keySearchCachePfx = "search_cache:"
	keyQuickProcessed = "processed_articles:quick"
)
