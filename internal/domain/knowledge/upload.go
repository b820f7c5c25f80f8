package knowledge

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	applog "sabio/internal/platform/log"

	"github.com/google/uuid"
)

// ── 上传入库 ─────────────────────────────────────────────────

// ParserRegistry 上传文档解析器注册表，按扩展名分派
type ParserRegistry struct {
	mu      sync.RWMutex
	parsers map[string]Parser // key = ".ext"
}

// NewParserRegistry 创建注册表并注册内置解析器
func NewParserRegistry() *ParserRegistry {
	r := &ParserRegistry{parsers: make(map[string]Parser)}
	r.Register(&MarkdownParser{})
	r.Register(&PlainTextParser{})
	r.Register(&PDFParser{})
	r.Register(&DOCXParser{})
	return r
}

// Register 注册解析器
func (r *ParserRegistry) Register(p Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range p.SupportedTypes() {
		r.parsers[strings.ToLower(ext)] = p
	}
}

// Get 根据文件名获取解析器
func (r *ParserRegistry) Get(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return nil, fmt.Errorf("no file extension in filename: %s", filename)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.parsers[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported file type: %s (supported: %s)", ext, r.SupportedTypes())
	}
	return p, nil
}

// SupportedTypes 返回所有支持的扩展名（排序后的列表，便于错误信息稳定）
func (r *ParserRegistry) SupportedTypes() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.parsers))
	for ext := range r.parsers {
		types = append(types, ext)
	}
	sort.Strings(types)
	return strings.Join(types, ", ")
}

// Uploader 将上传的文档解析后送入向量库，与爬取的文章共用检索管线。
// 上传文档没有真实 URL，使用 upload:// 伪 URL 作为向量键
type Uploader struct {
	registry *ParserRegistry
	store    *EmbeddingStore
}

// NewUploader 创建上传入库器
func NewUploader(registry *ParserRegistry, store *EmbeddingStore) *Uploader {
	return &Uploader{registry: registry, store: store}
}

// Ingest 解析上传文件并写入向量库，返回入库后的文档
func (u *Uploader) Ingest(ctx context.Context, reader io.Reader, filename string) (*Document, error) {
	parser, err := u.registry.Get(filename)
	if err != nil {
		return nil, err
	}

	result, err := parser.Parse(reader, filename)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	if result.Content == "" {
		return nil, fmt.Errorf("document %s has no extractable text", filename)
	}

	title := result.Title
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}

	doc := Document{
		Title: title,
		URL:   "upload://" + uuid.NewString() + "/" + filepath.Base(filename),
		Text:  result.Content,
	}

	if err := u.store.StoreIfAbsent(ctx, doc); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	applog.Info("[Knowledge/Upload] Document ingested",
		"filename", filename,
		"title", title,
		"chars", len(result.Content))
	return &doc, nil
}
