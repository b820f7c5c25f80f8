package knowledge

import (
	"strings"
	"testing"
)

// TestCollectionLinksLocaleFilter 主策略只保留本地化前缀的 collection 链接
func TestCollectionLinksLocaleFilter(t *testing.T) {
	e := NewExtractor(testConfig())
	html := `<html><body>
		<a href="/pt-BR/collections/1">PT</a>
		<a href="/en/collections/2">EN</a>
		<a href="/pt-BR/collections/1">PT duplicada</a>
		<a href="/pt-BR/articles/9">Artigo</a>
	</body></html>`

	urls := e.CollectionLinks(html)
	if len(urls) != 1 {
		t.Fatalf("expected 1 link (locale-filtered, deduped), got %v", urls)
	}
	if urls[0] != "https://ajuda.infinitepay.io/pt-BR/collections/1" {
		t.Errorf("unexpected URL %q", urls[0])
	}
}

// TestCollectionLinksFallbackStrategy 主策略落空时退化到任意 collection 链接
func TestCollectionLinksFallbackStrategy(t *testing.T) {
	e := NewExtractor(testConfig())
	html := `<html><body><a href="/help/collections/7">Outro layout</a></body></html>`

	urls := e.CollectionLinks(html)
	if len(urls) != 1 {
		t.Fatalf("fallback strategy expected 1 link, got %v", urls)
	}
	if !strings.Contains(urls[0], "/help/collections/7") {
		t.Errorf("unexpected URL %q", urls[0])
	}
}

// TestArticleLinksPreferArticleList .article-list 容器优先于全页扫描
func TestArticleLinksPreferArticleList(t *testing.T) {
	e := NewExtractor(testConfig())
	html := `<html><body>
		<a href="/pt-BR/articles/100">Fora da lista</a>
		<div class="article-list">
			<a href="/pt-BR/articles/1">Dentro 1</a>
			<a href="/pt-BR/articles/2">Dentro 2</a>
		</div>
	</body></html>`

	urls := e.ArticleLinks(html)
	if len(urls) != 2 {
		t.Fatalf("expected 2 links from article-list, got %v", urls)
	}
	for _, u := range urls {
		if strings.Contains(u, "/articles/100") {
			t.Error("link outside .article-list must be ignored when the container exists")
		}
	}
}

// TestArticleLinksExternalHostDropped 站外链接被过滤
func TestArticleLinksExternalHostDropped(t *testing.T) {
	e := NewExtractor(testConfig())
	html := `<html><body>
		<a href="https://example.com/articles/1">Externo</a>
		<a href="/pt-BR/articles/2">Interno</a>
	</body></html>`

	urls := e.ArticleLinks(html)
	if len(urls) != 1 {
		t.Fatalf("expected 1 internal link, got %v", urls)
	}
	if strings.Contains(urls[0], "example.com") {
		t.Errorf("external link kept: %q", urls[0])
	}
}

// TestArticleExtraction 标题取 h1，正文取 .article-body 转 Markdown
func TestArticleExtraction(t *testing.T) {
	e := NewExtractor(testConfig())
	html := `<html><body>
		<h1>Como usar o Pix</h1>
		<div class="article-body">
			<p>O Pix e <strong>gratuito</strong> para contas pessoais.</p>
		</div>
	</body></html>`

	doc, err := e.Article(html, "https://ajuda.infinitepay.io/pt-BR/articles/1")
	if err != nil {
		t.Fatalf("article extraction: %v", err)
	}
	if doc.Title != "Como usar o Pix" {
		t.Errorf("title = %q", doc.Title)
	}
	if !strings.Contains(doc.Text, "Pix") || !strings.Contains(doc.Text, "gratuito") {
		t.Errorf("body content missing: %q", doc.Text)
	}
}

// TestArticleSelectorFallback .article-body 缺失时退化到 article 标签
func TestArticleSelectorFallback(t *testing.T) {
	e := NewExtractor(testConfig())
	html := `<html><body>
		<h1>Taxas</h1>
		<article><p>A taxa de credito e de um por cento.</p></article>
	</body></html>`

	doc, err := e.Article(html, "https://ajuda.infinitepay.io/pt-BR/articles/2")
	if err != nil {
		t.Fatalf("article extraction: %v", err)
	}
	if !strings.Contains(doc.Text, "taxa de credito") {
		t.Errorf("fallback selector content missing: %q", doc.Text)
	}
}

// TestArticleNoContent 完全没有可抽取内容时报错
func TestArticleNoContent(t *testing.T) {
	e := NewExtractor(testConfig())
	html := `<html><body></body></html>`

	if _, err := e.Article(html, "https://ajuda.infinitepay.io/pt-BR/articles/3"); err == nil {
		t.Error("expected error for empty article page")
	}
}
