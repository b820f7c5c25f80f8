package knowledge

import (
	applog "sabio/internal/platform/log"
	"fmt"
	"net/url"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// linkStrategy 单个链接抽取策略：解析后的页面 -> href 列表。
// 按序尝试，第一个产出非空结果的策略生效，以容忍目标站点改版
type linkStrategy struct {
	name    string
	extract func(doc *goquery.Document) []string
}

// Extractor 从帮助中心页面抽取 collection 链接、文章链接与文章正文
type Extractor struct {
	config    *Config
	converter *md.Converter

	collectionStrategies []linkStrategy
	articleStrategies    []linkStrategy
}

// NewExtractor 创建抽取器并注册内置策略
func NewExtractor(cfg *Config) *Extractor {
	e := &Extractor{
		config:    cfg,
		converter: md.NewConverter("", true, nil),
	}

	localeCollections := cfg.LocalePrefix + "/collections/"
	e.collectionStrategies = []linkStrategy{
		{
			// 主策略：站点当前结构下的 collection 链接
			name: "locale-collections",
			extract: func(doc *goquery.Document) []string {
				var hrefs []string
				doc.Find(`a[href*="/collections/"]`).Each(func(_ int, s *goquery.Selection) {
					if href, ok := s.Attr("href"); ok && strings.HasPrefix(href, localeCollections) {
						hrefs = append(hrefs, href)
					}
				})
				return hrefs
			},
		},
		{
			// 兜底：任何指向 /collections/ 的链接
			name: "any-collections",
			extract: func(doc *goquery.Document) []string {
				var hrefs []string
				doc.Find("a").Each(func(_ int, s *goquery.Selection) {
					if href, ok := s.Attr("href"); ok && strings.Contains(href, "/collections/") {
						hrefs = append(hrefs, href)
					}
				})
				return hrefs
			},
		},
	}

	e.articleStrategies = []linkStrategy{
		{
			name: "article-list",
			extract: func(doc *goquery.Document) []string {
				var hrefs []string
				doc.Find(".article-list a").Each(func(_ int, s *goquery.Selection) {
					if href, ok := s.Attr("href"); ok {
						hrefs = append(hrefs, href)
					}
				})
				return hrefs
			},
		},
		{
			name: "any-articles",
			extract: func(doc *goquery.Document) []string {
				var hrefs []string
				doc.Find(`a[href*="/articles/"]`).Each(func(_ int, s *goquery.Selection) {
					if href, ok := s.Attr("href"); ok {
						hrefs = append(hrefs, href)
					}
				})
				return hrefs
			},
		},
	}

	return e
}

// CollectionLinks 从帮助中心首页抽取 collection URL 列表
func (e *Extractor) CollectionLinks(html string) []string {
	return e.runStrategies(html, e.collectionStrategies)
}

// ArticleLinks 从 collection 页抽取文章 URL 列表
func (e *Extractor) ArticleLinks(html string) []string {
	return e.runStrategies(html, e.articleStrategies)
}

func (e *Extractor) runStrategies(html string, strategies []linkStrategy) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		applog.Warn("[Knowledge/Extractor] Failed to parse HTML", "error", err)
		return nil
	}

	for _, st := range strategies {
		hrefs := st.extract(doc)
		if len(hrefs) == 0 {
			continue
		}
		urls := e.absolutize(hrefs)
		if len(urls) > 0 {
			applog.Debug("[Knowledge/Extractor] Strategy matched", "strategy", st.name, "links", len(urls))
			return urls
		}
	}
	return nil
}

// Article 从文章页抽取正文，两段选择器策略后退化到 readability
func (e *Extractor) Article(html, pageURL string) (Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Document{}, fmt.Errorf("parse article page: %w", err)
	}

	title := strings.TrimSpace(doc.Find("h1").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	for _, selector := range []string{".article-body", "article"} {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		text := strings.TrimSpace(e.converter.Convert(sel))
		if text != "" {
			return Document{Title: title, URL: pageURL, Text: text}, nil
		}
	}

	// 选择器全部落空时用 readability 做结构化兜底
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return Document{}, fmt.Errorf("parse article url %q: %w", pageURL, err)
	}
	article, err := readability.FromReader(strings.NewReader(html), parsed)
	if err != nil {
		return Document{}, fmt.Errorf("readability fallback for %s: %w", pageURL, err)
	}
	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return Document{}, fmt.Errorf("no extractable content in %s", pageURL)
	}
	if title == "" {
		title = article.Title
	}
	return Document{Title: title, URL: pageURL, Text: text}, nil
}

// absolutize 相对链接转绝对 URL，去重并保持出现顺序
func (e *Extractor) absolutize(hrefs []string) []string {
	base, err := url.Parse(e.config.BaseURL)
	if err != nil {
		return nil
	}

	seen := make(map[string]bool, len(hrefs))
	var urls []string
	for _, href := range hrefs {
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			continue
		}
		abs := base.ResolveReference(ref)
		// 只保留帮助中心站内链接
		if abs.Host != base.Host {
			continue
		}
		abs.Fragment = ""
		u := abs.String()
		if !seen[u] {
			seen[u] = true
			urls = append(urls, u)
		}
	}
	return urls
}
