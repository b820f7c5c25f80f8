package knowledge

import (
	"regexp"
	"sort"
	"strings"
)

var sentenceRe = regexp.MustCompile(`[^.!?\n]+[.!?]?`)

// Compress 将文本压缩到 maxChars 字符以内（截断时允许附加省略号）。
// 句子按两个信号打分：是否包含高价值关键词、在原文中的位置
// （靠前的句子通常承载答案），高分句优先保留，输出保持原文顺序
func Compress(text string, maxChars int, keywords []string) string {
	text = strings.TrimSpace(text)
	if maxChars <= 0 || len([]rune(text)) <= maxChars {
		return text
	}

	sentences := sentenceRe.FindAllString(text, -1)
	for i := range sentences {
		sentences[i] = strings.TrimSpace(sentences[i])
	}

	type scored struct {
		idx   int
		text  string
		score float64
	}
	items := make([]scored, 0, len(sentences))
	for i, s := range sentences {
		if s == "" {
			continue
		}
		lower := strings.ToLower(FoldAccents(s))
		score := 0.0
		for _, kw := range keywords {
			if strings.Contains(lower, strings.ToLower(FoldAccents(kw))) {
				score += 2.0
			}
		}
		// 位置加成：越靠前越可能是答案所在
		score += 1.0 - float64(i)/float64(len(sentences))
		items = append(items, scored{idx: i, text: s, score: score})
	}

	ranked := make([]scored, len(items))
	copy(ranked, items)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	// 贪心装入预算，再按原文顺序输出
	budget := maxChars
	var picked []scored
	for _, it := range ranked {
		cost := len([]rune(it.text))
		if len(picked) > 0 {
			cost++ // 连接空格
		}
		if cost > budget {
			continue
		}
		picked = append(picked, it)
		budget -= cost
	}

	if len(picked) == 0 {
		// 单句就超预算：硬截断
		return truncateRunes(text, maxChars) + "..."
	}

	sort.Slice(picked, func(i, j int) bool { return picked[i].idx < picked[j].idx })
	parts := make([]string, len(picked))
	for i, it := range picked {
		parts[i] = it.text
	}

	out := strings.Join(parts, " ")
	if len(picked) < len(items) {
		out += "..."
	}
	return out
}
