// Package chat 承载对话入口的防护与会话簿记。
package chat

import (
	"regexp"
)

// suspiciousPatterns 提示注入与危险指令的特征
var suspiciousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+previous\s+instructions`),
	regexp.MustCompile(`(?i)disregard\s+previous\s+instructions`),
	regexp.MustCompile(`(?i)act\s+as\s+(?:a\s+)?(?:admin|administrator|root|system)`),
	regexp.MustCompile(`(?i)pretend\s+to\s+be`),
	regexp.MustCompile(`(?i)you\s+are\s+now\s+(?:a\s+)?(?:admin|hacker|system)`),
	regexp.MustCompile(`(?i)execute\s+(?:code|command|script)`),
	regexp.MustCompile(`(?i)(?:delete|remove|drop)\s+(?:all|everything|database|table)`),
	regexp.MustCompile(`(?i)(?:shutdown|restart|reboot)\s+(?:system|server)`),
	regexp.MustCompile(`(?i)reset\s+(?:system|memory|instructions)`),
}

// allowedLang 消息必须至少包含一个拉丁字母（含葡语重音字符）
var allowedLang = regexp.MustCompile(`[a-zA-ZáéíóúãõâêôçÁÉÍÓÚÃÕÂÊÔÇ]`)

// PromptGuard 拦截提示注入和非法语言的消息
type PromptGuard struct{}

// NewPromptGuard 创建消息防护
func NewPromptGuard() *PromptGuard {
	return &PromptGuard{}
}

// IsBlocked 判断消息是否应被拦截
func (g *PromptGuard) IsBlocked(message string) bool {
	if !allowedLang.MatchString(message) {
		return true
	}
	for _, p := range suspiciousPatterns {
		if p.MatchString(message) {
			return true
		}
	}
	return false
}

// BlockReason 返回拦截原因，未拦截时返回空串
func (g *PromptGuard) BlockReason(message string) string {
	if !allowedLang.MatchString(message) {
		return "Blocked message: language not allowed."
	}
	for _, p := range suspiciousPatterns {
		if p.MatchString(message) {
			return "Blocked message: suspicious instruction detected."
		}
	}
	return ""
}

// ── 输入清洗 ─────────────────────────────────────────────────

var (
	reScriptTag  = regexp.MustCompile(`(?is)<script[\s\S]*?>[\s\S]*?</script>`)
	reStyleTag   = regexp.MustCompile(`(?is)<style[\s\S]*?>[\s\S]*?</style>`)
	reAnyTag     = regexp.MustCompile(`<[^>]+>`)
	reJSProtocol = regexp.MustCompile(`(?i)javascript:`)
	reEventAttr  = regexp.MustCompile(`(?i)on\w+=`)
)

// Sanitize 去除消息中的 HTML 标签和脚本注入片段
func Sanitize(input string) string {
	out := reScriptTag.ReplaceAllString(input, "")
	out = reStyleTag.ReplaceAllString(out, "")
	out = reAnyTag.ReplaceAllString(out, "")
	out = reJSProtocol.ReplaceAllString(out, "")
	out = reEventAttr.ReplaceAllString(out, "")
	return out
}
