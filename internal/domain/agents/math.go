package agents

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// MathAgent 解析并计算简单数学问题。
// 支持自然语言句式（"calculate 2 + 2"、"multiply 6 by 7"）
// 和直接的中缀表达式（"(42 * 2) / 6"）。无法识别时返回 "NaN"
type MathAgent struct{}

// NewMathAgent 创建数学 Agent
func NewMathAgent() *MathAgent {
	return &MathAgent{}
}

const num = `(\d+(?:\.\d+)?)`

var (
	reCalculate  = regexp.MustCompile(`^calculate ` + num + `\s*([+\-*/])\s*` + num)
	reAdd        = regexp.MustCompile(`^add ` + num + ` (?:and|with|to) ` + num)
	reSubtract   = regexp.MustCompile(`^subtract ` + num + ` from ` + num)
	reMultiply   = regexp.MustCompile(`^multiply ` + num + ` by ` + num)
	reDivide     = regexp.MustCompile(`^divide ` + num + ` by ` + num)
	reHowMuch    = regexp.MustCompile(`^how much is ` + num + `\s*x\s*` + num)
	reDirectExpr = regexp.MustCompile(`^[\d\s+\-*/.()]+$`)
)

// Solve 计算数学问题，返回结果字符串；不可解析时返回 "NaN"
func (a *MathAgent) Solve(question string) string {
	lower := strings.ToLower(strings.TrimSpace(question))

	if m := reCalculate.FindStringSubmatch(lower); m != nil {
		return formatNumber(applyOp(parseNum(m[1]), m[2], parseNum(m[3])))
	}
	if m := reAdd.FindStringSubmatch(lower); m != nil {
		return formatNumber(parseNum(m[1]) + parseNum(m[2]))
	}
	if m := reSubtract.FindStringSubmatch(lower); m != nil {
		// "subtract A from B" = B - A
		return formatNumber(parseNum(m[2]) - parseNum(m[1]))
	}
	if m := reMultiply.FindStringSubmatch(lower); m != nil {
		return formatNumber(parseNum(m[1]) * parseNum(m[2]))
	}
	if m := reDivide.FindStringSubmatch(lower); m != nil {
		return formatNumber(parseNum(m[1]) / parseNum(m[2]))
	}
	if m := reHowMuch.FindStringSubmatch(lower); m != nil {
		return formatNumber(parseNum(m[1]) * parseNum(m[2]))
	}

	if reDirectExpr.MatchString(strings.TrimSpace(question)) {
		if v, err := evalExpression(question); err == nil {
			return formatNumber(v)
		}
	}

	return "NaN"
}

// Looks 判断消息是否像数学问题，供路由降级时兜底使用
func (a *MathAgent) Looks(question string) bool {
	lower := strings.ToLower(strings.TrimSpace(question))
	for _, re := range []*regexp.Regexp{reCalculate, reAdd, reSubtract, reMultiply, reDivide, reHowMuch} {
		if re.MatchString(lower) {
			return true
		}
	}
	return reDirectExpr.MatchString(strings.TrimSpace(question))
}

func parseNum(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func applyOp(a float64, op string, b float64) float64 {
	switch op {
	case "+":
		return a + b
	case "-":
		return a - b
	case "*":
		return a * b
	case "/":
		return a / b
	}
	return math.NaN()
}

func formatNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ── 中缀表达式求值 ───────────────────────────────────────────
// 递归下降：expr = term (('+'|'-') term)*, term = factor (('*'|'/') factor)*,
// factor = number | '(' expr ')' | '-' factor

type exprParser struct {
	input []rune
	pos   int
}

func evalExpression(input string) (float64, error) {
	p := &exprParser{input: []rune(input)}
	v, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if p.pos < len(p.input) {
		return 0, fmt.Errorf("unexpected character %q at %d", p.input[p.pos], p.pos)
	}
	return v, nil
}

func (p *exprParser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpaces()
		if p.pos >= len(p.input) {
			return left, nil
		}
		op := p.input[p.pos]
		if op != '+' && op != '-' {
			return left, nil
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return 0, err
		}
		if op == '+' {
			left += right
		} else {
			left -= right
		}
	}
}

func (p *exprParser) parseTerm() (float64, error) {
	left, err := p.parseFactor()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpaces()
		if p.pos >= len(p.input) {
			return left, nil
		}
		op := p.input[p.pos]
		if op != '*' && op != '/' {
			return left, nil
		}
		p.pos++
		right, err := p.parseFactor()
		if err != nil {
			return 0, err
		}
		if op == '*' {
			left *= right
		} else {
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			left /= right
		}
	}
}

func (p *exprParser) parseFactor() (float64, error) {
	p.skipSpaces()
	if p.pos >= len(p.input) {
		return 0, fmt.Errorf("unexpected end of expression")
	}

	switch c := p.input[p.pos]; {
	case c == '(':
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		p.skipSpaces()
		if p.pos >= len(p.input) || p.input[p.pos] != ')' {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return v, nil
	case c == '-':
		p.pos++
		v, err := p.parseFactor()
		return -v, err
	default:
		return p.parseNumber()
	}
}

func (p *exprParser) parseNumber() (float64, error) {
	start := p.pos
	for p.pos < len(p.input) && (p.input[p.pos] >= '0' && p.input[p.pos] <= '9' || p.input[p.pos] == '.') {
		p.pos++
	}
	if start == p.pos {
		return 0, fmt.Errorf("expected number at position %d", start)
	}
	return strconv.ParseFloat(string(p.input[start:p.pos]), 64)
}

func (p *exprParser) skipSpaces() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}
