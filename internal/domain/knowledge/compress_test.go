package knowledge

import (
	"strings"
	"testing"
)

func TestCompressWithinBudget(t *testing.T) {
	text := "Frase curta sobre pagamento."
	if got := Compress(text, 100, nil); got != text {
		t.Errorf("text within budget must pass through unchanged, got %q", got)
	}
}

// TestCompressRespectsLimit 输出不得超过预算加省略号
func TestCompressRespectsLimit(t *testing.T) {
	text := strings.Repeat("Uma frase de tamanho razoavel sobre a conta. ", 20)
	maxChars := 120

	got := Compress(text, maxChars, nil)
	if n := len([]rune(got)); n > maxChars+3 {
		t.Errorf("compressed length %d exceeds budget %d (+ellipsis)", n, maxChars)
	}
	if !strings.HasSuffix(got, "...") {
		t.Error("dropped sentences must be signalled with ellipsis")
	}
}

// TestCompressPrefersKeywords 含关键词的句子优先保留
func TestCompressPrefersKeywords(t *testing.T) {
	text := "O horario de atendimento e das oito as dezoito horas todos os dias. " +
		"A taxa do pix e zero para contas pessoais. " +
		"Nosso escritorio fica em Sao Paulo perto da avenida principal."

	got := Compress(text, 60, []string{"pix", "taxa"})
	if !strings.Contains(got, "taxa do pix") {
		t.Errorf("keyword sentence dropped: %q", got)
	}
}

// TestCompressKeepsOriginalOrder 输出保持原文句序
func TestCompressKeepsOriginalOrder(t *testing.T) {
	text := "Primeira frase sobre pix e pagamento. " +
		"Segunda frase irrelevante e comprida demais para caber. " +
		"Terceira frase sobre taxa de cartao."

	got := Compress(text, 80, []string{"pix", "taxa"})
	first := strings.Index(got, "Primeira")
	third := strings.Index(got, "Terceira")
	if first == -1 || third == -1 {
		t.Fatalf("expected both keyword sentences, got %q", got)
	}
	if first > third {
		t.Errorf("sentence order not preserved: %q", got)
	}
}

// TestCompressSingleLongSentence 单句超预算时硬截断
func TestCompressSingleLongSentence(t *testing.T) {
	text := strings.Repeat("palavra ", 100) // 无句号的超长文本
	maxChars := 50

	got := Compress(text, maxChars, nil)
	if n := len([]rune(got)); n > maxChars+3 {
		t.Errorf("hard-truncated length %d exceeds budget %d", n, maxChars)
	}
	if !strings.HasSuffix(got, "...") {
		t.Error("hard truncation must end with ellipsis")
	}
}

func TestCompressZeroBudgetPassThrough(t *testing.T) {
	text := "Qualquer texto."
	if got := Compress(text, 0, nil); got != text {
		t.Errorf("zero budget must disable compression, got %q", got)
	}
}
