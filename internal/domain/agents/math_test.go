package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMathAgentSolve(t *testing.T) {
	tests := []struct {
		question string
		expected string
	}{
		{"calculate 2 + 2", "4"},
		{"Calculate 10 - 3", "7"},
		{"add 5 and 3", "8"},
		{"add 5 with 3", "8"},
		{"add 1.5 to 2.5", "4"},
		{"subtract 3 from 10", "7"},
		{"multiply 6 by 7", "42"},
		{"divide 10 by 4", "2.5"},
		{"how much is 65 x 2", "130"},
		{"(42 * 2) / 6", "14"},
		{"70 + 12", "82"},
		{"2 + 2 * 3", "8"},
		{"-5 + 3", "-2"},
		{"hello", "NaN"},
		{"calculate the meaning of life", "NaN"},
		{"10 / 0", "NaN"},
		{"", "NaN"},
	}

	agent := NewMathAgent()
	for _, tt := range tests {
		assert.Equal(t, tt.expected, agent.Solve(tt.question), "question: %q", tt.question)
	}
}

func TestMathAgentLooks(t *testing.T) {
	agent := NewMathAgent()

	assert.True(t, agent.Looks("calculate 2 + 2"))
	assert.True(t, agent.Looks("multiply 6 by 7"))
	assert.True(t, agent.Looks("(1 + 2) * 3"))
	assert.False(t, agent.Looks("como funciona o pix?"))
	assert.False(t, agent.Looks("what is the capital of Brazil"))
}
