package puzzle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seq(t *testing.T, raw string) Sequence {
	t.Helper()
	s, err := ParseSequence(raw)
	require.NoError(t, err)
	return s
}

func TestEvaluateLeftToRight(t *testing.T) {
	v, err := Evaluate("1+2+3-4+5+6", seq(t, "123456"))
	require.NoError(t, err)
	assert.Equal(t, 13.0, v)
}

func TestEvaluateExactHundred(t *testing.T) {
	v, err := Evaluate("(2+3)*4*5*1^9", seq(t, "234519"))
	require.NoError(t, err)
	assert.Equal(t, 100.0, v)
}

func TestEvaluatePrecedence(t *testing.T) {
	v, err := Evaluate("1+2*3+4+5+6", seq(t, "123456"))
	require.NoError(t, err)
	assert.Equal(t, 22.0, v)

	v, err = Evaluate("1-2/4*8+7+9", seq(t, "124879"))
	require.NoError(t, err)
	assert.Equal(t, 13.0, v)
}

func TestEvaluateExponentRightAssociative(t *testing.T) {
	// 2^3^2 must parse as 2^(3^2) = 512, not (2^3)^2 = 64.
	v, err := Evaluate("2^3^2+1+4+5", seq(t, "232145"))
	require.NoError(t, err)
	assert.Equal(t, 522.0, v)
}

func TestEvaluateParentheses(t *testing.T) {
	v, err := Evaluate("(1+2)*3*4+5+6", seq(t, "123456"))
	require.NoError(t, err)
	assert.Equal(t, 47.0, v)
}

func TestEvaluateAdjacentDigits(t *testing.T) {
	_, err := Evaluate("12+3+4+5+6+7", seq(t, "123456"))
	assert.ErrorIs(t, err, ErrAdjacentDigits)

	// Whitespace between digits is still concatenation.
	_, err = Evaluate("1 2+3+4+5+6+7", seq(t, "123456"))
	assert.ErrorIs(t, err, ErrAdjacentDigits)
}

func TestEvaluateDigitOrder(t *testing.T) {
	_, err := Evaluate("2+1+3+4+5+6", seq(t, "123456"))
	assert.ErrorIs(t, err, ErrMalformed)

	// Too few digits.
	_, err = Evaluate("1+2+3+4+5", seq(t, "123456"))
	assert.ErrorIs(t, err, ErrMalformed)

	// Extra digit appended.
	_, err = Evaluate("1+2+3+4+5+6+7", seq(t, "123456"))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestEvaluateDivisionByZero(t *testing.T) {
	_, err := Evaluate("1/(2-2)+3+4+5", seq(t, "122345"))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestEvaluateUnbalancedParens(t *testing.T) {
	_, err := Evaluate("(1+2+3+4+5+6", seq(t, "123456"))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Evaluate("1+2+3+4+5+6)", seq(t, "123456"))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestEvaluateRounding(t *testing.T) {
	// Repeating decimals round to two places.
	v, err := Evaluate("1/3+2+4+5+6", seq(t, "132456"))
	require.NoError(t, err)
	assert.Equal(t, 17.33, v)
}

func TestEvaluateRejectsGarbage(t *testing.T) {
	for _, expr := range []string{"", "++", "1+2+3+4+5+", "abc", "1+2+3+4+5+x"} {
		_, err := Evaluate(expr, seq(t, "123456"))
		assert.Error(t, err, "expression %q should not evaluate", expr)
	}
}

func TestParseSequence(t *testing.T) {
	s, err := ParseSequence("987654")
	require.NoError(t, err)
	assert.Equal(t, "987654", s.String())

	for _, raw := range []string{"", "12345", "1234567", "12345a", "120456"} {
		_, err := ParseSequence(raw)
		assert.ErrorIs(t, err, ErrInvalidSequence, "raw %q", raw)
	}
}
