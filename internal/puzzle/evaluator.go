package puzzle

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Evaluation error classes. AdjacentDigits is distinct from Malformed because
// the game forbids concatenating digits into multi-digit numbers and clients
// show a specific rejection reason for it.
var (
	ErrAdjacentDigits = errors.New("adjacent digits are not allowed")
	ErrMalformed      = errors.New("malformed expression")
)

// Evaluate parses and evaluates an arithmetic expression over single digits
// and + - * / ^ ( ), verifying that its digit characters reproduce the given
// sequence in order. The result is rounded to two decimal places. Pure; safe
// for concurrent use.
func Evaluate(expr string, digits Sequence) (float64, error) {
	compact := strings.ReplaceAll(expr, " ", "")
	if compact == "" {
		return 0, ErrMalformed
	}

	// Digit concatenation check runs before parsing so "12+3..." is rejected
	// as AdjacentDigits regardless of whether it would parse.
	var seen []int
	prevDigit := false
	for _, c := range compact {
		switch {
		case c >= '0' && c <= '9':
			if prevDigit {
				return 0, ErrAdjacentDigits
			}
			seen = append(seen, int(c-'0'))
			prevDigit = true
		case strings.ContainsRune("+-*/^()", c):
			prevDigit = false
		default:
			return 0, fmt.Errorf("%w: unexpected character %q", ErrMalformed, c)
		}
	}

	if len(seen) != SequenceLen {
		return 0, fmt.Errorf("%w: expected %d digits", ErrMalformed, SequenceLen)
	}
	for i, d := range seen {
		if d != digits[i] {
			return 0, fmt.Errorf("%w: digits must match the puzzle in order", ErrMalformed)
		}
	}

	p := &parser{input: []rune(compact)}
	value, err := p.parseExpression(0)
	if err != nil {
		return 0, err
	}
	if p.pos != len(p.input) {
		return 0, fmt.Errorf("%w: trailing input", ErrMalformed)
	}
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return 0, ErrMalformed
	}

	return math.Round(value*100) / 100, nil
}

// parser is a precedence-climbing evaluator: ^ binds tightest and is
// right-associative, then * /, then + -, all left-associative.
type parser struct {
	input []rune
	pos   int
}

func precedence(op rune) int {
	switch op {
	case '^':
		return 3
	case '*', '/':
		return 2
	case '+', '-':
		return 1
	}
	return 0
}

func (p *parser) peek() (rune, bool) {
	if p.pos >= len(p.input) {
		return 0, false
	}
	return p.input[p.pos], true
}

func (p *parser) parseExpression(minPrec int) (float64, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return 0, err
	}

	for {
		op, ok := p.peek()
		if !ok {
			break
		}
		prec := precedence(op)
		if prec == 0 || prec < minPrec {
			break
		}
		p.pos++

		// Right-associative exponent re-enters at the same precedence.
		nextMin := prec + 1
		if op == '^' {
			nextMin = prec
		}

		right, err := p.parseExpression(nextMin)
		if err != nil {
			return 0, err
		}

		switch op {
		case '+':
			left += right
		case '-':
			left -= right
		case '*':
			left *= right
		case '/':
			if right == 0 {
				return 0, fmt.Errorf("%w: division by zero", ErrMalformed)
			}
			left /= right
		case '^':
			left = math.Pow(left, right)
		}
	}

	return left, nil
}

func (p *parser) parsePrimary() (float64, error) {
	c, ok := p.peek()
	if !ok {
		return 0, fmt.Errorf("%w: unexpected end of expression", ErrMalformed)
	}

	if c == '(' {
		p.pos++
		value, err := p.parseExpression(0)
		if err != nil {
			return 0, err
		}
		closing, ok := p.peek()
		if !ok || closing != ')' {
			return 0, fmt.Errorf("%w: unbalanced parentheses", ErrMalformed)
		}
		p.pos++
		return value, nil
	}

	if c >= '0' && c <= '9' {
		p.pos++
		return float64(c - '0'), nil
	}

	return 0, fmt.Errorf("%w: unexpected character %q", ErrMalformed, c)
}
