package puzzle

import (
	"runtime"
	"strings"
	"sync"
)

var operators = []byte{'+', '-', '*', '/', '^'}

const (
	operatorSlots    = SequenceLen - 1
	totalAssignments = 5 * 5 * 5 * 5 * 5
)

// Solve returns every witness expression that combines the sequence's digits,
// in order, into exactly 100. The search enumerates all operator assignments
// for the five slots plus, per assignment, every single contiguous
// parenthesis span. Nested or multiple independent parenthesis pairs are
// deliberately not tried; puzzle difficulty depends on this exact search.
func Solve(digits Sequence) []string {
	workers := runtime.NumCPU()
	if workers > 8 {
		workers = 8
	}
	chunk := (totalAssignments + workers - 1) / workers

	results := make([][]string, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if end > totalAssignments {
			end = totalAssignments
		}
		if start >= end {
			continue
		}
		wg.Add(1)
		go func(w, start, end int) {
			defer wg.Done()
			var found []string
			for idx := start; idx < end; idx++ {
				found = append(found, solveAssignment(digits, assignment(idx))...)
			}
			results[w] = found
		}(w, start, end)
	}
	wg.Wait()

	var witnesses []string
	for _, part := range results {
		witnesses = append(witnesses, part...)
	}
	return witnesses
}

// Solvable reports whether the sequence has at least one witness. It walks
// the same search space sequentially and stops at the first hit.
func Solvable(digits Sequence) bool {
	for idx := 0; idx < totalAssignments; idx++ {
		if len(solveAssignment(digits, assignment(idx))) > 0 {
			return true
		}
	}
	return false
}

// assignment decodes an enumeration index into five operators (base-5 digits).
func assignment(idx int) [operatorSlots]byte {
	var ops [operatorSlots]byte
	for i := 0; i < operatorSlots; i++ {
		ops[i] = operators[idx%5]
		idx /= 5
	}
	return ops
}

func solveAssignment(digits Sequence, ops [operatorSlots]byte) []string {
	var witnesses []string

	base := buildExpression(digits, ops, -1, -1)
	if v, err := Evaluate(base, digits); err == nil && v == Target {
		witnesses = append(witnesses, base)
	}

	for i := 0; i < SequenceLen-1; i++ {
		for j := i + 1; j < SequenceLen; j++ {
			expr := buildExpression(digits, ops, i, j)
			if v, err := Evaluate(expr, digits); err == nil && v == Target {
				witnesses = append(witnesses, expr)
			}
		}
	}
	return witnesses
}

// buildExpression renders the digits joined by ops, wrapping digits open..close
// in one parenthesis pair. Pass open = -1 for the unparenthesized form.
func buildExpression(digits Sequence, ops [operatorSlots]byte, open, close int) string {
	var b strings.Builder
	for i, d := range digits {
		if i == open {
			b.WriteByte('(')
		}
		b.WriteByte(byte('0' + d))
		if i == close {
			b.WriteByte(')')
		}
		if i < operatorSlots {
			b.WriteByte(ops[i])
		}
	}
	return b.String()
}
