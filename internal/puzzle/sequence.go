package puzzle

import (
	"errors"
	"fmt"
)

// Target is the value every Hecto expression must reach.
const Target = 100.0

// SequenceLen is the number of digits in a Hecto puzzle.
const SequenceLen = 6

// Sequence is an ordered Hecto digit sequence. Immutable once produced.
type Sequence [SequenceLen]int

// ErrInvalidSequence reports a string that does not encode a digit sequence.
var ErrInvalidSequence = errors.New("invalid digit sequence")

// String renders the sequence as its wire form, e.g. "123456".
func (s Sequence) String() string {
	buf := make([]byte, SequenceLen)
	for i, d := range s {
		buf[i] = byte('0' + d)
	}
	return string(buf)
}

// ParseSequence decodes the wire form produced by String.
func ParseSequence(raw string) (Sequence, error) {
	var seq Sequence
	if len(raw) != SequenceLen {
		return seq, fmt.Errorf("%w: %q", ErrInvalidSequence, raw)
	}
	for i, c := range raw {
		if c < '1' || c > '9' {
			return seq, fmt.Errorf("%w: %q", ErrInvalidSequence, raw)
		}
		seq[i] = int(c - '0')
	}
	return seq, nil
}
