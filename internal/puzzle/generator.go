package puzzle

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ErrGenerationExhausted is returned when no solvable sequence is found
// within the attempt cap. Callers must retry or escalate; an unverified
// puzzle is never served.
var ErrGenerationExhausted = errors.New("could not find a solvable puzzle within the attempt cap")

var generationAttempts = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "hecto_puzzle_generation_attempts",
	Help:    "Attempts needed to draw a solvable digit sequence.",
	Buckets: []float64{1, 2, 3, 5, 10, 25, 100, 500, 1000},
})

// Generator draws random digit sequences and certifies them solvable before
// handing them out.
type Generator struct {
	maxAttempts int

	// rng is not safe for concurrent use; mu serializes draws so one
	// Generator can serve the pool refill worker and inline callers at once.
	mu  sync.Mutex
	rng *rand.Rand

	solvable func(Sequence) bool
}

// NewGenerator creates a generator with the given attempt cap (0 means 1000).
func NewGenerator(maxAttempts int) *Generator {
	if maxAttempts <= 0 {
		maxAttempts = 1000
	}
	return &Generator{
		maxAttempts: maxAttempts,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		solvable:    Solvable,
	}
}

// Generate samples random sequences of 6 distinct digits from 1-9 until the
// solver certifies one. The attempt cap turns a pathological acceptance rate
// into a reportable failure instead of a hang.
func (g *Generator) Generate(ctx context.Context) (Sequence, error) {
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return Sequence{}, ctx.Err()
		default:
		}

		seq := g.randomSequence()
		if g.solvable(seq) {
			generationAttempts.Observe(float64(attempt))
			return seq, nil
		}
	}
	return Sequence{}, ErrGenerationExhausted
}

// randomSequence picks 6 digits from 1-9 without replacement.
func (g *Generator) randomSequence() Sequence {
	g.mu.Lock()
	defer g.mu.Unlock()

	pool := []int{1, 2, 3, 4, 5, 6, 7, 8, 9}
	var seq Sequence
	for i := 0; i < SequenceLen; i++ {
		j := g.rng.Intn(len(pool))
		seq[i] = pool[j]
		pool = append(pool[:j], pool[j+1:]...)
	}
	return seq
}
