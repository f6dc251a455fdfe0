package puzzle

import (
	"context"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateReturnsSolvableSequence(t *testing.T) {
	gen := NewGenerator(1000)

	for i := 0; i < 3; i++ {
		digits, err := gen.Generate(context.Background())
		require.NoError(t, err)
		assert.True(t, Solvable(digits), "generated sequence %s must be solvable", digits)
	}
}

func TestGenerateDigitsDistinctAndInRange(t *testing.T) {
	gen := NewGenerator(1000)

	digits, err := gen.Generate(context.Background())
	require.NoError(t, err)

	used := map[int]bool{}
	for _, d := range digits {
		assert.GreaterOrEqual(t, d, 1)
		assert.LessOrEqual(t, d, 9)
		assert.False(t, used[d], "digit %d drawn twice", d)
		used[d] = true
	}
}

// One Generator serves both the refill worker and inline pool misses, so
// concurrent Generate calls must stay safe under the race detector.
func TestGenerateConcurrent(t *testing.T) {
	gen := NewGenerator(1000)

	const workers = 4
	results := make([]Sequence, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = gen.Generate(context.Background())
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.True(t, Solvable(results[i]), "sequence %s from worker %d must be solvable", results[i], i)
	}
}

func TestGenerateExhaustion(t *testing.T) {
	gen := &Generator{
		maxAttempts: 5,
		rng:         rand.New(rand.NewSource(1)),
		solvable:    func(Sequence) bool { return false },
	}

	_, err := gen.Generate(context.Background())
	assert.ErrorIs(t, err, ErrGenerationExhausted)
}

func TestGenerateHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := NewGenerator(1000)
	_, err := gen.Generate(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
