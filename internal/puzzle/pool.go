package puzzle

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const poolKey = "puzzle:pool"

// Pool keeps a small buffer of pre-verified sequences in Redis so match
// creation does not pay solver latency. Take falls through to live
// generation when the buffer is empty.
type Pool struct {
	client *redis.Client
	gen    *Generator
	target int
	logger zerolog.Logger
}

// NewPool creates a puzzle pool with the given target buffer size.
func NewPool(client *redis.Client, gen *Generator, target int, logger zerolog.Logger) *Pool {
	if target <= 0 {
		target = 20
	}
	return &Pool{
		client: client,
		gen:    gen,
		target: target,
		logger: logger.With().Str("component", "puzzle_pool").Logger(),
	}
}

// Take pops a verified sequence from the buffer, or generates one on a miss.
func (p *Pool) Take(ctx context.Context) (Sequence, error) {
	if p.client != nil {
		raw, err := p.client.LPop(ctx, poolKey).Result()
		if err == nil {
			seq, parseErr := ParseSequence(raw)
			if parseErr == nil {
				return seq, nil
			}
			p.logger.Warn().Err(parseErr).Str("raw", raw).Msg("discarding corrupt pooled puzzle")
		} else if err != redis.Nil {
			p.logger.Warn().Err(err).Msg("puzzle pool read failed, generating inline")
		}
	}
	return p.gen.Generate(ctx)
}

// Fill tops the buffer up to the target size.
func (p *Pool) Fill(ctx context.Context) error {
	if p.client == nil {
		return nil
	}

	size, err := p.client.LLen(ctx, poolKey).Result()
	if err != nil {
		return fmt.Errorf("puzzle pool size: %w", err)
	}

	for int(size) < p.target {
		seq, err := p.gen.Generate(ctx)
		if err != nil {
			return fmt.Errorf("refill puzzle pool: %w", err)
		}
		if err := p.client.RPush(ctx, poolKey, seq.String()).Err(); err != nil {
			return fmt.Errorf("push puzzle: %w", err)
		}
		size++
	}
	return nil
}

// PrefillWorker keeps the pool topped up in the background.
type PrefillWorker struct {
	pool     *Pool
	interval time.Duration
	logger   zerolog.Logger
}

// NewPrefillWorker creates a worker refilling the pool on an interval.
func NewPrefillWorker(pool *Pool, interval time.Duration, logger zerolog.Logger) *PrefillWorker {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &PrefillWorker{
		pool:     pool,
		interval: interval,
		logger:   logger.With().Str("component", "puzzle_prefill_worker").Logger(),
	}
}

// Run blocks until context cancellation.
func (w *PrefillWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	if err := w.pool.Fill(ctx); err != nil {
		w.logger.Warn().Err(err).Msg("initial puzzle pool fill failed")
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.pool.Fill(ctx); err != nil {
				w.logger.Warn().Err(err).Msg("puzzle pool refill failed")
			}
		}
	}
}
