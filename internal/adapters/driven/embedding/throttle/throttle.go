// Package throttle wraps an EmbeddingService with a request rate limit and
// bounded retries. With both disabled it is a transparent pass-through.
package throttle

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/localrag/internal/core/ports/driven"
	"github.com/custodia-labs/localrag/internal/logger"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

const (
	baseDelay = 200 * time.Millisecond
	maxDelay  = 5 * time.Second
)

// Config controls throttling.
type Config struct {
	// RequestsPerSecond caps embed calls. Zero disables the limit.
	RequestsPerSecond float64

	// Burst is the token bucket size (default: 1).
	Burst int

	// MaxRetries is how many times a failed call is retried. Zero disables retries.
	MaxRetries int
}

// Enabled reports whether the config changes any behaviour.
func (c Config) Enabled() bool {
	return c.RequestsPerSecond > 0 || c.MaxRetries > 0
}

// EmbeddingService decorates another EmbeddingService.
type EmbeddingService struct {
	next       driven.EmbeddingService
	limiter    *rate.Limiter
	maxRetries int
	sleep      func(ctx context.Context, d time.Duration) error
}

// Wrap decorates next. It returns next unchanged when cfg is not Enabled.
func Wrap(next driven.EmbeddingService, cfg Config) driven.EmbeddingService {
	if !cfg.Enabled() {
		return next
	}
	return New(next, cfg)
}

// New decorates next with cfg.
func New(next driven.EmbeddingService, cfg Config) *EmbeddingService {
	s := &EmbeddingService{
		next:       next,
		maxRetries: max(cfg.MaxRetries, 0),
		sleep:      sleepCtx,
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return s
}

// Embed waits for the limiter then calls the wrapped service, retrying on failure.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	err := s.call(ctx, "embed", func() error {
		var err error
		vec, err = s.next.Embed(ctx, text)
		return err
	})
	return vec, err
}

// EmbedBatch embeds one text per call so the limiter governs every request.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := s.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}

func (s *EmbeddingService) call(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			delay := retryDelay(attempt - 1)
			logger.Debug("Retrying %s (attempt %d/%d) in %s: %v", op, attempt, s.maxRetries, delay, err)
			if serr := s.sleep(ctx, delay); serr != nil {
				return serr
			}
		}
		if s.limiter != nil {
			if werr := s.limiter.Wait(ctx); werr != nil {
				return werr
			}
		}
		if err = fn(); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
	}
	if s.maxRetries > 0 {
		return fmt.Errorf("after %d retries: %w", s.maxRetries, err)
	}
	return err
}

// retryDelay doubles from 200ms per attempt, capped at 5s.
func retryDelay(attempt int) time.Duration {
	d := baseDelay << attempt
	if d <= 0 || d > maxDelay {
		return maxDelay
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Dimensions returns the wrapped service's vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.next.Dimensions()
}

// ModelName returns the wrapped service's model.
func (s *EmbeddingService) ModelName() string {
	return s.next.ModelName()
}

// Ping is not throttled.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

// Close closes the wrapped service.
func (s *EmbeddingService) Close() error {
	return s.next.Close()
}
