// Package fetch wraps unreliable remote calls with retries and turns
// page-based listing endpoints into flat sequences.
//
// Remote catalogs rate-limit aggressively, so every mutating or listing call
// goes through [Retry], which sleeps through a fixed backoff schedule before
// giving up. [Pages] builds on it to drain an offset/limit listing endpoint
// into an [iter.Seq], stopping at the first short page.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

var (
	// ErrTransient marks an error as retriable. Service clients wrap rate
	// limits and network failures with it; anything else propagates
	// immediately without retry.
	ErrTransient = errors.New("transient remote error")

	// ErrRetriesExhausted wraps the final error once the backoff schedule
	// has been consumed.
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// Backoff is the fixed schedule of sleeps between retries. No jitter.
var Backoff = []time.Duration{
	1 * time.Second,
	2 * time.Second,
	5 * time.Second,
	10 * time.Second,
	30 * time.Second,
	60 * time.Second,
}

// Retrier carries the retry configuration shared by [Retry] and [Pages].
// The zero value is not usable; construct with [NewRetrier].
type Retrier struct {
	backoff []time.Duration
	sleep   func(time.Duration)
	logger  *log.Logger
}

// RetrierOpts overrides parts of the default retry behavior, mainly for
// tests that must not sleep for real.
type RetrierOpts struct {
	Backoff []time.Duration
	Sleep   func(time.Duration)
	Logger  *log.Logger
}

// NewRetrier creates a Retrier with the standard [Backoff] schedule.
func NewRetrier(opts RetrierOpts) *Retrier {
	if opts.Backoff == nil {
		opts.Backoff = Backoff
	}
	if opts.Sleep == nil {
		opts.Sleep = time.Sleep
	}
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stderr)
	}

	return &Retrier{
		backoff: opts.Backoff,
		sleep:   opts.Sleep,
		logger:  opts.Logger,
	}
}

// Retry invokes fn, retrying transient failures with the retrier's backoff
// schedule between attempts. A non-transient error returns immediately.
// Once the schedule is exhausted the final error is returned wrapped in
// [ErrRetriesExhausted]; the caller decides whether that is fatal.
func Retry[T any](ctx context.Context, r *Retrier, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	for attempt := 0; ; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}

		if !errors.Is(err, ErrTransient) {
			return zero, err
		}

		r.logger.Warn("transient error during remote call", "op", op, "attempt", attempt+1, "err", err)

		if attempt >= len(r.backoff)-1 {
			r.logger.Error("max retries reached, giving up", "op", op)
			return zero, fmt.Errorf("%s: %w: %w", op, ErrRetriesExhausted, err)
		}

		backoff := r.backoff[attempt]
		r.logger.Info("retrying remote call", "op", op, "backoff", backoff)
		r.sleep(backoff)
	}
}

// PageFunc fetches one page of a remote listing at the given offset.
type PageFunc[T any] func(ctx context.Context, offset, limit int) ([]T, error)

// Pages drains a paginated listing endpoint into a flat lazy sequence.
//
// Each page fetch goes through [Retry]; increasing offsets are requested
// until a page comes back shorter than pageSize. If a retried page fetch
// ultimately fails the sequence stops silently with whatever was already
// yielded, since listing callers cross-check counts themselves. The sequence
// restarts from offset zero on every range.
func Pages[T any](ctx context.Context, r *Retrier, op string, pageSize int, fn PageFunc[T]) iter.Seq[T] {
	return func(yield func(T) bool) {
		offset := 0

		for {
			r.logger.Debug("fetching page", "op", op, "offset", offset, "limit", pageSize)

			items, err := Retry(ctx, r, op, func(ctx context.Context) ([]T, error) {
				return fn(ctx, offset, pageSize)
			})
			if err != nil {
				r.logger.Warn("page fetch failed, stopping with partial results", "op", op, "offset", offset, "err", err)
				return
			}

			for _, item := range items {
				if !yield(item) {
					return
				}
			}

			if len(items) < pageSize {
				return
			}

			offset += pageSize
		}
	}
}

// Collect drains a paginated listing into a slice.
func Collect[T any](ctx context.Context, r *Retrier, op string, pageSize int, fn PageFunc[T]) []T {
	var items []T
	for item := range Pages(ctx, r, op, pageSize, fn) {
		items = append(items, item)
	}
	return items
}
