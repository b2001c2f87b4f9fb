package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

var (
	// ErrBulkheadFull is returned when every slot is taken and MaxWait is zero.
	ErrBulkheadFull = errors.New("bulkhead is full")
	// ErrBulkheadTimeout is returned when no slot frees up within MaxWait.
	ErrBulkheadTimeout = errors.New("bulkhead wait timeout")
)

// BulkheadConfig configures a Bulkhead.
type BulkheadConfig struct {
	Name          string
	MaxConcurrent int
	// MaxWait bounds the wait for a slot; zero rejects at once.
	MaxWait  time.Duration
	OnReject func(name string)
}

// DefaultBulkheadConfig allows 10 concurrent calls and never queues.
func DefaultBulkheadConfig(name string) BulkheadConfig {
	return BulkheadConfig{Name: name, MaxConcurrent: 10}
}

// Bulkhead caps the number of in-flight calls to one backend. Local
// inference servers typically serve one or two generations at a time.
type Bulkhead struct {
	cfg   BulkheadConfig
	sem   *semaphore.Weighted
	inUse atomic.Int64
}

// NewBulkhead returns a Bulkhead with all slots free.
func NewBulkhead(cfg BulkheadConfig) *Bulkhead {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultBulkheadConfig(cfg.Name).MaxConcurrent
	}
	return &Bulkhead{cfg: cfg, sem: semaphore.NewWeighted(int64(cfg.MaxConcurrent))}
}

// Execute runs fn once a slot is held.
func (b *Bulkhead) Execute(ctx context.Context, fn func() error) error {
	if err := b.acquire(ctx); err != nil {
		if b.cfg.OnReject != nil {
			b.cfg.OnReject(b.cfg.Name)
		}
		return err
	}
	b.inUse.Add(1)
	defer func() {
		b.inUse.Add(-1)
		b.sem.Release(1)
	}()
	return fn()
}

// ExecuteWithResult is Execute for functions that return a value.
func ExecuteWithResult[T any](b *Bulkhead, ctx context.Context, fn func() (T, error)) (T, error) {
	var out T
	err := b.Execute(ctx, func() (err error) {
		out, err = fn()
		return err
	})
	return out, err
}

func (b *Bulkhead) acquire(ctx context.Context) error {
	if b.sem.TryAcquire(1) {
		return nil
	}
	if b.cfg.MaxWait <= 0 {
		return ErrBulkheadFull
	}

	wctx, cancel := context.WithTimeout(ctx, b.cfg.MaxWait)
	defer cancel()
	if err := b.sem.Acquire(wctx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrBulkheadTimeout
	}
	return nil
}

// Available returns the free slots.
func (b *Bulkhead) Available() int { return b.cfg.MaxConcurrent - b.InUse() }

// InUse returns the slots held by running calls.
func (b *Bulkhead) InUse() int { return int(b.inUse.Load()) }

// MaxConcurrent returns the slot count.
func (b *Bulkhead) MaxConcurrent() int { return b.cfg.MaxConcurrent }
