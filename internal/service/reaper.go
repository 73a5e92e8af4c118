package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/sessionauth/internal/observability/metrics"
	"github.com/target/sessionauth/internal/session"
)

// ReaperServiceOptions groups dependencies for ReaperService.
type ReaperServiceOptions struct {
	Store    session.Purger    // Required: store to purge
	Lifetime time.Duration     // Required: session lifetime, must be positive
	Interval time.Duration     // Required: time between runs
	Logger   *slog.Logger      // Optional: structured logger
	Metrics  *metrics.Recorder // Optional: Prometheus recorder
	Now      func() time.Time  // Optional: clock override
}

// ReaperService periodically removes sessions whose lifetime has elapsed.
// Expiry is already enforced on read; the reaper only reclaims storage.
type ReaperService struct {
	store    session.Purger
	lifetime time.Duration
	interval time.Duration
	logger   *slog.Logger
	metrics  *metrics.Recorder
	now      func() time.Time
}

// NewReaperService constructs a new ReaperService.
func NewReaperService(opts ReaperServiceOptions) (*ReaperService, error) {
	if opts.Store == nil {
		return nil, errors.New("session store is required")
	}
	if opts.Lifetime <= 0 {
		return nil, errors.New("session lifetime must be positive")
	}
	if opts.Interval <= 0 {
		return nil, errors.New("reaper interval must be positive")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "session_reaper")
	logger.Debug("ReaperService initialized", "interval", opts.Interval, "lifetime", opts.Lifetime)

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &ReaperService{
		store:    opts.Store,
		lifetime: opts.Lifetime,
		interval: opts.Interval,
		logger:   logger,
		metrics:  opts.Metrics,
		now:      now,
	}, nil
}

// Run starts the reaper loop and runs until the context is cancelled.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *ReaperService) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "starting session reaper", "interval", s.interval)

	// Add jitter to prevent thundering herd if multiple instances start together
	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if _, err := s.PurgeOnce(ctx); err != nil {
		s.logPurgeError(ctx, err, "initial purge")
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "session reaper stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			if _, err := s.PurgeOnce(ctx); err != nil {
				s.logPurgeError(ctx, err, "purge")
			}
		}
	}
}

// PurgeOnce removes every session created at or before now minus the lifetime.
func (s *ReaperService) PurgeOnce(ctx context.Context) (int64, error) {
	// Valid means now < created+lifetime, so created <= now-lifetime is expired.
	cutoff := s.now().Add(-s.lifetime).Add(time.Nanosecond)

	n, err := s.store.PurgeCreatedBefore(ctx, cutoff)
	s.metrics.ReaperRun(n, suppressContextCancellation(err))
	if err != nil {
		return n, fmt.Errorf("purge expired sessions: %w", err)
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "purged expired sessions", "count", n, "lifetime", s.lifetime)
	}
	return n, nil
}

// waitWithJitter adds a random delay up to 10% of the interval.
func (s *ReaperService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		return
	}

	jitterNanos := binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)
	jitter := time.Duration(int64(jitterNanos)) // #nosec G115 - bounded by maxJitter which is int64

	t := time.NewTimer(jitter)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func (s *ReaperService) logPurgeError(ctx context.Context, err error, label string) {
	if isContextCancellation(err) {
		s.logger.DebugContext(ctx, label+" cancelled by context", "error", err)
		return
	}
	s.logger.ErrorContext(ctx, label+" failed", "error", err)
}

func isContextCancellation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func suppressContextCancellation(err error) error {
	if isContextCancellation(err) {
		return nil
	}
	return err
}
