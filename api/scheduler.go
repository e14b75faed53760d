/*
scheduler.go - Voucher expiry sweep

PURPOSE:
  Periodically marks active vouchers whose validUntil has passed as expired,
  so dashboards and the provider scanner show the real status. Redemption
  checks the date itself, so a missed sweep never lets an expired voucher
  through.

DESIGN:
  - robfig/cron drives the schedule (cron expressions or @every descriptors)
  - Overlapping runs are skipped; a panicking run is recovered and logged
  - One sweep runs immediately on Start

USAGE:
  sweeper, err := NewSweeper(l, logger, "@every 1h")
  sweeper.Start()
  // ... later
  sweeper.Stop()

SEE ALSO:
  - ledger/voucher.go: SweepExpiredVouchers
  - cmd/aidledger: "sweep" command for a one-off run
*/
package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/warp/aid-ledger/ledger"
)

// SweepTimeout bounds a single sweep.
const SweepTimeout = time.Minute

type Sweeper struct {
	ledger *ledger.Ledger
	logger logrus.FieldLogger
	cron   *cron.Cron

	mu      sync.Mutex
	running bool
	lastRun time.Time
	lastErr error
}

// NewSweeper validates schedule and registers the sweep job.
func NewSweeper(l *ledger.Ledger, logger logrus.FieldLogger, schedule string) (*Sweeper, error) {
	cronLogger := cron.PrintfLogger(logger)
	s := &Sweeper{
		ledger: l,
		logger: logger.WithField("component", "sweeper"),
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
	}
	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start runs one sweep, then hands over to the schedule.
func (s *Sweeper) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.sweep()
	s.cron.Start()
	s.logger.Info("sweeper started")
}

// Stop waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info("sweeper stopped")
}

// RunOnce sweeps synchronously.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	n, err := s.ledger.SweepExpiredVouchers(ctx)

	s.mu.Lock()
	s.lastRun = time.Now()
	s.lastErr = err
	s.mu.Unlock()

	return n, err
}

// LastRun reports when the last sweep finished and how it ended.
func (s *Sweeper) LastRun() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.lastErr
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), SweepTimeout)
	defer cancel()

	n, err := s.RunOnce(ctx)
	if err != nil {
		s.logger.WithError(err).Error("voucher sweep failed")
		return
	}
	s.logger.WithField("expired", n).Debug("voucher sweep finished")
}
