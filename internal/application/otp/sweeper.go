package otp

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron"
)

// Sweeper periodically removes expired codes. It is a backstop only:
// Consume checks expiry itself.
type Sweeper struct {
	ledger  *Ledger
	cron    *cron.Cron
	timeout time.Duration
}

// NewSweeper schedules ledger sweeps on the given cron spec, e.g. "@every 1m".
func NewSweeper(ledger *Ledger, schedule string) (*Sweeper, error) {
	s := &Sweeper{
		ledger:  ledger,
		cron:    cron.New(),
		timeout: 30 * time.Second,
	}
	if err := s.cron.AddFunc(schedule, s.run); err != nil {
		return nil, fmt.Errorf("schedule otp sweep %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Sweeper) Start() { s.cron.Start() }

func (s *Sweeper) Stop() { s.cron.Stop() }

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	s.ledger.logSweep(ctx)
}
