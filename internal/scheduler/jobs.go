// Package scheduler runs periodic bidding jobs on a cron schedule.
package scheduler

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Settler closes bids whose window has ended.
type Settler interface {
	SettleExpiredBids(ctx context.Context, now time.Time) (int, error)
}

// Jobs contains the logic for all scheduled tasks.
type Jobs struct {
	settler Settler
	log     logrus.FieldLogger
	timeout time.Duration
	now     func() time.Time
}

// NewJobs creates a new Jobs runner.  Each run is bounded by timeout.
func NewJobs(settler Settler, log logrus.FieldLogger, timeout time.Duration) *Jobs {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Jobs{settler: settler, log: log, timeout: timeout, now: time.Now}
}

// SettleExpiredBids runs one settlement sweep.
func (j *Jobs) SettleExpiredBids() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := j.now()
	n, err := j.settler.SettleExpiredBids(ctx, start.UTC())
	log := j.log.WithFields(logrus.Fields{"job": "settle_expired_bids", "settled": n, "elapsed": j.now().Sub(start).String()})
	if err != nil {
		log.WithError(err).Error("settlement job finished with errors")
		return
	}
	if n > 0 {
		log.Info("settlement job finished")
		return
	}
	log.Debug("settlement job found nothing to settle")
}
