// Package jobs runs periodic background reports.
package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"storefront/backend/models"

	"github.com/robfig/cron/v3"
)

type PendingCounter interface {
	CountEnrollments(ctx context.Context, status models.PaymentStatus) (int64, error)
}

type PendingGauge interface {
	SetPending(n int64)
}

// PendingReporter publishes how many enrollments are waiting for payment,
// which tracks abandoned checkouts.
type PendingReporter struct {
	counter PendingCounter
	gauge   PendingGauge
	logger  *log.Logger
	cron    *cron.Cron
}

func NewPendingReporter(counter PendingCounter, gauge PendingGauge, logger *log.Logger) *PendingReporter {
	return &PendingReporter{
		counter: counter,
		gauge:   gauge,
		logger:  logger,
		cron:    cron.New(cron.WithLogger(cron.PrintfLogger(logger))),
	}
}

// Start schedules the report with a cron spec such as "@every 1m".
func (r *PendingReporter) Start(spec string) error {
	if _, err := r.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := r.RunOnce(ctx); err != nil {
			r.logger.Printf("pending report failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule pending report %q: %w", spec, err)
	}
	r.cron.Start()
	return nil
}

// Stop waits for a running report to finish.
func (r *PendingReporter) Stop() {
	<-r.cron.Stop().Done()
}

func (r *PendingReporter) RunOnce(ctx context.Context) error {
	n, err := r.counter.CountEnrollments(ctx, models.PaymentPending)
	if err != nil {
		return err
	}
	r.gauge.SetPending(n)
	return nil
}
