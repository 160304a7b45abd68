// services/scheduler.go
package services

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartReconcileScheduler runs Run every interval until the returned
// scheduler is shut down. Overlapping runs are skipped.
func (s *ReconcileService) StartReconcileScheduler(ctx context.Context, interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if _, err := s.Run(ctx); err != nil {
				s.Log.Error("[RECONCILE] scheduled pass failed", "error", err)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, err
	}

	sched.Start()
	s.Log.Info("[RECONCILE] scheduler started", "interval", interval.String())
	return sched, nil
}
