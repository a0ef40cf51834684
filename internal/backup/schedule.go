package backup

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Schedule runs a Pipeline once per day at a fixed local hour, replacing
// the original's hand-rolled sleep-until-next-midnight loop with a cron
// scheduler.
type Schedule struct {
	Pipeline *Pipeline
	Hour     int

	sched gocron.Scheduler
}

// Start creates and starts the underlying scheduler. Call Stop to shut it
// down cleanly.
func (s *Schedule) Start(ctx context.Context) error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("backup: creating scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(uint(s.Hour), 0, 0))),
		gocron.NewTask(func() {
			fmt.Println("backup: starting daily cycle")
			s.Pipeline.RunOnce(ctx, time.Now())
			fmt.Println("backup: daily cycle complete")
		}),
	)
	if err != nil {
		return fmt.Errorf("backup: scheduling daily job: %w", err)
	}

	s.sched = sched
	s.sched.Start()
	return nil
}

// Stop shuts the scheduler down, waiting for any in-progress job.
func (s *Schedule) Stop() error {
	if s.sched == nil {
		return nil
	}
	return s.sched.Shutdown()
}
