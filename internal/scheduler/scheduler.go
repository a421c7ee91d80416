package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"

	apperrors "github.com/finsecops/spendguard/internal/pkg/errors"
	"github.com/finsecops/spendguard/internal/pkg/logger"
)

// Scheduler runs the weekly pipeline on a cron schedule. All schedules are
// evaluated in UTC so the week boundary matches the cost bucketing.
type Scheduler struct {
	cron   *cron.Cron
	logger *logger.Logger
}

func New(log *logger.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		logger: log,
	}
}

// Start registers job under spec and starts the scheduler. It returns once
// the schedule is running; the job fires on the cron goroutine.
func (s *Scheduler) Start(spec string, job func()) error {
	id, err := s.cron.AddFunc(spec, job)
	if err != nil {
		return apperrors.Config("invalid cron schedule: "+spec, err)
	}
	s.cron.Start()
	s.logger.Infof("scheduler started: %s (entry %d)", spec, id)
	return nil
}

// Stop stops the scheduler and waits for any running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Scheduler stopped")
}
