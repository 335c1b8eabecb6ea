package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ouvidoriag/ogdash2/internal/platform/logger"
)

const DefaultSchedule = "0 8 * * *"

// Scheduler fires the sweep once a day at a fixed wall-clock time in a fixed
// zone. Overlapping runs are skipped.
type Scheduler struct {
	cron    *cron.Cron
	sweeper *Sweeper
	log     *logger.Logger
	loc     *time.Location
	spec    string
}

func NewScheduler(sweeper *Sweeper, baseLog *logger.Logger, spec string, loc *time.Location) (*Scheduler, error) {
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	if loc == nil {
		loc = time.UTC
	}
	if spec == "" {
		spec = DefaultSchedule
	}
	log := baseLog.With("component", "NotificationScheduler")
	cl := cronLogger{log: log}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.SkipIfStillRunning(cl)),
		),
		sweeper: sweeper,
		log:     log,
		loc:     loc,
		spec:    spec,
	}
	return s, nil
}

// Start registers the job and runs the scheduler until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() { s.runOnce(ctx) })
	if err != nil {
		return fmt.Errorf("invalid notification schedule %q: %w", s.spec, err)
	}
	s.cron.Start()
	s.log.Info("notification scheduler started", "schedule", s.spec, "timezone", s.loc.String())
	go func() {
		<-ctx.Done()
		stopped := s.cron.Stop()
		<-stopped.Done()
		s.log.Info("notification scheduler stopped")
	}()
	return nil
}

func (s *Scheduler) runOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("notification sweep panic", "panic", r)
		}
	}()
	today := time.Now().In(s.loc)
	if _, err := s.sweeper.Run(ctx, today); err != nil {
		s.log.Warn("notification sweep failed", "error", err)
	}
}

type cronLogger struct {
	log *logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
