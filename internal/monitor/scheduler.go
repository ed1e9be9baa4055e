package monitor

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job names used in logs, metrics, and schedule registration.
const (
	JobHealthChecks  = "health_checks"
	JobMetricsRollup = "metrics_rollup"
)

// Scheduler drives named jobs at independent fixed intervals. Every job
// is wrapped with panic recovery and skip-if-still-running: a sweep that
// outlives its interval delays its own next firing instead of overlapping
// it.
type Scheduler struct {
	cron   *cron.Cron
	logger zerolog.Logger
	jobs   []scheduledJob
}

type scheduledJob struct {
	name  string
	every time.Duration
	run   func(context.Context) error
}

func NewScheduler(logger zerolog.Logger) *Scheduler {
	cl := cronLogger{logger: logger}
	return &Scheduler{
		// Recover must sit inside SkipIfStillRunning: the skip wrapper
		// only hands its run token back after the job returns, so a
		// panic that unwinds past it would leave the job skipped on
		// every later firing.
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cl),
			cron.Recover(cl),
		)),
		logger: logger,
	}
}

// AddJob registers fn to run every interval once Start is called.
func (s *Scheduler) AddJob(name string, every time.Duration, fn func(context.Context) error) {
	s.jobs = append(s.jobs, scheduledJob{name: name, every: every, run: fn})
}

// Start schedules all registered jobs and launches the timer. Each job
// also fires once immediately, through the same wrapper chain, so a fresh
// deployment reports health without waiting a full interval.
func (s *Scheduler) Start(ctx context.Context) {
	for _, j := range s.jobs {
		job := j
		id := s.cron.Schedule(cron.Every(job.every), cron.FuncJob(func() {
			if err := job.run(ctx); err != nil {
				s.logger.Error().Err(err).Str("job", job.name).Msg("scheduled job failed")
			}
		}))
		s.logger.Info().Str("job", job.name).Dur("every", job.every).Msg("job scheduled")

		kick := s.cron.Entry(id).WrappedJob
		go kick.Run()
	}
	s.cron.Start()
}

// Stop prevents future firings. The returned context is done once
// in-flight runs have finished; it does not cancel them.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// cronLogger adapts zerolog to the cron.Logger interface. Skip notices
// land at debug; real failures come through Error.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
