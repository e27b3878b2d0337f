package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/barease/backend/internal/logging"
	"github.com/barease/backend/internal/usecase"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// NightlyRunner runs the AI completion batch
type NightlyRunner interface {
	RunNightly(ctx context.Context) (*usecase.NightlyResult, error)
}

// Scheduler runs background jobs on cron schedules
type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
	ctx     context.Context
	cancel  context.CancelFunc
}

// New creates a scheduler. Each run is bounded by timeout when it is positive.
func New(timeout time.Duration) *Scheduler {
	logger := cronLogger{log: logging.Component("scheduler")}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(logger),
			cron.SkipIfStillRunning(logger),
		), cron.WithLogger(logger)),
		timeout: timeout,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// AddNightlyCompletion registers runner on spec (standard 5-field cron syntax)
func (s *Scheduler) AddNightlyCompletion(spec string, runner NightlyRunner) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.runNightly(runner)
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}

func (s *Scheduler) runNightly(runner NightlyRunner) {
	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	ctx = logging.ContextWithRequestID(ctx, logging.GenerateRequestID())

	log := logging.Ctx(ctx).With().Str("component", "nightly").Logger()
	log.Info().Msg("nightly completion started")

	result, err := runner.RunNightly(ctx)
	if err != nil {
		log.Error().Err(err).Msg("nightly completion failed")
		return
	}
	log.Info().Int("processed", result.Processed).Int("failed", result.Failed).Msg("nightly completion done")
}

// Start begins running scheduled jobs
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels running jobs and waits for them to return
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}

// Entries returns the number of registered jobs
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// cronLogger adapts zerolog to cron.Logger
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
