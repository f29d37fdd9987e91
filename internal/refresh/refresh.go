// Package refresh re-fetches the visible month and the todo list on a cron
// schedule so local state picks up changes made by other clients of the
// remote store.
package refresh

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	apperrors "plancal/internal/errors"
	appLog "plancal/internal/log"
)

// Off disables the schedule.
const Off = "off"

// Target is refreshed on every tick.
type Target interface {
	Refresh(ctx context.Context) error
}

// All refreshes every target in order on each tick. One failing target does
// not stop the others; the failures are joined.
type All []Target

func (a All) Refresh(ctx context.Context) error {
	var errs []error
	for _, t := range a {
		if err := t.Refresh(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Enabled reports whether spec asks for a schedule.
func Enabled(spec string) bool {
	s := strings.TrimSpace(spec)
	return s != "" && !strings.EqualFold(s, Off)
}

// Scheduler drives Target from a standard 5-field cron spec (descriptors
// such as "@every 10m" also work). Overlapping ticks are skipped.
type Scheduler struct {
	cron     *cron.Cron
	schedule cron.Schedule
	target   Target
	timeout  time.Duration
	runs     atomic.Int64
}

// New parses spec. timeout bounds each refresh; zero means no bound beyond
// the context passed to Start.
func New(spec string, target Target, timeout time.Duration) (*Scheduler, error) {
	sched, err := cron.ParseStandard(strings.TrimSpace(spec))
	if err != nil {
		return nil, apperrors.ConfigInvalid("refresh schedule " + spec + ": " + err.Error())
	}
	logger := cronLogger{}
	s := &Scheduler{
		cron:     cron.New(cron.WithLogger(logger), cron.WithChain(cron.SkipIfStillRunning(logger))),
		schedule: sched,
		target:   target,
		timeout:  timeout,
	}
	return s, nil
}

// Start runs the schedule until ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.Schedule(s.schedule, cron.FuncJob(func() {
		_ = s.RunOnce(ctx)
	}))
	s.cron.Start()
	appLog.Info("refresh scheduler started", "next", s.Next(time.Now()).Format(time.RFC3339))

	go func() {
		<-ctx.Done()
		<-s.cron.Stop().Done()
		appLog.Info("refresh scheduler stopped", "runs", s.Runs())
	}()
}

// RunOnce refreshes immediately.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	s.runs.Add(1)
	start := time.Now()
	if err := s.target.Refresh(ctx); err != nil {
		appLog.Error("scheduled refresh failed", err, "elapsed", time.Since(start))
		return err
	}
	appLog.Debug("scheduled refresh done", "elapsed", time.Since(start))
	return nil
}

// Next is the first tick after t.
func (s *Scheduler) Next(t time.Time) time.Time { return s.schedule.Next(t) }

// Runs counts refreshes started so far.
func (s *Scheduler) Runs() int64 { return s.runs.Load() }

// cronLogger routes cron's own messages into the app log.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
