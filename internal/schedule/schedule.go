// Package schedule runs the daily pipeline (ideate, propose, iterate) on a
// cron expression until its context is cancelled.
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/hpungsan/ideaforge/internal/config"
	"github.com/hpungsan/ideaforge/internal/errors"
	"github.com/hpungsan/ideaforge/internal/logging"
	"github.com/hpungsan/ideaforge/internal/ops"
)

// Job is one scheduled unit of work. It receives the daemon's context.
type Job func(ctx context.Context) error

// Daemon fires a Job on a cron schedule. A firing that comes due while the
// previous one is still running is skipped.
type Daemon struct {
	cron     *cron.Cron
	schedule cron.Schedule
	job      Job
	logger   logrus.FieldLogger

	mu  sync.Mutex
	ctx context.Context
}

// New parses expr (standard five-field cron) and returns a Daemon for job.
func New(expr string, job Job, logger logrus.FieldLogger) (*Daemon, error) {
	sched, err := config.ParseSchedule(expr)
	if err != nil {
		return nil, errors.NewConfig(fmt.Sprintf("invalid schedule %q: %v", expr, err))
	}
	return NewWithSchedule(sched, job, logger), nil
}

// NewWithSchedule returns a Daemon that fires job on sched.
func NewWithSchedule(sched cron.Schedule, job Job, logger logrus.FieldLogger) *Daemon {
	if logger == nil {
		logger = logging.Discard()
	}
	d := &Daemon{
		schedule: sched,
		job:      job,
		logger:   logger,
		ctx:      context.Background(),
	}
	cl := cronLogger{logger}
	d.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	d.cron.Schedule(sched, cron.FuncJob(d.fire))
	return d
}

// Next returns the first firing time after t.
func (d *Daemon) Next(t time.Time) time.Time {
	return d.schedule.Next(t)
}

// Run starts the schedule and blocks until ctx is done, then waits for an
// in-flight job to return. Jobs see ctx, so cancellation reaches them.
func (d *Daemon) Run(ctx context.Context) error {
	d.mu.Lock()
	d.ctx = ctx
	d.mu.Unlock()

	d.logger.WithField("next", d.Next(time.Now()).Format(time.RFC3339)).Info("scheduler started")
	d.cron.Start()

	<-ctx.Done()
	d.logger.Info("scheduler stopping")
	<-d.cron.Stop().Done()
	return nil
}

func (d *Daemon) fire() {
	d.mu.Lock()
	ctx := d.ctx
	d.mu.Unlock()

	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	entry := d.logger.WithField("started", start.Format(time.RFC3339))
	if err := d.job(ctx); err != nil {
		if errors.Is(err, errors.ErrCancelled) {
			entry.Info("scheduled run cancelled")
			return
		}
		entry.WithError(err).Error("scheduled run failed")
		return
	}
	entry.WithField("elapsed", time.Since(start).Round(time.Millisecond).String()).Info("scheduled run finished")
}

// Pipeline returns the daily job: ideate, then propose, then iterate.
// A phase failure is logged and the next phase still runs, except for
// configuration and cancellation errors, which end the run.
func Pipeline(env *ops.Env) Job {
	return func(ctx context.Context) error {
		var logger logrus.FieldLogger = logging.Discard()
		if env.Logger != nil {
			logger = env.Logger
		}

		phases := []struct {
			name string
			run  func(context.Context) error
		}{
			{"ideate", func(ctx context.Context) error {
				out, err := ops.Ideate(ctx, env)
				if out != nil {
					logger.WithFields(logrus.Fields{"phase": "ideate", "accepted": len(out.Accepted), "rejected": len(out.Rejected)}).Info("phase finished")
				}
				return err
			}},
			{"propose", func(ctx context.Context) error {
				out, err := ops.Propose(ctx, env)
				if out != nil {
					logger.WithFields(logrus.Fields{"phase": "propose", "projects": len(out.Results)}).Info("phase finished")
				}
				return err
			}},
			{"iterate", func(ctx context.Context) error {
				out, err := ops.Iterate(ctx, env)
				if out != nil {
					logger.WithFields(logrus.Fields{"phase": "iterate", "projects": len(out.Results)}).Info("phase finished")
				}
				return err
			}},
		}

		for _, p := range phases {
			if ctx.Err() != nil {
				return errors.NewCancelled(p.name)
			}
			err := p.run(ctx)
			if err == nil {
				continue
			}
			if errors.Is(err, errors.ErrConfig) || errors.Is(err, errors.ErrCancelled) {
				return fmt.Errorf("%s: %w", p.name, err)
			}
			logger.WithError(err).WithField("phase", p.name).Warn("phase failed; continuing")
		}
		return nil
	}
}

// cronLogger routes cron's own messages through logrus.
type cronLogger struct {
	logger logrus.FieldLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(fields(keysAndValues)).Debug("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(fields(keysAndValues)).WithError(err).Error("cron: " + msg)
}

func fields(keysAndValues []interface{}) logrus.Fields {
	f := make(logrus.Fields, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		f[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return f
}
