package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultPollInterval is the chat refresh cadence when none is configured.
const DefaultPollInterval = 5 * time.Second

// Poller runs one job on a fixed interval. A tick is skipped while the
// previous run is still in flight.
type Poller struct {
	cron     *cron.Cron
	interval time.Duration
	logger   *zap.Logger
}

// NewPoller builds a stopped poller. Intervals under a second are raised to
// one second.
func NewPoller(interval time.Duration, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	cl := cronLogger{s: logger.Sugar()}
	return &Poller{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		interval: interval,
		logger:   logger,
	}
}

// Start schedules job and starts ticking. The first run happens one
// interval after Start.
func (p *Poller) Start(job func()) {
	p.cron.Schedule(cron.Every(p.interval), cron.FuncJob(job))
	p.cron.Start()
	p.logger.Debug("poller started", zap.Duration("interval", p.interval))
}

// Stop halts scheduling. The returned context is done once a run already in
// progress has returned.
func (p *Poller) Stop() context.Context {
	return p.cron.Stop()
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
