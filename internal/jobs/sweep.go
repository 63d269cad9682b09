package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sitepulse/tracking-server-go/internal/config"
	"github.com/sitepulse/tracking-server-go/internal/metrics"
	"github.com/sitepulse/tracking-server-go/internal/repository"
)

// SweepJob ages sessions through the lifecycle: ACTIVE sessions idle past
// the session timeout become IDLE, IDLE sessions idle past the additional
// grace timeout become ENDED. Both transitions are conditional updates
// keyed on last_activity, so a session that receives a record while the
// sweep runs keeps its newer state.
type SweepJob struct {
	sessions repository.SessionRepository
	timeout  time.Duration
	grace    time.Duration
	interval time.Duration
	done     chan struct{}
}

func NewSweepJob(sessions repository.SessionRepository, timeout, grace, interval time.Duration) *SweepJob {
	return &SweepJob{
		sessions: sessions,
		timeout:  timeout,
		grace:    grace,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (j *SweepJob) Start() {
	go j.run()
	log.Info().
		Dur("interval", j.interval).
		Dur("timeout", j.timeout).
		Dur("grace", j.grace).
		Msg("lifecycle sweep started")
}

func (j *SweepJob) Stop() {
	close(j.done)
	log.Info().Msg("lifecycle sweep stopped")
}

func (j *SweepJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.Sweep()
		}
	}
}

// Sweep runs one pass. Each transition is a single atomic statement, so a
// shutdown between the two passes leaves every session in a valid state.
func (j *SweepJob) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), config.SweepRunTimeout)
	defer cancel()

	now := time.Now()

	ended, err := j.sessions.EndIdle(ctx, now.Add(-j.timeout-j.grace))
	if err != nil {
		log.Error().Err(err).Msg("failed to end idle sessions")
	} else if ended > 0 {
		metrics.SessionsSwept.WithLabelValues("ended").Add(float64(ended))
		log.Info().Int64("count", ended).Msg("ended idle sessions")
	}

	idled, err := j.sessions.MarkIdle(ctx, now.Add(-j.timeout))
	if err != nil {
		log.Error().Err(err).Msg("failed to mark idle sessions")
	} else if idled > 0 {
		metrics.SessionsSwept.WithLabelValues("idle").Add(float64(idled))
		log.Info().Int64("count", idled).Msg("marked sessions idle")
	}
}
