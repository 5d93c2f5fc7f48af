package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aniladanir/billing-reminder-service/internal/domain"
	clientRepo "github.com/aniladanir/billing-reminder-service/internal/repository/client"
	dispatchRepo "github.com/aniladanir/billing-reminder-service/internal/repository/dispatch"
	settingsRepo "github.com/aniladanir/billing-reminder-service/internal/repository/settings"
	"github.com/aniladanir/billing-reminder-service/internal/schedule"
	"github.com/google/uuid"
)

const minWait = 10 * time.Millisecond

type SchedulerConfig struct {
	PollInterval time.Duration
	GraceWindow  time.Duration
	// CatchUpMissed dispatches jobs found past the grace window as long as
	// they are at most CatchUpLimit late. Older jobs are recorded as missed.
	CatchUpMissed bool
	CatchUpLimit  time.Duration
	StaleAfter    time.Duration
}

func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		PollInterval: time.Minute,
		GraceWindow:  time.Minute,
		CatchUpLimit: 24 * time.Hour,
		StaleAfter:   10 * time.Minute,
	}
}

type Scheduler struct {
	clients    clientRepo.Repository
	settings   settingsRepo.Repository
	attempts   dispatchRepo.Repository
	dispatcher *Dispatcher
	logger     *slog.Logger
	cfg        SchedulerConfig
	loc        *time.Location
	now        func() time.Time

	passMtx sync.Mutex
	queue   *schedule.Queue
	wake    chan struct{}

	running atomic.Bool
	mtx     sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewScheduler(
	clients clientRepo.Repository,
	settings settingsRepo.Repository,
	attempts dispatchRepo.Repository,
	dispatcher *Dispatcher,
	logger *slog.Logger,
	cfg SchedulerConfig,
	loc *time.Location,
	now func() time.Time,
) (*Scheduler, error) {
	if cfg.PollInterval <= 0 {
		return nil, errors.New("poll interval must be > 0")
	}
	if cfg.GraceWindow <= 0 {
		return nil, errors.New("grace window must be > 0")
	}
	if dispatcher == nil {
		return nil, errors.New("dispatcher must not be nil")
	}
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}

	return &Scheduler{
		clients:    clients,
		settings:   settings,
		attempts:   attempts,
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
		loc:        loc,
		now:        now,
		queue:      schedule.NewQueue(),
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}, nil
}

// Start runs the scheduler loop. It returns false when already running.
func (s *Scheduler) Start() bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.running.Load() {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	done := make(chan struct{})
	s.done = done
	s.running.Store(true)

	go func() {
		defer close(done)

		s.logger.Info("scheduler started", "pollInterval", s.cfg.PollInterval.String())

		if s.cfg.StaleAfter > 0 {
			recovered, err := s.dispatcher.RecoverStale(ctx, s.cfg.StaleAfter)
			if err != nil {
				s.logger.Error("failed to recover stale dispatch attempts", "error", err.Error())
			} else if recovered > 0 {
				s.logger.Warn("recovered stale dispatch attempts", "count", recovered)
			}
		}

		for {
			timer := time.NewTimer(s.safeTick(ctx))
			select {
			case <-ctx.Done():
				timer.Stop()
				s.logger.Info("scheduler stopping")
				return
			case <-s.wake:
				timer.Stop()
			case <-timer.C:
			}
		}
	}()

	return true
}

// Stop cancels the running pass and waits for the loop to exit. It returns
// false when the scheduler was not running.
func (s *Scheduler) Stop() bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if !s.running.Load() {
		return false
	}

	s.cancel()
	<-s.done
	s.running.Store(false)

	s.logger.Info("scheduler stopped")
	return true
}

func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

// Notify asks the loop for an early pass. Calls never block.
func (s *Scheduler) Notify() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// NextFire returns the earliest pending fire time found by the last pass.
func (s *Scheduler) NextFire() (time.Time, bool) {
	s.passMtx.Lock()
	defer s.passMtx.Unlock()
	return s.queue.NextFire()
}

// Tick runs one scheduler pass synchronously.
func (s *Scheduler) Tick(ctx context.Context) {
	s.tick(ctx)
}

func (s *Scheduler) safeTick(ctx context.Context) (wait time.Duration) {
	wait = s.cfg.PollInterval
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduler tick panic recovered", "panic", fmt.Sprint(r))
			wait = s.cfg.PollInterval
		}
	}()

	start := time.Now()
	wait = s.tick(ctx)
	s.logger.Debug("scheduler tick completed", "durationMs", time.Since(start).Milliseconds(), "nextWake", wait.String())
	return wait
}

// tick rebuilds the due-time index and fires every job whose time has come.
// Stored statuses are left alone; derivation happens when clients are read.
// It returns how long the loop may sleep.
func (s *Scheduler) tick(ctx context.Context) time.Duration {
	s.passMtx.Lock()
	defer s.passMtx.Unlock()

	now := s.now().In(s.loc)

	clients, err := s.clients.List(ctx)
	if err != nil {
		s.logger.Error("failed to list clients", "error", err.Error())
		return s.cfg.PollInterval
	}
	cfg, err := s.settings.GetMessageConfig(ctx)
	if err != nil {
		s.logger.Error("failed to load message config", "error", err.Error())
		return s.cfg.PollInterval
	}

	s.queue.Reset()
	byID := make(map[uuid.UUID]*domain.Client, len(clients))
	for i := range clients {
		c := &clients[i]
		s.enqueue(c, &cfg)
		byID[c.ID] = c
	}

	for _, job := range s.queue.PopDue(now) {
		if ctx.Err() != nil {
			return s.cfg.PollInterval
		}
		c, ok := byID[job.ClientID]
		if !ok {
			continue
		}
		s.fire(ctx, c, job, now)
	}

	wait := s.cfg.PollInterval
	if next, ok := s.queue.NextFire(); ok {
		wait = min(wait, next.Sub(s.now()))
	}
	return max(wait, minWait)
}

func (s *Scheduler) enqueue(c *domain.Client, cfg *domain.MessageConfig) {
	if c.DueAt == nil || !c.AutomaticMessage || c.Status.Sticky() {
		return
	}

	due := *c.DueAt
	chargeAt := cfg.ChargeFireAt(due)
	s.queue.Push(schedule.Job{ClientID: c.ID, Kind: domain.KindCharge, DueAt: due, FireAt: chargeAt})

	if cfg.SendReminder {
		remindAt := cfg.ReminderFireAt(due, s.loc)
		if remindAt.Before(chargeAt) {
			s.queue.Push(schedule.Job{ClientID: c.ID, Kind: domain.KindReminder, DueAt: due, FireAt: remindAt})
		}
	}
}

func (s *Scheduler) fire(ctx context.Context, c *domain.Client, job schedule.Job, now time.Time) {
	logger := s.logger.With(
		slog.String("clientId", c.ID.String()),
		slog.String("kind", string(job.Kind)),
		slog.Time("fireAt", job.FireAt),
	)

	lag := now.Sub(job.FireAt)
	switch {
	case lag < s.cfg.GraceWindow:
	case s.cfg.CatchUpMissed && lag <= s.cfg.CatchUpLimit:
		logger.Info("catching up late dispatch", "lag", lag.String())
	default:
		s.recordMissed(ctx, logger, c, job)
		return
	}

	_, err := s.dispatcher.Dispatch(ctx, DispatchRequest{
		Client:      c,
		Kind:        job.Kind,
		DueAt:       job.DueAt,
		FireAt:      job.FireAt,
		RetryFailed: true,
	})
	switch {
	case err == nil:
	case errors.Is(err, ErrAlreadyDispatched), errors.Is(err, ErrDispatchInProgress), errors.Is(err, ErrStatusChanged):
		logger.Debug("dispatch skipped", "reason", err.Error())
	default:
		logger.Error("scheduled dispatch failed", "error", err.Error())
	}
}

func (s *Scheduler) recordMissed(ctx context.Context, logger *slog.Logger, c *domain.Client, job schedule.Job) {
	attempt := &domain.DispatchAttempt{
		ClientID:       c.ID,
		Kind:           job.Kind,
		DueAt:          job.DueAt,
		FireAt:         job.FireAt,
		PreviousStatus: c.Status,
		Status:         domain.DispatchMissed,
		Error:          "fire time passed while the scheduler was not running",
	}
	err := s.attempts.Begin(ctx, attempt, false)
	switch {
	case err == nil:
		logger.Warn("dispatch window missed", "lag", s.now().Sub(job.FireAt).String())
	case errors.Is(err, domain.ErrDuplicateDispatch):
	default:
		logger.Error("failed to record missed dispatch", "error", err.Error())
	}
}
