package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aniladanir/billing-reminder-service/internal/cache"
	"github.com/aniladanir/billing-reminder-service/internal/domain"
	"github.com/aniladanir/billing-reminder-service/internal/message"
	clientRepo "github.com/aniladanir/billing-reminder-service/internal/repository/client"
	dispatchRepo "github.com/aniladanir/billing-reminder-service/internal/repository/dispatch"
	settingsRepo "github.com/aniladanir/billing-reminder-service/internal/repository/settings"
	"github.com/aniladanir/retry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrAlreadyDispatched  = errors.New("message already dispatched for this due date")
	ErrDispatchInProgress = errors.New("another dispatch for this client is in progress")
	ErrStatusChanged      = errors.New("client status changed before dispatch")
	ErrGatewayFailure     = errors.New("gateway request failed")
)

const maxStatusSwaps = 3

// Gateway sends payment messages to a client phone.
type Gateway interface {
	SendMessage(ctx context.Context, phone, text string) (string, error)
	GenerateAndSendPixQR(ctx context.Context, phone string, amount decimal.Decimal) (string, error)
}

type DispatchRequest struct {
	Client *domain.Client
	Kind   domain.DispatchKind
	DueAt  time.Time
	FireAt time.Time
	// ReminderTemplate renders the pre-due reminder text instead of the
	// charge text. Implied for KindReminder.
	ReminderTemplate bool
	// RetryFailed lets a failed attempt for the same due instant be tried
	// again. The scheduler sets it while the fire time is still in reach.
	RetryFailed bool
}

type Dispatcher struct {
	clients  clientRepo.Repository
	attempts dispatchRepo.Repository
	settings settingsRepo.Repository
	gateway  Gateway
	cache    cache.Cache
	retrier  *retry.Retrier
	logger   *slog.Logger
	loc      *time.Location
	now      func() time.Time
	lockTTL  time.Duration
	sentTTL  time.Duration
}

type DispatcherOption func(*Dispatcher)

func WithDispatcherClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) { d.now = now }
}

func WithDispatcherLocation(loc *time.Location) DispatcherOption {
	return func(d *Dispatcher) { d.loc = loc }
}

func NewDispatcher(
	clients clientRepo.Repository,
	attempts dispatchRepo.Repository,
	settings settingsRepo.Repository,
	gw Gateway,
	c cache.Cache,
	logger *slog.Logger,
	maxRevertAttempts *int,
	opts ...DispatcherOption,
) (*Dispatcher, error) {
	// initialize retrier
	retrierOpts := make([]retry.Option, 0)
	if maxRevertAttempts != nil {
		retrierOpts = append(retrierOpts, retry.WithMaxAttemps(*maxRevertAttempts))
	}
	retrier, err := retry.New(retrierOpts...)
	if err != nil {
		return nil, fmt.Errorf("encountered error when initializing retrier: %w", err)
	}

	d := &Dispatcher{
		clients:  clients,
		attempts: attempts,
		settings: settings,
		gateway:  gw,
		cache:    c,
		retrier:  retrier,
		logger:   logger,
		loc:      time.Local,
		now:      time.Now,
		lockTTL:  2 * time.Minute,
		sentTTL:  24 * time.Hour,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Dispatch sends the payment message and PIX QR code for one client. The
// attempt moves pending -> sent -> confirmed, or to failed, in which case
// the optimistic status write is reverted.
func (d *Dispatcher) Dispatch(ctx context.Context, req DispatchRequest) (*domain.DispatchAttempt, error) {
	c := req.Client
	reminder := req.Kind == domain.KindReminder || req.ReminderTemplate
	logger := d.logger.With(
		slog.String("clientId", c.ID.String()),
		slog.String("kind", string(req.Kind)),
	)

	lockKey := "dispatch:" + c.ID.String()
	token := uuid.NewString()
	locked, err := d.cache.SetNX(ctx, lockKey, token, d.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire dispatch lock: %w", err)
	}
	if !locked {
		return nil, ErrDispatchInProgress
	}
	defer func() {
		released, err := d.cache.CompareAndDel(context.WithoutCancel(ctx), lockKey, token)
		if err != nil {
			logger.Error("failed to release dispatch lock", "error", err.Error())
		} else if !released {
			logger.Warn("dispatch lock expired before release")
		}
	}()

	// the caller's copy may predate status writes made since it was loaded
	fresh, err := d.clients.Get(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	if err := eligible(fresh, req); err != nil {
		return nil, err
	}
	*c = *fresh
	if strings.TrimSpace(c.Phone) == "" {
		return nil, fmt.Errorf("%w: client %s has no phone number", domain.ErrValidation, c.ID)
	}

	cfg, err := d.settings.GetMessageConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load message config: %w", err)
	}

	attempt := &domain.DispatchAttempt{
		ClientID:       c.ID,
		Kind:           req.Kind,
		DueAt:          req.DueAt,
		FireAt:         req.FireAt,
		PreviousStatus: c.Status,
	}
	if err := d.attempts.Begin(ctx, attempt, req.RetryFailed); err != nil {
		if errors.Is(err, domain.ErrDuplicateDispatch) {
			return nil, ErrAlreadyDispatched
		}
		return nil, fmt.Errorf("failed to record dispatch attempt: %w", err)
	}

	if !reminder {
		if err := d.markSent(ctx, c, req); err != nil {
			return attempt, d.fail(ctx, logger, attempt, false, err)
		}
		attempt.PreviousStatus = c.Status
	}

	tmpl := cfg.ChargeTemplate
	if reminder {
		tmpl = cfg.ReminderTemplate
	}
	text := message.Render(tmpl, message.FieldsFor(c, d.now().In(d.loc)))

	remoteID, err := d.gateway.SendMessage(ctx, c.Phone, text)
	if err != nil {
		return attempt, d.fail(ctx, logger, attempt, !reminder, fmt.Errorf("%w: %w", ErrGatewayFailure, err))
	}
	attempt.RemoteMessageID = remoteID
	if err := d.attempts.UpdateStatus(ctx, attempt, domain.DispatchSent); err != nil {
		logger.Error("failed to update dispatch attempt to sent", "error", err.Error())
	}

	if _, err := d.gateway.GenerateAndSendPixQR(ctx, c.Phone, c.Value); err != nil {
		return attempt, d.fail(ctx, logger, attempt, !reminder, fmt.Errorf("%w: %w", ErrGatewayFailure, err))
	}
	if err := d.attempts.UpdateStatus(ctx, attempt, domain.DispatchConfirmed); err != nil {
		logger.Error("failed to update dispatch attempt to confirmed", "error", err.Error())
	}

	if !reminder {
		c.Status = domain.StatusMessageSent
	}
	if err := d.cacheSent(ctx, attempt); err != nil {
		logger.Error("failed to cache sent message", "error", err.Error())
	}

	logger.Info("payment message dispatched", "attemptId", attempt.ID.String(), "remoteMessageId", remoteID)
	return attempt, nil
}

// eligible reports whether the stored client still warrants the requested
// dispatch. Scheduled kinds also require automatic messages and an unchanged
// due instant.
func eligible(c *domain.Client, req DispatchRequest) error {
	if req.Kind == domain.KindManual {
		if c.Status == domain.StatusPaid {
			return fmt.Errorf("%w: client %s is already paid", domain.ErrValidation, c.ID)
		}
		return nil
	}

	switch {
	case c.Status.Sticky():
		return fmt.Errorf("%w: client is %s", ErrStatusChanged, c.Status)
	case !c.AutomaticMessage:
		return fmt.Errorf("%w: automatic messages disabled", ErrStatusChanged)
	case c.DueAt == nil || !c.DueAt.Equal(req.DueAt):
		return fmt.Errorf("%w: due date changed", ErrStatusChanged)
	}
	return nil
}

// markSent moves the client to Mensagem Enviada. A concurrent derivation
// write only changes the starting status, so the swap is retried from the
// reloaded record while it stays eligible.
func (d *Dispatcher) markSent(ctx context.Context, c *domain.Client, req DispatchRequest) error {
	for range maxStatusSwaps {
		swapped, err := d.clients.CompareAndSetStatus(ctx, c.ID, c.Status, domain.StatusMessageSent)
		if err != nil {
			return err
		}
		if swapped {
			return nil
		}

		fresh, err := d.clients.Get(ctx, c.ID)
		if err != nil {
			return err
		}
		if err := eligible(fresh, req); err != nil {
			return err
		}
		*c = *fresh
	}
	return ErrStatusChanged
}

// RecoverStale fails attempts left pending by a process that stopped
// mid-dispatch and reverts their optimistic status write.
func (d *Dispatcher) RecoverStale(ctx context.Context, olderThan time.Duration) (int, error) {
	stale, err := d.attempts.ListPendingBefore(ctx, d.now().Add(-olderThan))
	if err != nil {
		return 0, err
	}

	for i := range stale {
		a := &stale[i]
		logger := d.logger.With(slog.String("clientId", a.ClientID.String()), slog.String("attemptId", a.ID.String()))
		logger.Warn("recovering abandoned dispatch attempt")
		_ = d.fail(ctx, logger, a, a.Kind != domain.KindReminder, errors.New("abandoned before completion"))
	}
	return len(stale), nil
}

func (d *Dispatcher) fail(ctx context.Context, logger *slog.Logger, a *domain.DispatchAttempt, revert bool, cause error) error {
	ctx = context.WithoutCancel(ctx)
	logger.Error("dispatch failed", "error", cause.Error())

	if revert {
		d.revertStatus(ctx, logger, a)
	}

	a.Error = cause.Error()
	if err := d.attempts.UpdateStatus(ctx, a, domain.DispatchFailed); err != nil {
		logger.Error("failed to update dispatch attempt to failed", "error", err.Error())
	}
	return cause
}

func (d *Dispatcher) revertStatus(ctx context.Context, logger *slog.Logger, a *domain.DispatchAttempt) {
	prev := a.PreviousStatus
	if prev == "" || prev == domain.StatusMessageSent {
		return
	}

	reverted := <-d.retrier.Retry(ctx, func(attempt int) (terminate bool) {
		if _, err := d.clients.CompareAndSetStatus(ctx, a.ClientID, domain.StatusMessageSent, prev); err != nil {
			logger.Error("failed to revert client status", "attempt", attempt, "error", err.Error())
			return false
		}
		return true
	}, true)
	if !reverted {
		logger.Error("giving up reverting client status", "status", string(prev))
	}
}

// cacheSent writes sent message attributes to cache
func (d *Dispatcher) cacheSent(ctx context.Context, a *domain.DispatchAttempt) error {
	id := a.RemoteMessageID
	if id == "" {
		id = a.ID.String()
	}

	value := map[string]any{
		"messageId": id,
		"clientId":  a.ClientID.String(),
		"kind":      a.Kind,
		"sentAt":    d.now().UTC(),
	}
	jsonVal, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return d.cache.Set(ctx, "sent_msg:"+id, string(jsonVal), d.sentTTL)
}
