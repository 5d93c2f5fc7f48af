package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/aniladanir/billing-reminder-service/internal/domain"
	"github.com/aniladanir/billing-reminder-service/internal/gateway"
	"github.com/aniladanir/billing-reminder-service/internal/message"
	clientRepo "github.com/aniladanir/billing-reminder-service/internal/repository/client"
	dispatchRepo "github.com/aniladanir/billing-reminder-service/internal/repository/dispatch"
	settingsRepo "github.com/aniladanir/billing-reminder-service/internal/repository/settings"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const upcomingWindowDays = 7

type Billing interface {
	CreateClient(ctx context.Context, in ClientInput) (*domain.Client, error)
	GetClient(ctx context.Context, id uuid.UUID) (*domain.Client, error)
	ListClients(ctx context.Context) ([]domain.Client, error)
	UpdateClient(ctx context.Context, id uuid.UUID, in ClientInput) (*domain.Client, error)
	DeleteClient(ctx context.Context, id uuid.UUID) error
	SendNow(ctx context.Context, id uuid.UUID, kind domain.DispatchKind) (*domain.DispatchAttempt, error)
	Dashboard(ctx context.Context) (*DashboardStats, error)
	GetMessageConfig(ctx context.Context) (domain.MessageConfig, error)
	SaveMessageConfig(ctx context.Context, cfg domain.MessageConfig) (domain.MessageConfig, error)
	PreviewMessages(ctx context.Context, cfg domain.MessageConfig) (*MessagePreview, error)
	ListServiceOptions(ctx context.Context) ([]domain.ServiceOption, error)
	AddServiceOption(ctx context.Context, name string) ([]domain.ServiceOption, error)
	RemoveServiceOption(ctx context.Context, id uuid.UUID) ([]domain.ServiceOption, error)
	ListDispatches(ctx context.Context, limit, offset int) ([]domain.DispatchAttempt, error)
	ConnectionState(ctx context.Context) (*ConnectionStatus, error)
	GeneratePix(ctx context.Context, p gateway.PixParams) (gateway.PixCharge, error)
}

// Messenger is the full gateway surface used by the billing service.
type Messenger interface {
	Gateway
	ConnectionState(ctx context.Context) (string, error)
	GeneratePix(ctx context.Context, p gateway.PixParams) (gateway.PixCharge, error)
}

// ClientInput carries the editable client fields. An update replaces every
// field, so a nil DueAt clears the due date. Only a nil AutomaticMessage or
// an empty Status keeps the stored value.
type ClientInput struct {
	Name             string              `json:"name"`
	Service          string              `json:"service"`
	Value            decimal.Decimal     `json:"value" swaggertype:"string" example:"150.00"`
	DueAt            *time.Time          `json:"due_at"`
	Phone            string              `json:"phone"`
	Status           domain.ClientStatus `json:"status"`
	AutomaticMessage *bool               `json:"automatic_message"`
}

type UpcomingDue struct {
	ClientID uuid.UUID           `json:"client_id"`
	Name     string              `json:"name"`
	Service  string              `json:"service"`
	Value    decimal.Decimal     `json:"value" swaggertype:"string"`
	DueAt    time.Time           `json:"due_at"`
	Status   domain.ClientStatus `json:"status"`
}

type DashboardStats struct {
	TotalClients     int             `json:"total_clients"`
	MessagesSent     int             `json:"messages_sent"`
	PendingPayments  int             `json:"pending_payments"`
	TotalReceivable  decimal.Decimal `json:"total_receivable" swaggertype:"string"`
	UpcomingDueDates []UpcomingDue   `json:"upcoming_due_dates"`
}

type MessagePreview struct {
	Charge   string `json:"charge"`
	Reminder string `json:"reminder,omitempty"`
}

type ConnectionStatus struct {
	State     string `json:"state"`
	Connected bool   `json:"connected"`
}

type billing struct {
	clients    clientRepo.Repository
	settings   settingsRepo.Repository
	attempts   dispatchRepo.Repository
	dispatcher *Dispatcher
	messenger  Messenger
	logger     *slog.Logger
	loc        *time.Location
	now        func() time.Time
	onChange   func()
}

func NewBillingService(
	clients clientRepo.Repository,
	settings settingsRepo.Repository,
	attempts dispatchRepo.Repository,
	dispatcher *Dispatcher,
	messenger Messenger,
	logger *slog.Logger,
	loc *time.Location,
	now func() time.Time,
	onChange func(),
) Billing {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	if onChange == nil {
		onChange = func() {}
	}
	return &billing{
		clients:    clients,
		settings:   settings,
		attempts:   attempts,
		dispatcher: dispatcher,
		messenger:  messenger,
		logger:     logger,
		loc:        loc,
		now:        now,
		onChange:   onChange,
	}
}

func (b *billing) CreateClient(ctx context.Context, in ClientInput) (*domain.Client, error) {
	c := &domain.Client{
		Name:             strings.TrimSpace(in.Name),
		Service:          strings.TrimSpace(in.Service),
		Value:            in.Value,
		DueAt:            in.DueAt,
		Phone:            strings.TrimSpace(in.Phone),
		Status:           domain.StatusPending,
		AutomaticMessage: true,
	}
	if in.AutomaticMessage != nil {
		c.AutomaticMessage = *in.AutomaticMessage
	}
	if in.Status != "" {
		c.Status = in.Status
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	c.Status = domain.DeriveStatus(c.DueAt, c.Status, b.now().In(b.loc))

	if err := b.clients.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	b.logger.Info("client created", "clientId", c.ID.String())
	b.onChange()
	return c, nil
}

func (b *billing) GetClient(ctx context.Context, id uuid.UUID) (*domain.Client, error) {
	c, err := b.clients.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	b.refresh(ctx, c, b.now().In(b.loc))
	return c, nil
}

// ListClients returns every client with its status derived at the current
// instant. Changed statuses are persisted with compare-and-set writes.
func (b *billing) ListClients(ctx context.Context) ([]domain.Client, error) {
	clients, err := b.clients.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}

	now := b.now().In(b.loc)
	for i := range clients {
		b.refresh(ctx, &clients[i], now)
	}
	return clients, nil
}

// UpdateClient applies in to the stored client. A new due instant without an
// explicit status reopens a client marked Mensagem Enviada.
func (b *billing) UpdateClient(ctx context.Context, id uuid.UUID, in ClientInput) (*domain.Client, error) {
	c, err := b.clients.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	dueChanged := !sameInstant(c.DueAt, in.DueAt)
	// without an explicit status the write must not clobber one stored
	// concurrently, such as a dispatch marking the client
	expected := c.Status
	if in.Status != "" {
		expected = ""
	}

	c.Name = strings.TrimSpace(in.Name)
	c.Service = strings.TrimSpace(in.Service)
	c.Value = in.Value
	c.DueAt = in.DueAt
	c.Phone = strings.TrimSpace(in.Phone)
	if in.AutomaticMessage != nil {
		c.AutomaticMessage = *in.AutomaticMessage
	}
	switch {
	case in.Status != "":
		c.Status = in.Status
	case dueChanged && c.Status == domain.StatusMessageSent:
		c.Status = domain.StatusPending
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	c.Status = domain.DeriveStatus(c.DueAt, c.Status, b.now().In(b.loc))

	if err := b.clients.Update(ctx, c, expected); err != nil {
		return nil, err
	}

	b.logger.Info("client updated", "clientId", c.ID.String(), "status", string(c.Status))
	b.onChange()
	return c, nil
}

func (b *billing) DeleteClient(ctx context.Context, id uuid.UUID) error {
	if err := b.clients.Delete(ctx, id); err != nil {
		return err
	}
	b.logger.Info("client deleted", "clientId", id.String())
	b.onChange()
	return nil
}

// SendNow dispatches a manual message to the client. kind selects the
// template; any value other than reminder sends the charge text.
func (b *billing) SendNow(ctx context.Context, id uuid.UUID, kind domain.DispatchKind) (*domain.DispatchAttempt, error) {
	c, err := b.clients.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := b.now()
	return b.dispatcher.Dispatch(ctx, DispatchRequest{
		Client:           c,
		Kind:             domain.KindManual,
		DueAt:            now,
		FireAt:           now,
		ReminderTemplate: kind == domain.KindReminder,
	})
}

func (b *billing) Dashboard(ctx context.Context) (*DashboardStats, error) {
	clients, err := b.ListClients(ctx)
	if err != nil {
		return nil, err
	}
	return computeStats(clients, b.now().In(b.loc)), nil
}

func computeStats(clients []domain.Client, now time.Time) *DashboardStats {
	stats := &DashboardStats{
		TotalClients:     len(clients),
		TotalReceivable:  decimal.Zero,
		UpcomingDueDates: make([]UpcomingDue, 0),
	}

	y, m, d := now.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 0, upcomingWindowDays)

	for _, c := range clients {
		switch c.Status {
		case domain.StatusMessageSent:
			stats.MessagesSent++
		case domain.StatusPending, domain.StatusOverdue, domain.StatusDueToday:
			stats.PendingPayments++
		}

		if c.DueAt == nil || c.DueAt.Before(start) || c.DueAt.After(end) {
			continue
		}
		stats.UpcomingDueDates = append(stats.UpcomingDueDates, UpcomingDue{
			ClientID: c.ID,
			Name:     c.Name,
			Service:  c.Service,
			Value:    c.Value,
			DueAt:    *c.DueAt,
			Status:   c.Status,
		})
		stats.TotalReceivable = stats.TotalReceivable.Add(c.Value)
	}

	sort.SliceStable(stats.UpcomingDueDates, func(i, j int) bool {
		return stats.UpcomingDueDates[i].DueAt.Before(stats.UpcomingDueDates[j].DueAt)
	})
	return stats
}

func (b *billing) GetMessageConfig(ctx context.Context) (domain.MessageConfig, error) {
	return b.settings.GetMessageConfig(ctx)
}

func (b *billing) SaveMessageConfig(ctx context.Context, cfg domain.MessageConfig) (domain.MessageConfig, error) {
	if err := cfg.Validate(); err != nil {
		return domain.MessageConfig{}, err
	}
	if err := b.settings.SaveMessageConfig(ctx, &cfg); err != nil {
		return domain.MessageConfig{}, fmt.Errorf("failed to save message config: %w", err)
	}

	b.logger.Info("message config saved", "sendReminder", cfg.SendReminder)
	b.onChange()
	return cfg, nil
}

// PreviewMessages renders cfg's templates for a sample client due today.
func (b *billing) PreviewMessages(_ context.Context, cfg domain.MessageConfig) (*MessagePreview, error) {
	if strings.TrimSpace(cfg.ChargeTemplate) == "" {
		return nil, fmt.Errorf("%w: charge template is required", domain.ErrValidation)
	}

	now := b.now().In(b.loc)
	y, m, d := now.Date()
	due := time.Date(y, m, d, 9, 0, 0, 0, b.loc)
	sample := &domain.Client{
		Name:    "Cliente Teste",
		Service: "Serviço Teste",
		Value:   decimal.NewFromInt(150),
		DueAt:   &due,
	}

	fields := message.FieldsFor(sample, now)
	preview := &MessagePreview{Charge: message.Render(cfg.ChargeTemplate, fields)}
	if cfg.SendReminder && cfg.ReminderTemplate != "" {
		preview.Reminder = message.Render(cfg.ReminderTemplate, fields)
	}
	return preview, nil
}

func (b *billing) ListServiceOptions(ctx context.Context) ([]domain.ServiceOption, error) {
	return b.settings.ListServiceOptions(ctx)
}

func (b *billing) AddServiceOption(ctx context.Context, name string) ([]domain.ServiceOption, error) {
	return b.settings.AddServiceOption(ctx, name)
}

func (b *billing) RemoveServiceOption(ctx context.Context, id uuid.UUID) ([]domain.ServiceOption, error) {
	return b.settings.RemoveServiceOption(ctx, id)
}

func (b *billing) ListDispatches(ctx context.Context, limit, offset int) ([]domain.DispatchAttempt, error) {
	return b.attempts.List(ctx, limit, offset)
}

func (b *billing) ConnectionState(ctx context.Context) (*ConnectionStatus, error) {
	state, err := b.messenger.ConnectionState(ctx)
	if err != nil {
		return nil, err
	}
	return &ConnectionStatus{State: state, Connected: state == gateway.StateOpen}, nil
}

func (b *billing) GeneratePix(ctx context.Context, p gateway.PixParams) (gateway.PixCharge, error) {
	return b.messenger.GeneratePix(ctx, p)
}

func (b *billing) refresh(ctx context.Context, c *domain.Client, now time.Time) {
	derived := domain.DeriveStatus(c.DueAt, c.Status, now)
	if derived == c.Status {
		return
	}

	swapped, err := b.clients.CompareAndSetStatus(ctx, c.ID, c.Status, derived)
	if err != nil {
		b.logger.Error("failed to update client status", "clientId", c.ID.String(), "error", err.Error())
		return
	}
	if swapped {
		c.Status = derived
		return
	}

	// lost the race; report what is stored
	if fresh, err := b.clients.Get(ctx, c.ID); err == nil {
		c.Status = fresh.Status
	} else if !errors.Is(err, domain.ErrNotFound) {
		b.logger.Error("failed to reload client", "clientId", c.ID.String(), "error", err.Error())
	}
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
