package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aniladanir/billing-reminder-service/internal/cache/memory"
	"github.com/aniladanir/billing-reminder-service/internal/domain"
	"github.com/aniladanir/billing-reminder-service/internal/gateway"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var brt = time.FixedZone("BRT", -3*60*60)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeClients struct {
	mtx     sync.Mutex
	clients map[uuid.UUID]domain.Client
	listFn  func()
	// onGet runs after each Get, outside the store lock
	onGet func(id uuid.UUID)
}

func newFakeClients(cs ...domain.Client) *fakeClients {
	f := &fakeClients{clients: make(map[uuid.UUID]domain.Client)}
	for _, c := range cs {
		f.clients[c.ID] = c
	}
	return f
}

func (f *fakeClients) Create(_ context.Context, c *domain.Client) error {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	f.clients[c.ID] = *c
	return nil
}

func (f *fakeClients) Get(_ context.Context, id uuid.UUID) (*domain.Client, error) {
	f.mtx.Lock()
	c, ok := f.clients[id]
	f.mtx.Unlock()
	if !ok {
		return nil, fmt.Errorf("client %s: %w", id, domain.ErrNotFound)
	}
	if f.onGet != nil {
		f.onGet(id)
	}
	return &c, nil
}

func (f *fakeClients) List(_ context.Context) ([]domain.Client, error) {
	if f.listFn != nil {
		f.listFn()
	}
	f.mtx.Lock()
	defer f.mtx.Unlock()
	out := make([]domain.Client, 0, len(f.clients))
	for _, c := range f.clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeClients) Update(_ context.Context, c *domain.Client, expected domain.ClientStatus) error {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	stored, ok := f.clients[c.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if expected != "" && stored.Status != expected {
		return domain.ErrConflict
	}
	f.clients[c.ID] = *c
	return nil
}

func (f *fakeClients) Delete(_ context.Context, id uuid.UUID) error {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	if _, ok := f.clients[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.clients, id)
	return nil
}

func (f *fakeClients) CompareAndSetStatus(_ context.Context, id uuid.UUID, from, to domain.ClientStatus) (bool, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	c, ok := f.clients[id]
	if !ok || c.Status != from {
		return false, nil
	}
	c.Status = to
	f.clients[id] = c
	return true, nil
}

func (f *fakeClients) status(id uuid.UUID) domain.ClientStatus {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return f.clients[id].Status
}

type fakeAttempts struct {
	mtx      sync.Mutex
	attempts []domain.DispatchAttempt
}

func (f *fakeAttempts) Begin(_ context.Context, a *domain.DispatchAttempt, retryFailed bool) error {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	if a.Status == "" {
		a.Status = domain.DispatchPending
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	for i, e := range f.attempts {
		if e.ClientID != a.ClientID || e.Kind != a.Kind || !e.DueAt.Equal(a.DueAt) {
			continue
		}
		if !retryFailed || e.Status != domain.DispatchFailed {
			return domain.ErrDuplicateDispatch
		}
		a.ID = e.ID
		a.Tries = e.Tries + 1
		f.attempts[i] = *a
		return nil
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.Tries = 1
	f.attempts = append(f.attempts, *a)
	return nil
}

func (f *fakeAttempts) UpdateStatus(_ context.Context, a *domain.DispatchAttempt, status domain.DispatchStatus) error {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	a.Status = status
	for i := range f.attempts {
		if f.attempts[i].ID == a.ID {
			f.attempts[i] = *a
			return nil
		}
	}
	return domain.ErrNotFound
}

func (f *fakeAttempts) List(_ context.Context, limit, offset int) ([]domain.DispatchAttempt, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	out := append([]domain.DispatchAttempt(nil), f.attempts...)
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeAttempts) ListPendingBefore(_ context.Context, before time.Time) ([]domain.DispatchAttempt, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	var out []domain.DispatchAttempt
	for _, e := range f.attempts {
		if e.Status == domain.DispatchPending && e.CreatedAt.Before(before) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeAttempts) all() []domain.DispatchAttempt {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return append([]domain.DispatchAttempt(nil), f.attempts...)
}

type fakeSettings struct {
	mtx     sync.Mutex
	cfg     domain.MessageConfig
	options []domain.ServiceOption
}

func newFakeSettings() *fakeSettings {
	return &fakeSettings{cfg: domain.DefaultMessageConfig()}
}

func (f *fakeSettings) GetMessageConfig(context.Context) (domain.MessageConfig, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return f.cfg, nil
}

func (f *fakeSettings) SaveMessageConfig(_ context.Context, cfg *domain.MessageConfig) error {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.cfg = *cfg
	return nil
}

func (f *fakeSettings) ListServiceOptions(context.Context) ([]domain.ServiceOption, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return append([]domain.ServiceOption(nil), f.options...), nil
}

func (f *fakeSettings) AddServiceOption(_ context.Context, name string) ([]domain.ServiceOption, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.options = append(f.options, domain.ServiceOption{ID: uuid.New(), Name: name})
	return append([]domain.ServiceOption(nil), f.options...), nil
}

func (f *fakeSettings) RemoveServiceOption(_ context.Context, id uuid.UUID) ([]domain.ServiceOption, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	for i, o := range f.options {
		if o.ID == id {
			f.options = append(f.options[:i], f.options[i+1:]...)
			break
		}
	}
	return append([]domain.ServiceOption(nil), f.options...), nil
}

type sentText struct {
	Phone string
	Text  string
}

type fakeGateway struct {
	mtx     sync.Mutex
	texts   []sentText
	pix     []decimal.Decimal
	textErr error
	pixErr  error
	state   string
	// onSend runs before each text is sent, outside the gateway lock
	onSend func()
}

func (f *fakeGateway) SendMessage(_ context.Context, phone, text string) (string, error) {
	if f.onSend != nil {
		f.onSend()
	}
	f.mtx.Lock()
	defer f.mtx.Unlock()
	if f.textErr != nil {
		return "", f.textErr
	}
	f.texts = append(f.texts, sentText{Phone: phone, Text: text})
	return fmt.Sprintf("msg-%d", len(f.texts)), nil
}

func (f *fakeGateway) GenerateAndSendPixQR(_ context.Context, _ string, amount decimal.Decimal) (string, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	if f.pixErr != nil {
		return "", f.pixErr
	}
	f.pix = append(f.pix, amount)
	return fmt.Sprintf("pix-%d", len(f.pix)), nil
}

func (f *fakeGateway) ConnectionState(context.Context) (string, error) {
	if f.state == "" {
		return "", errors.New("gateway unreachable")
	}
	return f.state, nil
}

func (f *fakeGateway) GeneratePix(_ context.Context, p gateway.PixParams) (gateway.PixCharge, error) {
	return gateway.PixCharge{QRCodeURL: "https://pix.example/qr?valor=" + p.Amount, BRCode: "000201"}, nil
}

func (f *fakeGateway) sentTexts() []sentText {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return append([]sentText(nil), f.texts...)
}

func (f *fakeGateway) pixCount() int {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return len(f.pix)
}

type clock struct {
	mtx sync.Mutex
	t   time.Time
}

func (c *clock) Now() time.Time {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.t
}

func (c *clock) Set(t time.Time) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.t = t
}

type harness struct {
	clients  *fakeClients
	attempts *fakeAttempts
	settings *fakeSettings
	gateway  *fakeGateway
	cache    *memory.Cache
	clock    *clock
	disp     *Dispatcher
	sched    *Scheduler
	billing  Billing
}

func newHarness(now time.Time, cfg SchedulerConfig, clients ...domain.Client) (*harness, error) {
	h := &harness{
		clients:  newFakeClients(clients...),
		attempts: &fakeAttempts{},
		settings: newFakeSettings(),
		gateway:  &fakeGateway{state: gateway.StateOpen},
		cache:    memory.New(),
		clock:    &clock{t: now},
	}

	maxAttempts := 3
	disp, err := NewDispatcher(h.clients, h.attempts, h.settings, h.gateway, h.cache, discardLogger(), &maxAttempts,
		WithDispatcherClock(h.clock.Now), WithDispatcherLocation(brt))
	if err != nil {
		return nil, err
	}
	h.disp = disp

	sched, err := NewScheduler(h.clients, h.settings, h.attempts, disp, discardLogger(), cfg, brt, h.clock.Now)
	if err != nil {
		return nil, err
	}
	h.sched = sched
	h.billing = NewBillingService(h.clients, h.settings, h.attempts, disp, h.gateway, discardLogger(), brt, h.clock.Now, nil)
	return h, nil
}

func dueClient(name string, due time.Time, status domain.ClientStatus, automatic bool) domain.Client {
	return domain.Client{
		ID:               uuid.New(),
		Name:             name,
		Service:          "Consultoria",
		Value:            decimal.NewFromInt(100),
		DueAt:            &due,
		Phone:            "(83) 99999-0000",
		Status:           status,
		AutomaticMessage: automatic,
	}
}
