package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aniladanir/billing-reminder-service/internal/domain"
	"github.com/aniladanir/billing-reminder-service/internal/gateway"
	"github.com/aniladanir/billing-reminder-service/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBilling struct {
	clients  map[uuid.UUID]domain.Client
	sendErr  error
	editErr  error
	sentKind domain.DispatchKind
	pixErr   error
	pixQuery gateway.PixParams
	state    string
}

func newStubBilling(cs ...domain.Client) *stubBilling {
	s := &stubBilling{clients: make(map[uuid.UUID]domain.Client), state: gateway.StateOpen}
	for _, c := range cs {
		s.clients[c.ID] = c
	}
	return s
}

func (s *stubBilling) CreateClient(_ context.Context, in service.ClientInput) (*domain.Client, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	c := domain.Client{ID: uuid.New(), Name: in.Name, Value: in.Value, DueAt: in.DueAt, Status: domain.StatusPending, AutomaticMessage: true}
	s.clients[c.ID] = c
	return &c, nil
}

func (s *stubBilling) GetClient(_ context.Context, id uuid.UUID) (*domain.Client, error) {
	c, ok := s.clients[id]
	if !ok {
		return nil, fmt.Errorf("client %s: %w", id, domain.ErrNotFound)
	}
	return &c, nil
}

func (s *stubBilling) ListClients(context.Context) ([]domain.Client, error) {
	out := make([]domain.Client, 0, len(s.clients))
	for _, c := range s.clients {
		out = append(out, c)
	}
	return out, nil
}

func (s *stubBilling) UpdateClient(ctx context.Context, id uuid.UUID, in service.ClientInput) (*domain.Client, error) {
	c, err := s.GetClient(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.editErr != nil {
		return nil, s.editErr
	}
	c.Name = in.Name
	s.clients[id] = *c
	return c, nil
}

func (s *stubBilling) DeleteClient(_ context.Context, id uuid.UUID) error {
	if _, ok := s.clients[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.clients, id)
	return nil
}

func (s *stubBilling) SendNow(_ context.Context, id uuid.UUID, kind domain.DispatchKind) (*domain.DispatchAttempt, error) {
	if _, ok := s.clients[id]; !ok {
		return nil, domain.ErrNotFound
	}
	if s.sendErr != nil {
		return nil, s.sendErr
	}
	s.sentKind = kind
	return &domain.DispatchAttempt{ID: uuid.New(), ClientID: id, Kind: domain.KindManual, Status: domain.DispatchConfirmed}, nil
}

func (s *stubBilling) Dashboard(context.Context) (*service.DashboardStats, error) {
	return &service.DashboardStats{TotalClients: len(s.clients), TotalReceivable: decimal.NewFromInt(10)}, nil
}

func (s *stubBilling) GetMessageConfig(context.Context) (domain.MessageConfig, error) {
	return domain.DefaultMessageConfig(), nil
}

func (s *stubBilling) SaveMessageConfig(_ context.Context, cfg domain.MessageConfig) (domain.MessageConfig, error) {
	if err := cfg.Validate(); err != nil {
		return domain.MessageConfig{}, err
	}
	return cfg, nil
}

func (s *stubBilling) PreviewMessages(_ context.Context, cfg domain.MessageConfig) (*service.MessagePreview, error) {
	return &service.MessagePreview{Charge: "preview: " + cfg.ChargeTemplate}, nil
}

func (s *stubBilling) ListServiceOptions(context.Context) ([]domain.ServiceOption, error) {
	return []domain.ServiceOption{{ID: uuid.New(), Name: "Consultoria"}}, nil
}

func (s *stubBilling) AddServiceOption(_ context.Context, name string) ([]domain.ServiceOption, error) {
	return []domain.ServiceOption{{ID: uuid.New(), Name: name}}, nil
}

func (s *stubBilling) RemoveServiceOption(context.Context, uuid.UUID) ([]domain.ServiceOption, error) {
	return []domain.ServiceOption{}, nil
}

func (s *stubBilling) ListDispatches(_ context.Context, limit, offset int) ([]domain.DispatchAttempt, error) {
	return make([]domain.DispatchAttempt, min(limit, 2)), nil
}

func (s *stubBilling) ConnectionState(context.Context) (*service.ConnectionStatus, error) {
	if s.state == "" {
		return nil, &gateway.StatusError{Service: "evolution", StatusCode: http.StatusUnauthorized, Body: "unauthorized"}
	}
	return &service.ConnectionStatus{State: s.state, Connected: s.state == gateway.StateOpen}, nil
}

func (s *stubBilling) GeneratePix(_ context.Context, p gateway.PixParams) (gateway.PixCharge, error) {
	s.pixQuery = p
	if s.pixErr != nil {
		return gateway.PixCharge{}, s.pixErr
	}
	return gateway.PixCharge{QRCodeURL: "https://pix.example/qr", BRCode: "000201"}, nil
}

type stubScheduler struct {
	running bool
}

func (s *stubScheduler) Start() bool {
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *stubScheduler) Stop() bool {
	if !s.running {
		return false
	}
	s.running = false
	return true
}

func (s *stubScheduler) IsRunning() bool { return s.running }

func (s *stubScheduler) NextFire() (time.Time, bool) {
	return time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC), true
}

func newTestHandler(b *stubBilling) (*Handler, *stubScheduler) {
	gin.SetMode(gin.TestMode)
	sched := &stubScheduler{}
	return NewHttpHandler(":0", b, sched, slog.New(slog.NewTextHandler(io.Discard, nil))), sched
}

func doRequest(h *Handler, method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandler(newStubBilling())

	rec := doRequest(h, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestClientsCRUD(t *testing.T) {
	b := newStubBilling()
	h, _ := newTestHandler(b)

	rec := doRequest(h, http.MethodPost, "/clients", map[string]any{
		"name":   "Ana",
		"value":  "150.50",
		"due_at": "2024-03-10T09:00:00-03:00",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created domain.Client
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Ana", created.Name)
	assert.Equal(t, "150.5", created.Value.String())

	rec = doRequest(h, http.MethodGet, "/clients/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(h, http.MethodPut, "/clients/"+created.ID.String(), map[string]any{"name": "Ana Maria"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ana Maria", b.clients[created.ID].Name)

	rec = doRequest(h, http.MethodGet, "/clients", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []domain.Client
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec = doRequest(h, http.MethodDelete, "/clients/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(h, http.MethodGet, "/clients/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateClientConflict(t *testing.T) {
	c := domain.Client{ID: uuid.New(), Name: "Ana", Status: domain.StatusMessageSent}
	b := newStubBilling(c)
	b.editErr = fmt.Errorf("client %s status is %s: %w", c.ID, c.Status, domain.ErrConflict)
	h, _ := newTestHandler(b)

	rec := doRequest(h, http.MethodPut, "/clients/"+c.ID.String(), map[string]any{"name": "Ana Maria"})

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, decodeError(t, rec), "record changed concurrently")
	assert.Equal(t, "Ana", b.clients[c.ID].Name)
}

func TestClientErrors(t *testing.T) {
	h, _ := newTestHandler(newStubBilling())

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		code   int
	}{
		{"invalid id", http.MethodGet, "/clients/not-a-uuid", nil, http.StatusBadRequest},
		{"validation", http.MethodPost, "/clients", map[string]any{"name": ""}, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/clients", "nope", http.StatusBadRequest},
		{"update unknown", http.MethodPut, "/clients/" + uuid.NewString(), map[string]any{"name": "x"}, http.StatusNotFound},
		{"delete unknown", http.MethodDelete, "/clients/" + uuid.NewString(), nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.code, rec.Code)
			assert.NotEmpty(t, decodeError(t, rec))
		})
	}
}

func TestSendNow(t *testing.T) {
	c := domain.Client{ID: uuid.New(), Name: "Ana"}

	t.Run("default kind is charge", func(t *testing.T) {
		b := newStubBilling(c)
		h, _ := newTestHandler(b)

		rec := doRequest(h, http.MethodPost, "/clients/"+c.ID.String()+"/send", nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, domain.KindCharge, b.sentKind)
	})

	t.Run("reminder", func(t *testing.T) {
		b := newStubBilling(c)
		h, _ := newTestHandler(b)

		rec := doRequest(h, http.MethodPost, "/clients/"+c.ID.String()+"/send?kind=reminder", nil)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, domain.KindReminder, b.sentKind)
	})

	t.Run("unknown kind", func(t *testing.T) {
		h, _ := newTestHandler(newStubBilling(c))
		rec := doRequest(h, http.MethodPost, "/clients/"+c.ID.String()+"/send?kind=manual", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	errCases := map[string]struct {
		err  error
		code int
	}{
		"already dispatched": {service.ErrAlreadyDispatched, http.StatusConflict},
		"in progress":        {service.ErrDispatchInProgress, http.StatusConflict},
		"gateway failure":    {fmt.Errorf("%w: %w", service.ErrGatewayFailure, errors.New("timeout")), http.StatusBadGateway},
		"paid client":        {fmt.Errorf("%w: client is already paid", domain.ErrValidation), http.StatusBadRequest},
		"unexpected":         {errors.New("disk full"), http.StatusInternalServerError},
	}
	for name, tc := range errCases {
		t.Run(name, func(t *testing.T) {
			b := newStubBilling(c)
			b.sendErr = tc.err
			h, _ := newTestHandler(b)

			rec := doRequest(h, http.MethodPost, "/clients/"+c.ID.String()+"/send", nil)

			assert.Equal(t, tc.code, rec.Code)
			assert.Equal(t, tc.err.Error(), decodeError(t, rec))
		})
	}
}

func TestDashboard(t *testing.T) {
	h, _ := newTestHandler(newStubBilling(domain.Client{ID: uuid.New(), Name: "Ana"}))

	rec := doRequest(h, http.MethodGet, "/dashboard", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var stats map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, float64(1), stats["total_clients"])
	assert.Equal(t, "10", stats["total_receivable"])
}

func TestMessageSettings(t *testing.T) {
	h, _ := newTestHandler(newStubBilling())

	rec := doRequest(h, http.MethodGet, "/settings/messages", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cfg domain.MessageConfig
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cfg))
	assert.Equal(t, domain.DefaultChargeTemplate, cfg.ChargeTemplate)

	cfg.ReminderMinute = 75
	rec = doRequest(h, http.MethodPut, "/settings/messages", cfg)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	cfg.ReminderMinute = 30
	rec = doRequest(h, http.MethodPut, "/settings/messages", cfg)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(h, http.MethodPost, "/settings/messages/preview", map[string]any{"charge_template": "Olá {nome}"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"charge":"preview: Olá {nome}"}`, rec.Body.String())
}

func TestServiceOptions(t *testing.T) {
	h, _ := newTestHandler(newStubBilling())

	rec := doRequest(h, http.MethodGet, "/services", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(h, http.MethodPost, "/services", map[string]any{"name": "Design"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Design")

	rec = doRequest(h, http.MethodPost, "/services", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(h, http.MethodDelete, "/services/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestGatewayRoutes(t *testing.T) {
	t.Run("connection open", func(t *testing.T) {
		h, _ := newTestHandler(newStubBilling())
		rec := doRequest(h, http.MethodGet, "/gateway/connection", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"state":"open","connected":true}`, rec.Body.String())
	})

	t.Run("connection failure", func(t *testing.T) {
		b := newStubBilling()
		b.state = ""
		h, _ := newTestHandler(b)
		rec := doRequest(h, http.MethodGet, "/gateway/connection", nil)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})

	t.Run("pix proxy", func(t *testing.T) {
		b := newStubBilling()
		h, _ := newTestHandler(b)
		rec := doRequest(h, http.MethodGet, "/api/pix/generate-pix?nome=Loja&cidade=Recife&valor=10.00&chave=k&txid=T1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"qrcode":"https://pix.example/qr","qrCodeText":"000201"}`, rec.Body.String())
		assert.Equal(t, gateway.PixParams{Name: "Loja", City: "Recife", Amount: "10.00", Key: "k", TxID: "T1"}, b.pixQuery)
	})

	t.Run("pix invalid argument", func(t *testing.T) {
		b := newStubBilling()
		b.pixErr = fmt.Errorf("%w: amount is required", gateway.ErrInvalidArgument)
		h, _ := newTestHandler(b)
		rec := doRequest(h, http.MethodGet, "/api/pix/generate-pix", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestListDispatches(t *testing.T) {
	h, _ := newTestHandler(newStubBilling())

	rec := doRequest(h, http.MethodGet, "/dispatches?limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var attempts []domain.DispatchAttempt
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &attempts))
	assert.Len(t, attempts, 1)

	rec = doRequest(h, http.MethodGet, "/dispatches?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSchedulerControl(t *testing.T) {
	h, sched := newTestHandler(newStubBilling())

	rec := doRequest(h, http.MethodPost, "/scheduler/start", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, sched.running)
	assert.JSONEq(t, `{"running":true,"changed":true,"next_fire":"2024-03-10T12:00:00Z"}`, rec.Body.String())

	rec = doRequest(h, http.MethodPost, "/scheduler/start", nil)
	assert.Contains(t, rec.Body.String(), `"changed":false`)

	rec = doRequest(h, http.MethodGet, "/scheduler/status", nil)
	assert.Contains(t, rec.Body.String(), `"running":true`)

	rec = doRequest(h, http.MethodPost, "/scheduler/stop", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, sched.running)
	assert.Contains(t, rec.Body.String(), `"changed":true`)
}
