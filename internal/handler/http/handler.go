package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	_ "github.com/aniladanir/billing-reminder-service/docs"
	"github.com/aniladanir/billing-reminder-service/internal/domain"
	"github.com/aniladanir/billing-reminder-service/internal/gateway"
	"github.com/aniladanir/billing-reminder-service/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// SchedulerControl is the part of the scheduler exposed over http.
type SchedulerControl interface {
	Start() bool
	Stop() bool
	IsRunning() bool
	NextFire() (time.Time, bool)
}

type Handler struct {
	billing   service.Billing
	scheduler SchedulerControl
	logger    *slog.Logger
	router    *gin.Engine
	server    *http.Server
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type SchedulerStatus struct {
	Running  bool       `json:"running"`
	Changed  bool       `json:"changed"`
	NextFire *time.Time `json:"next_fire,omitempty"`
}

type ServiceOptionRequest struct {
	Name string `json:"name" binding:"required"`
}

// @title Billing Reminder API
// @version 1.0
// @description API for client billing records and automatic WhatsApp payment reminders
// @host localhost:6060
// @BasePath /
func NewHttpHandler(addr string, svc service.Billing, scheduler SchedulerControl, logger *slog.Logger) *Handler {
	h := &Handler{
		billing:   svc,
		scheduler: scheduler,
		logger:    logger,
	}

	// create router
	router := gin.Default()

	// register routes
	router.GET("/health", h.health)

	clients := router.Group("/clients")
	clients.GET("", h.listClients)
	clients.POST("", h.createClient)
	clients.GET("/:id", h.getClient)
	clients.PUT("/:id", h.updateClient)
	clients.DELETE("/:id", h.deleteClient)
	clients.POST("/:id/send", h.sendNow)

	router.GET("/dashboard", h.dashboard)

	settings := router.Group("/settings/messages")
	settings.GET("", h.getMessageConfig)
	settings.PUT("", h.saveMessageConfig)
	settings.POST("/preview", h.previewMessages)

	router.GET("/services", h.listServiceOptions)
	router.POST("/services", h.addServiceOption)
	router.DELETE("/services/:id", h.removeServiceOption)

	router.GET("/gateway/connection", h.connectionState)
	router.GET("/api/pix/generate-pix", h.generatePix)
	router.GET("/dispatches", h.listDispatches)

	router.GET("/scheduler/status", h.schedulerStatus)
	router.POST("/scheduler/start", h.startScheduler)
	router.POST("/scheduler/stop", h.stopScheduler)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	h.router = router

	// create http server
	h.server = &http.Server{
		Addr:    addr,
		Handler: router.Handler(),
	}

	return h
}

func (h *Handler) Run() error {
	return h.server.ListenAndServe()
}

func (h *Handler) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// Router exposes the http handler, mostly for tests.
func (h *Handler) Router() http.Handler {
	return h.router
}

// Health godoc
// @Summary Liveness probe
// @Tags Control
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListClients godoc
// @Summary List clients
// @Description Returns every client with its status derived at request time
// @Tags Clients
// @Produce json
// @Success 200 {array} domain.Client
// @Failure 500 {object} ErrorResponse
// @Router /clients [get]
func (h *Handler) listClients(c *gin.Context) {
	clients, err := h.billing.ListClients(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, clients)
}

// CreateClient godoc
// @Summary Register a client
// @Tags Clients
// @Accept json
// @Produce json
// @Param client body service.ClientInput true "client"
// @Success 201 {object} domain.Client
// @Failure 400 {object} ErrorResponse
// @Router /clients [post]
func (h *Handler) createClient(c *gin.Context) {
	var in service.ClientInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	client, err := h.billing.CreateClient(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, client)
}

// GetClient godoc
// @Summary Get a client
// @Tags Clients
// @Produce json
// @Param id path string true "client id"
// @Success 200 {object} domain.Client
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /clients/{id} [get]
func (h *Handler) getClient(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	client, err := h.billing.GetClient(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, client)
}

// UpdateClient godoc
// @Summary Update a client
// @Description Replaces the editable fields. A new due date reopens a client marked Mensagem Enviada unless a status is given.
// @Tags Clients
// @Accept json
// @Produce json
// @Param id path string true "client id"
// @Param client body service.ClientInput true "client"
// @Success 200 {object} domain.Client
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /clients/{id} [put]
func (h *Handler) updateClient(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var in service.ClientInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	client, err := h.billing.UpdateClient(c.Request.Context(), id, in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, client)
}

// DeleteClient godoc
// @Summary Delete a client
// @Tags Clients
// @Param id path string true "client id"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /clients/{id} [delete]
func (h *Handler) deleteClient(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.billing.DeleteClient(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SendNow godoc
// @Summary Send a payment message now
// @Description Sends the charge (default) or reminder text followed by the PIX QR code
// @Tags Clients
// @Produce json
// @Param id path string true "client id"
// @Param kind query string false "charge or reminder"
// @Success 200 {object} domain.DispatchAttempt
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /clients/{id}/send [post]
func (h *Handler) sendNow(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	kind := domain.DispatchKind(c.DefaultQuery("kind", string(domain.KindCharge)))
	if kind != domain.KindCharge && kind != domain.KindReminder {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "kind must be charge or reminder"})
		return
	}

	attempt, err := h.billing.SendNow(c.Request.Context(), id, kind)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, attempt)
}

// Dashboard godoc
// @Summary Dashboard statistics
// @Tags Dashboard
// @Produce json
// @Success 200 {object} service.DashboardStats
// @Router /dashboard [get]
func (h *Handler) dashboard(c *gin.Context) {
	stats, err := h.billing.Dashboard(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetMessageConfig godoc
// @Summary Get message settings
// @Tags Settings
// @Produce json
// @Success 200 {object} domain.MessageConfig
// @Router /settings/messages [get]
func (h *Handler) getMessageConfig(c *gin.Context) {
	cfg, err := h.billing.GetMessageConfig(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// SaveMessageConfig godoc
// @Summary Save message settings
// @Tags Settings
// @Accept json
// @Produce json
// @Param config body domain.MessageConfig true "message settings"
// @Success 200 {object} domain.MessageConfig
// @Failure 400 {object} ErrorResponse
// @Router /settings/messages [put]
func (h *Handler) saveMessageConfig(c *gin.Context) {
	var cfg domain.MessageConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	saved, err := h.billing.SaveMessageConfig(c.Request.Context(), cfg)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// PreviewMessages godoc
// @Summary Preview message templates
// @Description Renders the given templates for a sample client due today
// @Tags Settings
// @Accept json
// @Produce json
// @Param config body domain.MessageConfig true "message settings"
// @Success 200 {object} service.MessagePreview
// @Failure 400 {object} ErrorResponse
// @Router /settings/messages/preview [post]
func (h *Handler) previewMessages(c *gin.Context) {
	var cfg domain.MessageConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	preview, err := h.billing.PreviewMessages(c.Request.Context(), cfg)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, preview)
}

// ListServiceOptions godoc
// @Summary List service names
// @Tags Services
// @Produce json
// @Success 200 {array} domain.ServiceOption
// @Router /services [get]
func (h *Handler) listServiceOptions(c *gin.Context) {
	opts, err := h.billing.ListServiceOptions(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, opts)
}

// AddServiceOption godoc
// @Summary Add a service name
// @Description Names are deduplicated case-insensitively
// @Tags Services
// @Accept json
// @Produce json
// @Param option body ServiceOptionRequest true "service name"
// @Success 200 {array} domain.ServiceOption
// @Failure 400 {object} ErrorResponse
// @Router /services [post]
func (h *Handler) addServiceOption(c *gin.Context) {
	var req ServiceOptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	opts, err := h.billing.AddServiceOption(c.Request.Context(), req.Name)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, opts)
}

// RemoveServiceOption godoc
// @Summary Remove a service name
// @Tags Services
// @Produce json
// @Param id path string true "service option id"
// @Success 200 {array} domain.ServiceOption
// @Router /services/{id} [delete]
func (h *Handler) removeServiceOption(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	opts, err := h.billing.RemoveServiceOption(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, opts)
}

// ConnectionState godoc
// @Summary WhatsApp gateway connection state
// @Tags Gateway
// @Produce json
// @Success 200 {object} service.ConnectionStatus
// @Failure 502 {object} ErrorResponse
// @Router /gateway/connection [get]
func (h *Handler) connectionState(c *gin.Context) {
	status, err := h.billing.ConnectionState(c.Request.Context())
	if err != nil {
		h.writeGatewayError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// GeneratePix godoc
// @Summary Generate a PIX charge
// @Description Proxies the PIX generator and returns the QR image URL and BR code
// @Tags Gateway
// @Produce json
// @Param nome query string false "merchant name"
// @Param cidade query string false "merchant city"
// @Param valor query string true "amount"
// @Param chave query string false "pix key"
// @Param txid query string false "transaction id"
// @Success 200 {object} gateway.PixCharge
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /api/pix/generate-pix [get]
func (h *Handler) generatePix(c *gin.Context) {
	var params gateway.PixParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	charge, err := h.billing.GeneratePix(c.Request.Context(), params)
	if err != nil {
		h.writeGatewayError(c, err)
		return
	}
	c.JSON(http.StatusOK, charge)
}

// ListDispatches godoc
// @Summary List dispatch attempts
// @Description Newest first
// @Tags Dispatches
// @Produce json
// @Param limit query int false "page size" default(50)
// @Param offset query int false "offset" default(0)
// @Success 200 {array} domain.DispatchAttempt
// @Router /dispatches [get]
func (h *Handler) listDispatches(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be a number"})
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "offset must be a number"})
		return
	}

	attempts, err := h.billing.ListDispatches(c.Request.Context(), limit, offset)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, attempts)
}

// SchedulerStatus godoc
// @Summary Scheduler status
// @Tags Control
// @Produce json
// @Success 200 {object} SchedulerStatus
// @Router /scheduler/status [get]
func (h *Handler) schedulerStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.status(false))
}

// StartScheduler godoc
// @Summary Start the reminder scheduler
// @Tags Control
// @Produce json
// @Success 200 {object} SchedulerStatus
// @Router /scheduler/start [post]
func (h *Handler) startScheduler(c *gin.Context) {
	changed := h.scheduler.Start()
	c.JSON(http.StatusOK, h.status(changed))
}

// StopScheduler godoc
// @Summary Stop the reminder scheduler
// @Tags Control
// @Produce json
// @Success 200 {object} SchedulerStatus
// @Router /scheduler/stop [post]
func (h *Handler) stopScheduler(c *gin.Context) {
	changed := h.scheduler.Stop()
	c.JSON(http.StatusOK, h.status(changed))
}

func (h *Handler) status(changed bool) SchedulerStatus {
	st := SchedulerStatus{Running: h.scheduler.IsRunning(), Changed: changed}
	if next, ok := h.scheduler.NextFire(); ok {
		st.NextFire = &next
	}
	return st
}

func (h *Handler) pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeError(c *gin.Context, err error) {
	var statusErr *gateway.StatusError

	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, gateway.ErrInvalidArgument):
		code = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, service.ErrAlreadyDispatched),
		errors.Is(err, service.ErrDispatchInProgress),
		errors.Is(err, service.ErrStatusChanged),
		errors.Is(err, domain.ErrConflict):
		code = http.StatusConflict
	case errors.Is(err, service.ErrGatewayFailure), errors.As(err, &statusErr):
		code = http.StatusBadGateway
	}

	if code == http.StatusInternalServerError {
		h.logger.Error("request failed", "path", c.FullPath(), "error", err.Error())
	}
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// writeGatewayError reports failures of the outbound gateways as 502 unless
// the request itself was invalid.
func (h *Handler) writeGatewayError(c *gin.Context, err error) {
	if errors.Is(err, gateway.ErrInvalidArgument) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	h.logger.Warn("gateway request failed", "path", c.FullPath(), "error", err.Error())
	c.JSON(http.StatusBadGateway, ErrorResponse{Error: err.Error()})
}
