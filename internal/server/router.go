package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Z3rkRapt0r/gofood-men/backend/internal/apperr"
	"github.com/Z3rkRapt0r/gofood-men/backend/internal/auth"
	"github.com/Z3rkRapt0r/gofood-men/backend/internal/metrics"
	"github.com/Z3rkRapt0r/gofood-men/backend/internal/realtime"
	"github.com/Z3rkRapt0r/gofood-men/backend/internal/reservations"
	"github.com/Z3rkRapt0r/gofood-men/backend/internal/venue"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	tenantIDContextKey = "gofood_tenant_id"
	userIDContextKey   = "gofood_user_id"

	defaultHeartbeatInterval = 25 * time.Second
	defaultBookingsPerMinute = 20
	defaultBookingBurst      = 5
)

var (
	errMissingSessionValidator = errors.New("session validator dependency required")
	errMissingTenantResolver   = errors.New("tenant resolver dependency required")
	errMissingReservations     = errors.New("reservations service dependency required")
	errMissingVenue            = errors.New("venue service dependency required")
	errMissingRealtime         = errors.New("realtime dispatcher dependency required")
)

// SessionValidator authenticates staff requests.
type SessionValidator interface {
	ValidateRequest(request *http.Request) (auth.SessionClaims, error)
}

// TenantResolver maps an authenticated session to the tenant it may act for.
type TenantResolver interface {
	ResolveTenant(ctx context.Context, claims auth.SessionClaims) (venue.TenantID, error)
}

// Dependencies wires the HTTP surface.
type Dependencies struct {
	Sessions          SessionValidator
	Tenants           TenantResolver
	Reservations      *reservations.Service
	Venue             *venue.Service
	Realtime          *realtime.Dispatcher
	Metrics           *metrics.Recorder
	AllowedOrigins    []string
	BookingsPerMinute int
	BookingBurst      int
	HeartbeatInterval time.Duration
	Logger            *zap.Logger
}

// NewHTTPHandler builds the gin router serving the public booking form and the staff dashboard.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Sessions == nil {
		return nil, errMissingSessionValidator
	}
	if deps.Tenants == nil {
		return nil, errMissingTenantResolver
	}
	if deps.Reservations == nil {
		return nil, errMissingReservations
	}
	if deps.Venue == nil {
		return nil, errMissingVenue
	}
	if deps.Realtime == nil {
		return nil, errMissingRealtime
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	heartbeat := deps.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeatInterval
	}
	perMinute := deps.BookingsPerMinute
	if perMinute <= 0 {
		perMinute = defaultBookingsPerMinute
	}
	burst := deps.BookingBurst
	if burst <= 0 {
		burst = defaultBookingBurst
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Middleware())
	}
	router.Use(corsMiddleware(deps.AllowedOrigins))

	handler := &httpHandler{
		sessions:     deps.Sessions,
		tenants:      deps.Tenants,
		reservations: deps.Reservations,
		venue:        deps.Venue,
		realtime:     deps.Realtime,
		metrics:      deps.Metrics,
		limiter:      newClientLimiter(perMinute, burst, time.Now),
		heartbeat:    heartbeat,
		logger:       logger,
	}

	router.GET("/healthz", handler.handleHealth)
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	public := router.Group("/public/:tenant")
	public.GET("/slots", handler.handlePublicSlots)
	public.POST("/reservations", handler.limitBookings, handler.handleSubmitBooking)

	staffGroup := router.Group("/api")
	staffGroup.Use(handler.authorizeRequest)
	staffGroup.GET("/reservations", handler.handleListReservations)
	staffGroup.GET("/reservations/stream", handler.handleReservationStream)
	staffGroup.POST("/reservations/:id/:action", handler.handleReservationAction)
	staffGroup.GET("/availability", handler.handleAvailability)
	staffGroup.GET("/occupancy", handler.handleOccupancy)
	staffGroup.GET("/config", handler.handleGetConfig)
	staffGroup.PUT("/config", handler.handlePutConfig)
	staffGroup.DELETE("/tables/:id", handler.handleDeleteTable)

	return router, nil
}

type httpHandler struct {
	sessions     SessionValidator
	tenants      TenantResolver
	reservations *reservations.Service
	venue        *venue.Service
	realtime     *realtime.Dispatcher
	metrics      *metrics.Recorder
	limiter      *clientLimiter
	heartbeat    time.Duration
	logger       *zap.Logger
}

// corsMiddleware sends cookies cross-origin only to configured origins. Without any, every
// origin may call with a bearer token but browsers withhold the session cookie.
func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type", "Cache-Control", "Last-Event-ID"},
		MaxAge:       12 * time.Hour,
	}
	if len(allowedOrigins) == 0 {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = allowedOrigins
		config.AllowCredentials = true
	}
	return cors.New(config)
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	claims, err := h.sessions.ValidateRequest(c.Request)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredSessionToken) || errors.Is(err, jwt.ErrTokenExpired) || errors.Is(err, auth.ErrMissingSessionToken) {
			h.logger.Info("token validation failed", zap.Error(err))
		} else {
			h.logger.Warn("token validation failed", zap.Error(err))
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	tenantID, err := h.tenants.ResolveTenant(c.Request.Context(), claims)
	if err != nil {
		h.logger.Warn("tenant resolution failed", zap.String("user_id", claims.UserID), zap.Error(err))
		h.respondError(c, err)
		return
	}
	c.Set(userIDContextKey, claims.UserID)
	c.Set(tenantIDContextKey, tenantID.String())
	c.Next()
}

func (h *httpHandler) limitBookings(c *gin.Context) {
	if h.limiter.Allow(c.ClientIP()) {
		c.Next()
		return
	}
	if h.metrics != nil {
		h.metrics.RateLimited()
	}
	h.logger.Info("booking rate limited", zap.String("client_ip", c.ClientIP()))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited"})
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *httpHandler) tenantFromContext(c *gin.Context) (venue.TenantID, bool) {
	tenantID, err := venue.NewTenantID(c.GetString(tenantIDContextKey))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return "", false
	}
	return tenantID, true
}

// respondError maps service error categories onto HTTP statuses.
func (h *httpHandler) respondError(c *gin.Context, err error) {
	status := statusForError(err)
	body := gin.H{"error": "internal_error"}
	if serviceErr, ok := apperr.As(err); ok {
		body = gin.H{"error": serviceErr.Reason(), "code": serviceErr.Code()}
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	c.AbortWithStatusJSON(status, body)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrTransient):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
