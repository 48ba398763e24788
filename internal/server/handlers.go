package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/Z3rkRapt0r/gofood-men/backend/internal/reservations"
	"github.com/Z3rkRapt0r/gofood-men/backend/internal/schedule"
	"github.com/Z3rkRapt0r/gofood-men/backend/internal/venue"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func (h *httpHandler) handlePublicSlots(c *gin.Context) {
	tenantID, err := venue.NewTenantID(c.Param("tenant"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_tenant_id"})
		return
	}
	date := c.Query("date")
	slots, err := h.reservations.Slots(c.Request.Context(), tenantID, date)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, slotsResponsePayload{Date: strings.TrimSpace(date), Slots: schedule.Format(slots)})
}

func (h *httpHandler) handleSubmitBooking(c *gin.Context) {
	var request bookingRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	result, err := h.reservations.SubmitBooking(c.Request.Context(), request.toDomain(c.Param("tenant")))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, submitResponsePayload{
		Reservation:        newReservationPayload(result.Reservation),
		Warnings:           newWarningPayloads(result.Warnings),
		NotificationFailed: result.NotificationFailed,
	})
}

func (h *httpHandler) handleListReservations(c *gin.Context) {
	tenantID, ok := h.tenantFromContext(c)
	if !ok {
		return
	}
	list, err := h.reservations.ListReservations(c.Request.Context(), tenantID, c.Query("date"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	response := listResponsePayload{Reservations: make([]reservationPayload, 0, len(list))}
	for _, reservation := range list {
		response.Reservations = append(response.Reservations, newReservationPayload(reservation))
	}
	c.JSON(http.StatusOK, response)
}

func (h *httpHandler) handleReservationAction(c *gin.Context) {
	tenantID, ok := h.tenantFromContext(c)
	if !ok {
		return
	}
	reservationID, err := reservations.NewReservationID(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_reservation_id"})
		return
	}
	action, err := reservations.ParseAction(strings.ToLower(c.Param("action")))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown_action"})
		return
	}
	var request actionRequestPayload
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&request); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
			return
		}
	}

	result, err := h.reservations.Apply(c.Request.Context(), tenantID, reservationID, action, request.TableIDs)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.logger.Info("reservation action applied",
		zap.String("tenant_id", tenantID.String()),
		zap.String("user_id", c.GetString(userIDContextKey)),
		zap.String("reservation_id", reservationID.String()),
		zap.String("action", string(action)))
	c.JSON(http.StatusOK, transitionResponsePayload{
		Reservation:        newReservationPayload(result.Reservation),
		PreviousStatus:     string(result.Previous),
		Warnings:           newWarningPayloads(result.Warnings),
		NotificationFailed: result.NotificationFailed,
	})
}

func (h *httpHandler) handleAvailability(c *gin.Context) {
	tenantID, ok := h.tenantFromContext(c)
	if !ok {
		return
	}
	guests := 0
	if raw := strings.TrimSpace(c.Query("guests")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_guests"})
			return
		}
		guests = parsed
	}
	view, err := h.reservations.Availability(c.Request.Context(), tenantID, c.Query("date"), c.Query("time"), guests)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newAvailabilityPayload(view))
}

func (h *httpHandler) handleOccupancy(c *gin.Context) {
	tenantID, ok := h.tenantFromContext(c)
	if !ok {
		return
	}
	view, err := h.reservations.Occupancy(c.Request.Context(), tenantID, c.Query("date"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newOccupancyPayload(view))
}

func (h *httpHandler) handleGetConfig(c *gin.Context) {
	tenantID, ok := h.tenantFromContext(c)
	if !ok {
		return
	}
	cfg, err := h.venue.LoadConfig(c.Request.Context(), tenantID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newConfigPayload(cfg))
}

func (h *httpHandler) handlePutConfig(c *gin.Context) {
	tenantID, ok := h.tenantFromContext(c)
	if !ok {
		return
	}
	var request configPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	cfg, err := request.toDomain(tenantID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_days_of_week"})
		return
	}
	saved, err := h.venue.SaveConfig(c.Request.Context(), cfg)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newConfigPayload(saved))
}

func (h *httpHandler) handleDeleteTable(c *gin.Context) {
	tenantID, ok := h.tenantFromContext(c)
	if !ok {
		return
	}
	if err := h.venue.DeleteTable(c.Request.Context(), tenantID, c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
