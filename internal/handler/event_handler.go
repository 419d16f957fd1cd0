package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/account-academy/backoffice-api/internal/models"
	"github.com/account-academy/backoffice-api/internal/service"
	appErrors "github.com/account-academy/backoffice-api/pkg/errors"
	"github.com/account-academy/backoffice-api/pkg/response"
)

// EventHandler handles scheduling endpoints.
type EventHandler struct {
	service *service.EventService
}

// NewEventHandler constructs an event handler.
func NewEventHandler(svc *service.EventService) *EventHandler {
	return &EventHandler{service: svc}
}

// List returns events matching the query filters.
func (h *EventHandler) List(c *gin.Context) {
	var filter models.EventFilter
	filter.OwnerID = c.Query("owner")
	if raw := c.Query("from"); raw != "" {
		if from, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.From = &from
		}
	}
	if raw := c.Query("to"); raw != "" {
		if to, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.To = &to
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}

	events, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, pagination)
}

// Get returns an event by id.
func (h *EventHandler) Get(c *gin.Context) {
	event, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event, nil)
}

// Create schedules a new event owned by the caller.
func (h *EventHandler) Create(c *gin.Context) {
	var req service.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.OwnerID = currentUserID(c)
	event, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, event)
}

// Update reschedules an event. Only the owner or an admin may change it.
func (h *EventHandler) Update(c *gin.Context) {
	var req service.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.requireOwnership(c); err != nil {
		response.Error(c, err)
		return
	}
	event, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event, nil)
}

// Delete cancels an event. Only the owner or an admin may cancel it.
func (h *EventHandler) Delete(c *gin.Context) {
	if err := h.requireOwnership(c); err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *EventHandler) requireOwnership(c *gin.Context) error {
	claims := claimsFromContext(c)
	if claims == nil || claims.Role == models.RoleAdmin {
		return nil
	}
	event, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		return err
	}
	if event.OwnerID != claims.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the event owner may modify it")
	}
	return nil
}
