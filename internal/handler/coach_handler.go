package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/account-academy/backoffice-api/internal/models"
	"github.com/account-academy/backoffice-api/internal/service"
	appErrors "github.com/account-academy/backoffice-api/pkg/errors"
	"github.com/account-academy/backoffice-api/pkg/response"
)

// CoachHandler handles coach endpoints.
type CoachHandler struct {
	service *service.CoachService
	metrics *service.MetricsService
}

// NewCoachHandler constructs a coach handler.
func NewCoachHandler(svc *service.CoachService, metrics *service.MetricsService) *CoachHandler {
	return &CoachHandler{service: svc, metrics: metrics}
}

// List returns coaches matching the query filters.
func (h *CoachHandler) List(c *gin.Context) {
	var filter models.CoachFilter
	if raw := c.Query("coach_type"); raw != "" {
		coachType := models.CoachType(raw)
		filter.CoachType = &coachType
	}
	if raw := c.Query("active"); raw != "" {
		if active, err := strconv.ParseBool(raw); err == nil {
			filter.Active = &active
		}
	}
	filter.Search = strings.TrimSpace(c.Query("search"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}

	coaches, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, coaches, pagination)
}

// Get returns a coach by id.
func (h *CoachHandler) Get(c *gin.Context) {
	coach, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, coach, nil)
}

// Create registers a new coach.
func (h *CoachHandler) Create(c *gin.Context) {
	var req service.CreateCoachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.CreatedBy = currentUserID(c)
	coach, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, coach)
}

// Update modifies a coach, optionally replacing its assignment set.
func (h *CoachHandler) Update(c *gin.Context) {
	var req service.UpdateCoachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	coach, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if req.AssignedStudents != nil {
		h.metrics.RecordAssignmentOperation()
	}
	response.JSON(c, http.StatusOK, coach, nil)
}

// AssignStudents replaces the coach's assignment set.
func (h *CoachHandler) AssignStudents(c *gin.Context) {
	var req service.AssignStudentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	coach, err := h.service.AssignStudents(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordAssignmentOperation()
	response.JSONMessage(c, http.StatusOK, coach, "Students assigned successfully")
}

// Delete removes a coach without assigned students.
func (h *CoachHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
