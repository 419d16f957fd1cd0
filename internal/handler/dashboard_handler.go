package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/account-academy/backoffice-api/internal/service"
	"github.com/account-academy/backoffice-api/pkg/response"
)

// DashboardHandler serves the cached back-office landing rollup.
type DashboardHandler struct {
	service *service.DashboardService
}

// NewDashboardHandler constructs a dashboard handler.
func NewDashboardHandler(svc *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: svc}
}

// Summary returns headline counts and finance totals.
func (h *DashboardHandler) Summary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
