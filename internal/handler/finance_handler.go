package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/account-academy/backoffice-api/internal/service"
	appErrors "github.com/account-academy/backoffice-api/pkg/errors"
	"github.com/account-academy/backoffice-api/pkg/response"
)

// FinanceHandler handles daily store finance endpoints.
type FinanceHandler struct {
	service *service.FinanceService
}

// NewFinanceHandler constructs a finance handler.
func NewFinanceHandler(svc *service.FinanceService) *FinanceHandler {
	return &FinanceHandler{service: svc}
}

// List returns daily finance records matching the query filters.
func (h *FinanceHandler) List(c *gin.Context) {
	finances, pagination, err := h.service.List(c.Request.Context(), financeFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, finances, pagination)
}

// Get returns a daily finance record by id.
func (h *FinanceHandler) Get(c *gin.Context) {
	finance, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, finance, nil)
}

// Create registers a daily finance record.
func (h *FinanceHandler) Create(c *gin.Context) {
	var req service.DailyFinanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	finance, err := h.service.Create(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, finance)
}

// Update modifies a daily finance record.
func (h *FinanceHandler) Update(c *gin.Context) {
	var req service.DailyFinanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	finance, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, finance, nil)
}

// Delete removes a daily finance record.
func (h *FinanceHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Import ingests a CSV upload of daily finances.
func (h *FinanceHandler) Import(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrBadFileFormat, "missing file upload"))
		return
	}
	defer file.Close()

	count, err := h.service.ImportCSV(c.Request.Context(), currentUserID(c), file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSONMessage(c, http.StatusOK, gin.H{"imported": count}, "Import completed successfully")
}
