package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/account-academy/backoffice-api/internal/service"
	appErrors "github.com/account-academy/backoffice-api/pkg/errors"
	"github.com/account-academy/backoffice-api/pkg/response"
)

// InvoiceHandler handles booked invoice endpoints.
type InvoiceHandler struct {
	service *service.InvoiceService
}

// NewInvoiceHandler constructs an invoice handler.
func NewInvoiceHandler(svc *service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{service: svc}
}

// List returns invoices matching the query filters.
func (h *InvoiceHandler) List(c *gin.Context) {
	invoices, pagination, err := h.service.List(c.Request.Context(), financeFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invoices, pagination)
}

// Get returns an invoice by id.
func (h *InvoiceHandler) Get(c *gin.Context) {
	invoice, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invoice, nil)
}

// Create books an invoice.
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req service.InvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	invoice, err := h.service.Create(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, invoice)
}

// Update modifies an invoice.
func (h *InvoiceHandler) Update(c *gin.Context) {
	var req service.InvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	invoice, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, invoice, nil)
}

// Delete removes an invoice.
func (h *InvoiceHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Import ingests a CSV upload of invoices.
func (h *InvoiceHandler) Import(c *gin.Context) {
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
