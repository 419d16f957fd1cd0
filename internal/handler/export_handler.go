package handler

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/account-academy/backoffice-api/internal/service"
	"github.com/account-academy/backoffice-api/pkg/csvimport"
	appErrors "github.com/account-academy/backoffice-api/pkg/errors"
	"github.com/account-academy/backoffice-api/pkg/response"
)

// ExportHandler handles finance export generation and signed downloads.
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler constructs an export handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Generate renders the requested collection to CSV or PDF and returns a
// download token.
func (h *ExportHandler) Generate(c *gin.Context) {
	dataType := csvimport.DataType(c.Query("type"))
	switch dataType {
	case csvimport.DataTypeProducts, csvimport.DataTypeDailyFinances, csvimport.DataTypeInvoices:
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown export type"))
		return
	}

	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	if format != service.ExportFormatCSV && format != service.ExportFormatPDF {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown export format"))
		return
	}

	result, err := h.service.Generate(c.Request.Context(), dataType, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Download streams a previously generated export. The token in the query
// string authorizes the request, no session is required.
func (h *ExportHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "missing download token"))
		return
	}

	file, name, err := h.service.Open(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	c.FileAttachment(file.Name(), filepath.Base(name))
}
