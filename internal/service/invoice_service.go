package service

import (
	"context"
	"database/sql"
	"io"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/account-academy/backoffice-api/internal/models"
	"github.com/account-academy/backoffice-api/pkg/csvimport"
	appErrors "github.com/account-academy/backoffice-api/pkg/errors"
)

type invoiceRepository interface {
	List(ctx context.Context, filter models.FinanceFilter) ([]models.Invoice, int, error)
	ListAll(ctx context.Context) ([]models.Invoice, error)
	FindByID(ctx context.Context, id string) (*models.Invoice, error)
	Create(ctx context.Context, invoice *models.Invoice) error
	CreateBatch(ctx context.Context, invoices []models.Invoice) error
	Update(ctx context.Context, invoice *models.Invoice) error
	Delete(ctx context.Context, id string) error
}

// InvoiceRequest holds payload for creating or updating an invoice.
type InvoiceRequest struct {
	Date     string  `json:"date" validate:"required"`
	Amount   float64 `json:"amount"`
	Category string  `json:"category" validate:"required"`
	Business string  `json:"business" validate:"required"`
	Facture  string  `json:"facture"`
	Notes    string  `json:"notes"`
}

// InvoiceService handles booked invoices.
type InvoiceService struct {
	repo      invoiceRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewInvoiceService constructs the invoice service.
func NewInvoiceService(repo invoiceRepository, validate *validator.Validate, logger *zap.Logger) *InvoiceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceService{repo: repo, validator: validate, logger: logger}
}

// List returns invoices and pagination metadata.
func (s *InvoiceService) List(ctx context.Context, filter models.FinanceFilter) ([]models.Invoice, *models.Pagination, error) {
	invoices, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list invoices")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return invoices, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns an invoice by id.
func (s *InvoiceService) Get(ctx context.Context, id string) (*models.Invoice, error) {
	invoice, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "invoice not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load invoice")
	}
	return invoice, nil
}

// Create registers a new invoice.
func (s *InvoiceService) Create(ctx context.Context, createdBy string, req InvoiceRequest) (*models.Invoice, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid invoice payload")
	}
	invoice := invoiceFromRequest(req)
	invoice.CreatedBy = createdBy
	if err := s.repo.Create(ctx, invoice); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create invoice")
	}
	return invoice, nil
}

// Update modifies an existing invoice.
func (s *InvoiceService) Update(ctx context.Context, id string, req InvoiceRequest) (*models.Invoice, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid invoice payload")
	}
	invoice, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	updated := invoiceFromRequest(req)
	updated.ID = invoice.ID
	updated.CreatedBy = invoice.CreatedBy
	updated.CreatedAt = invoice.CreatedAt
	if err := s.repo.Update(ctx, updated); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update invoice")
	}
	return updated, nil
}

// Delete removes an invoice.
func (s *InvoiceService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete invoice")
	}
	return nil
}

// ImportCSV ingests an invoice sheet.
func (s *InvoiceService) ImportCSV(ctx context.Context, createdBy string, r io.Reader) (int, error) {
	rows, err := csvimport.Parse(r, csvimport.DataTypeInvoices)
	if err != nil {
		return 0, err
	}
	invoices := make([]models.Invoice, 0, len(rows))
	for _, row := range rows {
		amount, err := strconv.ParseFloat(row["amount"], 64)
		if err != nil {
			return 0, appErrors.Clone(appErrors.ErrBadFileFormat, "Data is not in proper format")
		}
		invoices = append(invoices, models.Invoice{
			Date:      row["date"],
			Amount:    amount,
			Category:  row["category"],
			Business:  row["business"],
			Facture:   row["facture"],
			Notes:     row["notes"],
			CreatedBy: createdBy,
		})
	}
	if err := s.repo.CreateBatch(ctx, invoices); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to import invoices")
	}
	s.logger.Info("invoices imported", zap.Int("count", len(invoices)))
	return len(invoices), nil
}

func invoiceFromRequest(req InvoiceRequest) *models.Invoice {
	return &models.Invoice{
		Date:     req.Date,
		Amount:   req.Amount,
		Category: req.Category,
		Business: req.Business,
		Facture:  req.Facture,
		Notes:    req.Notes,
	}
}
