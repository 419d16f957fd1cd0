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

type financeRepository interface {
	List(ctx context.Context, filter models.FinanceFilter) ([]models.DailyFinance, int, error)
	ListAll(ctx context.Context) ([]models.DailyFinance, error)
	FindByID(ctx context.Context, id string) (*models.DailyFinance, error)
	Create(ctx context.Context, finance *models.DailyFinance) error
	CreateBatch(ctx context.Context, finances []models.DailyFinance) error
	Update(ctx context.Context, finance *models.DailyFinance) error
	Delete(ctx context.Context, id string) error
}

// DailyFinanceRequest holds payload for creating or updating a daily
// finance row.
type DailyFinanceRequest struct {
	Date       string  `json:"date" validate:"required"`
	Revenue    float64 `json:"revenue"`
	Orders     int     `json:"orders" validate:"min=0"`
	AdSpend    float64 `json:"adSpend"`
	Roas       float64 `json:"roas"`
	Refunds    float64 `json:"refunds"`
	Cog        float64 `json:"cog"`
	ProfitLoss float64 `json:"profitLoss"`
	Margin     float64 `json:"margin"`
}

// FinanceService handles daily store finance records.
type FinanceService struct {
	repo      financeRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFinanceService constructs the finance service.
func NewFinanceService(repo financeRepository, validate *validator.Validate, logger *zap.Logger) *FinanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FinanceService{repo: repo, validator: validate, logger: logger}
}

// List returns daily finances and pagination metadata.
func (s *FinanceService) List(ctx context.Context, filter models.FinanceFilter) ([]models.DailyFinance, *models.Pagination, error) {
	finances, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list daily finances")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return finances, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a daily finance row by id.
func (s *FinanceService) Get(ctx context.Context, id string) (*models.DailyFinance, error) {
	finance, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "daily finance not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load daily finance")
	}
	return finance, nil
}

// Create registers a new daily finance row.
func (s *FinanceService) Create(ctx context.Context, createdBy string, req DailyFinanceRequest) (*models.DailyFinance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid daily finance payload")
	}
	finance := financeFromRequest(req)
	finance.CreatedBy = createdBy
	if err := s.repo.Create(ctx, finance); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create daily finance")
	}
	return finance, nil
}

// Update modifies an existing daily finance row.
func (s *FinanceService) Update(ctx context.Context, id string, req DailyFinanceRequest) (*models.DailyFinance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid daily finance payload")
	}
	finance, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	updated := financeFromRequest(req)
	updated.ID = finance.ID
	updated.CreatedBy = finance.CreatedBy
	updated.CreatedAt = finance.CreatedAt
	if err := s.repo.Update(ctx, updated); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update daily finance")
	}
	return updated, nil
}

// Delete removes a daily finance row.
func (s *FinanceService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete daily finance")
	}
	return nil
}

// ImportCSV ingests a daily finance sheet. Numeric columns that fail to
// parse reject the whole file.
func (s *FinanceService) ImportCSV(ctx context.Context, createdBy string, r io.Reader) (int, error) {
	rows, err := csvimport.Parse(r, csvimport.DataTypeDailyFinances)
	if err != nil {
		return 0, err
	}
	finances := make([]models.DailyFinance, 0, len(rows))
	for _, row := range rows {
		finance := models.DailyFinance{Date: row["date"], CreatedBy: createdBy}
		var convErr error
		finance.Revenue, convErr = parseFloatField(row, "revenue", convErr)
		finance.AdSpend, convErr = parseFloatField(row, "adSpend", convErr)
		finance.Roas, convErr = parseFloatField(row, "roas", convErr)
		finance.Refunds, convErr = parseFloatField(row, "refunds", convErr)
		finance.Cog, convErr = parseFloatField(row, "cog", convErr)
		finance.ProfitLoss, convErr = parseFloatField(row, "profitLoss", convErr)
		finance.Margin, convErr = parseFloatField(row, "margin", convErr)
		if orders, err := strconv.Atoi(row["orders"]); err == nil {
			finance.Orders = orders
		} else {
			convErr = err
		}
		if convErr != nil {
			return 0, appErrors.Clone(appErrors.ErrBadFileFormat, "Data is not in proper format")
		}
		finances = append(finances, finance)
	}
	if err := s.repo.CreateBatch(ctx, finances); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to import daily finances")
	}
	s.logger.Info("daily finances imported", zap.Int("count", len(finances)))
	return len(finances), nil
}

func parseFloatField(row csvimport.Row, field string, previous error) (float64, error) {
	if previous != nil {
		return 0, previous
	}
	value, err := strconv.ParseFloat(row[field], 64)
	if err != nil {
		return 0, err
	}
	return value, nil
}

func financeFromRequest(req DailyFinanceRequest) *models.DailyFinance {
	return &models.DailyFinance{
		Date:       req.Date,
		Revenue:    req.Revenue,
		Orders:     req.Orders,
		AdSpend:    req.AdSpend,
		Roas:       req.Roas,
		Refunds:    req.Refunds,
		Cog:        req.Cog,
		ProfitLoss: req.ProfitLoss,
		Margin:     req.Margin,
	}
}
