package service

import (
	"context"
	"database/sql"
	"io"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/account-academy/backoffice-api/internal/models"
	"github.com/account-academy/backoffice-api/pkg/csvimport"
	appErrors "github.com/account-academy/backoffice-api/pkg/errors"
)

type productRepository interface {
	List(ctx context.Context, filter models.FinanceFilter) ([]models.Product, int, error)
	ListAll(ctx context.Context) ([]models.Product, error)
	FindByID(ctx context.Context, id string) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	CreateBatch(ctx context.Context, products []models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id string) error
}

// ProductRequest holds payload for creating or updating a product.
type ProductRequest struct {
	ProductName    string `json:"productName" validate:"required"`
	RunDate        string `json:"runDate"`
	Ber            string `json:"ber"`
	Status         string `json:"status"`
	ResearchMethod string `json:"researchMethod"`
	Category       string `json:"category"`
	VerkoopPrijs   string `json:"verkoopPrijs"`
	Link           string `json:"link"`
	Prijs          string `json:"prijs"`
	Land           string `json:"land"`
	Video1         string `json:"video1"`
	Btw            string `json:"btw"`
	MergeExBtw     string `json:"mergeExBtw"`
	MergeInBtw     string `json:"mergeInBtw"`
	AvatarURL      string `json:"avatarUrl"`
}

// ProductService handles product research records.
type ProductService struct {
	repo      productRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProductService constructs the product service.
func NewProductService(repo productRepository, validate *validator.Validate, logger *zap.Logger) *ProductService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductService{repo: repo, validator: validate, logger: logger}
}

// List returns products and pagination metadata.
func (s *ProductService) List(ctx context.Context, filter models.FinanceFilter) ([]models.Product, *models.Pagination, error) {
	products, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list products")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return products, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a product by id.
func (s *ProductService) Get(ctx context.Context, id string) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "product not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load product")
	}
	return product, nil
}

// Create registers a new product.
func (s *ProductService) Create(ctx context.Context, createdBy string, req ProductRequest) (*models.Product, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid product payload")
	}
	product := productFromRequest(req)
	product.CreatedBy = createdBy
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create product")
	}
	return product, nil
}

// Update modifies an existing product.
func (s *ProductService) Update(ctx context.Context, id string, req ProductRequest) (*models.Product, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid product payload")
	}
	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	updated := productFromRequest(req)
	updated.ID = product.ID
	updated.CreatedBy = product.CreatedBy
	updated.CreatedAt = product.CreatedAt
	if err := s.repo.Update(ctx, updated); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update product")
	}
	return updated, nil
}

// Delete removes a product.
func (s *ProductService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete product")
	}
	return nil
}

// ImportCSV ingests a product sheet. The whole file is rejected when any row
// misses a required column, and the insert itself is transactional.
func (s *ProductService) ImportCSV(ctx context.Context, createdBy string, r io.Reader) (int, error) {
	rows, err := csvimport.Parse(r, csvimport.DataTypeProducts)
	if err != nil {
		return 0, err
	}
	products := make([]models.Product, 0, len(rows))
	for _, row := range rows {
		products = append(products, models.Product{
			ProductName:    row["productName"],
			RunDate:        row["runDate"],
			Ber:            row["ber"],
			Status:         row["status"],
			ResearchMethod: row["researchMethod"],
			Category:       row["category"],
			VerkoopPrijs:   row["verkoopPrijs"],
			Link:           row["link"],
			Prijs:          row["prijs"],
			Land:           row["land"],
			Video1:         row["video1"],
			Btw:            row["btw"],
			MergeExBtw:     row["mergeExBtw"],
			MergeInBtw:     row["mergeInBtw"],
			AvatarURL:      row["avatarUrl"],
			CreatedBy:      createdBy,
		})
	}
	if err := s.repo.CreateBatch(ctx, products); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to import products")
	}
	s.logger.Info("products imported", zap.Int("count", len(products)))
	return len(products), nil
}

func productFromRequest(req ProductRequest) *models.Product {
	return &models.Product{
		ProductName:    req.ProductName,
		RunDate:        req.RunDate,
		Ber:            req.Ber,
		Status:         req.Status,
		ResearchMethod: req.ResearchMethod,
		Category:       req.Category,
		VerkoopPrijs:   req.VerkoopPrijs,
		Link:           req.Link,
		Prijs:          req.Prijs,
		Land:           req.Land,
		Video1:         req.Video1,
		Btw:            req.Btw,
		MergeExBtw:     req.MergeExBtw,
		MergeInBtw:     req.MergeInBtw,
		AvatarURL:      req.AvatarURL,
	}
}
