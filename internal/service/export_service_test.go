package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/account-academy/backoffice-api/internal/models"
	"github.com/account-academy/backoffice-api/pkg/csvimport"
	appErrors "github.com/account-academy/backoffice-api/pkg/errors"
	"github.com/account-academy/backoffice-api/pkg/storage"
)

type stubProductRepo struct{ products []models.Product }

func (s stubProductRepo) List(ctx context.Context, filter models.FinanceFilter) ([]models.Product, int, error) {
	return s.products, len(s.products), nil
}
func (s stubProductRepo) ListAll(ctx context.Context) ([]models.Product, error) {
	return s.products, nil
}
func (s stubProductRepo) FindByID(ctx context.Context, id string) (*models.Product, error) {
	return nil, appErrors.ErrNotFound
}
func (s stubProductRepo) Create(ctx context.Context, product *models.Product) error     { return nil }
func (s stubProductRepo) CreateBatch(ctx context.Context, products []models.Product) error {
	return nil
}
func (s stubProductRepo) Update(ctx context.Context, product *models.Product) error { return nil }
func (s stubProductRepo) Delete(ctx context.Context, id string) error               { return nil }

type stubFinanceRepo struct{ finances []models.DailyFinance }

func (s stubFinanceRepo) List(ctx context.Context, filter models.FinanceFilter) ([]models.DailyFinance, int, error) {
	return s.finances, len(s.finances), nil
}
func (s stubFinanceRepo) ListAll(ctx context.Context) ([]models.DailyFinance, error) {
	return s.finances, nil
}
func (s stubFinanceRepo) FindByID(ctx context.Context, id string) (*models.DailyFinance, error) {
	return nil, appErrors.ErrNotFound
}
func (s stubFinanceRepo) Create(ctx context.Context, finance *models.DailyFinance) error { return nil }
func (s stubFinanceRepo) CreateBatch(ctx context.Context, finances []models.DailyFinance) error {
	return nil
}
func (s stubFinanceRepo) Update(ctx context.Context, finance *models.DailyFinance) error { return nil }
func (s stubFinanceRepo) Delete(ctx context.Context, id string) error                    { return nil }

type stubInvoiceRepo struct{ invoices []models.Invoice }

func (s stubInvoiceRepo) List(ctx context.Context, filter models.FinanceFilter) ([]models.Invoice, int, error) {
	return s.invoices, len(s.invoices), nil
}
func (s stubInvoiceRepo) ListAll(ctx context.Context) ([]models.Invoice, error) {
	return s.invoices, nil
}
func (s stubInvoiceRepo) FindByID(ctx context.Context, id string) (*models.Invoice, error) {
	return nil, appErrors.ErrNotFound
}
func (s stubInvoiceRepo) Create(ctx context.Context, invoice *models.Invoice) error     { return nil }
func (s stubInvoiceRepo) CreateBatch(ctx context.Context, invoices []models.Invoice) error {
	return nil
}
func (s stubInvoiceRepo) Update(ctx context.Context, invoice *models.Invoice) error { return nil }
func (s stubInvoiceRepo) Delete(ctx context.Context, id string) error               { return nil }

func newExportServiceForTest(t *testing.T) *ExportService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("export-test-secret", time.Hour)

	finances := []models.DailyFinance{
		{Date: "2026-01-01", Revenue: 1200.50, Orders: 14, AdSpend: 300, Roas: 4, ProfitLoss: 620.25, Margin: 51.7},
		{Date: "2026-01-02", Revenue: 980, Orders: 9, AdSpend: 250, Roas: 3.9, ProfitLoss: 410, Margin: 41.8},
	}
	invoices := []models.Invoice{
		{Date: "2026-01-05", Amount: 199.99, Category: "software", Business: "Acme BV", Facture: "F-001"},
	}
	return NewExportService(stubProductRepo{}, stubFinanceRepo{finances: finances}, stubInvoiceRepo{invoices: invoices}, store, signer, zap.NewNop())
}

func TestExportServiceGenerateCSVAndDownload(t *testing.T) {
	svc := newExportServiceForTest(t)

	result, err := svc.Generate(context.Background(), csvimport.DataTypeDailyFinances, ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Rows)
	assert.Equal(t, ExportFormatCSV, result.Format)
	assert.True(t, strings.HasSuffix(result.FileName, ".csv"))
	assert.True(t, result.ExpiresAt.After(time.Now()))

	file, name, err := svc.Open(result.Token)
	require.NoError(t, err)
	defer file.Close()
	assert.Equal(t, result.FileName, name)

	data, err := io.ReadAll(file)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "date,revenue,orders")
	assert.Contains(t, content, "2026-01-01,1200.5,14")
	assert.Contains(t, content, "2026-01-02,980,9")
}

func TestExportServiceGeneratePDF(t *testing.T) {
	svc := newExportServiceForTest(t)

	result, err := svc.Generate(context.Background(), csvimport.DataTypeInvoices, ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Rows)
	assert.True(t, strings.HasSuffix(result.FileName, ".pdf"))

	file, _, err := svc.Open(result.Token)
	require.NoError(t, err)
	defer file.Close()

	header := make([]byte, 4)
	_, err = io.ReadFull(file, header)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(header))
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	svc := newExportServiceForTest(t)

	_, err := svc.Generate(context.Background(), csvimport.DataTypeProducts, ExportFormat("xlsx"))
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestExportServiceOpenRejectsTamperedToken(t *testing.T) {
	svc := newExportServiceForTest(t)

	result, err := svc.Generate(context.Background(), csvimport.DataTypeDailyFinances, ExportFormatCSV)
	require.NoError(t, err)

	_, _, err = svc.Open(result.Token + "x")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized))
}
