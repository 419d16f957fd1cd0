package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/account-academy/backoffice-api/pkg/csvimport"
	appErrors "github.com/account-academy/backoffice-api/pkg/errors"
	"github.com/account-academy/backoffice-api/pkg/export"
	"github.com/account-academy/backoffice-api/pkg/storage"
)

// ExportFormat selects the rendered file type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type tableRenderer interface {
	Render(table export.Table) ([]byte, error)
}

type exportStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	FileName  string       `json:"file_name"`
	Token     string       `json:"token"`
	Format    ExportFormat `json:"format"`
	Rows      int          `json:"rows"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// ExportService renders finance collections to downloadable CSV or PDF
// files and hands out signed download tokens.
type ExportService struct {
	products productRepository
	finances financeRepository
	invoices invoiceRepository
	storage  exportStorage
	signer   *storage.SignedURLSigner
	csv      tableRenderer
	pdf      tableRenderer
	logger   *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(products productRepository, finances financeRepository, invoices invoiceRepository, store exportStorage, signer *storage.SignedURLSigner, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		products: products,
		finances: finances,
		invoices: invoices,
		storage:  store,
		signer:   signer,
		csv:      export.NewCSVExporter(),
		pdf:      export.NewPDFExporter(),
		logger:   logger,
	}
}

// Generate renders the requested collection and stores the file. The
// returned token authorizes the download until it expires.
func (s *ExportService) Generate(ctx context.Context, dataType csvimport.DataType, format ExportFormat) (*ExportResult, error) {
	table, err := s.buildTable(ctx, dataType)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(table)
	case ExportFormatPDF:
		payload, err = s.pdf.Render(table)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	filename := fmt.Sprintf("%s-%d.%s", dataType, time.Now().UTC().UnixNano(), format)
	if _, err := s.storage.Save(filename, payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}

	token, expiresAt, err := s.signer.Generate(string(dataType), filename)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}

	s.logger.Info("export generated", zap.String("data_type", string(dataType)), zap.String("format", string(format)), zap.Int("rows", len(table.Rows)))
	return &ExportResult{
		FileName:  filename,
		Token:     token,
		Format:    format,
		Rows:      len(table.Rows),
		ExpiresAt: expiresAt,
	}, nil
}

// Open validates the download token and opens the stored file.
func (s *ExportService) Open(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download link")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export file not found")
	}
	return file, relPath, nil
}

func (s *ExportService) buildTable(ctx context.Context, dataType csvimport.DataType) (export.Table, error) {
	switch dataType {
	case csvimport.DataTypeProducts:
		products, err := s.products.ListAll(ctx)
		if err != nil {
			return export.Table{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load products")
		}
		table := export.Table{Title: "Products", Columns: csvimport.RequiredFields(dataType)}
		for _, p := range products {
			table.Append(
				p.ProductName, p.RunDate, p.Ber, p.Status, p.ResearchMethod, p.Category,
				p.VerkoopPrijs, p.Link, p.Prijs, p.Land, p.Video1, p.Btw, p.MergeExBtw,
				p.MergeInBtw, p.AvatarURL,
			)
		}
		return table, nil

	case csvimport.DataTypeDailyFinances:
		finances, err := s.finances.ListAll(ctx)
		if err != nil {
			return export.Table{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load daily finances")
		}
		table := export.Table{Title: "Daily Finances", Columns: csvimport.RequiredFields(dataType)}
		for _, f := range finances {
			table.Append(
				f.Date, formatFloat(f.Revenue), strconv.Itoa(f.Orders), formatFloat(f.AdSpend),
				formatFloat(f.Roas), formatFloat(f.Refunds), formatFloat(f.Cog),
				formatFloat(f.ProfitLoss), formatFloat(f.Margin),
			)
		}
		return table, nil

	case csvimport.DataTypeInvoices:
		invoices, err := s.invoices.ListAll(ctx)
		if err != nil {
			return export.Table{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load invoices")
		}
		table := export.Table{Title: "Invoices", Columns: csvimport.RequiredFields(dataType)}
		for _, inv := range invoices {
			table.Append(
				inv.Date, formatFloat(inv.Amount), inv.Category, inv.Business, inv.Facture, inv.Notes,
			)
		}
		return table, nil

	default:
		return export.Table{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown data type %q", dataType))
	}
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
