package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/account-academy/backoffice-api/internal/models"
)

const invoiceColumns = `id, date, amount, category, business, facture, notes, created_by, created_at, updated_at`

// InvoiceRepository manages persistence for booked invoices.
type InvoiceRepository struct {
	db *sqlx.DB
}

// NewInvoiceRepository constructs an InvoiceRepository.
func NewInvoiceRepository(db *sqlx.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// List returns invoices matching the filter plus the total count.
func (r *InvoiceRepository) List(ctx context.Context, filter models.FinanceFilter) ([]models.Invoice, int, error) {
	base := "FROM invoices WHERE 1=1"
	var args []interface{}

	if filter.Search != "" {
		base += fmt.Sprintf(" AND (LOWER(business) LIKE $%d OR LOWER(category) LIKE $%d)", len(args)+1, len(args)+1)
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.FromDate != "" {
		base += fmt.Sprintf(" AND date >= $%d", len(args)+1)
		args = append(args, filter.FromDate)
	}
	if filter.ToDate != "" {
		base += fmt.Sprintf(" AND date <= $%d", len(args)+1)
		args = append(args, filter.ToDate)
	}

	_, size, offset := clampPage(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s %s ORDER BY date DESC LIMIT %d OFFSET %d", invoiceColumns, base, size, offset)
	var invoices []models.Invoice
	if err := r.db.SelectContext(ctx, &invoices, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list invoices: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count invoices: %w", err)
	}
	return invoices, total, nil
}

// ListAll returns every invoice, oldest first. Used by the export pipeline.
func (r *InvoiceRepository) ListAll(ctx context.Context) ([]models.Invoice, error) {
	query := fmt.Sprintf("SELECT %s FROM invoices ORDER BY date", invoiceColumns)
	var invoices []models.Invoice
	if err := r.db.SelectContext(ctx, &invoices, query); err != nil {
		return nil, fmt.Errorf("list all invoices: %w", err)
	}
	return invoices, nil
}

// FindByID fetches an invoice by id.
func (r *InvoiceRepository) FindByID(ctx context.Context, id string) (*models.Invoice, error) {
	query := fmt.Sprintf("SELECT %s FROM invoices WHERE id = $1", invoiceColumns)
	var invoice models.Invoice
	if err := r.db.GetContext(ctx, &invoice, query, id); err != nil {
		return nil, err
	}
	return &invoice, nil
}

// Create inserts a new invoice.
func (r *InvoiceRepository) Create(ctx context.Context, invoice *models.Invoice) error {
	prepareInvoice(invoice)
	const query = `INSERT INTO invoices (id, date, amount, category, business, facture, notes, created_by, created_at, updated_at)
		VALUES (:id, :date, :amount, :category, :business, :facture, :notes, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, invoice); err != nil {
		return fmt.Errorf("create invoice: %w", err)
	}
	return nil
}

// CreateBatch inserts imported invoices in one transaction.
func (r *InvoiceRepository) CreateBatch(ctx context.Context, invoices []models.Invoice) error {
	if len(invoices) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import invoices: %w", err)
	}
	defer tx.Rollback()

	const query = `INSERT INTO invoices (id, date, amount, category, business, facture, notes, created_by, created_at, updated_at)
		VALUES (:id, :date, :amount, :category, :business, :facture, :notes, :created_by, :created_at, :updated_at)`
	for i := range invoices {
		prepareInvoice(&invoices[i])
		if _, err := tx.NamedExecContext(ctx, query, &invoices[i]); err != nil {
			return fmt.Errorf("import invoice: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import invoices: %w", err)
	}
	return nil
}

// Update modifies an existing invoice.
func (r *InvoiceRepository) Update(ctx context.Context, invoice *models.Invoice) error {
	invoice.UpdatedAt = time.Now().UTC()
	const query = `UPDATE invoices SET date = :date, amount = :amount, category = :category, business = :business,
		facture = :facture, notes = :notes, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, invoice); err != nil {
		return fmt.Errorf("update invoice: %w", err)
	}
	return nil
}

// Delete removes an invoice.
func (r *InvoiceRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM invoices WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	return nil
}

// TotalExpense sums all invoice amounts for the dashboard summary.
func (r *InvoiceRepository) TotalExpense(ctx context.Context) (float64, error) {
	const query = `SELECT COALESCE(SUM(amount), 0) FROM invoices`
	var total float64
	if err := r.db.GetContext(ctx, &total, query); err != nil {
		return 0, fmt.Errorf("sum invoices: %w", err)
	}
	return total, nil
}

func prepareInvoice(invoice *models.Invoice) {
	if invoice.ID == "" {
		invoice.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if invoice.CreatedAt.IsZero() {
		invoice.CreatedAt = now
	}
	invoice.UpdatedAt = now
}
