package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/account-academy/backoffice-api/internal/models"
)

const dailyFinanceColumns = `id, date, revenue, orders, ad_spend, roas, refunds, cog, profit_loss, margin, created_by, created_at, updated_at`

// FinanceRepository manages persistence for daily finance records.
type FinanceRepository struct {
	db *sqlx.DB
}

// NewFinanceRepository constructs a FinanceRepository.
func NewFinanceRepository(db *sqlx.DB) *FinanceRepository {
	return &FinanceRepository{db: db}
}

// List returns daily finance rows matching the filter plus the total count.
func (r *FinanceRepository) List(ctx context.Context, filter models.FinanceFilter) ([]models.DailyFinance, int, error) {
	base := "FROM daily_finances WHERE 1=1"
	var args []interface{}

	if filter.FromDate != "" {
		base += fmt.Sprintf(" AND date >= $%d", len(args)+1)
		args = append(args, filter.FromDate)
	}
	if filter.ToDate != "" {
		base += fmt.Sprintf(" AND date <= $%d", len(args)+1)
		args = append(args, filter.ToDate)
	}

	_, size, offset := clampPage(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s %s ORDER BY date DESC LIMIT %d OFFSET %d", dailyFinanceColumns, base, size, offset)
	var finances []models.DailyFinance
	if err := r.db.SelectContext(ctx, &finances, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list daily finances: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count daily finances: %w", err)
	}
	return finances, total, nil
}

// ListAll returns every daily finance row, oldest first. Used by the export
// pipeline.
func (r *FinanceRepository) ListAll(ctx context.Context) ([]models.DailyFinance, error) {
	query := fmt.Sprintf("SELECT %s FROM daily_finances ORDER BY date", dailyFinanceColumns)
	var finances []models.DailyFinance
	if err := r.db.SelectContext(ctx, &finances, query); err != nil {
		return nil, fmt.Errorf("list all daily finances: %w", err)
	}
	return finances, nil
}

// FindByID fetches a daily finance row by id.
func (r *FinanceRepository) FindByID(ctx context.Context, id string) (*models.DailyFinance, error) {
	query := fmt.Sprintf("SELECT %s FROM daily_finances WHERE id = $1", dailyFinanceColumns)
	var finance models.DailyFinance
	if err := r.db.GetContext(ctx, &finance, query, id); err != nil {
		return nil, err
	}
	return &finance, nil
}

// Create inserts a new daily finance row.
func (r *FinanceRepository) Create(ctx context.Context, finance *models.DailyFinance) error {
	prepareDailyFinance(finance)
	const query = `INSERT INTO daily_finances (id, date, revenue, orders, ad_spend, roas, refunds, cog, profit_loss, margin, created_by, created_at, updated_at)
		VALUES (:id, :date, :revenue, :orders, :ad_spend, :roas, :refunds, :cog, :profit_loss, :margin, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, finance); err != nil {
		return fmt.Errorf("create daily finance: %w", err)
	}
	return nil
}

// CreateBatch inserts imported rows in one transaction.
func (r *FinanceRepository) CreateBatch(ctx context.Context, finances []models.DailyFinance) error {
	if len(finances) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import daily finances: %w", err)
	}
	defer tx.Rollback()

	const query = `INSERT INTO daily_finances (id, date, revenue, orders, ad_spend, roas, refunds, cog, profit_loss, margin, created_by, created_at, updated_at)
		VALUES (:id, :date, :revenue, :orders, :ad_spend, :roas, :refunds, :cog, :profit_loss, :margin, :created_by, :created_at, :updated_at)`
	for i := range finances {
		prepareDailyFinance(&finances[i])
		if _, err := tx.NamedExecContext(ctx, query, &finances[i]); err != nil {
			return fmt.Errorf("import daily finance: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import daily finances: %w", err)
	}
	return nil
}

// Update modifies an existing daily finance row.
func (r *FinanceRepository) Update(ctx context.Context, finance *models.DailyFinance) error {
	finance.UpdatedAt = time.Now().UTC()
	const query = `UPDATE daily_finances SET date = :date, revenue = :revenue, orders = :orders, ad_spend = :ad_spend, roas = :roas,
		refunds = :refunds, cog = :cog, profit_loss = :profit_loss, margin = :margin, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, finance); err != nil {
		return fmt.Errorf("update daily finance: %w", err)
	}
	return nil
}

// Delete removes a daily finance row.
func (r *FinanceRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM daily_finances WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete daily finance: %w", err)
	}
	return nil
}

// Totals aggregates revenue, ad spend and profit across all rows for the
// dashboard summary.
func (r *FinanceRepository) Totals(ctx context.Context) (revenue, adSpend, profit float64, err error) {
	const query = `SELECT COALESCE(SUM(revenue), 0) AS revenue, COALESCE(SUM(ad_spend), 0) AS ad_spend, COALESCE(SUM(profit_loss), 0) AS profit FROM daily_finances`
	var row struct {
		Revenue float64 `db:"revenue"`
		AdSpend float64 `db:"ad_spend"`
		Profit  float64 `db:"profit"`
	}
	if err := r.db.GetContext(ctx, &row, query); err != nil {
		return 0, 0, 0, fmt.Errorf("sum daily finances: %w", err)
	}
	return row.Revenue, row.AdSpend, row.Profit, nil
}

func prepareDailyFinance(finance *models.DailyFinance) {
	if finance.ID == "" {
		finance.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if finance.CreatedAt.IsZero() {
		finance.CreatedAt = now
	}
	finance.UpdatedAt = now
}
