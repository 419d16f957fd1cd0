package models

import "time"

// Product is a researched dropshipping product record.
type Product struct {
	ID             string    `db:"id" json:"id"`
	ProductName    string    `db:"product_name" json:"productName"`
	RunDate        string    `db:"run_date" json:"runDate"`
	Ber            string    `db:"ber" json:"ber"`
	Status         string    `db:"status" json:"status"`
	ResearchMethod string    `db:"research_method" json:"researchMethod"`
	Category       string    `db:"category" json:"category"`
	VerkoopPrijs   string    `db:"verkoop_prijs" json:"verkoopPrijs"`
	Link           string    `db:"link" json:"link"`
	Prijs          string    `db:"prijs" json:"prijs"`
	Land           string    `db:"land" json:"land"`
	Video1         string    `db:"video1" json:"video1"`
	Btw            string    `db:"btw" json:"btw"`
	MergeExBtw     string    `db:"merge_ex_btw" json:"mergeExBtw"`
	MergeInBtw     string    `db:"merge_in_btw" json:"mergeInBtw"`
	AvatarURL      string    `db:"avatar_url" json:"avatarUrl"`
	CreatedBy      string    `db:"created_by" json:"created_by"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// DailyFinance is one day of aggregated store finances.
type DailyFinance struct {
	ID         string    `db:"id" json:"id"`
	Date       string    `db:"date" json:"date"`
	Revenue    float64   `db:"revenue" json:"revenue"`
	Orders     int       `db:"orders" json:"orders"`
	AdSpend    float64   `db:"ad_spend" json:"adSpend"`
	Roas       float64   `db:"roas" json:"roas"`
	Refunds    float64   `db:"refunds" json:"refunds"`
	Cog        float64   `db:"cog" json:"cog"`
	ProfitLoss float64   `db:"profit_loss" json:"profitLoss"`
	Margin     float64   `db:"margin" json:"margin"`
	CreatedBy  string    `db:"created_by" json:"created_by"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Invoice is a booked expense or income document.
type Invoice struct {
	ID        string    `db:"id" json:"id"`
	Date      string    `db:"date" json:"date"`
	Amount    float64   `db:"amount" json:"amount"`
	Category  string    `db:"category" json:"category"`
	Business  string    `db:"business" json:"business"`
	Facture   string    `db:"facture" json:"facture"`
	Notes     string    `db:"notes" json:"notes"`
	CreatedBy string    `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// FinanceFilter captures list filters shared by the finance collections.
type FinanceFilter struct {
	Search   string
	FromDate string
	ToDate   string
	Page     int
	PageSize int
}

// DashboardSummary is the cached back-office landing rollup.
type DashboardSummary struct {
	TotalStudents  int       `json:"total_students"`
	TotalCoaches   int       `json:"total_coaches"`
	TotalCourses   int       `json:"total_courses"`
	TotalRevenue   float64   `json:"total_revenue"`
	TotalAdSpend   float64   `json:"total_ad_spend"`
	TotalProfit    float64   `json:"total_profit"`
	InvoiceExpense float64   `json:"invoice_expense"`
	GeneratedAt    time.Time `json:"generated_at"`
}
