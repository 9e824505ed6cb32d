package reports

// ProfitLoss is the income statement for one fiscal year.
type ProfitLoss struct {
	Year            int            `json:"year"`
	Revenue         RevenueSection `json:"revenue"`
	COGS            COGSSection    `json:"cogs"`
	GrossProfit     int64          `json:"gross_profit"`
	Expenses        ExpenseSection `json:"expenses"`
	OperatingIncome int64          `json:"operating_income"`
}

type RevenueSection struct {
	Total   int64            `json:"total"`
	Details map[string]int64 `json:"details"`
}

// COGSSection is opening stock + purchases − closing stock.
type COGSSection struct {
	Total            int64 `json:"total"`
	OpeningInventory int64 `json:"opening_inventory"`
	Purchases        int64 `json:"purchases"`
	ClosingInventory int64 `json:"closing_inventory"`
}

type ExpenseSection struct {
	Total   int64            `json:"total"`
	Details map[string]int64 `json:"details"`
}

// BalanceSheet is the as-of-Dec-31 statement. Borrowings absorb the
// balancing plug; Plug reports how much was absorbed.
type BalanceSheet struct {
	Year        int           `json:"year"`
	Assets      AssetsSide    `json:"assets"`
	Liabilities Liabilities   `json:"liabilities"`
	Equity      EquitySection `json:"equity"`
	NetAssets   int64         `json:"net_assets"`
	Plug        int64         `json:"plug"`
}

type AssetsSide struct {
	Cash        int64 `json:"cash"`
	Deposits    int64 `json:"deposits"`
	Receivables int64 `json:"receivables"`
	Inventory   int64 `json:"inventory"`
	FixedAssets int64 `json:"fixed_assets"`
	Drawings    int64 `json:"drawings"`
	Total       int64 `json:"total"`
}

type Liabilities struct {
	Payables   int64 `json:"payables"`
	Borrowings int64 `json:"borrowings"`
	Total      int64 `json:"total"`
}

type EquitySection struct {
	Capital       int64 `json:"capital"`
	CurrentIncome int64 `json:"current_income"`
	Total         int64 `json:"total"`
}

// MonthlySummary is the blue return page-2 table: twelve buckets of
// sales, household consumption, miscellaneous income and purchases.
type MonthlySummary struct {
	Year   int           `json:"year"`
	Months []MonthlyRow  `json:"summary"`
	Totals MonthlyTotals `json:"totals"`
}

type MonthlyRow struct {
	Month            int   `json:"month"`
	Sales            int64 `json:"sales"`
	HouseConsumption int64 `json:"house_consumption"`
	MiscIncome       int64 `json:"misc_income"`
	Purchases        int64 `json:"purchases"`
}

type MonthlyTotals struct {
	Sales            int64 `json:"sales"`
	HouseConsumption int64 `json:"house_consumption"`
	MiscIncome       int64 `json:"misc_income"`
	Purchases        int64 `json:"purchases"`
}

// SummaryStats are the dashboard KPIs: gross-principle income and
// expense, estimated consumption tax and pending platform payouts.
type SummaryStats struct {
	Year         int                `json:"year"`
	Income       int64              `json:"income"`
	Expenses     int64              `json:"expenses"`
	Profit       int64              `json:"profit"`
	TaxLiability int64              `json:"tax_liability"`
	Receivables  PendingReceivables `json:"receivables"`
}

type PendingReceivables struct {
	BySource map[string]int64 `json:"by_source"`
	Total    int64            `json:"total"`
}
