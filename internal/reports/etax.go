package reports

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"github.com/aoiro-ledger/aoiro-ledger/internal/ledger"
	"github.com/aoiro-ledger/aoiro-ledger/internal/shared"
)

// ExportType selects which e-Tax form to export.
type ExportType string

const (
	ExportPL      ExportType = "PL"
	ExportBS      ExportType = "BS"
	ExportMonthly ExportType = "MONTHLY"
)

func ParseExportType(s string) (ExportType, error) {
	switch ExportType(s) {
	case ExportPL, ExportBS, ExportMonthly:
		return ExportType(s), nil
	}
	return "", shared.Invalid("type", "must be PL, BS or MONTHLY")
}

// ETaxRow is one line of the import CSV: account name, amount, free
// detail text.
type ETaxRow struct {
	Account string
	Amount  string
	Detail  string
}

// etaxExpenseAccounts are the printed expense lines of the blue return
// form, in form order. Categories outside this list are not exported.
var etaxExpenseAccounts = []string{
	"租税公課",
	"荷造運賃",
	"水道光熱費",
	"旅費交通費",
	"通信費",
	"広告宣伝費",
	"接待交際費",
	"損害保険料",
	"修繕費",
	"消耗品費",
	"減価償却費",
	"福利厚生費",
	"給料賃金",
	"外注工賃",
	"利子割引料",
	"地代家賃",
	"貸倒金",
	"雑費",
}

// ETaxFilename follows the e-Tax bulk import naming convention.
func ETaxFilename(typ ExportType, year int) string {
	return fmt.Sprintf("HOI010_4.0_%s_%d.csv", typ, year)
}

// ETaxRows renders a year's statement as e-Tax import rows.
func (c *Compiler) ETaxRows(ctx context.Context, year int, typ ExportType) ([]ETaxRow, error) {
	switch typ {
	case ExportPL:
		return c.etaxProfitLoss(ctx, year)
	case ExportBS:
		return c.etaxBalanceSheet(ctx, year)
	case ExportMonthly:
		return c.etaxMonthly(ctx, year)
	}
	return nil, shared.Invalid("type", "must be PL, BS or MONTHLY")
}

func (c *Compiler) etaxProfitLoss(ctx context.Context, year int) ([]ETaxRow, error) {
	pl, err := c.ProfitLoss(ctx, year)
	if err != nil {
		return nil, err
	}

	var rows []ETaxRow
	// Sales is always printed, even at zero.
	rows = append(rows, amountRow(ledger.CategorySales, pl.Revenue.Details[ledger.CategorySales]))
	for _, category := range []string{ledger.CategoryHouseConsumption, ledger.CategoryMiscIncome} {
		if v := pl.Revenue.Details[category]; v != 0 {
			rows = append(rows, amountRow(category, v))
		}
	}

	rows = append(rows,
		amountRow("期首商品棚卸高", pl.COGS.OpeningInventory),
		amountRow("仕入金額", pl.COGS.Purchases),
		amountRow("期末商品棚卸高", pl.COGS.ClosingInventory),
	)

	// Platform fees withheld from payouts count as paid commission
	// under the gross principle, on top of fee rows booked directly.
	incomeFees, err := c.stats.IncomeFees(ctx, year)
	if err != nil {
		return nil, err
	}
	fees := pl.Expenses.Details[ledger.CategoryCommissionFee] + incomeFees

	for _, account := range etaxExpenseAccounts {
		if v := pl.Expenses.Details[account]; v > 0 {
			rows = append(rows, amountRow(account, v))
		}
	}
	if fees > 0 {
		rows = append(rows, amountRow(ledger.CategoryCommissionFee, fees))
	}
	return rows, nil
}

func (c *Compiler) etaxBalanceSheet(ctx context.Context, year int) ([]ETaxRow, error) {
	bs, err := c.BalanceSheet(ctx, year)
	if err != nil {
		return nil, err
	}
	return []ETaxRow{
		amountRow("現金", bs.Assets.Cash),
		amountRow("普通預金", bs.Assets.Deposits),
		amountRow("売掛金", bs.Assets.Receivables),
		amountRow("棚卸資産", bs.Assets.Inventory),
		amountRow("工具器具備品", bs.Assets.FixedAssets),
		amountRow("事業主貸", bs.Assets.Drawings),
		amountRow("未払金", bs.Liabilities.Payables),
		amountRow("事業主借", bs.Liabilities.Borrowings),
		amountRow("元入金", bs.Equity.Capital),
		amountRow("青色申告特別控除前の所得金額", bs.Equity.CurrentIncome),
	}, nil
}

func (c *Compiler) etaxMonthly(ctx context.Context, year int) ([]ETaxRow, error) {
	summary, err := c.MonthlySummary(ctx, year)
	if err != nil {
		return nil, err
	}
	rows := []ETaxRow{{Account: "月", Amount: "売上金額", Detail: "家事消費,雑収入,仕入金額"}}
	for _, m := range summary.Months {
		rows = append(rows, ETaxRow{
			Account: fmt.Sprintf("%d月", m.Month),
			Amount:  strconv.FormatInt(m.Sales, 10),
			Detail:  monthlyDetail(m.HouseConsumption, m.MiscIncome, m.Purchases),
		})
	}
	totals := summary.Totals
	rows = append(rows, ETaxRow{
		Account: "合計",
		Amount:  strconv.FormatInt(totals.Sales, 10),
		Detail:  monthlyDetail(totals.HouseConsumption, totals.MiscIncome, totals.Purchases),
	})
	return rows, nil
}

func amountRow(account string, amount int64) ETaxRow {
	return ETaxRow{Account: account, Amount: strconv.FormatInt(amount, 10)}
}

func monthlyDetail(house, misc, purchases int64) string {
	return fmt.Sprintf("家事:%d, 雑:%d, 仕入:%d", house, misc, purchases)
}

// WriteETaxCSV writes rows as Shift_JIS CSV, the encoding the e-Tax
// importer expects. No BOM, no header row.
func WriteETaxCSV(w io.Writer, rows []ETaxRow) error {
	enc := transform.NewWriter(w, japanese.ShiftJIS.NewEncoder())
	cw := csv.NewWriter(enc)
	for _, row := range rows {
		record := []string{
			sanitizeField(row.Account),
			row.Amount,
			sanitizeField(row.Detail),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return enc.Close()
}

func sanitizeField(s string) string {
	s = strings.NewReplacer("\r", "", "\n", "").Replace(s)
	return strings.TrimSpace(s)
}
