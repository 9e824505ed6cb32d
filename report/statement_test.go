package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aoiro-ledger/aoiro-ledger/internal/reports"
)

func TestYenFormatting(t *testing.T) {
	require.Equal(t, "¥0", yen(0))
	require.Equal(t, "¥480", yen(480))
	require.Equal(t, "¥480,000", yen(480_000))
	require.Equal(t, "¥1,234,567", yen(1_234_567))
	require.Equal(t, "¥-90,000", yen(-90_000))
}

func TestProfitLossPageRendersSortedDetails(t *testing.T) {
	pl := reports.ProfitLoss{
		Year: 2024,
		Revenue: reports.RevenueSection{
			Total:   1_005_000,
			Details: map[string]int64{"雑収入": 5_000, "売上高": 1_000_000},
		},
		OperatingIncome: 700_000,
	}
	page := profitLossPage(pl)
	require.Equal(t, "2024年度 損益計算書", page.Title)
	require.Len(t, page.Sections[0].Rows, 2)

	var buf strings.Builder
	require.NoError(t, statementTemplate.Execute(&buf, page))
	html := buf.String()
	require.Contains(t, html, "売上高")
	require.Contains(t, html, "¥1,000,000")
	require.Contains(t, html, "¥700,000")
}

func TestBalanceSheetPageSections(t *testing.T) {
	bs := reports.BalanceSheet{Year: 2024}
	bs.Assets.Cash = 200_000
	bs.Liabilities.Borrowings = -80_000
	bs.Equity.CurrentIncome = 500_000

	page := balanceSheetPage(bs)
	require.Len(t, page.Sections, 3)
	require.Equal(t, "資産の部", page.Sections[0].Title)
	require.Equal(t, "¥-80,000", page.Sections[1].Rows[1].Amount)
}

func TestStatementPageSkipsZeroDetailRows(t *testing.T) {
	rows := sortedRows(map[string]int64{"売上高": 100, "家事消費": 0})
	require.Len(t, rows, 1)
	require.Equal(t, "売上高", rows[0].Label)
}
