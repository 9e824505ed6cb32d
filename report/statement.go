package report

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/aoiro-ledger/aoiro-ledger/internal/platform/httpx"
	"github.com/aoiro-ledger/aoiro-ledger/internal/reports"
	"github.com/aoiro-ledger/aoiro-ledger/internal/shared"
)

// yen renders an amount with thousands separators.
func yen(v int64) string {
	s := strconv.FormatInt(v, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	out := strings.Join(parts, ",")
	if neg {
		out = "-" + out
	}
	return "¥" + out
}

type statementRow struct {
	Label  string
	Amount string
}

type statementSection struct {
	Title string
	Rows  []statementRow
	Total string
}

type statementPage struct {
	Title    string
	Subtitle string
	Sections []statementSection
}

var statementTemplate = template.Must(template.New("statement").Parse(`<!DOCTYPE html>
<html lang="ja">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: "Noto Sans JP", sans-serif; margin: 2.5em; color: #1a1a1a; }
h1 { font-size: 1.4em; border-bottom: 2px solid #1a1a1a; padding-bottom: .3em; }
h2 { font-size: 1.05em; margin-top: 1.6em; }
table { width: 100%; border-collapse: collapse; }
td { padding: .25em .5em; border-bottom: 1px solid #ddd; }
td.amount { text-align: right; font-variant-numeric: tabular-nums; }
tr.total td { border-top: 2px solid #1a1a1a; font-weight: bold; }
.subtitle { color: #555; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p class="subtitle">{{.Subtitle}}</p>
{{range .Sections}}
<h2>{{.Title}}</h2>
<table>
{{range .Rows}}<tr><td>{{.Label}}</td><td class="amount">{{.Amount}}</td></tr>
{{end}}{{if .Total}}<tr class="total"><td>合計</td><td class="amount">{{.Total}}</td></tr>{{end}}
</table>
{{end}}
</body>
</html>
`))

func sortedRows(details map[string]int64) []statementRow {
	keys := make([]string, 0, len(details))
	for k := range details {
		if details[k] == 0 {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rows := make([]statementRow, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, statementRow{Label: k, Amount: yen(details[k])})
	}
	return rows
}

func profitLossPage(pl reports.ProfitLoss) statementPage {
	return statementPage{
		Title:    fmt.Sprintf("%d年度 損益計算書", pl.Year),
		Subtitle: fmt.Sprintf("事業所得 %s", yen(pl.OperatingIncome)),
		Sections: []statementSection{
			{Title: "収入", Rows: sortedRows(pl.Revenue.Details), Total: yen(pl.Revenue.Total)},
			{Title: "売上原価", Rows: []statementRow{
				{Label: "期首商品棚卸高", Amount: yen(pl.COGS.OpeningInventory)},
				{Label: "仕入金額", Amount: yen(pl.COGS.Purchases)},
				{Label: "期末商品棚卸高", Amount: yen(pl.COGS.ClosingInventory)},
			}, Total: yen(pl.COGS.Total)},
			{Title: "経費", Rows: sortedRows(pl.Expenses.Details), Total: yen(pl.Expenses.Total)},
		},
	}
}

func balanceSheetPage(bs reports.BalanceSheet) statementPage {
	return statementPage{
		Title:    fmt.Sprintf("%d年度 貸借対照表", bs.Year),
		Subtitle: fmt.Sprintf("12月31日現在 / 純資産 %s", yen(bs.NetAssets)),
		Sections: []statementSection{
			{Title: "資産の部", Rows: []statementRow{
				{Label: "現金", Amount: yen(bs.Assets.Cash)},
				{Label: "普通預金", Amount: yen(bs.Assets.Deposits)},
				{Label: "売掛金", Amount: yen(bs.Assets.Receivables)},
				{Label: "棚卸資産", Amount: yen(bs.Assets.Inventory)},
				{Label: "工具器具備品", Amount: yen(bs.Assets.FixedAssets)},
				{Label: "事業主貸", Amount: yen(bs.Assets.Drawings)},
			}, Total: yen(bs.Assets.Total)},
			{Title: "負債の部", Rows: []statementRow{
				{Label: "未払金", Amount: yen(bs.Liabilities.Payables)},
				{Label: "事業主借", Amount: yen(bs.Liabilities.Borrowings)},
			}, Total: yen(bs.Liabilities.Total)},
			{Title: "資本の部", Rows: []statementRow{
				{Label: "元入金", Amount: yen(bs.Equity.Capital)},
				{Label: "青色申告特別控除前の所得金額", Amount: yen(bs.Equity.CurrentIncome)},
			}, Total: yen(bs.Equity.Total)},
		},
	}
}

// Handler renders compiled statements as PDF via Gotenberg.
type Handler struct {
	client   *Client
	compiler *reports.Compiler
	logger   *slog.Logger
}

// NewHandler creates a report handler.
func NewHandler(client *Client, compiler *reports.Compiler, logger *slog.Logger) *Handler {
	return &Handler{client: client, compiler: compiler, logger: logger}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/ping", h.ping)
	r.Get("/pl.pdf", h.profitLossPDF)
	r.Get("/bs.pdf", h.balanceSheetPDF)
}

func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	if err := h.client.Ping(r.Context()); err != nil {
		h.logger.Warn("gotenberg ping failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (h *Handler) yearParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("year")
	if raw == "" {
		return 0, shared.Invalid("year", "is required")
	}
	year, err := strconv.Atoi(raw)
	if err != nil {
		return 0, shared.Invalid("year", "must be numeric")
	}
	return year, nil
}

func (h *Handler) renderPDF(w http.ResponseWriter, r *http.Request, page statementPage, filename string) {
	var buf bytes.Buffer
	if err := statementTemplate.Execute(&buf, page); err != nil {
		h.logger.Error("render statement html", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	pdf, err := h.client.RenderHTML(r.Context(), buf.String())
	if err != nil {
		h.logger.Error("render statement pdf", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (h *Handler) profitLossPDF(w http.ResponseWriter, r *http.Request) {
	year, err := h.yearParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	pl, err := h.compiler.ProfitLoss(r.Context(), year)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.renderPDF(w, r, profitLossPage(pl), fmt.Sprintf("pl_%d.pdf", year))
}

func (h *Handler) balanceSheetPDF(w http.ResponseWriter, r *http.Request) {
	year, err := h.yearParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	bs, err := h.compiler.BalanceSheet(r.Context(), year)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.renderPDF(w, r, balanceSheetPage(bs), fmt.Sprintf("bs_%d.pdf", year))
}
