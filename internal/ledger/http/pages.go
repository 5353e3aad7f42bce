package ledgerhttp

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/facturier/facturier/internal/billing"
	"github.com/facturier/facturier/internal/platform/httpx"
	"github.com/facturier/facturier/internal/report"
	"github.com/facturier/facturier/internal/view"
)

type stat struct {
	Label string
	Value string
}

type recentRow struct {
	ID          string
	Number      string
	Date        string
	Client      string
	Total       string
	Outstanding string
}

type lowStockRow struct {
	Name    string
	NameAlt string
	Stock   int
	Level   billing.StockLevel
	Label   string
}

type dashboardPage struct {
	Stats    []stat
	Recent   []recentRow
	LowStock []lowStockRow
}

func (h *Handler) handleDashboardPage(w http.ResponseWriter, r *http.Request) {
	totals := h.ledger.Dashboard()
	vm := dashboardPage{
		Stats: []stat{
			{Label: "إجمالي المبيعات", Value: report.FormatAmount(totals.TotalRevenue)},
			{Label: "المبالغ المحصلة", Value: report.FormatAmount(totals.TotalCollected)},
			{Label: "الديون", Value: report.FormatAmount(totals.TotalDebt)},
			{Label: "قيمة المخزون", Value: report.FormatAmount(totals.StockValue)},
			{Label: "عدد الفواتير", Value: strconv.Itoa(totals.InvoiceCount)},
			{Label: "عدد الزبائن", Value: strconv.Itoa(totals.ClientCount)},
			{Label: "زبائن مدينون", Value: strconv.Itoa(totals.DebtorCount)},
			{Label: "منتجات بمخزون منخفض", Value: strconv.Itoa(totals.LowStockCount)},
		},
	}
	for _, row := range h.invoiceRows(h.ledger.RecentInvoices(recentInvoiceCount)) {
		name := row.ClientName
		if name == "" {
			name = "—"
		}
		vm.Recent = append(vm.Recent, recentRow{
			ID:          row.ID,
			Number:      row.Number,
			Date:        row.Date,
			Client:      name,
			Total:       report.FormatAmount(row.TotalAmount),
			Outstanding: report.FormatAmount(row.Outstanding),
		})
	}
	for _, inv := range h.ledger.Inventory().Rows {
		if inv.Level == billing.StockOK {
			continue
		}
		vm.LowStock = append(vm.LowStock, lowStockRow{
			Name:    inv.Product.Name,
			NameAlt: inv.Product.NameAlt,
			Stock:   inv.Product.Stock,
			Level:   inv.Level,
			Label:   inv.Label,
		})
	}

	data := view.TemplateData{
		Title:       "لوحة التحكم",
		CurrentPath: r.URL.Path,
		Data:        vm,
	}
	if totals.LowStockCount > 0 {
		data.Flash = &view.Flash{Kind: "warning", Message: fmt.Sprintf("%d منتجات بمخزون منخفض", totals.LowStockCount)}
	}
	if err := h.templates.Render(w, "pages/dashboard.html", data); err != nil {
		h.logger.Error("render dashboard", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) document(r *http.Request) (report.Document, error) {
	inv, err := h.ledger.Invoice(urlID(r))
	if err != nil {
		return report.Document{}, err
	}
	var client *billing.Client
	if c, err := h.ledger.Client(inv.ClientID); err == nil {
		client = &c
	}
	return report.BuildDocument(inv, client, h.seller), nil
}

func (h *Handler) printInvoice(w http.ResponseWriter, r *http.Request) {
	doc, err := h.document(r)
	if err != nil {
		h.fail(w, "print invoice", err)
		return
	}
	html, err := h.renderer.InvoiceHTML(doc)
	if err != nil {
		h.fail(w, "render invoice", err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(html))
}

func (h *Handler) invoicePDF(w http.ResponseWriter, r *http.Request) {
	doc, err := h.document(r)
	if err != nil {
		h.fail(w, "invoice pdf", err)
		return
	}
	if h.pdf == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "PDF Unavailable", "no PDF renderer configured")
		return
	}
	pdf, err := h.pdf.Invoice(r.Context(), doc)
	if err != nil {
		h.logger.Error("render invoice pdf", slog.String("invoice", doc.Number), slog.Any("error", err))
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrUpstream, err))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename="+report.PDFFileName(doc.Number))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (h *Handler) exportInvoices(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=factures.csv")
	if err := report.WriteInvoicesCSV(w, h.ledger.Invoices(), h.clientNames()); err != nil {
		h.logger.Error("export invoices csv", slog.Any("error", err))
	}
}

func (h *Handler) exportDebtors(w http.ResponseWriter, r *http.Request) {
	debtors := h.ledger.Debtors()
	rows := make([]report.DebtorRow, 0, len(debtors))
	for _, d := range debtors {
		rows = append(rows, report.DebtorRow{Client: d.Client, Debt: d.Debt})
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=debiteurs.csv")
	if err := report.WriteDebtorsCSV(w, rows); err != nil {
		h.logger.Error("export debtors csv", slog.Any("error", err))
	}
}
