package ledgerhttp

import (
	"log/slog"
	"net/http"

	"github.com/facturier/facturier/internal/billing"
	"github.com/facturier/facturier/internal/ledger"
	"github.com/facturier/facturier/internal/platform/httpx"
	"github.com/facturier/facturier/internal/shared"
)

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	term := q.Get("q")
	all := h.invoiceRows(h.ledger.RecentInvoices(-1))
	var matched []invoiceRow
	for _, row := range all {
		if term == "" || containsFold(row.Number, term) || containsFold(row.ClientName, term) {
			matched = append(matched, row)
		}
	}
	page := shared.ParsePagination(q.Get("page"), q.Get("limit"), len(matched))
	rows := append([]invoiceRow{}, shared.Page(matched, page)...)
	httpx.JSON(w, http.StatusOK, listResponse[invoiceRow]{Data: rows, Pagination: page})
}

func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	var req invoiceRequest
	if !h.decode(w, r, &req) {
		return
	}
	in, err := h.invoiceInput(req)
	if err != nil {
		h.fail(w, "create invoice", err)
		return
	}
	inv, adjustments, err := h.ledger.CreateInvoice(r.Context(), in)
	if err != nil {
		h.fail(w, "create invoice", err)
		return
	}
	if adjustments == nil {
		adjustments = []ledger.StockAdjustment{}
	}
	httpx.JSON(w, http.StatusCreated, createInvoiceResponse{Invoice: inv, StockAdjustments: adjustments})
}

func (h *Handler) nextInvoiceNumber(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]string{"number": h.ledger.NextInvoiceNumber()})
}

func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.ledger.Invoice(urlID(r))
	if err != nil {
		h.fail(w, "get invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.invoiceRows([]billing.Invoice{inv})[0])
}

func (h *Handler) updateInvoice(w http.ResponseWriter, r *http.Request) {
	var req invoiceRequest
	if !h.decode(w, r, &req) {
		return
	}
	in, err := h.invoiceInput(req)
	if err != nil {
		h.fail(w, "update invoice", err)
		return
	}
	inv, err := h.ledger.UpdateInvoice(r.Context(), urlID(r), in)
	if err != nil {
		h.fail(w, "update invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) deleteInvoice(w http.ResponseWriter, r *http.Request) {
	if !confirmed(w, r) {
		return
	}
	if err := h.ledger.DeleteInvoice(r.Context(), urlID(r)); err != nil {
		h.fail(w, "delete invoice", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	clientID := q.Get("clientId")
	var matched []billing.Payment
	for _, p := range h.ledger.Payments() {
		if clientID == "" || p.ClientID == clientID {
			matched = append(matched, p)
		}
	}
	page := shared.ParsePagination(q.Get("page"), q.Get("limit"), len(matched))
	rows := append([]billing.Payment{}, shared.Page(matched, page)...)
	httpx.JSON(w, http.StatusOK, listResponse[billing.Payment]{Data: rows, Pagination: page})
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, err := h.ledger.RecordPayment(r.Context(), req.input())
	if err != nil {
		h.fail(w, "record payment", err)
		return
	}
	h.logger.Info("payment recorded",
		slog.String("client_id", p.ClientID),
		slog.String("amount", p.Amount.StringFixed(2)))
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) deletePayment(w http.ResponseWriter, r *http.Request) {
	if !confirmed(w, r) {
		return
	}
	if err := h.ledger.DeletePayment(r.Context(), urlID(r)); err != nil {
		h.fail(w, "delete payment", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDebts(w http.ResponseWriter, r *http.Request) {
	debtors := h.ledger.Debtors()
	if debtors == nil {
		debtors = []ledger.Debtor{}
	}
	resp := debtsResponse{Debtors: debtors}
	for _, d := range debtors {
		resp.TotalDebt = resp.TotalDebt.Add(d.Debt)
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, dashboardResponse{
		Totals:         h.ledger.Dashboard(),
		RecentInvoices: h.invoiceRows(h.ledger.RecentInvoices(recentInvoiceCount)),
		NextNumber:     h.ledger.NextInvoiceNumber(),
		PaymentModes:   billing.PaymentModes(),
	})
}
