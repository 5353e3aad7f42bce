// Package ledgerhttp exposes the ledger over a JSON API and renders the
// dashboard and printable invoices.
package ledgerhttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/facturier/facturier/internal/billing"
	"github.com/facturier/facturier/internal/invoiceform"
	"github.com/facturier/facturier/internal/ledger"
	"github.com/facturier/facturier/internal/platform/httpx"
	"github.com/facturier/facturier/internal/report"
	"github.com/facturier/facturier/internal/view"
)

const recentInvoiceCount = 5

// PDFService renders a printable invoice to PDF bytes.
type PDFService interface {
	Invoice(ctx context.Context, doc report.Document) ([]byte, error)
}

// Handler serves the ledger endpoints.
type Handler struct {
	logger    *slog.Logger
	ledger    *ledger.Ledger
	templates *view.Engine
	renderer  *report.Renderer
	pdf       PDFService
	seller    report.Seller
	validator *validator.Validate
}

// NewHandler constructs the ledger HTTP handler. pdf may be nil, in which
// case PDF downloads answer 503.
func NewHandler(logger *slog.Logger, l *ledger.Ledger, templates *view.Engine, renderer *report.Renderer, pdf PDFService, seller report.Seller) *Handler {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handler{
		logger:    logger,
		ledger:    l,
		templates: templates,
		renderer:  renderer,
		pdf:       pdf,
		seller:    seller,
		validator: v,
	}
}

// decode reads and validates a JSON body. It answers the request itself and
// returns false when the body is unusable.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
			return false
		}
		fields := make(map[string]string, len(fieldErrs))
		for _, fieldErr := range fieldErrs {
			fields[fieldPath(fieldErr.Namespace())] = fieldErr.Tag()
		}
		httpx.ValidationProblem(w, fields)
		return false
	}
	return true
}

// fieldPath strips the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

// fail answers err. Client errors are returned as problem details; anything
// else is logged and answered with a bare 500.
func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if !httpx.IsClientError(err) {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func confirmed(w http.ResponseWriter, r *http.Request) bool {
	if r.URL.Query().Get("confirm") == "true" {
		return true
	}
	httpx.Problem(w, http.StatusBadRequest, "Confirmation Required", "repeat the request with confirm=true")
	return false
}

// draftItems routes submitted lines through the invoice editor: blank rows
// are dropped and product lines without a description snapshot the current
// product.
func (h *Handler) draftItems(reqs []itemRequest) ([]billing.InvoiceItem, error) {
	rows := make([]billing.InvoiceItem, 0, len(reqs))
	for _, req := range reqs {
		rows = append(rows, req.item())
	}
	draft := invoiceform.FromItems(rows)
	for i, row := range draft.Rows() {
		if row.ProductID == "" || strings.TrimSpace(row.Description) != "" {
			continue
		}
		p, err := h.ledger.Product(row.ProductID)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: unknown product %s", ledger.ErrValidation, i+1, row.ProductID)
		}
		if err := draft.SelectProduct(i, p); err != nil {
			return nil, err
		}
		if err := draft.SetQuantity(i, row.Quantity); err != nil {
			return nil, err
		}
		if row.UnitPrice.IsPositive() {
			if err := draft.SetUnitPrice(i, row.UnitPrice); err != nil {
				return nil, err
			}
		}
		if strings.TrimSpace(row.Unit) != "" {
			if err := draft.SetUnit(i, row.Unit); err != nil {
				return nil, err
			}
		}
	}
	return draft.Items(), nil
}

func (h *Handler) invoiceInput(req invoiceRequest) (ledger.InvoiceInput, error) {
	mode, err := billing.ParsePaymentMode(req.PaymentMode)
	if err != nil {
		return ledger.InvoiceInput{}, fmt.Errorf("%w: %v", ledger.ErrValidation, err)
	}
	items, err := h.draftItems(req.Items)
	if err != nil {
		return ledger.InvoiceInput{}, err
	}
	return ledger.InvoiceInput{
		Number:      req.Number,
		Date:        req.Date,
		ClientID:    req.ClientID,
		Items:       items,
		AmountPaid:  req.Paid,
		PaymentMode: mode,
		Notes:       req.Notes,
	}, nil
}

func (h *Handler) clientNames() func(string) string {
	names := make(map[string]string)
	for _, c := range h.ledger.Clients() {
		names[c.ID] = c.Name
	}
	return func(id string) string { return names[id] }
}

func (h *Handler) invoiceRows(invoices []billing.Invoice) []invoiceRow {
	name := h.clientNames()
	rows := make([]invoiceRow, 0, len(invoices))
	for _, inv := range invoices {
		rows = append(rows, invoiceRow{
			Invoice:     inv,
			ClientName:  name(inv.ClientID),
			Outstanding: billing.InvoiceOutstanding(inv),
		})
	}
	return rows
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func urlID(r *http.Request) string {
	return chi.URLParam(r, "id")
}
