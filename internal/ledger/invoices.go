package ledger

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/facturier/facturier/internal/billing"
)

// InvoiceInput carries the editable fields of an invoice. Totals are always
// derived from Items.
type InvoiceInput struct {
	Number      string
	Date        string
	ClientID    string
	Items       []billing.InvoiceItem
	AmountPaid  decimal.Decimal
	PaymentMode billing.PaymentMode
	Notes       string
}

// StockAdjustment reports the effect of an invoice on one product. Clamped
// is set when the requested quantity exceeded the stock on hand and the
// stock was floored at zero; the shortfall is lost on deletion.
type StockAdjustment struct {
	ProductID string `json:"productId"`
	Before    int    `json:"before"`
	After     int    `json:"after"`
	Requested int    `json:"requested"`
	Clamped   bool   `json:"clamped"`
}

// CreateInvoice stores a new invoice and deducts the quantities of its
// product lines from stock, flooring each product at zero.
func (l *Ledger) CreateInvoice(ctx context.Context, in InvoiceInput) (inv billing.Invoice, adjustments []StockAdjustment, err error) {
	defer func() { l.recorder.ObserveOperation("create_invoice", err) }()
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.checkClient(in.ClientID, ""); err != nil {
		return billing.Invoice{}, nil, err
	}
	inv, err = l.buildInvoice(in)
	if err != nil {
		return billing.Invoice{}, nil, err
	}
	inv.ID = l.newID()
	inv.CreatedAt = l.now().UTC()
	if inv.Number == "" {
		inv.Number = billing.NextInvoiceNumber(len(l.state.invoices), l.now())
	}

	next := l.state
	next.invoices = append(cloneSlice(l.state.invoices), inv)
	keys := []string{l.keys.Invoices}

	products, adjustments := deductStock(l.state.products, inv.Items)
	if len(adjustments) > 0 {
		next.products = products
		keys = append(keys, l.keys.Products)
	}
	if err := l.commit(ctx, next, keys...); err != nil {
		return billing.Invoice{}, nil, err
	}

	for _, adj := range adjustments {
		if adj.Clamped {
			shortfall := adj.Requested - adj.Before
			l.logger.Info("stock floored at zero",
				slog.String("invoice", inv.Number),
				slog.String("product_id", adj.ProductID),
				slog.Int("shortfall", shortfall))
			l.recorder.StockClamped(adj.ProductID, shortfall)
		}
	}
	return inv.Clone(), adjustments, nil
}

// UpdateInvoice replaces invoice id. Stock is deliberately left untouched:
// deduction happens once, at creation.
func (l *Ledger) UpdateInvoice(ctx context.Context, id string, in InvoiceInput) (inv billing.Invoice, err error) {
	defer func() { l.recorder.ObserveOperation("update_invoice", err) }()
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.invoiceIndex(id)
	if idx < 0 {
		return billing.Invoice{}, notFound("invoice", id)
	}
	current := l.state.invoices[idx]
	if err := l.checkClient(in.ClientID, current.ClientID); err != nil {
		return billing.Invoice{}, err
	}
	inv, err = l.buildInvoice(in)
	if err != nil {
		return billing.Invoice{}, err
	}
	inv.ID = current.ID
	inv.CreatedAt = current.CreatedAt
	if inv.Number == "" {
		inv.Number = current.Number
	}

	next := l.state
	next.invoices = cloneSlice(l.state.invoices)
	next.invoices[idx] = inv
	if err := l.commit(ctx, next, l.keys.Invoices); err != nil {
		return billing.Invoice{}, err
	}
	return inv.Clone(), nil
}

// DeleteInvoice removes invoice id and adds the quantities of its product
// lines back to stock. Lines whose product no longer exists are skipped.
func (l *Ledger) DeleteInvoice(ctx context.Context, id string) (err error) {
	defer func() { l.recorder.ObserveOperation("delete_invoice", err) }()
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.invoiceIndex(id)
	if idx < 0 {
		return notFound("invoice", id)
	}
	removed := l.state.invoices[idx]

	next := l.state
	next.invoices = make([]billing.Invoice, 0, len(l.state.invoices)-1)
	next.invoices = append(next.invoices, l.state.invoices[:idx]...)
	next.invoices = append(next.invoices, l.state.invoices[idx+1:]...)
	keys := []string{l.keys.Invoices}

	products, restored := restoreStock(l.state.products, removed.Items)
	if restored {
		next.products = products
		keys = append(keys, l.keys.Products)
	}
	return l.commit(ctx, next, keys...)
}

// buildInvoice validates in and returns the normalised invoice without
// identity fields.
func (l *Ledger) buildInvoice(in InvoiceInput) (billing.Invoice, error) {
	items := billing.ValidItems(in.Items)
	if len(items) == 0 {
		return billing.Invoice{}, invalid("invoice needs at least one line item")
	}
	normalised := make([]billing.InvoiceItem, len(items))
	for i, item := range items {
		if item.Quantity <= 0 {
			return billing.Invoice{}, invalid("line %d: quantity must be positive", i+1)
		}
		if item.UnitPrice.IsNegative() {
			return billing.Invoice{}, invalid("line %d: unit price must not be negative", i+1)
		}
		item.Description = strings.TrimSpace(item.Description)
		item.ProductID = strings.TrimSpace(item.ProductID)
		if strings.TrimSpace(item.Unit) == "" {
			item.Unit = "u"
		}
		item.Recompute()
		normalised[i] = item
	}
	if in.AmountPaid.IsNegative() {
		return billing.Invoice{}, invalid("amount paid must not be negative")
	}
	mode := in.PaymentMode
	if mode == "" {
		mode = billing.ModeOnAccount
	}
	if !mode.Valid() {
		return billing.Invoice{}, invalid("unknown payment mode %q", mode)
	}
	date, err := l.normaliseDate(in.Date)
	if err != nil {
		return billing.Invoice{}, err
	}
	return billing.Invoice{
		Number:      strings.TrimSpace(in.Number),
		Date:        date,
		ClientID:    strings.TrimSpace(in.ClientID),
		Items:       normalised,
		TotalAmount: billing.InvoiceTotal(normalised),
		AmountPaid:  in.AmountPaid,
		PaymentMode: mode,
		Notes:       strings.TrimSpace(in.Notes),
	}, nil
}

// checkClient requires a client selection that resolves, unless it is the
// unchanged (possibly dangling) client of an existing record.
func (l *Ledger) checkClient(clientID, current string) error {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return invalid("a client must be selected")
	}
	if clientID == current {
		return nil
	}
	if l.clientIndex(clientID) < 0 {
		return invalid("unknown client %s", clientID)
	}
	return nil
}

func (l *Ledger) normaliseDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return l.today(), nil
	}
	if _, err := time.Parse(billing.DateLayout, raw); err != nil {
		return "", invalid("date %q must use YYYY-MM-DD", raw)
	}
	return raw, nil
}

// deductStock returns a copy of products with the item quantities removed.
func deductStock(products []billing.Product, items []billing.InvoiceItem) ([]billing.Product, []StockAdjustment) {
	var (
		out         []billing.Product
		adjustments []StockAdjustment
	)
	for _, item := range items {
		if item.ProductID == "" {
			continue
		}
		idx := productIndex(products, item.ProductID)
		if idx < 0 {
			continue
		}
		if out == nil {
			out = cloneSlice(products)
		}
		before := out[idx].Stock
		after := before - item.Quantity
		clamped := after < 0
		if clamped {
			after = 0
		}
		out[idx].Stock = after
		adjustments = append(adjustments, StockAdjustment{
			ProductID: item.ProductID,
			Before:    before,
			After:     after,
			Requested: item.Quantity,
			Clamped:   clamped,
		})
	}
	return out, adjustments
}

// restoreStock returns a copy of products with the item quantities added
// back, and whether anything changed.
func restoreStock(products []billing.Product, items []billing.InvoiceItem) ([]billing.Product, bool) {
	var out []billing.Product
	for _, item := range items {
		if item.ProductID == "" {
			continue
		}
		idx := productIndex(products, item.ProductID)
		if idx < 0 {
			continue
		}
		if out == nil {
			out = cloneSlice(products)
		}
		out[idx].Stock += item.Quantity
	}
	return out, out != nil
}

func productIndex(products []billing.Product, id string) int {
	for i, p := range products {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (l *Ledger) invoiceIndex(id string) int {
	for i, inv := range l.state.invoices {
		if inv.ID == id {
			return i
		}
	}
	return -1
}

func (l *Ledger) clientIndex(id string) int {
	for i, c := range l.state.clients {
		if c.ID == id {
			return i
		}
	}
	return -1
}
