package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/facturier/facturier/internal/billing"
)

// Clients returns a copy of the client list.
func (l *Ledger) Clients() []billing.Client {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return cloneSlice(l.state.clients)
}

// Client returns client id.
func (l *Ledger) Client(id string) (billing.Client, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	idx := l.clientIndex(id)
	if idx < 0 {
		return billing.Client{}, notFound("client", id)
	}
	return l.state.clients[idx], nil
}

// Products returns a copy of the product list.
func (l *Ledger) Products() []billing.Product {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return cloneSlice(l.state.products)
}

// Product returns product id.
func (l *Ledger) Product(id string) (billing.Product, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	idx := productIndex(l.state.products, id)
	if idx < 0 {
		return billing.Product{}, notFound("product", id)
	}
	return l.state.products[idx], nil
}

// Invoices returns a copy of the invoices in creation order.
func (l *Ledger) Invoices() []billing.Invoice {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return cloneInvoices(l.state.invoices)
}

// Invoice returns invoice id.
func (l *Ledger) Invoice(id string) (billing.Invoice, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	idx := l.invoiceIndex(id)
	if idx < 0 {
		return billing.Invoice{}, notFound("invoice", id)
	}
	return l.state.invoices[idx].Clone(), nil
}

// Payments returns a copy of the payments in recording order.
func (l *Ledger) Payments() []billing.Payment {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return cloneSlice(l.state.payments)
}

// ClientDebt derives the outstanding balance of client id.
func (l *Ledger) ClientDebt(id string) decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return billing.ClientDebt(id, l.state.invoices, l.state.payments)
}

// Dashboard computes the aggregate totals.
func (l *Ledger) Dashboard() billing.Totals {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s := l.state
	return billing.DashboardTotals(s.clients, s.products, s.invoices, s.payments)
}

// RecentInvoices returns the last n invoices, newest first.
func (l *Ledger) RecentInvoices(n int) []billing.Invoice {
	l.mu.RLock()
	defer l.mu.RUnlock()
	invoices := l.state.invoices
	if n > len(invoices) || n < 0 {
		n = len(invoices)
	}
	out := make([]billing.Invoice, 0, n)
	for i := len(invoices) - 1; i >= len(invoices)-n; i-- {
		out = append(out, invoices[i].Clone())
	}
	return out
}

// NextInvoiceNumber proposes the number of the next invoice.
func (l *Ledger) NextInvoiceNumber() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return billing.NextInvoiceNumber(len(l.state.invoices), l.now())
}

// Debtor pairs a client with its derived debt.
type Debtor struct {
	Client billing.Client  `json:"client"`
	Debt   decimal.Decimal `json:"debt"`
}

// Debtors lists clients that owe money, largest debt first.
func (l *Ledger) Debtors() []Debtor {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Debtor
	for _, c := range l.state.clients {
		debt := billing.ClientDebt(c.ID, l.state.invoices, l.state.payments)
		if debt.IsPositive() {
			out = append(out, Debtor{Client: c, Debt: debt})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Debt.GreaterThan(out[j].Debt)
	})
	return out
}

// StatementLine is an invoice with its signed outstanding amount.
type StatementLine struct {
	Invoice     billing.Invoice `json:"invoice"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

// Statement summarises the account of one client.
type Statement struct {
	Client   billing.Client    `json:"client"`
	Invoices []StatementLine   `json:"invoices"`
	Payments []billing.Payment `json:"payments"`
	Invoiced decimal.Decimal   `json:"invoiced"`
	Paid     decimal.Decimal   `json:"paid"`
	Debt     decimal.Decimal   `json:"debt"`
}

// ClientStatement gathers the invoices and payments of client id.
func (l *Ledger) ClientStatement(id string) (Statement, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	idx := l.clientIndex(id)
	if idx < 0 {
		return Statement{}, notFound("client", id)
	}
	st := Statement{
		Client:   l.state.clients[idx],
		Invoices: []StatementLine{},
		Payments: []billing.Payment{},
		Invoiced: decimal.Zero,
		Paid:     decimal.Zero,
	}
	for _, inv := range l.state.invoices {
		if inv.ClientID != id {
			continue
		}
		st.Invoices = append(st.Invoices, StatementLine{Invoice: inv.Clone(), Outstanding: billing.InvoiceOutstanding(inv)})
		st.Invoiced = st.Invoiced.Add(inv.TotalAmount)
		st.Paid = st.Paid.Add(inv.AmountPaid)
	}
	for _, p := range l.state.payments {
		if p.ClientID != id {
			continue
		}
		st.Payments = append(st.Payments, p)
		st.Paid = st.Paid.Add(p.Amount)
	}
	st.Debt = billing.ClientDebt(id, l.state.invoices, l.state.payments)
	return st, nil
}

// InventoryRow is a product with its valuation.
type InventoryRow struct {
	Product billing.Product    `json:"product"`
	Value   decimal.Decimal    `json:"value"`
	Level   billing.StockLevel `json:"level"`
	Label   string             `json:"label"`
}

// InventoryReport values the whole stock.
type InventoryReport struct {
	Rows       []InventoryRow  `json:"rows"`
	TotalValue decimal.Decimal `json:"totalValue"`
	LowStock   int             `json:"lowStock"`
}

// Inventory values every product.
func (l *Ledger) Inventory() InventoryReport {
	l.mu.RLock()
	defer l.mu.RUnlock()
	report := InventoryReport{
		Rows:       make([]InventoryRow, 0, len(l.state.products)),
		TotalValue: billing.InventoryValue(l.state.products),
	}
	for _, p := range l.state.products {
		level := billing.ClassifyStock(p.Stock)
		if level == billing.StockLow {
			report.LowStock++
		}
		report.Rows = append(report.Rows, InventoryRow{
			Product: p,
			Value:   billing.StockValue(p),
			Level:   level,
			Label:   level.Label(),
		})
	}
	return report
}

// Snapshot is a point-in-time copy of every collection.
type Snapshot struct {
	Clients  []billing.Client  `json:"clients"`
	Products []billing.Product `json:"products"`
	Invoices []billing.Invoice `json:"invoices"`
	Payments []billing.Payment `json:"payments"`
}

// Snapshot copies the four collections under one read lock.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Snapshot{
		Clients:  cloneSlice(l.state.clients),
		Products: cloneSlice(l.state.products),
		Invoices: cloneInvoices(l.state.invoices),
		Payments: cloneSlice(l.state.payments),
	}
}
