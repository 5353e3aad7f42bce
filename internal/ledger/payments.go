package ledger

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/facturier/facturier/internal/billing"
)

// PaymentInput describes money received. An empty InvoiceID records an
// unallocated payment against the client's general balance.
type PaymentInput struct {
	ClientID  string
	InvoiceID string
	Amount    decimal.Decimal
	Date      string
	Note      string
}

// RecordPayment appends a payment.
func (l *Ledger) RecordPayment(ctx context.Context, in PaymentInput) (p billing.Payment, err error) {
	defer func() { l.recorder.ObserveOperation("record_payment", err) }()
	l.mu.Lock()
	defer l.mu.Unlock()

	if !in.Amount.IsPositive() {
		return billing.Payment{}, invalid("payment amount must be positive")
	}
	clientID := strings.TrimSpace(in.ClientID)
	if err := l.checkClient(clientID, ""); err != nil {
		return billing.Payment{}, err
	}
	invoiceID := strings.TrimSpace(in.InvoiceID)
	if invoiceID != "" {
		idx := l.invoiceIndex(invoiceID)
		if idx < 0 {
			return billing.Payment{}, invalid("unknown invoice %s", invoiceID)
		}
		if l.state.invoices[idx].ClientID != clientID {
			return billing.Payment{}, invalid("invoice %s belongs to another client", invoiceID)
		}
	}
	date, err := l.normaliseDate(in.Date)
	if err != nil {
		return billing.Payment{}, err
	}

	p = billing.Payment{
		ID:        l.newID(),
		ClientID:  clientID,
		InvoiceID: invoiceID,
		Amount:    in.Amount,
		Date:      date,
		Note:      strings.TrimSpace(in.Note),
	}
	next := l.state
	next.payments = append(cloneSlice(l.state.payments), p)
	if err := l.commit(ctx, next, l.keys.Payments); err != nil {
		return billing.Payment{}, err
	}
	return p, nil
}

// DeletePayment removes payment id.
func (l *Ledger) DeletePayment(ctx context.Context, id string) (err error) {
	defer func() { l.recorder.ObserveOperation("delete_payment", err) }()
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := -1
	for i, p := range l.state.payments {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return notFound("payment", id)
	}
	next := l.state
	next.payments = removeAt(l.state.payments, idx)
	return l.commit(ctx, next, l.keys.Payments)
}
