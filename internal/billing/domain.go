// Package billing holds the invoicing entities and the pure derivations
// computed from them: line and invoice totals, client debt, dashboard
// aggregates, stock valuation and invoice numbering.
package billing

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the ISO calendar date used for invoice and payment dates.
const DateLayout = "2006-01-02"

// PaymentMode enumerates how an invoice is settled.
type PaymentMode string

const (
	// ModeOnAccount defers payment (credit sale).
	ModeOnAccount PaymentMode = "À TERME"
	// ModeCash is settled in cash.
	ModeCash PaymentMode = "ESPÈCES"
	// ModeTransfer is settled by bank transfer.
	ModeTransfer PaymentMode = "VIREMENT"
	// ModeCheque is settled by cheque.
	ModeCheque PaymentMode = "CHÈQUE"
)

// PaymentModes lists the supported modes in display order.
func PaymentModes() []PaymentMode {
	return []PaymentMode{ModeOnAccount, ModeCash, ModeTransfer, ModeCheque}
}

// Valid reports whether m is one of the supported modes.
func (m PaymentMode) Valid() bool {
	for _, mode := range PaymentModes() {
		if m == mode {
			return true
		}
	}
	return false
}

// ParsePaymentMode maps raw input onto a PaymentMode. Empty input defaults to
// ModeOnAccount.
func ParsePaymentMode(raw string) (PaymentMode, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ModeOnAccount, nil
	}
	mode := PaymentMode(strings.ToUpper(raw))
	if !mode.Valid() {
		return "", fmt.Errorf("unknown payment mode %q", raw)
	}
	return mode, nil
}

// Product is a sellable item with a single stock pool.
type Product struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	NameAlt   string          `json:"nameAr,omitempty"`
	Unit      string          `json:"unit"`
	UnitPrice decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
}

// Client is a billing party. LegacyTotalDebt is kept for data compatibility
// only; debt is always derived with ClientDebt.
type Client struct {
	ID                   string          `json:"id"`
	Name                 string          `json:"name"`
	Category             string          `json:"type"`
	Region               string          `json:"wilaya"`
	CommercialRegisterNo string          `json:"rc,omitempty"`
	TaxID                string          `json:"nif,omitempty"`
	ArtisanID            string          `json:"art,omitempty"`
	Phone                string          `json:"phone,omitempty"`
	LegacyTotalDebt      decimal.Decimal `json:"totalDebt"`
}

// InvoiceItem is an invoice line. ProductID may be empty for free-text lines.
// Description, Unit and UnitPrice are snapshots taken when the line was
// written; later product edits never change them.
type InvoiceItem struct {
	ProductID   string          `json:"productId"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	Unit        string          `json:"unit"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	LineTotal   decimal.Decimal `json:"total"`
}

// Recompute refreshes LineTotal from Quantity and UnitPrice.
func (it *InvoiceItem) Recompute() {
	it.LineTotal = LineTotal(*it)
}

// Invoice is a sales document. TotalAmount always equals the sum of the line
// totals of its items.
type Invoice struct {
	ID          string          `json:"id"`
	Number      string          `json:"number"`
	Date        string          `json:"date"`
	ClientID    string          `json:"clientId"`
	Items       []InvoiceItem   `json:"items"`
	TotalAmount decimal.Decimal `json:"totalHT"`
	AmountPaid  decimal.Decimal `json:"paid"`
	PaymentMode PaymentMode     `json:"paymentMode"`
	Notes       string          `json:"notes"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Clone returns a copy that shares no slices with inv.
func (inv Invoice) Clone() Invoice {
	out := inv
	out.Items = append([]InvoiceItem(nil), inv.Items...)
	return out
}

// Payment is money received from a client. An empty InvoiceID marks an
// unallocated payment applied against the client's general balance.
type Payment struct {
	ID        string          `json:"id"`
	ClientID  string          `json:"clientId"`
	InvoiceID string          `json:"invoiceId,omitempty"`
	Amount    decimal.Decimal `json:"amount"`
	Date      string          `json:"date"`
	Note      string          `json:"note"`
}

// Unallocated reports whether p is a general account payment.
func (p Payment) Unallocated() bool {
	return strings.TrimSpace(p.InvoiceID) == ""
}
