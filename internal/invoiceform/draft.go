// Package invoiceform models the invoice editor: a list of line items that
// always ends with one blank row ready for input.
package invoiceform

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/facturier/facturier/internal/billing"
)

// ErrNoSuchRow is returned for row indexes outside the draft.
var ErrNoSuchRow = errors.New("invoiceform: no such row")

// DefaultUnit is the unit of a fresh row.
const DefaultUnit = "u"

// Draft is an invoice being edited. The zero value is not usable; call
// NewDraft or FromInvoice.
type Draft struct {
	rows []billing.InvoiceItem
}

// NewDraft returns a draft holding a single blank row.
func NewDraft() *Draft {
	return &Draft{rows: []billing.InvoiceItem{blankRow()}}
}

// FromInvoice opens inv for editing.
func FromInvoice(inv billing.Invoice) *Draft {
	return FromItems(inv.Items)
}

// FromItems builds a draft from submitted rows. Blank rows in the middle are
// kept so indexes stay stable; a trailing blank row is appended when the
// last row is valid.
func FromItems(items []billing.InvoiceItem) *Draft {
	d := &Draft{rows: make([]billing.InvoiceItem, 0, len(items)+1)}
	for _, item := range items {
		item.Recompute()
		d.rows = append(d.rows, item)
	}
	if len(d.rows) == 0 {
		d.rows = append(d.rows, blankRow())
	}
	d.ensureTrailingBlank()
	return d
}

func blankRow() billing.InvoiceItem {
	return billing.InvoiceItem{
		Quantity:  1,
		Unit:      DefaultUnit,
		UnitPrice: decimal.Zero,
		LineTotal: decimal.Zero,
	}
}

// Len returns the number of rows, the trailing blank one included.
func (d *Draft) Len() int {
	return len(d.rows)
}

// Rows returns a copy of every row for display.
func (d *Draft) Rows() []billing.InvoiceItem {
	return append([]billing.InvoiceItem(nil), d.rows...)
}

// SelectProduct fills row i from p: id, name, unit and current price.
func (d *Draft) SelectProduct(i int, p billing.Product) error {
	return d.edit(i, func(item *billing.InvoiceItem) {
		item.ProductID = p.ID
		item.Description = p.Name
		item.Unit = p.Unit
		item.UnitPrice = p.UnitPrice
	})
}

// SetQuantity changes the quantity of row i.
func (d *Draft) SetQuantity(i, qty int) error {
	return d.edit(i, func(item *billing.InvoiceItem) { item.Quantity = qty })
}

// SetUnitPrice changes the unit price of row i.
func (d *Draft) SetUnitPrice(i int, price decimal.Decimal) error {
	return d.edit(i, func(item *billing.InvoiceItem) { item.UnitPrice = price })
}

// SetDescription changes the description of row i.
func (d *Draft) SetDescription(i int, desc string) error {
	return d.edit(i, func(item *billing.InvoiceItem) { item.Description = desc })
}

// SetUnit changes the unit of row i.
func (d *Draft) SetUnit(i int, unit string) error {
	return d.edit(i, func(item *billing.InvoiceItem) { item.Unit = unit })
}

// RemoveItem deletes row i. The last remaining row cannot be removed.
func (d *Draft) RemoveItem(i int) error {
	if i < 0 || i >= len(d.rows) {
		return fmt.Errorf("%w: %d", ErrNoSuchRow, i)
	}
	if len(d.rows) == 1 {
		return nil
	}
	d.rows = append(d.rows[:i:i], d.rows[i+1:]...)
	d.ensureTrailingBlank()
	return nil
}

// Items returns the rows that will be saved.
func (d *Draft) Items() []billing.InvoiceItem {
	return billing.ValidItems(d.rows)
}

// Total is the invoice total of the saved rows.
func (d *Draft) Total() decimal.Decimal {
	return billing.InvoiceTotal(d.rows)
}

func (d *Draft) edit(i int, fn func(*billing.InvoiceItem)) error {
	if i < 0 || i >= len(d.rows) {
		return fmt.Errorf("%w: %d", ErrNoSuchRow, i)
	}
	fn(&d.rows[i])
	d.rows[i].Recompute()
	d.ensureTrailingBlank()
	return nil
}

func (d *Draft) ensureTrailingBlank() {
	if billing.IsValid(d.rows[len(d.rows)-1]) {
		d.rows = append(d.rows, blankRow())
	}
}
