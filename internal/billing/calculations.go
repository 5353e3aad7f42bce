package billing

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Stock level thresholds.
const (
	LowStockThreshold    = 20
	MediumStockThreshold = 50
)

// StockLevel classifies a stock quantity.
type StockLevel string

const (
	StockLow    StockLevel = "LOW"
	StockMedium StockLevel = "MEDIUM"
	StockOK     StockLevel = "OK"
)

// Label returns the Arabic label shown on the inventory screen.
func (l StockLevel) Label() string {
	switch l {
	case StockLow:
		return "منخفض"
	case StockMedium:
		return "متوسط"
	default:
		return "كافٍ"
	}
}

// ClassifyStock maps a quantity onto a StockLevel.
func ClassifyStock(qty int) StockLevel {
	switch {
	case qty < LowStockThreshold:
		return StockLow
	case qty < MediumStockThreshold:
		return StockMedium
	default:
		return StockOK
	}
}

// LineTotal is quantity times unit price.
func LineTotal(item InvoiceItem) decimal.Decimal {
	return item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
}

// IsValid reports whether an item counts toward an invoice: it has a
// description, a positive unit price or a selected product.
func IsValid(item InvoiceItem) bool {
	return strings.TrimSpace(item.Description) != "" ||
		item.UnitPrice.IsPositive() ||
		item.ProductID != ""
}

// IsBlank reports whether item is an untouched data-entry row.
func IsBlank(item InvoiceItem) bool {
	return !IsValid(item)
}

// ValidItems returns the valid items of items, in order.
func ValidItems(items []InvoiceItem) []InvoiceItem {
	out := make([]InvoiceItem, 0, len(items))
	for _, item := range items {
		if IsValid(item) {
			out = append(out, item)
		}
	}
	return out
}

// InvoiceTotal sums the line totals of the valid items. Line totals are
// recomputed rather than trusted.
func InvoiceTotal(items []InvoiceItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		if !IsValid(item) {
			continue
		}
		total = total.Add(LineTotal(item))
	}
	return total
}

// InvoiceOutstanding is the unpaid part of an invoice. It is negative when
// the invoice was overpaid.
func InvoiceOutstanding(inv Invoice) decimal.Decimal {
	return inv.TotalAmount.Sub(inv.AmountPaid)
}

// ClientDebt derives what clientID still owes: signed outstanding amounts of
// its invoices minus its unallocated payments, floored at zero.
func ClientDebt(clientID string, invoices []Invoice, payments []Payment) decimal.Decimal {
	debt := decimal.Zero
	for _, inv := range invoices {
		if inv.ClientID == clientID {
			debt = debt.Add(InvoiceOutstanding(inv))
		}
	}
	for _, p := range payments {
		if p.ClientID == clientID && p.Unallocated() {
			debt = debt.Sub(p.Amount)
		}
	}
	if debt.IsNegative() {
		return decimal.Zero
	}
	return debt
}

// Totals aggregates the dashboard figures.
type Totals struct {
	TotalRevenue   decimal.Decimal `json:"totalRevenue"`
	TotalCollected decimal.Decimal `json:"totalCollected"`
	TotalDebt      decimal.Decimal `json:"totalDebt"`
	StockValue     decimal.Decimal `json:"stockValue"`
	InvoiceCount   int             `json:"invoiceCount"`
	ClientCount    int             `json:"clientCount"`
	DebtorCount    int             `json:"debtorCount"`
	ProductCount   int             `json:"productCount"`
	LowStockCount  int             `json:"lowStockCount"`
}

// DashboardTotals computes revenue, collections, debt and the inventory
// counters. Collected money includes amounts paid at invoice creation even
// though no Payment record exists for them.
func DashboardTotals(clients []Client, products []Product, invoices []Invoice, payments []Payment) Totals {
	totals := Totals{
		TotalRevenue:   decimal.Zero,
		TotalCollected: decimal.Zero,
		TotalDebt:      decimal.Zero,
		StockValue:     InventoryValue(products),
		InvoiceCount:   len(invoices),
		ClientCount:    len(clients),
		ProductCount:   len(products),
	}
	for _, inv := range invoices {
		totals.TotalRevenue = totals.TotalRevenue.Add(inv.TotalAmount)
		totals.TotalCollected = totals.TotalCollected.Add(inv.AmountPaid)
	}
	for _, p := range payments {
		if p.Unallocated() {
			totals.TotalCollected = totals.TotalCollected.Add(p.Amount)
		}
	}
	for _, c := range clients {
		debt := ClientDebt(c.ID, invoices, payments)
		if debt.IsPositive() {
			totals.DebtorCount++
		}
		totals.TotalDebt = totals.TotalDebt.Add(debt)
	}
	for _, p := range products {
		if ClassifyStock(p.Stock) == StockLow {
			totals.LowStockCount++
		}
	}
	return totals
}

// StockValue is unit price times stock on hand.
func StockValue(p Product) decimal.Decimal {
	return p.UnitPrice.Mul(decimal.NewFromInt(int64(p.Stock)))
}

// InventoryValue sums StockValue over products.
func InventoryValue(products []Product) decimal.Decimal {
	total := decimal.Zero
	for _, p := range products {
		total = total.Add(StockValue(p))
	}
	return total
}

// NextInvoiceNumber proposes the number for a new invoice given how many
// invoices exist: the zero-padded successor and the current year, e.g.
// "07/2025". It is not collision-safe once invoices are deleted.
func NextInvoiceNumber(count int, now time.Time) string {
	return fmt.Sprintf("%02d/%d", count+1, now.Year())
}
