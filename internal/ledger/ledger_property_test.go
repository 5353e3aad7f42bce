//go:build property
// +build property

package ledger

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"

	"github.com/facturier/facturier/internal/billing"
	"github.com/facturier/facturier/internal/seed"
	"github.com/facturier/facturier/internal/storage"
)

func TestStockProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("create then delete restores stock when nothing is clamped", prop.ForAll(
		func(stock, qty int) bool {
			if qty > stock {
				qty = stock
			}
			if qty == 0 {
				qty = 1
				stock++
			}
			l, p := stockLedger(t, stock)
			ctx := context.Background()
			inv, _, err := l.CreateInvoice(ctx, InvoiceInput{
				ClientID: "c1",
				Items:    []billing.InvoiceItem{{ProductID: p, Quantity: qty, UnitPrice: decimal.NewFromInt(10)}},
			})
			if err != nil {
				return false
			}
			if err := l.DeleteInvoice(ctx, inv.ID); err != nil {
				return false
			}
			got, err := l.Product(p)
			return err == nil && got.Stock == stock
		},
		gen.IntRange(0, 500),
		gen.IntRange(0, 500),
	))

	properties.Property("stock is floored at zero", prop.ForAll(
		func(stock, qty int) bool {
			l, p := stockLedger(t, stock)
			_, adjustments, err := l.CreateInvoice(context.Background(), InvoiceInput{
				ClientID: "c1",
				Items:    []billing.InvoiceItem{{ProductID: p, Quantity: qty, UnitPrice: decimal.NewFromInt(10)}},
			})
			if err != nil || len(adjustments) != 1 {
				return false
			}
			got, _ := l.Product(p)
			want := stock - qty
			if want < 0 {
				want = 0
			}
			return got.Stock == want && adjustments[0].Clamped == (qty > stock)
		},
		gen.IntRange(0, 500),
		gen.IntRange(1, 1000),
	))

	properties.TestingRun(t)
}

func stockLedger(t *testing.T, stock int) (*Ledger, string) {
	t.Helper()
	data := seed.Default()
	data.Products = []billing.Product{{ID: "px", Name: "Couette", Unit: "u", UnitPrice: decimal.NewFromInt(10), Stock: stock}}
	l, err := Open(context.Background(), storage.NewMemoryStore(), data)
	if err != nil {
		t.Fatal(err)
	}
	return l, "px"
}
