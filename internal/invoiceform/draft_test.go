package invoiceform

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturier/facturier/internal/billing"
)

var couette = billing.Product{ID: "p2", Name: "Couette", Unit: "u", UnitPrice: decimal.NewFromInt(650), Stock: 150}

func TestNewDraftStartsWithBlankRow(t *testing.T) {
	d := NewDraft()
	require.Equal(t, 1, d.Len())
	row := d.Rows()[0]
	assert.Equal(t, 1, row.Quantity)
	assert.Equal(t, "u", row.Unit)
	assert.True(t, row.UnitPrice.IsZero())
	assert.Empty(t, d.Items())
	assert.True(t, d.Total().IsZero())
}

func TestSelectProductSnapshotsAndAppendsRow(t *testing.T) {
	d := NewDraft()
	require.NoError(t, d.SelectProduct(0, couette))
	require.NoError(t, d.SetQuantity(0, 4))

	require.Equal(t, 2, d.Len())
	items := d.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "p2", items[0].ProductID)
	assert.Equal(t, "Couette", items[0].Description)
	assert.True(t, items[0].LineTotal.Equal(decimal.NewFromInt(2600)))
	assert.True(t, d.Total().Equal(decimal.NewFromInt(2600)))

	// Editing a non-final row does not add another blank row.
	require.NoError(t, d.SetUnitPrice(0, decimal.NewFromInt(700)))
	assert.Equal(t, 2, d.Len())
	assert.True(t, d.Total().Equal(decimal.NewFromInt(2800)))
}

func TestFreeTextRowBecomesValid(t *testing.T) {
	d := NewDraft()
	require.NoError(t, d.SetDescription(0, "Transport"))
	require.NoError(t, d.SetUnit(0, "forfait"))
	require.NoError(t, d.SetUnitPrice(1, decimal.NewFromInt(300)))

	assert.Equal(t, 3, d.Len())
	assert.Len(t, d.Items(), 2)
	assert.False(t, billing.IsValid(d.Rows()[2]))
}

func TestRemoveItemKeepsOneRow(t *testing.T) {
	d := NewDraft()
	require.NoError(t, d.RemoveItem(0))
	assert.Equal(t, 1, d.Len())

	require.NoError(t, d.SelectProduct(0, couette))
	require.Equal(t, 2, d.Len())
	require.NoError(t, d.RemoveItem(1))
	// Removing the trailing blank row brings it straight back.
	assert.Equal(t, 2, d.Len())
	require.NoError(t, d.RemoveItem(0))
	assert.Equal(t, 1, d.Len())
	assert.Empty(t, d.Items())

	require.ErrorIs(t, d.RemoveItem(5), ErrNoSuchRow)
	require.ErrorIs(t, d.SetQuantity(-1, 2), ErrNoSuchRow)
}

func TestFromInvoice(t *testing.T) {
	inv := billing.Invoice{Items: []billing.InvoiceItem{
		{ProductID: "p1", Description: "Bessat", Quantity: 2, Unit: "u", UnitPrice: decimal.NewFromInt(800)},
		{Description: "Ridou", Quantity: 1, Unit: "u", UnitPrice: decimal.NewFromInt(800)},
	}}
	d := FromInvoice(inv)
	require.Equal(t, 3, d.Len())
	assert.True(t, d.Total().Equal(decimal.NewFromInt(2400)))
	assert.True(t, d.Rows()[0].LineTotal.Equal(decimal.NewFromInt(1600)))

	empty := FromItems(nil)
	assert.Equal(t, 1, empty.Len())
}

func TestFromItemsDropsBlankRowsFromItems(t *testing.T) {
	d := FromItems([]billing.InvoiceItem{
		{Quantity: 1, Unit: "u"},
		{Description: "Couette", Quantity: 1, UnitPrice: decimal.NewFromInt(650)},
		{Quantity: 1, Unit: "u"},
	})
	assert.Equal(t, 3, d.Len())
	items := d.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "Couette", items[0].Description)
}
