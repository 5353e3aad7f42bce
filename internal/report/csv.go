package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/facturier/facturier/internal/billing"
)

// DebtorRow is one line of the debtors export.
type DebtorRow struct {
	Client billing.Client
	Debt   decimal.Decimal
}

// WriteInvoicesCSV emits one row per invoice. clientName resolves the client
// column; dangling ids are written as is.
func WriteInvoicesCSV(w io.Writer, invoices []billing.Invoice, clientName func(id string) string) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write([]string{"Number", "Date", "Client", "Total HT", "Paid", "Outstanding", "Payment mode"}); err != nil {
		return err
	}
	for _, inv := range invoices {
		name := inv.ClientID
		if clientName != nil {
			if resolved := clientName(inv.ClientID); resolved != "" {
				name = resolved
			}
		}
		if err := writer.Write([]string{
			inv.Number,
			inv.Date,
			name,
			inv.TotalAmount.StringFixed(2),
			inv.AmountPaid.StringFixed(2),
			billing.InvoiceOutstanding(inv).StringFixed(2),
			string(inv.PaymentMode),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteDebtorsCSV emits the clients that owe money and a closing total.
func WriteDebtorsCSV(w io.Writer, rows []DebtorRow) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write([]string{"Client", "Type", "Wilaya", "Phone", "Debt"}); err != nil {
		return err
	}
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.Debt)
		if err := writer.Write([]string{
			row.Client.Name,
			row.Client.Category,
			row.Client.Region,
			row.Client.Phone,
			row.Debt.StringFixed(2),
		}); err != nil {
			return err
		}
	}
	if err := writer.Write([]string{"Total (" + strconv.Itoa(len(rows)) + ")", "", "", "", total.StringFixed(2)}); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}
