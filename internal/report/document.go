// Package report builds the printable invoice and the CSV exports.
package report

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/facturier/facturier/internal/billing"
	"github.com/facturier/facturier/internal/numwords"
)

// Seller is the identity block printed at the top of every invoice.
type Seller struct {
	Name     string
	Trade    string
	Activity string
	Address  string
	CardNo   string
	TaxNo    string
}

// DefaultSeller returns the business the application was built for.
func DefaultSeller() Seller {
	return Seller{
		Name:     "وَلد بُوزِيدِي عُمَر",
		Trade:    "صناعة الأفرشة",
		Activity: "حرفي صانع أفرشة الأسرة",
		Address:  "بلدية شلالة العذاورة — ولاية المدية",
		CardNo:   "22260013954",
		TaxNo:    "185261800357101",
	}
}

// Field is one labelled value of the client block.
type Field struct {
	Label string
	Value string
}

// Line is a formatted invoice line.
type Line struct {
	N           int
	Description string
	Quantity    int
	Unit        string
	UnitPrice   string
	Amount      string
}

// Document is the view model of a printed invoice.
type Document struct {
	InvoiceID     string
	Seller        Seller
	Number        string
	Date          string
	ClientName    string
	ClientRows    [][]Field
	Lines         []Line
	Total         string
	ShowPayment   bool
	Paid          string
	Remaining     string
	AmountInWords string
	PaymentMode   string
	Notes         string
}

// BuildDocument formats inv for printing. client is nil when the invoice
// references a client that no longer exists.
func BuildDocument(inv billing.Invoice, client *billing.Client, seller Seller) Document {
	doc := Document{
		InvoiceID:     inv.ID,
		Seller:        seller,
		Number:        orDash(inv.Number),
		Date:          orDash(inv.Date),
		ClientName:    "—",
		Lines:         make([]Line, 0, len(inv.Items)),
		Total:         FormatAmount(inv.TotalAmount),
		AmountInWords: numwords.AmountInWords(inv.TotalAmount),
		PaymentMode:   string(inv.PaymentMode),
		Notes:         inv.Notes,
	}
	if doc.PaymentMode == "" {
		doc.PaymentMode = string(billing.ModeOnAccount)
	}
	if inv.AmountPaid.IsPositive() {
		doc.ShowPayment = true
		doc.Paid = FormatAmount(inv.AmountPaid)
		doc.Remaining = FormatAmount(inv.TotalAmount.Sub(inv.AmountPaid))
	}
	for i, item := range inv.Items {
		doc.Lines = append(doc.Lines, Line{
			N:           i + 1,
			Description: item.Description,
			Quantity:    item.Quantity,
			Unit:        item.Unit,
			UnitPrice:   FormatAmount(item.UnitPrice),
			Amount:      FormatAmount(item.LineTotal),
		})
	}

	var c billing.Client
	if client != nil {
		c = *client
		if c.Name != "" {
			doc.ClientName = c.Name
		}
	}
	doc.ClientRows = append(doc.ClientRows, []Field{
		{Label: "Qualité", Value: orDash(c.Category)},
		{Label: "Wilaya", Value: orDash(c.Region)},
	})
	if c.CommercialRegisterNo != "" || c.TaxID != "" {
		doc.ClientRows = append(doc.ClientRows, []Field{
			{Label: "RC N°", Value: orDash(c.CommercialRegisterNo)},
			{Label: "IF N°", Value: orDash(c.TaxID)},
		})
	}
	if c.ArtisanID != "" {
		doc.ClientRows = append(doc.ClientRows, []Field{{Label: "ART N°", Value: c.ArtisanID}})
	}
	if c.Phone != "" {
		doc.ClientRows = append(doc.ClientRows, []Field{{Label: "Tél", Value: c.Phone}})
	}
	return doc
}

var (
	amountPrinter = message.NewPrinter(language.French)

	// Locale separators, applied to the exact decimal digits.
	groupSeparator   = strings.Trim(amountPrinter.Sprintf("%d", 1000), "01")
	decimalSeparator = strings.Trim(amountPrinter.Sprintf("%.1f", 0.5), "05")
)

// FormatAmount renders d with French digit grouping and two decimals.
func FormatAmount(d decimal.Decimal) string {
	fixed := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign, fixed = "-", fixed[1:]
	}
	intPart, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	b.WriteString(sign)
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteString(groupSeparator)
		}
		b.WriteRune(r)
	}
	b.WriteString(decimalSeparator)
	b.WriteString(frac)
	return b.String()
}

// PDFFileName is the download name of an invoice PDF. Only the first "/"
// of the number is replaced.
func PDFFileName(number string) string {
	return "Facture_" + strings.Replace(number, "/", "-", 1) + ".pdf"
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "—"
	}
	return s
}
