package ledgerhttp

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/facturier/facturier/internal/billing"
	"github.com/facturier/facturier/internal/ledger"
)

type clientRequest struct {
	Name   string `json:"name" validate:"required,max=200"`
	Type   string `json:"type" validate:"max=100"`
	Wilaya string `json:"wilaya" validate:"max=100"`
	RC     string `json:"rc" validate:"max=100"`
	NIF    string `json:"nif" validate:"max=100"`
	ART    string `json:"art" validate:"max=100"`
	Phone  string `json:"phone" validate:"max=50"`
}

func (req clientRequest) input() ledger.ClientInput {
	return ledger.ClientInput{
		Name:                 req.Name,
		Category:             req.Type,
		Region:               req.Wilaya,
		CommercialRegisterNo: req.RC,
		TaxID:                req.NIF,
		ArtisanID:            req.ART,
		Phone:                req.Phone,
	}
}

type productRequest struct {
	Name   string          `json:"name" validate:"required,max=200"`
	NameAr string          `json:"nameAr" validate:"max=200"`
	Unit   string          `json:"unit" validate:"max=20"`
	Price  decimal.Decimal `json:"price"`
	Stock  int             `json:"stock" validate:"gte=0"`
}

func (req productRequest) input() ledger.ProductInput {
	return ledger.ProductInput{
		Name:      req.Name,
		NameAlt:   req.NameAr,
		Unit:      req.Unit,
		UnitPrice: req.Price,
		Stock:     req.Stock,
	}
}

type itemRequest struct {
	ProductID   string          `json:"productId" validate:"max=100"`
	Description string          `json:"description" validate:"max=500"`
	Quantity    *int            `json:"quantity" validate:"omitempty,gt=0"`
	Unit        string          `json:"unit" validate:"max=20"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

func (req itemRequest) item() billing.InvoiceItem {
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	return billing.InvoiceItem{
		ProductID:   strings.TrimSpace(req.ProductID),
		Description: req.Description,
		Quantity:    qty,
		Unit:        req.Unit,
		UnitPrice:   req.UnitPrice,
	}
}

type invoiceRequest struct {
	Number      string          `json:"number" validate:"max=50"`
	Date        string          `json:"date" validate:"omitempty,datetime=2006-01-02"`
	ClientID    string          `json:"clientId" validate:"required"`
	Items       []itemRequest   `json:"items" validate:"required,min=1,dive"`
	Paid        decimal.Decimal `json:"paid"`
	PaymentMode string          `json:"paymentMode" validate:"max=20"`
	Notes       string          `json:"notes" validate:"max=2000"`
}

type paymentRequest struct {
	ClientID  string          `json:"clientId" validate:"required"`
	InvoiceID string          `json:"invoiceId"`
	Amount    decimal.Decimal `json:"amount"`
	Date      string          `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Note      string          `json:"note" validate:"max=500"`
}

func (req paymentRequest) input() ledger.PaymentInput {
	return ledger.PaymentInput{
		ClientID:  req.ClientID,
		InvoiceID: req.InvoiceID,
		Amount:    req.Amount,
		Date:      req.Date,
		Note:      req.Note,
	}
}

type clientRow struct {
	billing.Client
	Debt decimal.Decimal `json:"debt"`
}

type invoiceRow struct {
	billing.Invoice
	ClientName  string          `json:"clientName"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

type listResponse[T any] struct {
	Data       []T `json:"data"`
	Pagination any `json:"pagination"`
}

type createInvoiceResponse struct {
	Invoice          billing.Invoice          `json:"invoice"`
	StockAdjustments []ledger.StockAdjustment `json:"stockAdjustments"`
}

type debtsResponse struct {
	Debtors   []ledger.Debtor `json:"debtors"`
	TotalDebt decimal.Decimal `json:"totalDebt"`
}

type dashboardResponse struct {
	Totals         billing.Totals        `json:"totals"`
	RecentInvoices []invoiceRow          `json:"recentInvoices"`
	NextNumber     string                `json:"nextNumber"`
	PaymentModes   []billing.PaymentMode `json:"paymentModes"`
}
