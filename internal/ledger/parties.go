package ledger

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/facturier/facturier/internal/billing"
)

// ClientInput carries the editable client fields.
type ClientInput struct {
	Name                 string
	Category             string
	Region               string
	CommercialRegisterNo string
	TaxID                string
	ArtisanID            string
	Phone                string
}

func (in ClientInput) apply(c billing.Client) (billing.Client, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return billing.Client{}, invalid("client name is required")
	}
	c.Name = name
	c.Category = strings.TrimSpace(in.Category)
	c.Region = strings.TrimSpace(in.Region)
	c.CommercialRegisterNo = strings.TrimSpace(in.CommercialRegisterNo)
	c.TaxID = strings.TrimSpace(in.TaxID)
	c.ArtisanID = strings.TrimSpace(in.ArtisanID)
	c.Phone = strings.TrimSpace(in.Phone)
	return c, nil
}

// CreateClient adds a client.
func (l *Ledger) CreateClient(ctx context.Context, in ClientInput) (c billing.Client, err error) {
	defer func() { l.recorder.ObserveOperation("create_client", err) }()
	l.mu.Lock()
	defer l.mu.Unlock()

	c, err = in.apply(billing.Client{ID: l.newID(), LegacyTotalDebt: decimal.Zero})
	if err != nil {
		return billing.Client{}, err
	}
	next := l.state
	next.clients = append(cloneSlice(l.state.clients), c)
	if err := l.commit(ctx, next, l.keys.Clients); err != nil {
		return billing.Client{}, err
	}
	return c, nil
}

// UpdateClient replaces the fields of client id.
func (l *Ledger) UpdateClient(ctx context.Context, id string, in ClientInput) (c billing.Client, err error) {
	defer func() { l.recorder.ObserveOperation("update_client", err) }()
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.clientIndex(id)
	if idx < 0 {
		return billing.Client{}, notFound("client", id)
	}
	c, err = in.apply(l.state.clients[idx])
	if err != nil {
		return billing.Client{}, err
	}
	next := l.state
	next.clients = cloneSlice(l.state.clients)
	next.clients[idx] = c
	if err := l.commit(ctx, next, l.keys.Clients); err != nil {
		return billing.Client{}, err
	}
	return c, nil
}

// DeleteClient removes client id. Invoices and payments that reference it
// keep the dangling id.
func (l *Ledger) DeleteClient(ctx context.Context, id string) (err error) {
	defer func() { l.recorder.ObserveOperation("delete_client", err) }()
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.clientIndex(id)
	if idx < 0 {
		return notFound("client", id)
	}
	next := l.state
	next.clients = removeAt(l.state.clients, idx)
	return l.commit(ctx, next, l.keys.Clients)
}

// ProductInput carries the editable product fields.
type ProductInput struct {
	Name      string
	NameAlt   string
	Unit      string
	UnitPrice decimal.Decimal
	Stock     int
}

func (in ProductInput) apply(p billing.Product) (billing.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return billing.Product{}, invalid("product name is required")
	}
	if in.UnitPrice.IsNegative() {
		return billing.Product{}, invalid("unit price must not be negative")
	}
	if in.Stock < 0 {
		return billing.Product{}, invalid("stock must not be negative")
	}
	unit := strings.TrimSpace(in.Unit)
	if unit == "" {
		unit = "u"
	}
	p.Name = name
	p.NameAlt = strings.TrimSpace(in.NameAlt)
	p.Unit = unit
	p.UnitPrice = in.UnitPrice
	p.Stock = in.Stock
	return p, nil
}

// CreateProduct adds a product.
func (l *Ledger) CreateProduct(ctx context.Context, in ProductInput) (p billing.Product, err error) {
	defer func() { l.recorder.ObserveOperation("create_product", err) }()
	l.mu.Lock()
	defer l.mu.Unlock()

	p, err = in.apply(billing.Product{ID: l.newID()})
	if err != nil {
		return billing.Product{}, err
	}
	next := l.state
	next.products = append(cloneSlice(l.state.products), p)
	if err := l.commit(ctx, next, l.keys.Products); err != nil {
		return billing.Product{}, err
	}
	return p, nil
}

// UpdateProduct replaces the fields of product id, stock included. Invoice
// lines keep the values they snapshotted.
func (l *Ledger) UpdateProduct(ctx context.Context, id string, in ProductInput) (p billing.Product, err error) {
	defer func() { l.recorder.ObserveOperation("update_product", err) }()
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := productIndex(l.state.products, id)
	if idx < 0 {
		return billing.Product{}, notFound("product", id)
	}
	p, err = in.apply(l.state.products[idx])
	if err != nil {
		return billing.Product{}, err
	}
	next := l.state
	next.products = cloneSlice(l.state.products)
	next.products[idx] = p
	if err := l.commit(ctx, next, l.keys.Products); err != nil {
		return billing.Product{}, err
	}
	return p, nil
}

// DeleteProduct removes product id. Invoice lines that reference it keep
// their frozen description and price.
func (l *Ledger) DeleteProduct(ctx context.Context, id string) (err error) {
	defer func() { l.recorder.ObserveOperation("delete_product", err) }()
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := productIndex(l.state.products, id)
	if idx < 0 {
		return notFound("product", id)
	}
	next := l.state
	next.products = removeAt(l.state.products, idx)
	return l.commit(ctx, next, l.keys.Products)
}

func removeAt[T any](in []T, idx int) []T {
	out := make([]T, 0, len(in)-1)
	out = append(out, in[:idx]...)
	return append(out, in[idx+1:]...)
}
