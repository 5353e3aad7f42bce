package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facturier/facturier/internal/billing"
	"github.com/facturier/facturier/internal/platform/httpx"
	"github.com/facturier/facturier/internal/seed"
	"github.com/facturier/facturier/internal/storage"
)

var fixedNow = time.Date(2025, 5, 20, 9, 30, 0, 0, time.UTC)

type flakyStore struct {
	*storage.MemoryStore
	failSave bool
	failLoad error
	saves    int
}

func newFlakyStore() *flakyStore {
	return &flakyStore{MemoryStore: storage.NewMemoryStore()}
}

func (s *flakyStore) Save(ctx context.Context, docs ...storage.Document) error {
	if s.failSave {
		return errors.New("disk full")
	}
	s.saves++
	return s.MemoryStore.Save(ctx, docs...)
}

func (s *flakyStore) Load(ctx context.Context, key string) ([]byte, error) {
	if s.failLoad != nil {
		return nil, s.failLoad
	}
	return s.MemoryStore.Load(ctx, key)
}

type countingRecorder struct {
	mu        sync.Mutex
	ops       map[string]int
	failures  map[string]int
	clamped   map[string]int
	fallbacks []string
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{ops: map[string]int{}, failures: map[string]int{}, clamped: map[string]int{}}
}

func (r *countingRecorder) ObserveOperation(op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops[op]++
	if err != nil {
		r.failures[op]++
	}
}

func (r *countingRecorder) StockClamped(productID string, shortfall int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clamped[productID] += shortfall
}

func (r *countingRecorder) LoadFallback(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallbacks = append(r.fallbacks, key)
}

func sequentialIDs() func() string {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("id-%d", n.Add(1))
	}
}

func openLedger(t *testing.T, store storage.Store, data seed.Data, opts ...Option) *Ledger {
	t.Helper()
	base := []Option{
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(sequentialIDs()),
	}
	l, err := Open(context.Background(), store, data, append(base, opts...)...)
	require.NoError(t, err)
	return l
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

// widgetScenario builds the empty-state scenario: one product, one client and
// one invoice for three widgets.
func widgetScenario(t *testing.T, l *Ledger) (billing.Product, billing.Client, billing.Invoice) {
	t.Helper()
	ctx := context.Background()
	widget, err := l.CreateProduct(ctx, ProductInput{Name: "Widget", UnitPrice: dec("100"), Stock: 10})
	require.NoError(t, err)
	acme, err := l.CreateClient(ctx, ClientInput{Name: "Acme"})
	require.NoError(t, err)
	inv, _, err := l.CreateInvoice(ctx, InvoiceInput{
		ClientID: acme.ID,
		Items: []billing.InvoiceItem{
			{ProductID: widget.ID, Description: widget.Name, Quantity: 3, UnitPrice: dec("100")},
		},
		AmountPaid: decimal.Zero,
	})
	require.NoError(t, err)
	return widget, acme, inv
}

func TestCreateInvoiceDeductsStockAndRaisesDebt(t *testing.T) {
	l := openLedger(t, storage.NewMemoryStore(), seed.Data{})
	widget, acme, inv := widgetScenario(t, l)

	requireDecimal(t, "300", inv.TotalAmount)
	requireDecimal(t, "300", inv.Items[0].LineTotal)
	stocked, err := l.Product(widget.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, stocked.Stock)
	requireDecimal(t, "300", l.ClientDebt(acme.ID))

	assert.Equal(t, "01/2025", inv.Number)
	assert.Equal(t, "2025-05-20", inv.Date)
	assert.Equal(t, billing.ModeOnAccount, inv.PaymentMode)
	assert.Equal(t, fixedNow, inv.CreatedAt)
}

func TestUnallocatedPaymentSettlesDebt(t *testing.T) {
	l := openLedger(t, storage.NewMemoryStore(), seed.Data{})
	_, acme, _ := widgetScenario(t, l)

	p, err := l.RecordPayment(context.Background(), PaymentInput{ClientID: acme.ID, Amount: dec("300"), Note: "full settlement"})
	require.NoError(t, err)
	assert.True(t, p.Unallocated())
	assert.Equal(t, "2025-05-20", p.Date)
	requireDecimal(t, "0", l.ClientDebt(acme.ID))
	assert.Empty(t, l.Debtors())
}

func TestPaidAtCreationCountsAsCollected(t *testing.T) {
	l := openLedger(t, storage.NewMemoryStore(), seed.Data{})
	ctx := context.Background()
	c, err := l.CreateClient(ctx, ClientInput{Name: "Cash customer"})
	require.NoError(t, err)
	inv, _, err := l.CreateInvoice(ctx, InvoiceInput{
		ClientID:    c.ID,
		Items:       []billing.InvoiceItem{{Description: "Matelas", Quantity: 1, UnitPrice: dec("500")}},
		AmountPaid:  dec("500"),
		PaymentMode: billing.ModeCash,
	})
	require.NoError(t, err)

	requireDecimal(t, "0", billing.InvoiceOutstanding(inv))
	totals := l.Dashboard()
	requireDecimal(t, "500", totals.TotalCollected)
	requireDecimal(t, "500", totals.TotalRevenue)
	requireDecimal(t, "0", totals.TotalDebt)
	assert.Empty(t, l.Payments())
}

func TestDeleteInvoiceRestoresStock(t *testing.T) {
	l := openLedger(t, storage.NewMemoryStore(), seed.Data{})
	widget, acme, inv := widgetScenario(t, l)

	require.NoError(t, l.DeleteInvoice(context.Background(), inv.ID))

	restored, err := l.Product(widget.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, restored.Stock)
	requireDecimal(t, "0", l.ClientDebt(acme.ID))
	assert.Empty(t, l.Invoices())

	err = l.DeleteInvoice(context.Background(), inv.ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestStockDeductionIsFlooredAndLossy(t *testing.T) {
	rec := newCountingRecorder()
	l := openLedger(t, storage.NewMemoryStore(), seed.Data{}, WithRecorder(rec))
	ctx := context.Background()
	p, err := l.CreateProduct(ctx, ProductInput{Name: "Ridou", UnitPrice: dec("800"), Stock: 2})
	require.NoError(t, err)
	c, err := l.CreateClient(ctx, ClientInput{Name: "Acme"})
	require.NoError(t, err)

	inv, adjustments, err := l.CreateInvoice(ctx, InvoiceInput{
		ClientID: c.ID,
		Items:    []billing.InvoiceItem{{ProductID: p.ID, Quantity: 5, UnitPrice: dec("800")}},
	})
	require.NoError(t, err)
	require.Len(t, adjustments, 1)
	assert.Equal(t, StockAdjustment{ProductID: p.ID, Before: 2, After: 0, Requested: 5, Clamped: true}, adjustments[0])
	assert.Equal(t, 3, rec.clamped[p.ID])

	got, _ := l.Product(p.ID)
	assert.Equal(t, 0, got.Stock)

	require.NoError(t, l.DeleteInvoice(ctx, inv.ID))
	got, _ = l.Product(p.ID)
	assert.Equal(t, 5, got.Stock, "restoration adds back the full quantity")
}

func TestRepeatedProductLinesDeductSequentially(t *testing.T) {
	l := openLedger(t, storage.NewMemoryStore(), seed.Default())
	_, adjustments, err := l.CreateInvoice(context.Background(), InvoiceInput{
		ClientID: "c1",
		Items: []billing.InvoiceItem{
			{ProductID: "p3", Quantity: 60, UnitPrice: dec("800")},
			{Description: "Transport", Quantity: 1, UnitPrice: dec("500")},
			{ProductID: "p3", Quantity: 50, UnitPrice: dec("800")},
		},
	})
	require.NoError(t, err)
	require.Len(t, adjustments, 2)
	assert.False(t, adjustments[0].Clamped)
	assert.True(t, adjustments[1].Clamped)

	p3, _ := l.Product("p3")
	assert.Equal(t, 0, p3.Stock)
}

func TestUpdateInvoiceLeavesStockAlone(t *testing.T) {
	l := openLedger(t, storage.NewMemoryStore(), seed.Data{})
	widget, acme, inv := widgetScenario(t, l)

	updated, err := l.UpdateInvoice(context.Background(), inv.ID, InvoiceInput{
		ClientID: acme.ID,
		Items:    []billing.InvoiceItem{{ProductID: widget.ID, Description: "Widget", Quantity: 8, UnitPrice: dec("100")}},
		Notes:    "  corrected  ",
	})
	require.NoError(t, err)
	requireDecimal(t, "800", updated.TotalAmount)
	assert.Equal(t, inv.ID, updated.ID)
	assert.Equal(t, inv.Number, updated.Number)
	assert.Equal(t, inv.CreatedAt, updated.CreatedAt)
	assert.Equal(t, "corrected", updated.Notes)

	got, _ := l.Product(widget.ID)
	assert.Equal(t, 7, got.Stock)

	_, err = l.UpdateInvoice(context.Background(), "missing", InvoiceInput{ClientID: acme.ID})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestInvoiceValidation(t *testing.T) {
	l := openLedger(t, storage.NewMemoryStore(), seed.Default())
	ctx := context.Background()
	item := billing.InvoiceItem{Description: "Couette", Quantity: 1, UnitPrice: dec("650")}

	cases := map[string]InvoiceInput{
		"no client":        {Items: []billing.InvoiceItem{item}},
		"unknown client":   {ClientID: "ghost", Items: []billing.InvoiceItem{item}},
		"only blank lines": {ClientID: "c1", Items: []billing.InvoiceItem{{Quantity: 1, Unit: "u"}}},
		"zero quantity":    {ClientID: "c1", Items: []billing.InvoiceItem{{Description: "x", Quantity: 0}}},
		"negative price":   {ClientID: "c1", Items: []billing.InvoiceItem{{Description: "x", Quantity: 1, UnitPrice: dec("-1")}}},
		"negative paid":    {ClientID: "c1", Items: []billing.InvoiceItem{item}, AmountPaid: dec("-5")},
		"bad mode":         {ClientID: "c1", Items: []billing.InvoiceItem{item}, PaymentMode: "CRYPTO"},
		"bad date":         {ClientID: "c1", Items: []billing.InvoiceItem{item}, Date: "20/05/2025"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := l.CreateInvoice(ctx, in)
			require.ErrorIs(t, err, ErrValidation)
			require.ErrorIs(t, err, httpx.ErrValidation)
		})
	}
	assert.Empty(t, l.Invoices())
	p2, _ := l.Product("p2")
	assert.Equal(t, 150, p2.Stock)
}

func TestBlankLinesAreDroppedOnSave(t *testing.T) {
	l := openLedger(t, storage.NewMemoryStore(), seed.Default())
	inv, _, err := l.CreateInvoice(context.Background(), InvoiceInput{
		ClientID: "c1",
		Number:   "42/2025",
		Date:     "2025-01-02",
		Items: []billing.InvoiceItem{
			{ProductID: "p1", Description: "Bessat 2 pièces", Quantity: 2, Unit: "u", UnitPrice: dec("800"), LineTotal: dec("9999")},
			{Quantity: 1, Unit: "u"},
		},
	})
	require.NoError(t, err)
	require.Len(t, inv.Items, 1)
	requireDecimal(t, "1600", inv.Items[0].LineTotal)
	assert.Equal(t, "42/2025", inv.Number)
	assert.Equal(t, "2025-01-02", inv.Date)
}

func TestPaymentValidation(t *testing.T) {
	l := openLedger(t, storage.NewMemoryStore(), seed.Default())
	ctx := context.Background()

	_, err := l.RecordPayment(ctx, PaymentInput{ClientID: "c1", Amount: decimal.Zero})
	require.ErrorIs(t, err, ErrValidation)
	_, err = l.RecordPayment(ctx, PaymentInput{ClientID: "c1", Amount: dec("-10")})
	require.ErrorIs(t, err, ErrValidation)
	_, err = l.RecordPayment(ctx, PaymentInput{Amount: dec("10")})
	require.ErrorIs(t, err, ErrValidation)
	_, err = l.RecordPayment(ctx, PaymentInput{ClientID: "c1", InvoiceID: "nope", Amount: dec("10")})
	require.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, l.Payments())

	other, err := l.CreateClient(ctx, ClientInput{Name: "Other"})
	require.NoError(t, err)
	inv, _, err := l.CreateInvoice(ctx, InvoiceInput{ClientID: other.ID, Items: []billing.InvoiceItem{{Description: "x", Quantity: 1, UnitPrice: dec("10")}}})
	require.NoError(t, err)
	_, err = l.RecordPayment(ctx, PaymentInput{ClientID: "c1", InvoiceID: inv.ID, Amount: dec("10")})
	require.ErrorIs(t, err, ErrValidation)

	allocated, err := l.RecordPayment(ctx, PaymentInput{ClientID: other.ID, InvoiceID: inv.ID, Amount: dec("10")})
	require.NoError(t, err)
	assert.False(t, allocated.Unallocated())
	// Allocated payments do not reduce the derived debt.
	requireDecimal(t, "10", l.ClientDebt(other.ID))

	require.NoError(t, l.DeletePayment(ctx, allocated.ID))
	require.ErrorIs(t, l.DeletePayment(ctx, allocated.ID), ErrNotFound)
}

func TestClientAndProductCRUD(t *testing.T) {
	l := openLedger(t, storage.NewMemoryStore(), seed.Data{})
	ctx := context.Background()

	_, err := l.CreateClient(ctx, ClientInput{Name: "   "})
	require.ErrorIs(t, err, ErrValidation)
	c, err := l.CreateClient(ctx, ClientInput{Name: " Hotel Titteri ", Category: "Hôtel", Region: "W DE MEDEA", Phone: "025 58 00 00"})
	require.NoError(t, err)
	assert.Equal(t, "Hotel Titteri", c.Name)

	c, err = l.UpdateClient(ctx, c.ID, ClientInput{Name: "Hôtel Titteri", TaxID: "123"})
	require.NoError(t, err)
	assert.Equal(t, "123", c.TaxID)
	assert.Empty(t, c.Region)
	_, err = l.UpdateClient(ctx, "ghost", ClientInput{Name: "x"})
	require.ErrorIs(t, err, ErrNotFound)

	_, err = l.CreateProduct(ctx, ProductInput{Name: "Bad", UnitPrice: dec("-1")})
	require.ErrorIs(t, err, ErrValidation)
	_, err = l.CreateProduct(ctx, ProductInput{Name: "Bad", Stock: -1})
	require.ErrorIs(t, err, ErrValidation)
	p, err := l.CreateProduct(ctx, ProductInput{Name: "Oreiller", NameAlt: "مخدة", UnitPrice: dec("350")})
	require.NoError(t, err)
	assert.Equal(t, "u", p.Unit)

	p, err = l.UpdateProduct(ctx, p.ID, ProductInput{Name: "Oreiller", Unit: "pièce", UnitPrice: dec("375"), Stock: 40})
	require.NoError(t, err)
	assert.Equal(t, 40, p.Stock)
	assert.Empty(t, p.NameAlt)

	require.NoError(t, l.DeleteProduct(ctx, p.ID))
	require.ErrorIs(t, l.DeleteProduct(ctx, p.ID), ErrNotFound)
	require.NoError(t, l.DeleteClient(ctx, c.ID))
	require.ErrorIs(t, l.DeleteClient(ctx, c.ID), ErrNotFound)
	assert.Empty(t, l.Clients())
	assert.Empty(t, l.Products())
}

func TestDeletesDoNotCascade(t *testing.T) {
	l := openLedger(t, storage.NewMemoryStore(), seed.Data{})
	ctx := context.Background()
	widget, acme, inv := widgetScenario(t, l)

	_, err := l.UpdateProduct(ctx, widget.ID, ProductInput{Name: "Widget v2", UnitPrice: dec("150"), Stock: 7})
	require.NoError(t, err)
	require.NoError(t, l.DeleteProduct(ctx, widget.ID))
	require.NoError(t, l.DeleteClient(ctx, acme.ID))

	kept, err := l.Invoice(inv.ID)
	require.NoError(t, err)
	assert.Equal(t, acme.ID, kept.ClientID)
	assert.Equal(t, "Widget", kept.Items[0].Description)
	requireDecimal(t, "100", kept.Items[0].UnitPrice)

	// The dangling client id may be kept on update.
	_, err = l.UpdateInvoice(ctx, inv.ID, InvoiceInput{ClientID: acme.ID, Items: kept.Items})
	require.NoError(t, err)

	// Restoring stock for a deleted product is a no-op.
	require.NoError(t, l.DeleteInvoice(ctx, inv.ID))
	assert.Empty(t, l.Products())
}

func TestPersistFailureLeavesStateUnchanged(t *testing.T) {
	store := newFlakyStore()
	rec := newCountingRecorder()
	l := openLedger(t, store, seed.Default(), WithRecorder(rec))
	ctx := context.Background()
	before := l.Snapshot()

	store.failSave = true
	_, _, err := l.CreateInvoice(ctx, InvoiceInput{
		ClientID: "c1",
		Items:    []billing.InvoiceItem{{ProductID: "p1", Quantity: 5, UnitPrice: dec("800")}},
	})
	require.ErrorIs(t, err, ErrPersist)
	_, err = l.CreateClient(ctx, ClientInput{Name: "x"})
	require.ErrorIs(t, err, ErrPersist)
	_, err = l.RecordPayment(ctx, PaymentInput{ClientID: "c1", Amount: dec("1")})
	require.ErrorIs(t, err, ErrPersist)
	require.ErrorIs(t, l.DeleteProduct(ctx, "p1"), ErrPersist)

	assert.Equal(t, before, l.Snapshot())
	assert.Equal(t, 1, rec.failures["create_invoice"])

	store.failSave = false
	_, _, err = l.CreateInvoice(ctx, InvoiceInput{
		ClientID: "c1",
		Items:    []billing.InvoiceItem{{ProductID: "p1", Quantity: 5, UnitPrice: dec("800")}},
	})
	require.NoError(t, err)
	p1, _ := l.Product("p1")
	assert.Equal(t, 195, p1.Stock)
}

func TestMutationsPersistAffectedDocuments(t *testing.T) {
	store := storage.NewMemoryStore()
	l := openLedger(t, store, seed.Default())
	ctx := context.Background()

	_, err := store.Load(ctx, "inv_products")
	require.ErrorIs(t, err, storage.ErrNotFound, "fallback data is not written back on open")

	_, _, err = l.CreateInvoice(ctx, InvoiceInput{
		ClientID: "c1",
		Items:    []billing.InvoiceItem{{ProductID: "p2", Quantity: 10, UnitPrice: dec("650")}},
	})
	require.NoError(t, err)

	reopened := openLedger(t, store, seed.Data{})
	assert.Len(t, reopened.Invoices(), 1)
	p2, err := reopened.Product("p2")
	require.NoError(t, err)
	assert.Equal(t, 140, p2.Stock)
	// Clients were never written, so the empty seed applies.
	assert.Empty(t, reopened.Clients())
}

func TestOpenFallsBackOnCorruptDocuments(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx,
		storage.Document{Key: "inv_products", Body: []byte(`{not json`)},
		storage.Document{Key: "inv_invoices", Body: []byte(`"oops"`)},
		storage.Document{Key: "inv_payments", Body: []byte(`null`)},
		storage.Document{Key: "inv_clients", Body: []byte(`[{"id":"c9","name":"Stored","type":"","wilaya":"","totalDebt":"1500"}]`)},
	))
	rec := newCountingRecorder()
	l := openLedger(t, store, seed.Default(), WithRecorder(rec))

	assert.Len(t, l.Products(), 4)
	assert.Empty(t, l.Invoices())
	assert.NotNil(t, l.Payments())
	clients := l.Clients()
	require.Len(t, clients, 1)
	assert.Equal(t, "c9", clients[0].ID)
	// The legacy stored debt is never used.
	requireDecimal(t, "0", l.ClientDebt("c9"))
	assert.ElementsMatch(t, []string{"inv_products", "inv_invoices"}, rec.fallbacks)
}

func TestOpenReadsBrowserEditionDocuments(t *testing.T) {
	store := storage.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx,
		storage.Document{Key: "inv_products", Body: []byte(`[{"id":"p1","name":"Couette","unit":"u","price":650,"stock":12}]`)},
		storage.Document{Key: "inv_invoices", Body: []byte(`[{"id":"i1","number":"01/2024","date":"2024-11-02","clientId":"c1",
			"items":[{"productId":"p1","description":"Couette","quantity":2,"unit":"u","unitPrice":650,"total":1300}],
			"totalHT":1300,"paid":300,"paymentMode":"À TERME","notes":"","createdAt":"2024-11-02T10:00:00.000Z"}]`)},
	))
	l := openLedger(t, store, seed.Default())

	requireDecimal(t, "1000", l.ClientDebt("c1"))
	assert.Equal(t, "02/2025", l.NextInvoiceNumber())
}

func TestOpenReturnsTransportErrors(t *testing.T) {
	store := newFlakyStore()
	store.failLoad = errors.New("connection refused")
	_, err := Open(context.Background(), store, seed.Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	_, err = Open(context.Background(), nil, seed.Default())
	require.Error(t, err)
}

func TestReset(t *testing.T) {
	store := storage.NewMemoryStore()
	l := openLedger(t, store, seed.Data{})
	widgetScenario(t, l)

	require.NoError(t, l.Reset(context.Background(), seed.Default()))
	assert.Len(t, l.Products(), 4)
	assert.Len(t, l.Clients(), 1)
	assert.Empty(t, l.Invoices())

	for _, key := range storage.NewKeys("").All() {
		_, err := store.Load(context.Background(), key)
		require.NoError(t, err, key)
	}
}

func TestConcurrentInvoicesNeverLoseStock(t *testing.T) {
	l := openLedger(t, newFlakyStore(), seed.Default())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := l.CreateInvoice(ctx, InvoiceInput{
				ClientID: "c1",
				Items:    []billing.InvoiceItem{{ProductID: "p3", Quantity: 2, UnitPrice: dec("800")}},
			})
			assert.NoError(t, err)
			_ = l.Dashboard()
		}()
	}
	wg.Wait()

	p3, _ := l.Product("p3")
	assert.Equal(t, 20, p3.Stock)
	assert.Len(t, l.Invoices(), 40)
}

func TestReadsReturnCopies(t *testing.T) {
	l := openLedger(t, storage.NewMemoryStore(), seed.Data{})
	_, _, inv := widgetScenario(t, l)

	invoices := l.Invoices()
	invoices[0].Items[0].Quantity = 99
	products := l.Products()
	products[0].Stock = 1000

	got, _ := l.Invoice(inv.ID)
	assert.Equal(t, 3, got.Items[0].Quantity)
	assert.Equal(t, 7, l.Products()[0].Stock)
}
