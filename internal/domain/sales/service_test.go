package sales

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farmastok/internal/core/apperror"
	"farmastok/internal/core/appctx"
	"farmastok/internal/core/id"
	"farmastok/internal/core/types"
	"farmastok/internal/domain/allocation"
	"farmastok/internal/domain/batch"
	"farmastok/internal/domain/catalog"
)

type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeSaleRepo struct {
	sales map[id.ID]*Sale
}

func newFakeSaleRepo() *fakeSaleRepo {
	return &fakeSaleRepo{sales: make(map[id.ID]*Sale)}
}

func (r *fakeSaleRepo) Create(ctx context.Context, sale *Sale) error {
	copied := *sale
	r.sales[sale.ID] = &copied
	return nil
}

func (r *fakeSaleRepo) GetByID(ctx context.Context, saleID id.ID) (*Sale, error) {
	s, ok := r.sales[saleID]
	if !ok {
		return nil, apperror.NewNotFound("sale", saleID.String())
	}
	copied := *s
	return &copied, nil
}

func (r *fakeSaleRepo) List(ctx context.Context, filter Filter) ([]Sale, int, error) {
	var out []Sale
	for _, s := range r.sales {
		out = append(out, *s)
	}
	return out, len(out), nil
}

type fakeCatalogRepo struct {
	products map[string]catalog.Product
}

func (r *fakeCatalogRepo) GetProduct(ctx context.Context, code string) (*catalog.Product, error) {
	p, ok := r.products[code]
	if !ok {
		return nil, apperror.NewNotFound("product", code)
	}
	return &p, nil
}

func (r *fakeCatalogRepo) GetProductByName(ctx context.Context, name string) (*catalog.Product, error) {
	for _, p := range r.products {
		if p.Name == name {
			return &p, nil
		}
	}
	return nil, apperror.NewNotFound("product", name)
}

func (r *fakeCatalogRepo) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	return nil, nil
}

func (r *fakeCatalogRepo) ListProductsByCategory(ctx context.Context, categoryCode string) ([]catalog.Product, error) {
	return nil, nil
}

func (r *fakeCatalogRepo) GetCategory(ctx context.Context, code string) (*catalog.Category, error) {
	return nil, apperror.NewNotFound("category", code)
}

type fakeBatchRepo struct {
	batches []batch.Batch
}

func (r *fakeBatchRepo) GetByID(ctx context.Context, batchID id.ID) (*batch.Batch, error) {
	return nil, apperror.NewNotFound("batch", batchID.String())
}

func (r *fakeBatchRepo) ListByProduct(ctx context.Context, productCode string) ([]batch.Batch, error) {
	var out []batch.Batch
	for _, b := range r.batches {
		if b.ProductCode == productCode {
			out = append(out, b)
		}
	}
	allocation.SortFIFO(out)
	return out, nil
}

func (r *fakeBatchRepo) ListByProductForUpdate(ctx context.Context, productCode string) ([]batch.Batch, error) {
	return r.ListByProduct(ctx, productCode)
}

func (r *fakeBatchRepo) ListAvailableForUpdate(ctx context.Context, productCode string) ([]batch.Batch, error) {
	all, _ := r.ListByProduct(ctx, productCode)
	var out []batch.Batch
	for _, b := range all {
		if b.StockQuantity > 0 {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeBatchRepo) Search(ctx context.Context, filter batch.SearchFilter) ([]batch.Batch, int, error) {
	return nil, 0, nil
}

func (r *fakeBatchRepo) SetStock(ctx context.Context, batchID id.ID, quantity int) error {
	return nil
}

func (r *fakeBatchRepo) DecrementStock(ctx context.Context, batchID id.ID, by int) error {
	for i := range r.batches {
		if r.batches[i].ID == batchID {
			r.batches[i].StockQuantity -= by
			return nil
		}
	}
	return apperror.NewNotFound("batch", batchID.String())
}

func (r *fakeBatchRepo) UpdateExpiry(ctx context.Context, batchID id.ID, expiry time.Time) error {
	return nil
}

func (r *fakeBatchRepo) TotalStockByProduct(ctx context.Context) (map[string]batch.StockTotal, error) {
	return nil, nil
}

func userCtx() context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID: id.New().String(),
		Name:   "staff",
		Role:   appctx.RoleStaff,
	})
}

func expiring(code, productCode string, stock, daysOut int) batch.Batch {
	return batch.Batch{
		ID:            id.New(),
		BatchCode:     code,
		ProductCode:   productCode,
		StockQuantity: stock,
		ArrivalDate:   time.Now().AddDate(0, 0, -30),
		ExpiryDate:    time.Now().AddDate(0, 0, daysOut),
	}
}

func newTestService(repo *fakeSaleRepo, batches *fakeBatchRepo, products map[string]catalog.Product) *Service {
	txm := fakeTxManager{}
	cat := &fakeCatalogRepo{products: products}
	return NewService(repo, cat, allocation.NewEngine(batches, txm), txm)
}

func TestCreateSale(t *testing.T) {
	repo := newFakeSaleRepo()
	batches := &fakeBatchRepo{batches: []batch.Batch{
		expiring("B1", "PRD-001", 5, 30),
		expiring("B2", "PRD-001", 5, 90),
	}}
	products := map[string]catalog.Product{
		"PRD-001": {Code: "PRD-001", Name: "Paracetamol", SellPrice: types.MustMoney("12.50")},
	}
	svc := newTestService(repo, batches, products)

	saleDate := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	sale, err := svc.Create(userCtx(), CreateInput{
		SaleDate:     saleDate,
		CustomerName: "Walk-in",
		Lines:        []LineInput{{ProductCode: "PRD-001", Quantity: 7}},
	})
	require.NoError(t, err)

	require.Len(t, sale.Lines, 1)
	assert.Equal(t, "87.5", sale.TotalAmount.String())
	assert.Regexp(t, `^INV-20260315-[0-9a-f-]{12}$`, sale.InvoiceNumber)

	// Soonest-to-expire batch drains first.
	assert.Equal(t, 0, batches.batches[0].StockQuantity)
	assert.Equal(t, 3, batches.batches[1].StockQuantity)

	stored, err := svc.GetByID(context.Background(), sale.ID)
	require.NoError(t, err)
	assert.Equal(t, sale.InvoiceNumber, stored.InvoiceNumber)
}

func TestCreateSale_ResolvesByName(t *testing.T) {
	repo := newFakeSaleRepo()
	batches := &fakeBatchRepo{batches: []batch.Batch{expiring("B1", "PRD-001", 10, 30)}}
	products := map[string]catalog.Product{
		"PRD-001": {Code: "PRD-001", Name: "Paracetamol", SellPrice: types.MustMoney("10")},
	}
	svc := newTestService(repo, batches, products)

	sale, err := svc.Create(userCtx(), CreateInput{
		Lines: []LineInput{{ProductName: "Paracetamol", Quantity: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, "PRD-001", sale.Lines[0].ProductCode)
}

func TestCreateSale_InsufficientStockRollsBack(t *testing.T) {
	repo := newFakeSaleRepo()
	batches := &fakeBatchRepo{batches: []batch.Batch{expiring("B1", "PRD-001", 3, 30)}}
	products := map[string]catalog.Product{
		"PRD-001": {Code: "PRD-001", Name: "Paracetamol", SellPrice: types.MustMoney("10")},
	}
	svc := newTestService(repo, batches, products)

	_, err := svc.Create(userCtx(), CreateInput{
		Lines: []LineInput{{ProductCode: "PRD-001", Quantity: 5}},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInsufficientStock))
	assert.Empty(t, repo.sales)
}

func TestCreateSale_Validation(t *testing.T) {
	svc := newTestService(newFakeSaleRepo(), &fakeBatchRepo{}, nil)

	_, err := svc.Create(context.Background(), CreateInput{
		Lines: []LineInput{{ProductCode: "PRD-001", Quantity: 1}},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeUnauthorized))

	_, err = svc.Create(userCtx(), CreateInput{})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidInput))

	_, err = svc.Create(userCtx(), CreateInput{
		Lines: []LineInput{{ProductCode: "PRD-001", Quantity: 0}},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidInput))

	_, err = svc.Create(userCtx(), CreateInput{
		Lines: []LineInput{{Quantity: 1}},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidInput))
}

func TestNewInvoiceNumber(t *testing.T) {
	saleDate := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	a := newInvoiceNumber(saleDate)
	b := newInvoiceNumber(saleDate)

	assert.Regexp(t, `^INV-20260315-[0-9a-f-]{12}$`, a)
	assert.NotEqual(t, a, b)
}
