package allocation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farmastok/internal/core/apperror"
	"farmastok/internal/core/id"
	"farmastok/internal/domain/batch"
)

type fakeTxManager struct{}

func (fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fakeBatchRepo keeps batches in memory and applies decrements directly.
type fakeBatchRepo struct {
	batches []batch.Batch
}

func (r *fakeBatchRepo) GetByID(ctx context.Context, batchID id.ID) (*batch.Batch, error) {
	for i := range r.batches {
		if r.batches[i].ID == batchID {
			b := r.batches[i]
			return &b, nil
		}
	}
	return nil, apperror.NewNotFound("batch", batchID.String())
}

func (r *fakeBatchRepo) ListByProduct(ctx context.Context, productCode string) ([]batch.Batch, error) {
	var out []batch.Batch
	for _, b := range r.batches {
		if b.ProductCode == productCode {
			out = append(out, b)
		}
	}
	SortFIFO(out)
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
	return r.batches, len(r.batches), nil
}

func (r *fakeBatchRepo) SetStock(ctx context.Context, batchID id.ID, quantity int) error {
	for i := range r.batches {
		if r.batches[i].ID == batchID {
			r.batches[i].StockQuantity = quantity
			return nil
		}
	}
	return apperror.NewNotFound("batch", batchID.String())
}

func (r *fakeBatchRepo) DecrementStock(ctx context.Context, batchID id.ID, by int) error {
	for i := range r.batches {
		if r.batches[i].ID == batchID {
			if r.batches[i].StockQuantity < by {
				return apperror.NewConflict("stock changed concurrently")
			}
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

func (r *fakeBatchRepo) stockByCode(code string) int {
	for _, b := range r.batches {
		if b.BatchCode == code {
			return b.StockQuantity
		}
	}
	return -1
}

func TestEngineAllocate(t *testing.T) {
	repo := &fakeBatchRepo{batches: []batch.Batch{
		testBatch("B1", 5, day(10), day(1)),
		testBatch("B2", 5, day(20), day(2)),
		testBatch("B3", 5, day(30), day(3)),
	}}
	engine := NewEngine(repo, fakeTxManager{})

	deductions, err := engine.Allocate(context.Background(), "PRD-001", 7)
	require.NoError(t, err)

	assert.Equal(t, []int{5, 2}, quantities(deductions))
	assert.Equal(t, 0, repo.stockByCode("B1"))
	assert.Equal(t, 3, repo.stockByCode("B2"))
	assert.Equal(t, 5, repo.stockByCode("B3"))
}

func TestEngineAllocate_InsufficientLeavesStockUntouched(t *testing.T) {
	repo := &fakeBatchRepo{batches: []batch.Batch{
		testBatch("B1", 5, day(10), day(1)),
		testBatch("B2", 3, day(20), day(2)),
	}}
	engine := NewEngine(repo, fakeTxManager{})

	_, err := engine.Allocate(context.Background(), "PRD-001", 9)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInsufficientStock))

	assert.Equal(t, 5, repo.stockByCode("B1"))
	assert.Equal(t, 3, repo.stockByCode("B2"))
}

func TestEngineAllocate_SkipsEmptyBatches(t *testing.T) {
	repo := &fakeBatchRepo{batches: []batch.Batch{
		testBatch("B1", 0, day(10), day(1)),
		testBatch("B2", 5, day(20), day(2)),
	}}
	engine := NewEngine(repo, fakeTxManager{})

	deductions, err := engine.Allocate(context.Background(), "PRD-001", 4)
	require.NoError(t, err)

	require.Len(t, deductions, 1)
	assert.Equal(t, "B2", deductions[0].BatchCode)
	assert.Equal(t, 1, repo.stockByCode("B2"))
}
