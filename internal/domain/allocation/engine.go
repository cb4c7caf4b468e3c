package allocation

import (
	"context"
	"fmt"

	"farmastok/internal/core/tx"
	"farmastok/internal/domain/batch"
	"farmastok/pkg/logger"
)

// Engine applies FIFO allocation plans to the batch ledger.
type Engine struct {
	batches   batch.Repository
	txManager tx.Manager
}

// NewEngine creates a new allocation engine.
func NewEngine(batches batch.Repository, txManager tx.Manager) *Engine {
	return &Engine{
		batches:   batches,
		txManager: txManager,
	}
}

// Allocate deducts the requested quantity from a product's batches in FIFO
// order inside one transaction.
//
// All candidate rows are locked before any validation runs, so a concurrent
// sale or reconciliation on the same product serializes here. Total
// availability is validated before the first write; on any failure the
// transaction rolls back and no batch is touched.
func (e *Engine) Allocate(ctx context.Context, productCode string, requested int) ([]Deduction, error) {
	var deductions []Deduction

	err := e.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		candidates, err := e.batches.ListAvailableForUpdate(ctx, productCode)
		if err != nil {
			return fmt.Errorf("lock batches for %s: %w", productCode, err)
		}

		deductions, err = Plan(candidates, requested)
		if err != nil {
			return err
		}

		for _, d := range deductions {
			if err := e.batches.DecrementStock(ctx, d.BatchID, d.Quantity); err != nil {
				return fmt.Errorf("deduct %d from batch %s: %w", d.Quantity, d.BatchCode, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock allocated",
		"product_code", productCode,
		"requested", requested,
		"batches_touched", len(deductions),
	)
	return deductions, nil
}
