// Package allocation provides the FIFO-by-expiry stock allocation engine.
//
// Whenever stock leaves the system the engine deducts the requested quantity
// across a product's batches, consuming the soonest-to-expire batch first and
// never over-drawing any batch.
package allocation

import (
	"sort"

	"farmastok/internal/core/apperror"
	"farmastok/internal/core/id"
	"farmastok/internal/domain/batch"
)

// Deduction records how much was taken from one batch.
type Deduction struct {
	BatchID     id.ID
	BatchCode   string
	ProductCode string
	Quantity    int
}

// SortFIFO orders batches by expiry date ascending, ties broken by arrival
// date. This is the single canonical consumption order used by both
// allocation and distribution.
func SortFIFO(batches []batch.Batch) {
	sort.SliceStable(batches, func(i, j int) bool {
		if !batches[i].ExpiryDate.Equal(batches[j].ExpiryDate) {
			return batches[i].ExpiryDate.Before(batches[j].ExpiryDate)
		}
		return batches[i].ArrivalDate.Before(batches[j].ArrivalDate)
	})
}

// Plan computes FIFO deductions for the requested quantity without touching
// any storage. Batches must belong to one product; they are re-sorted into
// canonical order defensively.
//
// The returned deductions always sum to exactly requested, or an error is
// returned and nothing is usable: callers apply either the whole plan or
// none of it.
func Plan(batches []batch.Batch, requested int) ([]Deduction, error) {
	if requested <= 0 {
		return nil, apperror.NewInvalidInput("requested quantity must be a positive integer").
			WithDetail("requested", requested)
	}

	available := batch.TotalStock(batches)
	if available < requested {
		productCode := ""
		if len(batches) > 0 {
			productCode = batches[0].ProductCode
		}
		return nil, apperror.NewInsufficientStock(productCode, requested, available)
	}

	ordered := make([]batch.Batch, len(batches))
	copy(ordered, batches)
	SortFIFO(ordered)

	remaining := requested
	deductions := make([]Deduction, 0, len(ordered))
	for _, b := range ordered {
		if remaining == 0 {
			break
		}
		if b.StockQuantity <= 0 {
			continue
		}

		take := b.StockQuantity
		if remaining < take {
			take = remaining
		}

		deductions = append(deductions, Deduction{
			BatchID:     b.ID,
			BatchCode:   b.BatchCode,
			ProductCode: b.ProductCode,
			Quantity:    take,
		})
		remaining -= take
	}

	return deductions, nil
}
