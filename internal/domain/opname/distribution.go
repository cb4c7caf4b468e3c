// Package opname provides the stock-count (opname) workflow: the
// proportional distribution engine, the task state machine and the
// category-conflict guard.
package opname

import (
	"math"

	"farmastok/internal/core/apperror"
	"farmastok/internal/core/id"
)

// BatchStock is a batch's recorded system stock at distribution time.
// Callers must supply batches in canonical consumption order (expiry
// ascending, ties by arrival date), the same order allocation uses.
type BatchStock struct {
	BatchID     id.ID
	SystemStock int
}

// Share is one batch's slice of a physically counted total.
type Share struct {
	BatchID  id.ID
	Physical int
	Expired  int
	Damaged  int
}

// Result is the outcome of distributing one physical count over batches.
// Residual carries the signed part of the physical total that no batch
// absorbed; it is recorded as a synthetic adjustment row, never discarded.
type Result struct {
	Shares           []Share
	Residual         int
	TotalSystemStock int
}

// ValidateCounts checks a submitted count composition.
//
// expired+damaged may exceed physical only when physical is exactly zero,
// which models a batch found entirely expired or destroyed.
func ValidateCounts(physical, expired, damaged int) error {
	if physical < 0 {
		return apperror.NewInvalidInput("physical stock must be non-negative").
			WithDetail("physical_stock", physical)
	}
	if expired < 0 || damaged < 0 {
		return apperror.NewInvalidInput("expired and damaged stock must be non-negative").
			WithDetail("expired_stock", expired).
			WithDetail("damaged_stock", damaged)
	}
	if expired+damaged > physical && physical > 0 {
		return apperror.NewInvalidCountComposition(physical, expired, damaged)
	}
	return nil
}

// Distribute apportions a physically counted total back onto batches
// proportionally to their recorded system stock.
//
// A single batch receives the entire total; with more batches each share is
// min(remaining, round(physical * systemStock / totalSystemStock)), computed
// in the given order. Expired and damaged follow each batch's physical ratio
// against the remaining totals and are not capped by batch capacity.
func Distribute(batches []BatchStock, physical, expired, damaged int) (Result, error) {
	if err := ValidateCounts(physical, expired, damaged); err != nil {
		return Result{}, err
	}

	result := Result{
		Shares:           make([]Share, 0, len(batches)),
		TotalSystemStock: totalSystemStock(batches),
	}

	if len(batches) == 0 {
		result.Residual = physical
		return result, nil
	}

	if len(batches) == 1 {
		// No ratio math, no rounding loss.
		result.Shares = append(result.Shares, Share{
			BatchID:  batches[0].BatchID,
			Physical: physical,
			Expired:  expired,
			Damaged:  damaged,
		})
		return result, nil
	}

	remainingPhysical := physical
	remainingExpired := expired
	remainingDamaged := damaged

	for _, b := range batches {
		share := Share{BatchID: b.BatchID}

		if remainingPhysical > 0 && result.TotalSystemStock > 0 {
			proportional := roundRatio(physical, b.SystemStock, result.TotalSystemStock)
			if proportional > remainingPhysical {
				proportional = remainingPhysical
			}
			share.Physical = proportional

			if physical > 0 {
				ratio := float64(share.Physical) / float64(physical)
				share.Expired = int(math.Round(float64(remainingExpired) * ratio))
				share.Damaged = int(math.Round(float64(remainingDamaged) * ratio))
			}
		}

		remainingPhysical -= share.Physical
		remainingExpired -= share.Expired
		remainingDamaged -= share.Damaged

		result.Shares = append(result.Shares, share)
	}

	result.Residual = remainingPhysical
	return result, nil
}

// DistributeCapped apportions a counted total by filling batches in order,
// capping each share at the batch's recorded stock. Used by the admin
// direct-count path, where the count later overwrites batch quantities.
func DistributeCapped(batches []BatchStock, physical, expired, damaged int) (Result, error) {
	if err := ValidateCounts(physical, expired, damaged); err != nil {
		return Result{}, err
	}

	result := Result{
		Shares:           make([]Share, 0, len(batches)),
		TotalSystemStock: totalSystemStock(batches),
	}

	remainingPhysical := physical
	remainingExpired := expired
	remainingDamaged := damaged

	for _, b := range batches {
		share := Share{BatchID: b.BatchID}

		if remainingPhysical > 0 {
			take := b.SystemStock
			if take > remainingPhysical {
				take = remainingPhysical
			}
			if take < 0 {
				take = 0
			}
			share.Physical = take

			if physical > 0 {
				ratio := float64(share.Physical) / float64(physical)
				share.Expired = int(math.Round(float64(remainingExpired) * ratio))
				share.Damaged = int(math.Round(float64(remainingDamaged) * ratio))
			}
		}

		remainingPhysical -= share.Physical
		remainingExpired -= share.Expired
		remainingDamaged -= share.Damaged

		result.Shares = append(result.Shares, share)
	}

	result.Residual = remainingPhysical
	return result, nil
}

func totalSystemStock(batches []BatchStock) int {
	total := 0
	for _, b := range batches {
		total += b.SystemStock
	}
	return total
}

func roundRatio(total, part, whole int) int {
	return int(math.Round(float64(total) * float64(part) / float64(whole)))
}
