package opname

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farmastok/internal/core/apperror"
	"farmastok/internal/core/id"
)

func batchStocks(stocks ...int) []BatchStock {
	out := make([]BatchStock, 0, len(stocks))
	for _, s := range stocks {
		out = append(out, BatchStock{BatchID: id.New(), SystemStock: s})
	}
	return out
}

func physicals(shares []Share) []int {
	out := make([]int, 0, len(shares))
	for _, s := range shares {
		out = append(out, s.Physical)
	}
	return out
}

func TestValidateCounts(t *testing.T) {
	assert.NoError(t, ValidateCounts(10, 3, 2))
	assert.NoError(t, ValidateCounts(10, 10, 0))

	// A fully lost batch: physical zero with expired/damaged recorded.
	assert.NoError(t, ValidateCounts(0, 5, 3))

	err := ValidateCounts(10, 8, 5)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidCountComposition))

	err = ValidateCounts(-1, 0, 0)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidInput))

	err = ValidateCounts(5, -1, 0)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidInput))
}

func TestDistribute_SingleBatch(t *testing.T) {
	batches := batchStocks(40)

	res, err := Distribute(batches, 37, 4, 2)
	require.NoError(t, err)

	require.Len(t, res.Shares, 1)
	assert.Equal(t, 37, res.Shares[0].Physical)
	assert.Equal(t, 4, res.Shares[0].Expired)
	assert.Equal(t, 2, res.Shares[0].Damaged)
	assert.Equal(t, 0, res.Residual)
	assert.Equal(t, 40, res.TotalSystemStock)
}

func TestDistribute_Proportional(t *testing.T) {
	batches := batchStocks(30, 70)

	res, err := Distribute(batches, 50, 0, 0)
	require.NoError(t, err)

	assert.Equal(t, []int{15, 35}, physicals(res.Shares))
	assert.Equal(t, 0, res.Residual)
	assert.Equal(t, 100, res.TotalSystemStock)
}

func TestDistribute_SharesNeverExceedCount(t *testing.T) {
	// Rounding both shares up would overshoot; the second share must be
	// capped at what remains.
	batches := batchStocks(1, 1)

	res, err := Distribute(batches, 1, 0, 0)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 0}, physicals(res.Shares))
	assert.Equal(t, 0, res.Residual)
}

func TestDistribute_SurplusBecomesResidual(t *testing.T) {
	batches := batchStocks(10, 10)

	// 30 counted against 20 recorded: each batch takes its proportional
	// share of the count, the untraceable rest surfaces as residual.
	res, err := Distribute(batches, 30, 0, 0)
	require.NoError(t, err)

	total := 0
	for _, s := range res.Shares {
		total += s.Physical
	}
	assert.Equal(t, 30, total+res.Residual)
	assert.Equal(t, 20, res.TotalSystemStock)
}

func TestDistribute_ZeroSystemStock(t *testing.T) {
	batches := batchStocks(0, 0)

	res, err := Distribute(batches, 12, 0, 0)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 0}, physicals(res.Shares))
	assert.Equal(t, 12, res.Residual)
}

func TestDistribute_NoBatches(t *testing.T) {
	res, err := Distribute(nil, 7, 0, 0)
	require.NoError(t, err)

	assert.Empty(t, res.Shares)
	assert.Equal(t, 7, res.Residual)
}

func TestDistribute_ExpiredDamagedFollowRatio(t *testing.T) {
	batches := batchStocks(50, 50)

	res, err := Distribute(batches, 40, 10, 4)
	require.NoError(t, err)

	require.Len(t, res.Shares, 2)
	// First batch takes half the count, so half of the expired and
	// damaged totals; the second takes its ratio of what remains.
	assert.Equal(t, Share{BatchID: batches[0].BatchID, Physical: 20, Expired: 5, Damaged: 2}, res.Shares[0])
	assert.Equal(t, Share{BatchID: batches[1].BatchID, Physical: 20, Expired: 3, Damaged: 1}, res.Shares[1])
}

func TestDistribute_InvalidComposition(t *testing.T) {
	_, err := Distribute(batchStocks(10), 5, 4, 3)
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidCountComposition))
}

func TestDistributeCapped_FillsInOrder(t *testing.T) {
	batches := batchStocks(10, 20)

	res, err := DistributeCapped(batches, 25, 0, 0)
	require.NoError(t, err)

	assert.Equal(t, []int{10, 15}, physicals(res.Shares))
	assert.Equal(t, 0, res.Residual)
}

func TestDistributeCapped_OverflowBecomesResidual(t *testing.T) {
	batches := batchStocks(10, 20)

	res, err := DistributeCapped(batches, 40, 0, 0)
	require.NoError(t, err)

	assert.Equal(t, []int{10, 20}, physicals(res.Shares))
	assert.Equal(t, 10, res.Residual)
}

func TestDistributeCapped_ShortCount(t *testing.T) {
	batches := batchStocks(10, 20)

	res, err := DistributeCapped(batches, 6, 0, 0)
	require.NoError(t, err)

	assert.Equal(t, []int{6, 0}, physicals(res.Shares))
	assert.Equal(t, 0, res.Residual)
}
