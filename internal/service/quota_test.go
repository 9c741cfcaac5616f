package service_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"blvckboard/internal/service"
)

func TestQuotaResolver_MaxAllowed(t *testing.T) {
	q := service.NewQuotaResolver(2)

	assert.Equal(t, int64(0), q.MaxAllowed(0), "没有持有就不能认领")
	assert.Equal(t, int64(2), q.MaxAllowed(1))
	assert.Equal(t, int64(20), q.MaxAllowed(10))
	assert.Equal(t, int64(0), q.MaxAllowed(-3))
	assert.Equal(t, int64(math.MaxInt64), q.MaxAllowed(math.MaxInt64), "溢出时饱和")
}

func TestQuotaResolver_Defaults(t *testing.T) {
	assert.Equal(t, service.DefaultCellsPerHolding, service.NewQuotaResolver(0).CellsPerHolding)
	assert.Equal(t, service.DefaultCellsPerHolding, service.NewQuotaResolver(-1).CellsPerHolding)
	// 零值也按默认倍率计算
	assert.Equal(t, int64(6), service.QuotaResolver{}.MaxAllowed(3))
	assert.Equal(t, int64(15), service.NewQuotaResolver(5).MaxAllowed(3))
}
