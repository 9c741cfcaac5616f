package service

import "math"

// DefaultCellsPerHolding 每持有一个 NFT 可认领的单元格数
const DefaultCellsPerHolding int64 = 2

// QuotaResolver 根据外部持有数量计算可持有的单元格上限，纯函数，无状态。
type QuotaResolver struct {
	CellsPerHolding int64
}

// NewQuotaResolver 创建 QuotaResolver，非正数倍率回退到默认值
func NewQuotaResolver(cellsPerHolding int64) QuotaResolver {
	if cellsPerHolding <= 0 {
		cellsPerHolding = DefaultCellsPerHolding
	}
	return QuotaResolver{CellsPerHolding: cellsPerHolding}
}

// MaxAllowed 返回 holdingCount * CellsPerHolding。
// 持有 0 个 (或负数) 只能浏览不能认领；结果在 math.MaxInt64 处饱和。
func (q QuotaResolver) MaxAllowed(holdingCount int64) int64 {
	per := q.CellsPerHolding
	if per <= 0 {
		per = DefaultCellsPerHolding
	}
	if holdingCount <= 0 {
		return 0
	}
	if holdingCount > math.MaxInt64/per {
		return math.MaxInt64
	}
	return holdingCount * per
}
