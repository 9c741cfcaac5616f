package domain

import (
	"time"
	"unicode/utf8"
)

// Cell 是画板上一个被认领过的单元格。
// 从未被认领的坐标没有记录；记录只会被覆盖，不会被删除。
type Cell struct {
	Coordinate string    `gorm:"primaryKey;size:16" json:"coordinate"`        // "x,y"，主键
	Color      string    `gorm:"size:64;not null" json:"color"`               // 颜色 (hex / hsl 字符串)
	Symbol     string    `gorm:"size:8" json:"symbol"`                        // 最多一个字符
	Comment    string    `gorm:"type:text" json:"comment"`                    // 留言，可为空
	Owner      string    `gorm:"size:191;index:idx_cells_owner" json:"owner"` // 钱包地址
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"-"`
}

// TableName 固定表名
func (Cell) TableName() string {
	return "cells"
}

// OwnedBy 判断单元格当前是否属于 owner。
func (c *Cell) OwnedBy(owner string) bool {
	return c != nil && c.Owner != "" && c.Owner == owner
}

// CellProjection 是认领成功后返回给客户端的字段。
type CellProjection struct {
	Coordinate string `json:"coordinate"`
	Color      string `json:"color"`
	Symbol     string `json:"symbol"`
}

// Projection 返回 {coordinate, color, symbol}
func (c *Cell) Projection() CellProjection {
	return CellProjection{
		Coordinate: c.Coordinate,
		Color:      c.Color,
		Symbol:     c.Symbol,
	}
}

// ValidSymbol 判断 symbol 是否为空或恰好一个字符 (rune)。
func ValidSymbol(s string) bool {
	return s == "" || (utf8.ValidString(s) && utf8.RuneCountInString(s) == 1)
}
