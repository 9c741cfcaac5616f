package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// 默认画板尺寸 (100 列 x 50 行)
const (
	DefaultBoardWidth  = 100
	DefaultBoardHeight = 50
)

// ErrInvalidCoordinate 表示坐标字符串格式错误或不在画板范围内
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Board 描述画板的尺寸。画板本身不存储，它只是合法坐标的取值范围。
// 坐标从 0 开始，y 为行，x 为列。
type Board struct {
	Width  int
	Height int
}

// NewBoard 创建 Board，非正数尺寸回退到默认值。
func NewBoard(width, height int) Board {
	if width <= 0 {
		width = DefaultBoardWidth
	}
	if height <= 0 {
		height = DefaultBoardHeight
	}
	return Board{Width: width, Height: height}
}

// Contains 判断 (x, y) 是否落在画板内。
func (b Board) Contains(x, y int) bool {
	return x >= 0 && x < b.Width && y >= 0 && y < b.Height
}

// Coordinate 是单元格的位置，规范字符串形式为 "x,y"。
type Coordinate struct {
	X int
	Y int
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%d,%d", c.X, c.Y)
}

// ParseCoordinate 解析 "x,y" 格式的坐标。
// 只接受两个非负十进制整数，中间一个逗号，两侧空白会被去掉。
func ParseCoordinate(s string) (Coordinate, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return Coordinate{}, fmt.Errorf("%w: %q", ErrInvalidCoordinate, s)
	}
	x, err := parseAxis(parts[0])
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: %q", ErrInvalidCoordinate, s)
	}
	y, err := parseAxis(parts[1])
	if err != nil {
		return Coordinate{}, fmt.Errorf("%w: %q", ErrInvalidCoordinate, s)
	}
	return Coordinate{X: x, Y: y}, nil
}

// ParseOnBoard 解析坐标并检查它是否在画板内。
func (b Board) ParseOnBoard(s string) (Coordinate, error) {
	coord, err := ParseCoordinate(s)
	if err != nil {
		return Coordinate{}, err
	}
	if !b.Contains(coord.X, coord.Y) {
		return Coordinate{}, fmt.Errorf("%w: %s is outside %dx%d board", ErrInvalidCoordinate, coord, b.Width, b.Height)
	}
	return coord, nil
}

func parseAxis(s string) (int, error) {
	s = strings.TrimSpace(s)
	// 拒绝 "+1" 这类 Atoi 能接受的写法，规范形式只有纯数字
	if s == "" || strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return 0, strconv.ErrSyntax
	}
	return strconv.Atoi(s)
}
