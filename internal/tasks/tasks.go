package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// 定义任务类型常量
const (
	TypeBoardRefresh = "board:refresh" // 从数据库重建画板缓存
)

// 刷新原因
const (
	ReasonCellChanged = "cell_changed"
	ReasonPeriodic    = "periodic"
	ReasonManual      = "manual"
)

// refreshUniqueTTL 内重复入队的刷新任务会被 asynq 丢弃
const refreshUniqueTTL = 5 * time.Second

// BoardRefreshPayload 定义了画板刷新任务的数据结构
type BoardRefreshPayload struct {
	Reason     string `json:"reason"`
	Coordinate string `json:"coordinate,omitempty"` // 触发刷新的单元格，仅用于日志
}

// NewBoardRefreshTask 创建一个新的画板刷新任务
func NewBoardRefreshTask(reason, coordinate string) (*asynq.Task, error) {
	payloadBytes, err := json.Marshal(BoardRefreshPayload{Reason: reason, Coordinate: coordinate})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeBoardRefresh, payloadBytes), nil
}

// ParseBoardRefreshPayload 解析画板刷新任务的 payload
func ParseBoardRefreshPayload(t *asynq.Task) (BoardRefreshPayload, error) {
	var payload BoardRefreshPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return payload, err
	}
	return payload, nil
}

// Enqueuer 是 asynq.Client 中 Dispatcher 需要的部分
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Dispatcher 把领域事件转换成 asynq 任务
type Dispatcher struct {
	client Enqueuer
	queue  string
}

// NewDispatcher 创建 Dispatcher 实例
func NewDispatcher(client Enqueuer) *Dispatcher {
	if client == nil {
		panic("asynq client cannot be nil for Dispatcher")
	}
	return &Dispatcher{client: client, queue: "default"}
}

// EnqueueBoardRefresh 排队一次画板刷新。
// 短时间内的多次写入只会产生一个任务，重复入队不算错误。
func (d *Dispatcher) EnqueueBoardRefresh(ctx context.Context, reason, coordinate string) error {
	task, err := NewBoardRefreshTask(reason, coordinate)
	if err != nil {
		return fmt.Errorf("tasks: failed to build board refresh task: %w", err)
	}
	_, err = d.client.EnqueueContext(ctx, task, asynq.Queue(d.queue), asynq.Unique(refreshUniqueTTL), asynq.MaxRetry(3))
	if err != nil {
		if errors.Is(err, asynq.ErrDuplicateTask) {
			return nil
		}
		return fmt.Errorf("tasks: failed to enqueue board refresh: %w", err)
	}
	return nil
}
