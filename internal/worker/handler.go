package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"blvckboard/internal/tasks"
)

// CacheRefresher 从数据库重建画板缓存 (由 BoardService 实现)
type CacheRefresher interface {
	RefreshCache(ctx context.Context) (int, error)
}

// BoardRefreshHandler 处理画板刷新任务
type BoardRefreshHandler struct {
	refresher CacheRefresher
}

// NewBoardRefreshHandler 创建 Handler 实例
func NewBoardRefreshHandler(refresher CacheRefresher) *BoardRefreshHandler {
	if refresher == nil {
		panic("CacheRefresher cannot be nil for BoardRefreshHandler")
	}
	return &BoardRefreshHandler{refresher: refresher}
}

// ProcessTask 实现 asynq.Handler 接口
func (h *BoardRefreshHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	taskID := ""
	if rw := t.ResultWriter(); rw != nil {
		taskID = rw.TaskID()
	}
	currentRetry, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)

	logCtx := logrus.WithFields(logrus.Fields{
		"task_id":   taskID,
		"task_type": t.Type(),
		"retry":     currentRetry,
		"max_retry": maxRetry,
	})

	payload, err := tasks.ParseBoardRefreshPayload(t)
	if err != nil {
		logCtx.WithError(err).Error("Failed to unmarshal task payload")
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	logCtx = logCtx.WithFields(logrus.Fields{"reason": payload.Reason, "coordinate": payload.Coordinate})
	logCtx.Debug("Processing board refresh task...")

	count, err := h.refresher.RefreshCache(ctx)
	if err != nil {
		logCtx.WithError(err).Error("Failed to refresh board cache")
		return fmt.Errorf("failed to refresh board cache: %w", err)
	}

	logCtx.WithField("cells", count).Info("Board cache refreshed")
	return nil
}
