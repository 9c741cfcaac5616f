package worker

import (
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"blvckboard/internal/tasks"
)

// Scheduler 周期性地排队画板刷新任务，兜底修正缓存漂移
type Scheduler struct {
	scheduler *asynq.Scheduler
	log       *logrus.Entry
}

// NewScheduler 创建 Scheduler 实例并注册周期任务。schedule 为空时使用 "@every 5m"。
func NewScheduler(redisOpt asynq.RedisClientOpt, schedule string, logger *logrus.Logger) (*Scheduler, error) {
	logEntry := logger.WithField("component", "scheduler")
	if schedule == "" {
		schedule = "@every 5m"
	}

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{Logger: logEntry})

	task, err := tasks.NewBoardRefreshTask(tasks.ReasonPeriodic, "")
	if err != nil {
		return nil, err
	}
	entryID, err := scheduler.Register(schedule, task, asynq.Queue("default"))
	if err != nil {
		return nil, err
	}
	logEntry.Infof("Periodic board refresh registered with schedule '%s' (EntryID: %s)", schedule, entryID)

	return &Scheduler{scheduler: scheduler, log: logEntry}, nil
}

// Start 启动 Scheduler，不阻塞
func (s *Scheduler) Start() error {
	s.log.Info("Asynq scheduler starting...")
	if err := s.scheduler.Start(); err != nil {
		return fmt.Errorf("could not start scheduler: %w", err)
	}
	return nil
}

// Shutdown 停止 Scheduler
func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
	s.log.Info("Asynq scheduler stopped.")
}
