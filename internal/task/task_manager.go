package task

import (
	"context"

	"go.uber.org/zap"
)

// ==================== TaskManager 定时任务管理器 ====================

// TaskManager 统一管理定时任务
type TaskManager struct {
	orderExpiry *OrderExpiryTask
}

// TaskManagerDeps 任务管理器依赖
type TaskManagerDeps struct {
	OrderExpirer OrderExpirer
}

// TaskManagerConfig 任务管理器配置
type TaskManagerConfig struct {
	OrderExpiryEnabled bool
	OrderExpirySpec    string
}

// DefaultConfig 默认配置
func DefaultConfig() *TaskManagerConfig {
	return &TaskManagerConfig{
		OrderExpiryEnabled: true,
		OrderExpirySpec:    DefaultOrderExpirySpec,
	}
}

// NewTaskManager 创建任务管理器
func NewTaskManager(deps *TaskManagerDeps, cfg *TaskManagerConfig) *TaskManager {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	tm := &TaskManager{}
	if cfg.OrderExpiryEnabled && deps.OrderExpirer != nil {
		tm.orderExpiry = NewOrderExpiryTask(deps.OrderExpirer, cfg.OrderExpirySpec)
	}
	return tm
}

// ==================== 生命周期管理 ====================

// Start 启动所有任务
func (tm *TaskManager) Start() error {
	if tm.orderExpiry != nil {
		if err := tm.orderExpiry.Start(); err != nil {
			return err
		}
	}
	zap.L().Info("scheduled tasks started", zap.Any("status", tm.Status()))
	return nil
}

// Stop 停止所有任务
func (tm *TaskManager) Stop() {
	if tm.orderExpiry != nil {
		tm.orderExpiry.Stop()
	}
}

// ==================== 手动触发接口 ====================

// TriggerOrderExpiry 立即执行一轮订单过期扫描
func (tm *TaskManager) TriggerOrderExpiry(ctx context.Context) (int64, error) {
	if tm.orderExpiry == nil {
		return 0, ErrTaskDisabled
	}
	return tm.orderExpiry.RunOnce(ctx), nil
}

// Status 获取任务状态
func (tm *TaskManager) Status() map[string]bool {
	return map[string]bool{
		"order_expiry": tm.orderExpiry != nil,
	}
}

// ==================== 错误定义 ====================

type TaskError string

func (e TaskError) Error() string { return string(e) }

const (
	ErrTaskDisabled TaskError = "task is disabled"
)
