package task

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultOrderExpirySpec 每 15 分钟（6 段 cron，含秒）
const DefaultOrderExpirySpec = "0 */15 * * * *"

// OrderExpirer 将过期的待处理订单标记为 expired
type OrderExpirer interface {
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}

// ==================== OrderExpiryTask 订单过期任务 ====================

// OrderExpiryTask 定时扫描 expires_at 已过的 pending 订单
type OrderExpiryTask struct {
	expirer OrderExpirer
	cron    *cron.Cron
	spec    string
	timeout time.Duration
	now     func() time.Time

	// 防止上一轮未结束时重入
	mu      sync.Mutex
	running bool
}

// NewOrderExpiryTask 创建订单过期任务，spec 为空时使用默认周期
func NewOrderExpiryTask(expirer OrderExpirer, spec string) *OrderExpiryTask {
	if spec == "" {
		spec = DefaultOrderExpirySpec
	}
	return &OrderExpiryTask{
		expirer: expirer,
		cron:    cron.New(cron.WithSeconds()),
		spec:    spec,
		timeout: 2 * time.Minute,
		now:     time.Now,
	}
}

// Start 启动定时任务
func (t *OrderExpiryTask) Start() error {
	if _, err := t.cron.AddFunc(t.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		defer cancel()
		t.RunOnce(ctx)
	}); err != nil {
		return err
	}

	t.cron.Start()
	zap.L().Info("order expiry task started", zap.String("spec", t.spec))
	return nil
}

// Stop 停止任务并等待正在执行的一轮结束
func (t *OrderExpiryTask) Stop() {
	ctx := t.cron.Stop()
	<-ctx.Done()
	zap.L().Info("order expiry task stopped")
}

// RunOnce 执行一轮过期扫描，返回标记数量；上一轮仍在执行时直接跳过
func (t *OrderExpiryTask) RunOnce(ctx context.Context) int64 {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		zap.L().Debug("order expiry still running, skip")
		return 0
	}
	t.running = true
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.running = false
		t.mu.Unlock()
	}()

	start := t.now()
	n, err := t.expirer.ExpireOverdue(ctx, start)
	if err != nil {
		zap.L().Error("expire orders failed", zap.Error(err))
		return 0
	}
	if n > 0 {
		zap.L().Info("orders expired",
			zap.Int64("count", n),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
	return n
}
