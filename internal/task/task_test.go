package task

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"marketplace_admin/internal/model"
	"marketplace_admin/internal/repository"
	"marketplace_admin/internal/service"
)

// ==================== 辅助 ====================

type fakeExpirer struct {
	calls atomic.Int32
	n     int64
	err   error
	block chan struct{}
	last  time.Time
	mu    sync.Mutex
}

func (f *fakeExpirer) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.last = now
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	return f.n, f.err
}

func setupTaskTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	if err := db.AutoMigrate(&model.Order{}, &model.OrderLineItem{}); err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}
	return db
}

// ==================== OrderExpiryTask ====================

func TestOrderExpiryTask_RunOnce(t *testing.T) {
	fixed := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	f := &fakeExpirer{n: 3}

	task := NewOrderExpiryTask(f, "")
	task.now = func() time.Time { return fixed }

	assert.Equal(t, DefaultOrderExpirySpec, task.spec)
	assert.Equal(t, int64(3), task.RunOnce(context.Background()))
	assert.Equal(t, fixed, f.last)

	f.err = errors.New("db down")
	assert.Equal(t, int64(0), task.RunOnce(context.Background()), "失败时返回 0")
}

func TestOrderExpiryTask_SkipsWhileRunning(t *testing.T) {
	f := &fakeExpirer{n: 1, block: make(chan struct{})}
	task := NewOrderExpiryTask(f, "")

	done := make(chan int64)
	go func() { done <- task.RunOnce(context.Background()) }()

	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	// 上一轮未结束，直接跳过
	assert.Equal(t, int64(0), task.RunOnce(context.Background()))
	assert.Equal(t, int32(1), f.calls.Load())

	close(f.block)
	assert.Equal(t, int64(1), <-done)
}

func TestOrderExpiryTask_InvalidSpec(t *testing.T) {
	task := NewOrderExpiryTask(&fakeExpirer{}, "not a cron spec")
	assert.Error(t, task.Start())
}

func TestOrderExpiryTask_Schedule(t *testing.T) {
	f := &fakeExpirer{}
	task := NewOrderExpiryTask(f, "* * * * * *")
	require.NoError(t, task.Start())
	defer task.Stop()

	require.Eventually(t, func() bool { return f.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestOrderExpiryTask_WithOrderService(t *testing.T) {
	db := setupTaskTestDB(t)
	svc := service.NewOrderService(repository.NewOrderRepository(db))

	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	orders := []model.Order{
		{OrderNumber: "E-1", Status: model.OrderStatusPending, PlacedAt: now, ExpiresAt: &past},
		{OrderNumber: "E-2", Status: model.OrderStatusPending, PlacedAt: now, ExpiresAt: &future},
		{OrderNumber: "E-3", Status: model.OrderStatusPending, PlacedAt: now},
		{OrderNumber: "E-4", Status: model.OrderStatusConfirmed, PlacedAt: now, ExpiresAt: &past},
	}
	for i := range orders {
		require.NoError(t, db.Create(&orders[i]).Error)
	}

	task := NewOrderExpiryTask(svc, "")
	task.now = func() time.Time { return now }
	assert.Equal(t, int64(1), task.RunOnce(context.Background()))

	var expired model.Order
	require.NoError(t, db.Where("order_number = ?", "E-1").First(&expired).Error)
	assert.Equal(t, model.OrderStatusExpired, expired.Status)

	// 再次执行不会重复标记
	assert.Equal(t, int64(0), task.RunOnce(context.Background()))
}

// ==================== TaskManager ====================

func TestTaskManager(t *testing.T) {
	t.Run("未提供依赖时任务禁用", func(t *testing.T) {
		tm := NewTaskManager(&TaskManagerDeps{}, nil)
		assert.False(t, tm.Status()["order_expiry"])

		_, err := tm.TriggerOrderExpiry(context.Background())
		assert.ErrorIs(t, err, ErrTaskDisabled)
		require.NoError(t, tm.Start())
		tm.Stop()
	})

	t.Run("配置关闭", func(t *testing.T) {
		tm := NewTaskManager(&TaskManagerDeps{OrderExpirer: &fakeExpirer{}}, &TaskManagerConfig{OrderExpiryEnabled: false})
		assert.False(t, tm.Status()["order_expiry"])
	})

	t.Run("手动触发", func(t *testing.T) {
		f := &fakeExpirer{n: 2}
		tm := NewTaskManager(&TaskManagerDeps{OrderExpirer: f}, nil)
		assert.True(t, tm.Status()["order_expiry"])

		n, err := tm.TriggerOrderExpiry(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})
}
