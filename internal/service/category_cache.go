package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"marketplace_admin/internal/model"
)

// ==================== 分类缓存 ====================

// CategoryCache 启用分类列表的缓存
type CategoryCache interface {
	GetActive(ctx context.Context) ([]model.Category, bool)
	SetActive(ctx context.Context, categories []model.Category)
	Invalidate(ctx context.Context)
}

const categoryActiveKey = "categories:active"

// redisCategoryCache Redis 实现，读写失败只记录日志，回退到数据库
type redisCategoryCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCategoryCache 创建 Redis 分类缓存
func NewRedisCategoryCache(client *redis.Client, ttl time.Duration) CategoryCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &redisCategoryCache{client: client, ttl: ttl}
}

func (c *redisCategoryCache) GetActive(ctx context.Context) ([]model.Category, bool) {
	val, err := c.client.Get(ctx, categoryActiveKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		zap.L().Warn("category cache get failed", zap.Error(err))
		return nil, false
	}

	var categories []model.Category
	if err := json.Unmarshal(val, &categories); err != nil {
		zap.L().Warn("category cache decode failed", zap.Error(err))
		return nil, false
	}
	return categories, true
}

func (c *redisCategoryCache) SetActive(ctx context.Context, categories []model.Category) {
	data, err := json.Marshal(categories)
	if err != nil {
		zap.L().Warn("category cache encode failed", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, categoryActiveKey, data, c.ttl).Err(); err != nil {
		zap.L().Warn("category cache set failed", zap.Error(err))
	}
}

func (c *redisCategoryCache) Invalidate(ctx context.Context) {
	if err := c.client.Del(ctx, categoryActiveKey).Err(); err != nil {
		// 删除失败时缓存最多陈旧一个 TTL
		zap.L().Error("category cache invalidate failed", zap.Error(err))
	}
}

// nopCategoryCache 未配置 Redis 时使用
type nopCategoryCache struct{}

// NewNopCategoryCache 不缓存
func NewNopCategoryCache() CategoryCache { return nopCategoryCache{} }

func (nopCategoryCache) GetActive(context.Context) ([]model.Category, bool) { return nil, false }
func (nopCategoryCache) SetActive(context.Context, []model.Category)        {}
func (nopCategoryCache) Invalidate(context.Context)                         {}
