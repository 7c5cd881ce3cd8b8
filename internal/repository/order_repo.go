package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"marketplace_admin/internal/model"
)

// ==================== 过滤条件 ====================

// LineItemFilter 订单项过滤条件
type LineItemFilter struct {
	VendorID  int64
	Status    string // 有效状态（已小写），为空不筛选
	StartDate *time.Time
	EndDate   *time.Time
	Page      int
	PageSize  int
}

// LineItemStatusCount 按原始订单状态与履约状态分组的计数，
// 有效状态由调用方经 model.ResolveEffectiveStatus 合并
type LineItemStatusCount struct {
	OrderStatus       *string
	FulfillmentStatus *string
	Count             int64
}

// ==================== OrderRepository 订单仓库 ====================

// OrderRepository 订单与订单项仓库接口
type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	GetByID(ctx context.Context, id int64) (*model.Order, error)

	// ExpirePending 将 expires_at 早于 now 的待处理订单标记为过期
	ExpirePending(ctx context.Context, now time.Time) (int64, error)

	// 订单项
	ListLineItems(ctx context.Context, filter LineItemFilter) ([]model.OrderLineItem, int64, error)
	CountLineItemsByStatus(ctx context.Context, filter LineItemFilter) ([]LineItemStatusCount, error)
	GetLineItem(ctx context.Context, id int64) (*model.OrderLineItem, error)
	UpdateLineItemFields(ctx context.Context, id int64, fields map[string]interface{}) error
}

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *orderRepository) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	var order model.Order
	if err := r.db.WithContext(ctx).Preload("Items").First(&order, id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", model.OrderStatusPending, now).
		Update("status", model.OrderStatusExpired)
	return result.RowsAffected, result.Error
}

// ==================== 订单项 ====================

const (
	lineItemJoinOrders = "LEFT JOIN orders ON orders.id = order_line_items.order_id AND orders.deleted_at IS NULL"

	// 与 model.NormalizeOrderStatus / 履约归一保持一致：NULL 视为空串，小写去空白
	fulfillmentExpr = "LOWER(TRIM(COALESCE(order_line_items.fulfillment_status, '')))"
	orderStatusExpr = "LOWER(TRIM(COALESCE(orders.status, '')))"
)

// lineItemQuery 每次调用返回新的查询链
func (r *orderRepository) lineItemQuery(ctx context.Context, filter LineItemFilter) *gorm.DB {
	db := r.db.WithContext(ctx).Model(&model.OrderLineItem{}).Joins(lineItemJoinOrders)
	if filter.VendorID > 0 {
		db = db.Where("order_line_items.vendor_id = ?", filter.VendorID)
	}
	if filter.StartDate != nil {
		db = db.Where("order_line_items.created_at >= ?", filter.StartDate)
	}
	if filter.EndDate != nil {
		db = db.Where("order_line_items.created_at <= ?", filter.EndDate)
	}
	return db
}

// whereEffectiveStatus 把有效状态筛选下推到 SQL。
// 履约不是 pending 时有效状态即履约状态；履约为 pending 且订单已取消或过期时取订单状态。
func whereEffectiveStatus(db *gorm.DB, status string) *gorm.DB {
	nonPending := model.NonPendingFulfillmentValues()
	fulfillmentPending := fulfillmentExpr + " NOT IN ?"

	switch status {
	case "":
		return db
	case model.FulfillmentPending:
		var overrides []string
		for _, s := range model.PendingOverrideStatuses {
			overrides = append(overrides, model.OrderStatusSpellings(s)...)
		}
		return db.Where("("+fulfillmentPending+" AND "+orderStatusExpr+" NOT IN ?)", nonPending, overrides)
	}

	for _, s := range model.PendingOverrideStatuses {
		if status == s {
			return db.Where("("+fulfillmentExpr+" = ? OR ("+fulfillmentPending+" AND "+orderStatusExpr+" IN ?))",
				status, nonPending, model.OrderStatusSpellings(status))
		}
	}
	return db.Where(fulfillmentExpr+" = ?", status)
}

func (r *orderRepository) ListLineItems(ctx context.Context, filter LineItemFilter) ([]model.OrderLineItem, int64, error) {
	var items []model.OrderLineItem
	var total int64

	if err := whereEffectiveStatus(r.lineItemQuery(ctx, filter), filter.Status).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	err := whereEffectiveStatus(r.lineItemQuery(ctx, filter), filter.Status).
		Select("order_line_items.*").
		Preload("Order").
		Order("order_line_items.created_at DESC, order_line_items.id DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&items).Error

	return items, total, err
}

// CountLineItemsByStatus 按 (订单状态, 履约状态) 分组计数，忽略 Status 与分页
func (r *orderRepository) CountLineItemsByStatus(ctx context.Context, filter LineItemFilter) ([]LineItemStatusCount, error) {
	var rows []LineItemStatusCount
	err := r.lineItemQuery(ctx, filter).
		Select("orders.status AS order_status, order_line_items.fulfillment_status AS fulfillment_status, COUNT(*) AS count").
		Group("orders.status, order_line_items.fulfillment_status").
		Scan(&rows).Error
	return rows, err
}

func (r *orderRepository) GetLineItem(ctx context.Context, id int64) (*model.OrderLineItem, error) {
	var item model.OrderLineItem
	if err := r.db.WithContext(ctx).Preload("Order").First(&item, id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *orderRepository) UpdateLineItemFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.OrderLineItem{}).Where("id = ?", id).Updates(fields).Error
}
