package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"marketplace_admin/internal/model"
	"marketplace_admin/internal/repository"
)

// ==================== 查询与结果 ====================

// OrderQuery 订单项查询，Status 按有效状态筛选
type OrderQuery struct {
	VendorID  int64
	Status    string
	StartDate *time.Time
	EndDate   *time.Time
	Page      int
	PageSize  int
}

// ResolvedLineItem 订单项及其有效状态
type ResolvedLineItem struct {
	Item            model.OrderLineItem
	EffectiveStatus string
}

// OrderStats 按有效状态的计数
type OrderStats struct {
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"by_status"`
}

// FulfillmentInput 更新履约状态
type FulfillmentInput struct {
	Status         string `json:"status" validate:"required,oneof=pending confirmed processing shipped delivered"`
	TrackingNumber string `json:"tracking_number" validate:"max=100"`
	Carrier        string `json:"carrier" validate:"max=50"`
}

// ==================== OrderService 订单服务 ====================

// OrderService 订单履约跟踪
type OrderService struct {
	repo repository.OrderRepository
}

// NewOrderService 创建订单服务
func NewOrderService(repo repository.OrderRepository) *OrderService {
	return &OrderService{repo: repo}
}

func (q OrderQuery) filter(status string) repository.LineItemFilter {
	return repository.LineItemFilter{
		VendorID:  q.VendorID,
		Status:    status,
		StartDate: q.StartDate,
		EndDate:   q.EndDate,
		Page:      q.Page,
		PageSize:  q.PageSize,
	}
}

// ListLineItems 按有效状态筛选后分页，筛选与分页都在数据库完成
func (s *OrderService) ListLineItems(ctx context.Context, q OrderQuery) ([]ResolvedLineItem, int64, error) {
	status := strings.ToLower(strings.TrimSpace(q.Status))
	if status != "" && !model.IsEffectiveStatus(status) {
		return nil, 0, NewValidationError("status", "is not a known status")
	}

	items, total, err := s.repo.ListLineItems(ctx, q.filter(status))
	if err != nil {
		return nil, 0, fmt.Errorf("list line items: %w", err)
	}

	resolved := make([]ResolvedLineItem, len(items))
	for i := range items {
		resolved[i] = ResolvedLineItem{
			Item:            items[i],
			EffectiveStatus: items[i].EffectiveStatus(),
		}
	}
	return resolved, total, nil
}

// Stats 按有效状态计数，词表内的状态即使为 0 也输出。
// 数据库按原始 (订单状态, 履约状态) 分组，每组经 model.ResolveEffectiveStatus 合并。
func (s *OrderService) Stats(ctx context.Context, q OrderQuery) (*OrderStats, error) {
	groups, err := s.repo.CountLineItemsByStatus(ctx, q.filter(""))
	if err != nil {
		return nil, fmt.Errorf("count line items: %w", err)
	}

	stats := &OrderStats{ByStatus: make(map[string]int64, len(model.EffectiveStatuses))}
	for _, status := range model.EffectiveStatuses {
		stats.ByStatus[status] = 0
	}
	for _, g := range groups {
		stats.ByStatus[model.ResolveEffectiveStatus(g.OrderStatus, g.FulfillmentStatus)] += g.Count
		stats.Total += g.Count
	}
	return stats, nil
}

// ==================== 履约 ====================

// UpdateFulfillment 商家更新订单项履约状态。
// 订单已取消或过期时拒绝；shipped 需要运单号；delivered 记录完成时间。
func (s *OrderService) UpdateFulfillment(ctx context.Context, vendorID, itemID int64, in FulfillmentInput) (*ResolvedLineItem, error) {
	in.Status = strings.ToLower(strings.TrimSpace(in.Status))
	in.TrackingNumber = strings.TrimSpace(in.TrackingNumber)
	in.Carrier = strings.TrimSpace(in.Carrier)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if in.Status == model.FulfillmentShipped && in.TrackingNumber == "" {
		return nil, NewValidationError("tracking_number", "is required when status is shipped")
	}

	item, err := s.repo.GetLineItem(ctx, itemID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if vendorID > 0 && item.VendorID != vendorID {
		return nil, ErrNotFound
	}
	if item.Order != nil && item.Order.IsTerminated() {
		return nil, fmt.Errorf("%w: order %s is %s", ErrOrderTerminated, item.Order.OrderNumber, item.Order.NormalizedStatus())
	}

	fields := map[string]interface{}{
		"fulfillment_status": in.Status,
	}
	if in.TrackingNumber != "" {
		fields["tracking_number"] = in.TrackingNumber
	}
	if in.Carrier != "" {
		fields["carrier"] = in.Carrier
	}
	if in.Status == model.FulfillmentDelivered {
		fields["fulfilled_at"] = time.Now()
	} else {
		fields["fulfilled_at"] = nil
	}

	if err := s.repo.UpdateLineItemFields(ctx, itemID, fields); err != nil {
		return nil, fmt.Errorf("update fulfillment: %w", err)
	}

	zap.L().Info("fulfillment updated",
		zap.Int64("line_item_id", itemID),
		zap.Int64("vendor_id", item.VendorID),
		zap.String("status", in.Status),
	)

	updated, err := s.repo.GetLineItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return &ResolvedLineItem{Item: *updated, EffectiveStatus: updated.EffectiveStatus()}, nil
}

// ExpireOverdue 将超过 expires_at 的待处理订单标记为过期
func (s *OrderService) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.repo.ExpirePending(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("expire orders: %w", err)
	}
	return n, nil
}
