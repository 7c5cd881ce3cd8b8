package model

import (
	"strings"
	"time"
)

// ==================== 订单状态常量 ====================

// 订单生命周期状态
const (
	OrderStatusPending    = "pending"
	OrderStatusConfirmed  = "confirmed"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
	OrderStatusExpired    = "expired"

	// 上游偶尔写入的美式拼写，读取时归一为 cancelled
	orderStatusCanceledAlt = "canceled"
)

// 订单项履约状态
const (
	FulfillmentPending    = "pending"
	FulfillmentConfirmed  = "confirmed"
	FulfillmentProcessing = "processing"
	FulfillmentShipped    = "shipped"
	FulfillmentDelivered  = "delivered"
)

// EffectiveStatuses 有效状态的全部取值（履约状态 ∪ 订单终态），统计按此顺序输出
var EffectiveStatuses = []string{
	FulfillmentPending,
	FulfillmentConfirmed,
	FulfillmentProcessing,
	FulfillmentShipped,
	FulfillmentDelivered,
	OrderStatusCancelled,
	OrderStatusExpired,
}

var effectiveStatusSet = map[string]bool{
	FulfillmentPending:    true,
	FulfillmentConfirmed:  true,
	FulfillmentProcessing: true,
	FulfillmentShipped:    true,
	FulfillmentDelivered:  true,
	OrderStatusCancelled:  true,
	OrderStatusExpired:    true,
}

// IsFulfillmentStatus 是否为商家可写入的履约状态
func IsFulfillmentStatus(s string) bool {
	switch s {
	case FulfillmentPending, FulfillmentConfirmed, FulfillmentProcessing, FulfillmentShipped, FulfillmentDelivered:
		return true
	}
	return false
}

// IsEffectiveStatus 是否属于有效状态词表
func IsEffectiveStatus(s string) bool {
	return effectiveStatusSet[s]
}

// ==================== 状态归一与合并 ====================

// NormalizeOrderStatus 小写并去空白，"canceled" 归一为 "cancelled"
func NormalizeOrderStatus(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == orderStatusCanceledAlt {
		return OrderStatusCancelled
	}
	return s
}

// normalizeFulfillmentStatus 缺省或词表外的值一律视为 pending
func normalizeFulfillmentStatus(raw *string) string {
	if raw == nil {
		return FulfillmentPending
	}
	s := strings.ToLower(strings.TrimSpace(*raw))
	if !effectiveStatusSet[s] {
		return FulfillmentPending
	}
	return s
}

// ResolveEffectiveStatus 合并订单状态与订单项履约状态，得到展示、筛选、统计共用的有效状态。
// 履约仍为 pending 且订单已取消或已过期时，返回订单状态；否则返回履约状态。
func ResolveEffectiveStatus(rawOrderStatus, rawFulfillmentStatus *string) string {
	fulfillment := normalizeFulfillmentStatus(rawFulfillmentStatus)
	if fulfillment != FulfillmentPending || rawOrderStatus == nil {
		return fulfillment
	}

	order := NormalizeOrderStatus(*rawOrderStatus)
	for _, s := range PendingOverrideStatuses {
		if order == s {
			return order
		}
	}
	return fulfillment
}

// EffectiveStatus ResolveEffectiveStatus 的字符串版本，空串等同于缺省
func EffectiveStatus(orderStatus, fulfillmentStatus string) string {
	return ResolveEffectiveStatus(&orderStatus, &fulfillmentStatus)
}

// ==================== 数据库侧筛选用的取值 ====================
// 仓库层据此把有效状态筛选下推到 SQL，取值必须与 ResolveEffectiveStatus 保持一致。

// PendingOverrideStatuses 履约仍为 pending 时，由订单状态覆盖有效状态的订单终态
var PendingOverrideStatuses = []string{OrderStatusCancelled, OrderStatusExpired}

// OrderStatusSpellings 归一后等于 status 的订单原始取值（小写、去空白后）
func OrderStatusSpellings(status string) []string {
	if status == OrderStatusCancelled {
		return []string{OrderStatusCancelled, orderStatusCanceledAlt}
	}
	return []string{status}
}

// NonPendingFulfillmentValues 归一后不是 pending 的履约取值，其余取值（NULL、空串、词表外）都按 pending 处理
func NonPendingFulfillmentValues() []string {
	out := make([]string, 0, len(EffectiveStatuses)-1)
	for _, s := range EffectiveStatuses {
		if s != FulfillmentPending {
			out = append(out, s)
		}
	}
	return out
}

// ==================== Order 订单 ====================

// Order 买家订单
type Order struct {
	BaseModel
	OrderNumber string `gorm:"size:64;uniqueIndex;not null" json:"order_number"`
	BuyerEmail  string `gorm:"size:255" json:"buyer_email"`

	// 原始状态，可能是 "canceled"，读取时经 NormalizeOrderStatus 归一
	Status string `gorm:"size:32;index;default:pending" json:"status"`

	// 金额（分为单位存储）
	TotalAmount int64  `json:"total_amount"`
	Currency    string `gorm:"size:10;default:USD" json:"currency"`

	PlacedAt  time.Time  `json:"placed_at"`
	ExpiresAt *time.Time `gorm:"index" json:"expires_at"`

	Items []OrderLineItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

// NormalizedStatus 归一后的订单状态
func (o *Order) NormalizedStatus() string {
	return NormalizeOrderStatus(o.Status)
}

// IsTerminated 订单已取消或已过期
func (o *Order) IsTerminated() bool {
	s := o.NormalizedStatus()
	return s == OrderStatusCancelled || s == OrderStatusExpired
}

// ==================== OrderLineItem 订单项 ====================

// OrderLineItem 订单项，按商家拆分履约
type OrderLineItem struct {
	BaseModel
	OrderID   int64  `gorm:"index;not null" json:"order_id"`
	Order     *Order `gorm:"foreignKey:OrderID" json:"order,omitempty"`
	VendorID  int64  `gorm:"index;not null" json:"vendor_id"`
	ProductID int64  `gorm:"index" json:"product_id"`

	ProductName     string `gorm:"size:255" json:"product_name"`
	Quantity        int    `gorm:"default:1" json:"quantity"`
	UnitPriceAmount int64  `json:"unit_price_amount"`

	// 履约（nil 视为 pending）
	FulfillmentStatus *string    `gorm:"size:32" json:"fulfillment_status"`
	TrackingNumber    string     `gorm:"size:100" json:"tracking_number"`
	Carrier           string     `gorm:"size:50" json:"carrier"`
	FulfilledAt       *time.Time `json:"fulfilled_at"`
}

func (OrderLineItem) TableName() string {
	return "order_line_items"
}

// EffectiveStatus 订单项的有效状态，需预加载 Order
func (i *OrderLineItem) EffectiveStatus() string {
	if i.Order == nil {
		return ResolveEffectiveStatus(nil, i.FulfillmentStatus)
	}
	return ResolveEffectiveStatus(&i.Order.Status, i.FulfillmentStatus)
}

// GetUnitPrice 获取单价（元）
func (i *OrderLineItem) GetUnitPrice() float64 {
	return float64(i.UnitPriceAmount) / 100
}

// GetSubtotal 获取小计（元）
func (i *OrderLineItem) GetSubtotal() float64 {
	return float64(i.UnitPriceAmount*int64(i.Quantity)) / 100
}
