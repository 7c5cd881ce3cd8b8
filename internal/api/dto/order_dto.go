package dto

import "time"

// ==================== 请求 DTO ====================

// OrderListQuery 订单项查询，status 为有效状态
type OrderListQuery struct {
	PageQuery
	Status    string     `form:"status"`
	VendorID  int64      `form:"vendor_id"`
	StartDate *time.Time `form:"start_date" time_format:"2006-01-02"`
	EndDate   *time.Time `form:"end_date" time_format:"2006-01-02"`
}

// ==================== 响应 DTO ====================

// LineItemResp 订单项响应，effective_status 是展示、筛选、统计共用的状态
type LineItemResp struct {
	ID                int64   `json:"id"`
	OrderID           int64   `json:"order_id"`
	OrderNumber       string  `json:"order_number"`
	OrderStatus       string  `json:"order_status"`
	BuyerEmail        string  `json:"buyer_email"`
	VendorID          int64   `json:"vendor_id"`
	ProductID         int64   `json:"product_id"`
	ProductName       string  `json:"product_name"`
	Quantity          int     `json:"quantity"`
	UnitPrice         float64 `json:"unit_price"`
	Subtotal          float64 `json:"subtotal"`
	Currency          string  `json:"currency"`
	FulfillmentStatus *string `json:"fulfillment_status"`
	EffectiveStatus   string  `json:"effective_status"`
	TrackingNumber    string  `json:"tracking_number,omitempty"`
	Carrier           string  `json:"carrier,omitempty"`
	FulfilledAt       *int64  `json:"fulfilled_at,omitempty"`
	PlacedAt          int64   `json:"placed_at"`
	CreatedAt         int64   `json:"created_at"`
}
