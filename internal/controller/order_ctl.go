package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"marketplace_admin/internal/api/dto"
	"marketplace_admin/internal/middleware"
	"marketplace_admin/internal/service"
)

// OrderController 订单履约跟踪
type OrderController struct {
	orderService *service.OrderService
}

// NewOrderController 创建订单控制器
func NewOrderController(orderService *service.OrderService) *OrderController {
	return &OrderController{orderService: orderService}
}

// ToLineItemResp 订单项转响应，有效状态由服务层计算
func ToLineItemResp(r service.ResolvedLineItem) dto.LineItemResp {
	item := r.Item
	resp := dto.LineItemResp{
		ID:                item.ID,
		OrderID:           item.OrderID,
		VendorID:          item.VendorID,
		ProductID:         item.ProductID,
		ProductName:       item.ProductName,
		Quantity:          item.Quantity,
		UnitPrice:         item.GetUnitPrice(),
		Subtotal:          item.GetSubtotal(),
		FulfillmentStatus: item.FulfillmentStatus,
		EffectiveStatus:   r.EffectiveStatus,
		TrackingNumber:    item.TrackingNumber,
		Carrier:           item.Carrier,
		CreatedAt:         item.CreatedAt.Unix(),
	}
	if item.Order != nil {
		resp.OrderNumber = item.Order.OrderNumber
		resp.OrderStatus = item.Order.NormalizedStatus()
		resp.BuyerEmail = item.Order.BuyerEmail
		resp.Currency = item.Order.Currency
		resp.PlacedAt = item.Order.PlacedAt.Unix()
	}
	if item.FulfilledAt != nil {
		ts := item.FulfilledAt.Unix()
		resp.FulfilledAt = &ts
	}
	return resp
}

// ==================== 商家端 ====================

// ListOwn 商家的订单项
// GET /api/vendor/orders?status=&page=&page_size=&start_date=&end_date=
func (ctrl *OrderController) ListOwn(c *gin.Context) {
	q, ok := bindOrderQuery(c)
	if !ok {
		return
	}
	q.VendorID = middleware.GetVendorID(c)
	ctrl.list(c, q)
}

// StatsOwn 商家订单项按有效状态统计
// GET /api/vendor/orders/stats
func (ctrl *OrderController) StatsOwn(c *gin.Context) {
	q, ok := bindOrderQuery(c)
	if !ok {
		return
	}
	q.VendorID = middleware.GetVendorID(c)
	ctrl.stats(c, q)
}

// UpdateFulfillment 商家更新履约状态
// PATCH /api/vendor/orders/items/:id/fulfillment
func (ctrl *OrderController) UpdateFulfillment(c *gin.Context) {
	ctrl.updateFulfillment(c, middleware.GetVendorID(c))
}

// ==================== 管理端 ====================

// List 全部订单项
// GET /api/admin/orders?status=&vendor_id=
func (ctrl *OrderController) List(c *gin.Context) {
	q, ok := bindOrderQuery(c)
	if !ok {
		return
	}
	ctrl.list(c, q)
}

// Stats 全部订单项统计
// GET /api/admin/orders/stats?vendor_id=
func (ctrl *OrderController) Stats(c *gin.Context) {
	q, ok := bindOrderQuery(c)
	if !ok {
		return
	}
	ctrl.stats(c, q)
}

// AdminUpdateFulfillment 管理员修正履约状态
// PATCH /api/admin/orders/items/:id/fulfillment
func (ctrl *OrderController) AdminUpdateFulfillment(c *gin.Context) {
	ctrl.updateFulfillment(c, 0)
}

// ==================== 共用实现 ====================

func bindOrderQuery(c *gin.Context) (dto.OrderListQuery, bool) {
	var q dto.OrderListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "Invalid query: "+err.Error())
		return q, false
	}
	// 结束日期包含当天
	if q.EndDate != nil {
		end := q.EndDate.Add(24*time.Hour - time.Nanosecond)
		q.EndDate = &end
	}
	return q, true
}

func toOrderQuery(q dto.OrderListQuery) service.OrderQuery {
	return service.OrderQuery{
		VendorID:  q.VendorID,
		Status:    q.Status,
		StartDate: q.StartDate,
		EndDate:   q.EndDate,
		Page:      q.Page,
		PageSize:  q.PageSize,
	}
}

func (ctrl *OrderController) list(c *gin.Context, q dto.OrderListQuery) {
	items, total, err := ctrl.orderService.ListLineItems(c.Request.Context(), toOrderQuery(q))
	if err != nil {
		respondError(c, err)
		return
	}

	list := make([]dto.LineItemResp, len(items))
	for i, r := range items {
		list[i] = ToLineItemResp(r)
	}
	c.JSON(http.StatusOK, dto.NewPageResp(list, total, q.PageQuery))
}

func (ctrl *OrderController) stats(c *gin.Context, q dto.OrderListQuery) {
	stats, err := ctrl.orderService.Stats(c.Request.Context(), toOrderQuery(q))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": stats})
}

func (ctrl *OrderController) updateFulfillment(c *gin.Context, vendorID int64) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var in service.FulfillmentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid JSON body")
		return
	}

	updated, err := ctrl.orderService.UpdateFulfillment(c.Request.Context(), vendorID, id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": ToLineItemResp(*updated), "message": "Fulfillment updated"})
}
