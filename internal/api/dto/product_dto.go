package dto

// ==================== 请求 DTO ====================

// ProductListQuery 商品列表查询
type ProductListQuery struct {
	PageQuery
	Status     string `form:"status"`
	Source     string `form:"source"`
	Keyword    string `form:"keyword"`
	VendorID   int64  `form:"vendor_id"`
	CategoryID int64  `form:"category_id"`
}

// ModerateReq 审核请求，驳回与标记时 Reason 必填
type ModerateReq struct {
	Reason string `json:"reason"`
}

// BulkImportForm 批量导入的列映射（multipart 表单，文件字段名 file）
type BulkImportForm struct {
	MapName        string `form:"map_name"`
	MapPrice       string `form:"map_price"`
	MapDescription string `form:"map_description"`
	MapStockQty    string `form:"map_stock_qty"`
	MapImageURL    string `form:"map_image_url"`
}

// ==================== 响应 DTO ====================

// ProductResp 商品响应
type ProductResp struct {
	ID             int64    `json:"id"`
	VendorID       int64    `json:"vendor_id"`
	CategoryID     *int64   `json:"category_id"`
	Code           string   `json:"code"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Price          float64  `json:"price"`
	Currency       string   `json:"currency"`
	StockQty       *int     `json:"stock_qty"`
	ImageURL       string   `json:"image_url"`
	Tags           []string `json:"tags"`
	Status         string   `json:"status"`
	ModerationNote string   `json:"moderation_note,omitempty"`
	ModeratedBy    string   `json:"moderated_by,omitempty"`
	ModeratedAt    *int64   `json:"moderated_at,omitempty"`
	Source         string   `json:"source"`
	CreatedAt      int64    `json:"created_at"`
}
