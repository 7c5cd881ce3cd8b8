package model

import (
	"time"

	"gorm.io/datatypes"
)

// ==================== 商品审核状态 ====================

const (
	ProductStatusPending  = "pending"  // 待审核
	ProductStatusApproved = "approved" // 已上架
	ProductStatusRejected = "rejected" // 已驳回
	ProductStatusFlagged  = "flagged"  // 被标记
)

// 商品来源
const (
	ProductSourceManual     = "manual"
	ProductSourceBulkImport = "bulk_import"
)

// productTransitions 允许的审核状态流转
var productTransitions = map[string][]string{
	ProductStatusPending:  {ProductStatusApproved, ProductStatusRejected, ProductStatusFlagged},
	ProductStatusApproved: {ProductStatusFlagged},
	ProductStatusFlagged:  {ProductStatusApproved, ProductStatusRejected},
}

// ==================== Product 商品 ====================

// Product 商家商品
type Product struct {
	BaseModel
	AuditMixin
	VendorID   int64  `gorm:"index:idx_vendor_status;not null" json:"vendor_id"`
	CategoryID *int64 `gorm:"index" json:"category_id"`

	// 商品编码（UUID），批量导入时由导入器生成
	Code        string `gorm:"size:36;uniqueIndex;not null" json:"code"`
	Name        string `gorm:"type:text;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`

	// 价格（分为单位存储）
	PriceAmount int64  `gorm:"default:0" json:"price_amount"`
	Currency    string `gorm:"size:10;default:USD" json:"currency"`
	StockQty    *int   `json:"stock_qty"`

	ImageURL string                      `gorm:"type:text" json:"image_url"`
	Tags     datatypes.JSONSlice[string] `json:"tags"`

	// 审核
	Status         string     `gorm:"size:20;index:idx_vendor_status;default:pending" json:"status"`
	ModerationNote string     `gorm:"type:text" json:"moderation_note"`
	ModeratedBy    string     `gorm:"size:64" json:"moderated_by"`
	ModeratedAt    *time.Time `json:"moderated_at"`

	Source string `gorm:"size:20;default:manual" json:"source"`
}

func (Product) TableName() string {
	return "products"
}

// GetPrice 获取价格（元）
func (p *Product) GetPrice() float64 {
	return float64(p.PriceAmount) / 100
}

// CanTransitionTo 检查审核状态流转是否合法
func (p *Product) CanTransitionTo(status string) bool {
	for _, next := range productTransitions[p.Status] {
		if next == status {
			return true
		}
	}
	return false
}
