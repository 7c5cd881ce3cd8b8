package model

import (
	"time"

	"gorm.io/datatypes"
)

// ==================== 商家状态常量 ====================

const (
	VendorStatusPending   = "pending"   // 待审核
	VendorStatusApproved  = "approved"  // 已通过
	VendorStatusRejected  = "rejected"  // 已驳回
	VendorStatusSuspended = "suspended" // 已停用
)

// DefaultCommissionRate 新商家默认佣金比例（百分比）
const DefaultCommissionRate = 10.0

// ==================== Vendor 商家 ====================

// Vendor 商家入驻申请与商家档案
type Vendor struct {
	BaseModel
	AuditMixin

	// 申请人（认证服务的用户 subject），一个用户只能有一份申请
	UserID string `gorm:"size:64;uniqueIndex;not null" json:"user_id"`

	BusinessName    string            `gorm:"size:255;not null" json:"business_name"`
	ContactEmail    string            `gorm:"size:255;not null" json:"contact_email"`
	Phone           string            `gorm:"size:50" json:"phone"`
	BusinessAddress datatypes.JSONMap `json:"business_address"`

	Status         string  `gorm:"size:20;index;default:pending" json:"status"`
	CommissionRate float64 `gorm:"default:10" json:"commission_rate"`

	// KYC 材料（对象存储 URL）
	KYCDocumentURL string `gorm:"size:1000" json:"kyc_document_url"`

	// 审核信息
	ReviewNote string     `gorm:"type:text" json:"review_note"`
	ReviewedBy string     `gorm:"size:64" json:"reviewed_by"`
	ReviewedAt *time.Time `json:"reviewed_at"`
}

func (Vendor) TableName() string {
	return "vendors"
}

// IsPending 是否待审核
func (v *Vendor) IsPending() bool {
	return v.Status == VendorStatusPending
}

// IsApproved 是否已通过审核
func (v *Vendor) IsApproved() bool {
	return v.Status == VendorStatusApproved
}

// CanReapply 被驳回的申请可以重新提交
func (v *Vendor) CanReapply() bool {
	return v.Status == VendorStatusRejected
}
