package model

import (
	"time"

	"gorm.io/gorm"
)

// BaseModel 公共主键与时间戳
type BaseModel struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// AuditMixin 审计字段，由 middleware.RegisterAuditCallbacks 填充。
// 值为认证服务签发的用户 subject。
type AuditMixin struct {
	CreatedBy string `gorm:"size:64;index" json:"created_by,omitempty"`
	UpdatedBy string `gorm:"size:64" json:"updated_by,omitempty"`
}
