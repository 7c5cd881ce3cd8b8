package model

// Category 商品分类
type Category struct {
	BaseModel
	AuditMixin
	Name        string `gorm:"size:100;not null" json:"name"`
	Slug        string `gorm:"size:120;uniqueIndex;not null" json:"slug"`
	Description string `gorm:"type:text" json:"description"`
	ParentID    *int64 `gorm:"index" json:"parent_id"`
	IsActive    bool   `gorm:"not null" json:"is_active"`
	SortOrder   int    `gorm:"default:0" json:"sort_order"`
}

func (Category) TableName() string {
	return "categories"
}
