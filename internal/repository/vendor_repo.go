package repository

import (
	"context"

	"gorm.io/gorm"

	"marketplace_admin/internal/model"
)

// ==================== 过滤条件 ====================

// VendorFilter 商家过滤条件
type VendorFilter struct {
	Status   string
	Keyword  string
	Page     int
	PageSize int
}

// ==================== VendorRepository 商家仓库 ====================

// VendorRepository 商家仓库接口
type VendorRepository interface {
	Create(ctx context.Context, vendor *model.Vendor) error
	GetByID(ctx context.Context, id int64) (*model.Vendor, error)
	GetByUserID(ctx context.Context, userID string) (*model.Vendor, error)
	List(ctx context.Context, filter VendorFilter) ([]model.Vendor, int64, error)
	Save(ctx context.Context, vendor *model.Vendor) error
	UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error

	// UpdateIfStatus 仅当当前状态为 status 时更新，返回是否命中
	UpdateIfStatus(ctx context.Context, id int64, status string, fields map[string]interface{}) (bool, error)
}

type vendorRepository struct {
	db *gorm.DB
}

// NewVendorRepository 创建商家仓库
func NewVendorRepository(db *gorm.DB) VendorRepository {
	return &vendorRepository{db: db}
}

func (r *vendorRepository) Create(ctx context.Context, vendor *model.Vendor) error {
	return r.db.WithContext(ctx).Create(vendor).Error
}

func (r *vendorRepository) GetByID(ctx context.Context, id int64) (*model.Vendor, error) {
	var vendor model.Vendor
	if err := r.db.WithContext(ctx).First(&vendor, id).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *vendorRepository) GetByUserID(ctx context.Context, userID string) (*model.Vendor, error) {
	var vendor model.Vendor
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&vendor).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *vendorRepository) List(ctx context.Context, filter VendorFilter) ([]model.Vendor, int64, error) {
	var vendors []model.Vendor
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Vendor{})
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.Keyword != "" {
		keyword := "%" + filter.Keyword + "%"
		db = db.Where("business_name LIKE ? OR contact_email LIKE ?", keyword, keyword)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, pageSize := normalizePage(filter.Page, filter.PageSize)
	err := db.Order("created_at DESC, id DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&vendors).Error

	return vendors, total, err
}

func (r *vendorRepository) Save(ctx context.Context, vendor *model.Vendor) error {
	return r.db.WithContext(ctx).Save(vendor).Error
}

func (r *vendorRepository) UpdateFields(ctx context.Context, id int64, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&model.Vendor{}).Where("id = ?", id).Updates(fields).Error
}

func (r *vendorRepository) UpdateIfStatus(ctx context.Context, id int64, status string, fields map[string]interface{}) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Vendor{}).
		Where("id = ? AND status = ?", id, status).
		Updates(fields)
	return result.RowsAffected > 0, result.Error
}

// ==================== 分页 ====================

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// normalizePage 页码从 1 开始，页大小限制在 1..100
func normalizePage(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}
