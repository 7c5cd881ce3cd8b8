package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"marketplace_admin/internal/model"
	"marketplace_admin/internal/repository"
)

// ==================== 入参 ====================

// ProductInput 单个商品创建参数
type ProductInput struct {
	Name        string   `json:"name" validate:"required,max=255"`
	Description string   `json:"description" validate:"max=10000"`
	Price       float64  `json:"price" validate:"gte=0,lte=1000000000"`
	Currency    string   `json:"currency" validate:"omitempty,len=3"`
	StockQty    *int     `json:"stock_qty" validate:"omitempty,gte=0"`
	CategoryID  *int64   `json:"category_id"`
	ImageURL    string   `json:"image_url" validate:"omitempty,http_url,max=1000"`
	Tags        []string `json:"tags" validate:"max=20,dive,max=50"`
}

// ModerationAction 审核动作
type ModerationAction string

const (
	ActionApprove ModerationAction = "approve"
	ActionReject  ModerationAction = "reject"
	ActionFlag    ModerationAction = "flag"
)

var actionTargets = map[ModerationAction]string{
	ActionApprove: model.ProductStatusApproved,
	ActionReject:  model.ProductStatusRejected,
	ActionFlag:    model.ProductStatusFlagged,
}

// BulkImportSummary 批量导入落库结果
type BulkImportSummary struct {
	Created int  `json:"created"`
	Skipped int  `json:"skipped"`
	Capped  bool `json:"capped"`
}

// ==================== ProductService 商品服务 ====================

// ProductService 商品创建、审核与批量导入
type ProductService struct {
	repo         repository.ProductRepository
	categoryRepo repository.CategoryRepository
	vendors      *VendorService
	storage      *StorageService
}

// NewProductService 创建商品服务
func NewProductService(
	repo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	vendors *VendorService,
	storage *StorageService,
) *ProductService {
	return &ProductService{
		repo:         repo,
		categoryRepo: categoryRepo,
		vendors:      vendors,
		storage:      storage,
	}
}

// Create 商家创建单个商品，状态为待审核
func (s *ProductService) Create(ctx context.Context, vendorID int64, in ProductInput) (*model.Product, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, in.CategoryID); err != nil {
		return nil, err
	}

	product := &model.Product{
		VendorID:    vendorID,
		CategoryID:  in.CategoryID,
		Code:        uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		PriceAmount: toCents(in.Price),
		Currency:    in.Currency,
		StockQty:    in.StockQty,
		ImageURL:    in.ImageURL,
		Tags:        in.Tags,
		Status:      model.ProductStatusPending,
		Source:      model.ProductSourceManual,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return product, nil
}

func (s *ProductService) checkCategory(ctx context.Context, categoryID *int64) error {
	if categoryID == nil {
		return nil
	}
	category, err := s.categoryRepo.GetByID(ctx, *categoryID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NewValidationError("category_id", "does not exist")
	}
	if err != nil {
		return err
	}
	if !category.IsActive {
		return NewValidationError("category_id", "is not active")
	}
	return nil
}

// GetByID 获取商品
func (s *ProductService) GetByID(ctx context.Context, id int64) (*model.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return product, err
}

// List 商品列表
func (s *ProductService) List(ctx context.Context, filter repository.ProductFilter) ([]model.Product, int64, error) {
	return s.repo.List(ctx, filter)
}

// ==================== 审核 ====================

// Moderate 审核商品。驳回与标记必须填写原因。
func (s *ProductService) Moderate(ctx context.Context, id int64, action ModerationAction, moderatorID, reason string) (*model.Product, error) {
	target, ok := actionTargets[action]
	if !ok {
		return nil, NewValidationError("action", "must be one of: approve reject flag")
	}
	reason = strings.TrimSpace(reason)
	if action != ActionApprove && reason == "" {
		return nil, NewValidationError("reason", "is required")
	}

	product, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !product.CanTransitionTo(target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, product.Status, target)
	}

	updated, err := s.repo.UpdateIfStatus(ctx, id, product.Status, map[string]interface{}{
		"status":          target,
		"moderation_note": reason,
		"moderated_by":    moderatorID,
		"moderated_at":    time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("moderate product: %w", err)
	}
	if !updated {
		// 并发审核已改变状态
		return nil, fmt.Errorf("%w: product status changed concurrently", ErrInvalidTransition)
	}

	zap.L().Info("product moderated",
		zap.Int64("product_id", id),
		zap.String("from", product.Status),
		zap.String("to", target),
		zap.String("moderator", moderatorID),
	)
	return s.GetByID(ctx, id)
}

// ==================== 图片 ====================

// UploadImage 上传商品主图。vendorID > 0 时校验归属（商家端），0 为管理端。
func (s *ProductService) UploadImage(ctx context.Context, id, vendorID int64, file UploadableFile) (*model.Product, error) {
	product, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if vendorID > 0 && product.VendorID != vendorID {
		return nil, ErrNotFound
	}

	url, err := s.storage.UploadFile(ctx, file, ProductImageRule, "products")
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateFields(ctx, id, map[string]interface{}{"image_url": url}); err != nil {
		return nil, fmt.Errorf("update product image: %w", err)
	}

	// 旧图不是本存储的地址时删除会失败，忽略即可
	if product.ImageURL != "" {
		if err := s.storage.Delete(ctx, product.ImageURL); err != nil {
			zap.L().Debug("old product image not deleted", zap.String("url", product.ImageURL), zap.Error(err))
		}
	}
	return s.GetByID(ctx, id)
}

// ==================== 批量导入 ====================

// BulkImport 解析 CSV 并在单个事务中插入全部候选商品
func (s *ProductService) BulkImport(ctx context.Context, vendorID int64, file UploadableFile, mapping BulkImportMapping) (*BulkImportSummary, error) {
	if _, err := s.vendors.requireApprovedVendor(ctx, vendorID); err != nil {
		return nil, err
	}
	if err := ValidateUpload(file, BulkCSVRule); err != nil {
		return nil, err
	}

	data, err := file.ReadBytes()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if !utf8.Valid(data) {
		return nil, NewValidationError("file", "must be UTF-8 encoded text")
	}

	result, err := ImportBulkProducts(string(data), mapping)
	if err != nil {
		return nil, err
	}

	products := make([]*model.Product, 0, len(result.Accepted))
	for _, row := range result.Accepted {
		products = append(products, &model.Product{
			VendorID:    vendorID,
			Code:        row.Code,
			Name:        row.Name,
			Description: row.Description,
			PriceAmount: toCents(row.Price),
			StockQty:    row.StockQty,
			ImageURL:    row.ImageURL,
			Status:      model.ProductStatusPending,
			Source:      model.ProductSourceBulkImport,
		})
	}

	// 整批在一个事务内写入，任一批失败全部回滚
	err = s.repo.Transaction(ctx, func(txRepo repository.ProductRepository) error {
		return txRepo.CreateBatch(ctx, products)
	})
	if err != nil {
		return nil, fmt.Errorf("insert imported products: %w", err)
	}

	zap.L().Info("bulk import completed",
		zap.Int64("vendor_id", vendorID),
		zap.String("file", file.Name()),
		zap.Int("created", len(products)),
		zap.Int("skipped", result.SkippedRows),
		zap.Bool("capped", result.Capped),
	)

	return &BulkImportSummary{
		Created: len(products),
		Skipped: result.SkippedRows,
		Capped:  result.Capped,
	}, nil
}

// toCents 元转分，四舍五入，超出 int64 时取上限
func toCents(price float64) int64 {
	cents := math.Round(price * 100)
	if cents >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(cents)
}
