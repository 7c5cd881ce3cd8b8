package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"marketplace_admin/internal/middleware"
	"marketplace_admin/internal/model"
	"marketplace_admin/internal/repository"
)

// ==================== 入参 ====================

// VendorApplicationInput 入驻申请
type VendorApplicationInput struct {
	UserID          string                 `json:"user_id" validate:"required"`
	BusinessName    string                 `json:"business_name" validate:"required,max=255"`
	ContactEmail    string                 `json:"contact_email" validate:"required,email,max=255"`
	Phone           string                 `json:"phone" validate:"max=50"`
	BusinessAddress map[string]interface{} `json:"business_address"`
	Document        UploadableFile         `json:"-" validate:"-"`
}

type commissionInput struct {
	CommissionRate float64 `json:"commission_rate" validate:"gte=0,lte=100"`
}

// ==================== VendorService 商家服务 ====================

// VendorService 商家入驻与 KYC 审核
type VendorService struct {
	repo      repository.VendorRepository
	storage   *StorageService
	signedTTL time.Duration
}

// NewVendorService 创建商家服务
func NewVendorService(repo repository.VendorRepository, storage *StorageService, signedTTL time.Duration) *VendorService {
	if signedTTL <= 0 {
		signedTTL = 15 * time.Minute
	}
	return &VendorService{repo: repo, storage: storage, signedTTL: signedTTL}
}

// Apply 提交入驻申请。已有待审核或已通过的申请时拒绝；被驳回的申请可重新提交。
func (s *VendorService) Apply(ctx context.Context, in VendorApplicationInput) (*model.Vendor, error) {
	in.BusinessName = strings.TrimSpace(in.BusinessName)
	in.ContactEmail = strings.TrimSpace(in.ContactEmail)
	in.Phone = strings.TrimSpace(in.Phone)
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if err := ValidateUpload(in.Document, KYCDocumentRule); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByUserID(ctx, in.UserID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load application: %w", err)
	}
	if existing != nil && !existing.CanReapply() {
		return nil, ErrApplicationExists
	}

	docURL, err := s.storage.UploadFile(ctx, in.Document, KYCDocumentRule, "kyc")
	if err != nil {
		return nil, err
	}

	vendor, err := s.saveApplication(ctx, existing, in, docURL)
	if err != nil {
		// 申请未落库，清理已上传的材料
		if delErr := s.storage.Delete(ctx, docURL); delErr != nil {
			zap.L().Warn("cleanup kyc document failed", zap.String("url", docURL), zap.Error(delErr))
		}
		return nil, err
	}

	zap.L().Info("vendor application submitted",
		zap.Int64("vendor_id", vendor.ID),
		zap.String("user_id", in.UserID),
		zap.Bool("reapply", existing != nil),
	)
	return vendor, nil
}

func (s *VendorService) saveApplication(ctx context.Context, existing *model.Vendor, in VendorApplicationInput, docURL string) (*model.Vendor, error) {
	if existing == nil {
		vendor := &model.Vendor{
			UserID:          in.UserID,
			BusinessName:    in.BusinessName,
			ContactEmail:    in.ContactEmail,
			Phone:           in.Phone,
			BusinessAddress: in.BusinessAddress,
			Status:          model.VendorStatusPending,
			CommissionRate:  model.DefaultCommissionRate,
			KYCDocumentURL:  docURL,
		}
		if err := s.repo.Create(ctx, vendor); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, ErrApplicationExists
			}
			return nil, fmt.Errorf("create application: %w", err)
		}
		return vendor, nil
	}

	ok, err := s.repo.UpdateIfStatus(ctx, existing.ID, model.VendorStatusRejected, map[string]interface{}{
		"business_name":    in.BusinessName,
		"contact_email":    in.ContactEmail,
		"phone":            in.Phone,
		"business_address": datatypes.JSONMap(in.BusinessAddress),
		"kyc_document_url": docURL,
		"status":           model.VendorStatusPending,
		"review_note":      "",
		"reviewed_by":      "",
		"reviewed_at":      nil,
	})
	if err != nil {
		return nil, fmt.Errorf("resubmit application: %w", err)
	}
	if !ok {
		return nil, ErrApplicationExists
	}
	return s.repo.GetByID(ctx, existing.ID)
}

// GetByUserID 当前用户的申请
func (s *VendorService) GetByUserID(ctx context.Context, userID string) (*model.Vendor, error) {
	vendor, err := s.repo.GetByUserID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return vendor, err
}

// GetByID 获取商家
func (s *VendorService) GetByID(ctx context.Context, id int64) (*model.Vendor, error) {
	vendor, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return vendor, err
}

// List 商家列表
func (s *VendorService) List(ctx context.Context, filter repository.VendorFilter) ([]model.Vendor, int64, error) {
	return s.repo.List(ctx, filter)
}

// ==================== 审核 ====================

// Approve 通过申请，仅待审核状态可操作
func (s *VendorService) Approve(ctx context.Context, id int64, reviewerID, note string) (*model.Vendor, error) {
	return s.review(ctx, id, model.VendorStatusApproved, reviewerID, strings.TrimSpace(note))
}

// Reject 驳回申请，必须填写原因
func (s *VendorService) Reject(ctx context.Context, id int64, reviewerID, reason string) (*model.Vendor, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, NewValidationError("reason", "is required")
	}
	return s.review(ctx, id, model.VendorStatusRejected, reviewerID, reason)
}

func (s *VendorService) review(ctx context.Context, id int64, status, reviewerID, note string) (*model.Vendor, error) {
	now := time.Now()
	ok, err := s.repo.UpdateIfStatus(ctx, id, model.VendorStatusPending, map[string]interface{}{
		"status":      status,
		"review_note": note,
		"reviewed_by": reviewerID,
		"reviewed_at": now,
	})
	if err != nil {
		return nil, fmt.Errorf("review vendor: %w", err)
	}

	vendor, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: vendor is %s", ErrInvalidTransition, vendor.Status)
	}

	zap.L().Info("vendor reviewed",
		zap.Int64("vendor_id", id),
		zap.String("status", status),
		zap.String("reviewer", reviewerID),
	)
	return vendor, nil
}

// UpdateCommission 修改佣金比例（0..100）
func (s *VendorService) UpdateCommission(ctx context.Context, id int64, rate float64) (*model.Vendor, error) {
	if err := validateInput(commissionInput{CommissionRate: rate}); err != nil {
		return nil, err
	}
	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateFields(ctx, id, map[string]interface{}{"commission_rate": rate}); err != nil {
		return nil, fmt.Errorf("update commission: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetKYCDocumentURL KYC 材料的临时访问地址
func (s *VendorService) GetKYCDocumentURL(ctx context.Context, id int64) (string, time.Time, error) {
	vendor, err := s.GetByID(ctx, id)
	if err != nil {
		return "", time.Time{}, err
	}
	if vendor.KYCDocumentURL == "" {
		return "", time.Time{}, ErrNotFound
	}

	signed, err := s.storage.GetSignedURL(ctx, vendor.KYCDocumentURL, s.signedTTL)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign kyc document: %w", err)
	}
	return signed, time.Now().Add(s.signedTTL), nil
}

// ResolveApprovedVendorID 实现 middleware.VendorResolver
func (s *VendorService) ResolveApprovedVendorID(ctx context.Context, userID string) (int64, error) {
	vendor, err := s.repo.GetByUserID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, middleware.ErrNoApprovedVendor
	}
	if err != nil {
		return 0, err
	}
	if !vendor.IsApproved() {
		return 0, middleware.ErrNoApprovedVendor
	}
	return vendor.ID, nil
}

// requireApprovedVendor 管理员代商家操作时校验商家状态
func (s *VendorService) requireApprovedVendor(ctx context.Context, id int64) (*model.Vendor, error) {
	vendor, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !vendor.IsApproved() {
		return nil, ErrVendorNotApproved
	}
	return vendor, nil
}
