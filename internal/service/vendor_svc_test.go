package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"marketplace_admin/internal/middleware"
	"marketplace_admin/internal/model"
	"marketplace_admin/internal/repository"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}

	err = db.AutoMigrate(&model.Vendor{}, &model.Category{}, &model.Product{}, &model.Order{}, &model.OrderLineItem{})
	if err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}
	return db
}

func newTestVendorService(t *testing.T, db *gorm.DB) *VendorService {
	storage, _ := newLocalStorageService(t)
	return NewVendorService(repository.NewVendorRepository(db), storage, 0)
}

func validApplication(userID string) VendorApplicationInput {
	return VendorApplicationInput{
		UserID:          userID,
		BusinessName:    "  Acme Goods ",
		ContactEmail:    "owner@acme.test",
		Phone:           "+49 30 1234",
		BusinessAddress: map[string]interface{}{"city": "Berlin", "country": "DE"},
		Document:        &BytesFile{FileName: "passport.pdf", Data: pdfHeader},
	}
}

// ==================== 申请 ====================

func TestVendorService_Apply(t *testing.T) {
	svc := newTestVendorService(t, setupTestDB(t))
	ctx := context.Background()

	vendor, err := svc.Apply(ctx, validApplication("user-1"))
	require.NoError(t, err)

	assert.Equal(t, model.VendorStatusPending, vendor.Status)
	assert.Equal(t, "Acme Goods", vendor.BusinessName)
	assert.Equal(t, model.DefaultCommissionRate, vendor.CommissionRate)
	assert.True(t, strings.HasPrefix(vendor.KYCDocumentURL, "http://localhost:8080/uploads/kyc/"))
	assert.True(t, strings.HasSuffix(vendor.KYCDocumentURL, ".pdf"))

	_, err = svc.Apply(ctx, validApplication("user-1"))
	assert.ErrorIs(t, err, ErrApplicationExists)
}

func TestVendorService_Apply_Validation(t *testing.T) {
	svc := newTestVendorService(t, setupTestDB(t))
	ctx := context.Background()

	tests := []struct {
		name   string
		modify func(in *VendorApplicationInput)
		field  string
	}{
		{"缺少店铺名", func(in *VendorApplicationInput) { in.BusinessName = "   " }, "business_name"},
		{"邮箱格式错误", func(in *VendorApplicationInput) { in.ContactEmail = "not-an-email" }, "contact_email"},
		{"缺少材料", func(in *VendorApplicationInput) { in.Document = nil }, "document"},
		{"材料类型错误", func(in *VendorApplicationInput) {
			in.Document = &BytesFile{FileName: "notes.txt", Data: []byte("plain text")}
		}, "document"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validApplication("user-v")
			tt.modify(&in)

			_, err := svc.Apply(ctx, in)
			ve, ok := IsValidationError(err)
			require.True(t, ok, "期望校验错误，得到 %v", err)
			assert.Contains(t, ve.FieldErrors, tt.field)
		})
	}
}

func TestVendorService_Apply_StorageDisabled(t *testing.T) {
	svc := NewVendorService(repository.NewVendorRepository(setupTestDB(t)), nil, 0)

	_, err := svc.Apply(context.Background(), validApplication("user-1"))
	assert.ErrorIs(t, err, ErrStorageDisabled)
}

// ==================== 审核 ====================

func TestVendorService_ReviewFlow(t *testing.T) {
	svc := newTestVendorService(t, setupTestDB(t))
	ctx := context.Background()

	vendor, err := svc.Apply(ctx, validApplication("user-1"))
	require.NoError(t, err)

	_, err = svc.Reject(ctx, vendor.ID, "admin-1", "  ")
	_, ok := IsValidationError(err)
	assert.True(t, ok, "驳回必须填写原因")

	rejected, err := svc.Reject(ctx, vendor.ID, "admin-1", "document unreadable")
	require.NoError(t, err)
	assert.Equal(t, model.VendorStatusRejected, rejected.Status)
	assert.Equal(t, "document unreadable", rejected.ReviewNote)
	assert.Equal(t, "admin-1", rejected.ReviewedBy)
	require.NotNil(t, rejected.ReviewedAt)

	// 驳回后可重新提交，审核信息被清空
	again := validApplication("user-1")
	again.BusinessName = "Acme Goods GmbH"
	resubmitted, err := svc.Apply(ctx, again)
	require.NoError(t, err)
	assert.Equal(t, vendor.ID, resubmitted.ID)
	assert.Equal(t, model.VendorStatusPending, resubmitted.Status)
	assert.Equal(t, "Acme Goods GmbH", resubmitted.BusinessName)
	assert.Empty(t, resubmitted.ReviewNote)
	assert.Nil(t, resubmitted.ReviewedAt)

	approved, err := svc.Approve(ctx, vendor.ID, "admin-2", "")
	require.NoError(t, err)
	assert.Equal(t, model.VendorStatusApproved, approved.Status)

	// 非待审核状态不能再次审核
	_, err = svc.Approve(ctx, vendor.ID, "admin-2", "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.Reject(ctx, vendor.ID, "admin-2", "late")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// 已通过的商家不能重新申请
	_, err = svc.Apply(ctx, validApplication("user-1"))
	assert.ErrorIs(t, err, ErrApplicationExists)
}

func TestVendorService_NotFound(t *testing.T) {
	svc := newTestVendorService(t, setupTestDB(t))
	ctx := context.Background()

	_, err := svc.GetByID(ctx, 404)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.GetByUserID(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Approve(ctx, 404, "admin", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVendorService_ResolveApprovedVendorID(t *testing.T) {
	svc := newTestVendorService(t, setupTestDB(t))
	ctx := context.Background()

	_, err := svc.ResolveApprovedVendorID(ctx, "user-1")
	assert.True(t, errors.Is(err, middleware.ErrNoApprovedVendor))

	vendor, err := svc.Apply(ctx, validApplication("user-1"))
	require.NoError(t, err)

	_, err = svc.ResolveApprovedVendorID(ctx, "user-1")
	assert.True(t, errors.Is(err, middleware.ErrNoApprovedVendor), "待审核商家不能使用商家接口")

	_, err = svc.Approve(ctx, vendor.ID, "admin", "")
	require.NoError(t, err)

	id, err := svc.ResolveApprovedVendorID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, vendor.ID, id)
}

func TestVendorService_UpdateCommission(t *testing.T) {
	svc := newTestVendorService(t, setupTestDB(t))
	ctx := context.Background()

	vendor, err := svc.Apply(ctx, validApplication("user-1"))
	require.NoError(t, err)

	tests := []struct {
		name    string
		rate    float64
		wantErr bool
	}{
		{"正常比例", 12.5, false},
		{"零佣金", 0, false},
		{"上限", 100, false},
		{"负数", -1, true},
		{"超过 100", 150, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			updated, err := svc.UpdateCommission(ctx, vendor.ID, tt.rate)
			if tt.wantErr {
				_, ok := IsValidationError(err)
				assert.True(t, ok)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.rate, updated.CommissionRate)
		})
	}
}

func TestVendorService_GetKYCDocumentURL(t *testing.T) {
	svc := newTestVendorService(t, setupTestDB(t))
	ctx := context.Background()

	vendor, err := svc.Apply(ctx, validApplication("user-1"))
	require.NoError(t, err)

	signed, expiresAt, err := svc.GetKYCDocumentURL(ctx, vendor.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(signed, vendor.KYCDocumentURL))
	assert.Contains(t, signed, "expires=")
	assert.False(t, expiresAt.IsZero())

	_, _, err = svc.GetKYCDocumentURL(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}
