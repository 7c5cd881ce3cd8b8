package controller

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"marketplace_admin/internal/api/dto"
	"marketplace_admin/internal/middleware"
	"marketplace_admin/internal/model"
	"marketplace_admin/internal/repository"
	"marketplace_admin/internal/service"
)

// VendorController 商家入驻与审核
type VendorController struct {
	vendorService *service.VendorService
}

// NewVendorController 创建商家控制器
func NewVendorController(vendorService *service.VendorService) *VendorController {
	return &VendorController{vendorService: vendorService}
}

// ==================== 申请人接口 ====================

// Apply 提交入驻申请
// POST /api/vendor/application (multipart: business_name, contact_email, phone, business_address, document)
func (ctrl *VendorController) Apply(c *gin.Context) {
	var form dto.VendorApplicationForm
	if err := c.ShouldBind(&form); err != nil {
		badRequest(c, "Invalid form: "+err.Error())
		return
	}

	var address map[string]interface{}
	if raw := strings.TrimSpace(form.BusinessAddress); raw != "" {
		if err := json.Unmarshal([]byte(raw), &address); err != nil {
			respondError(c, service.NewValidationError("business_address", "must be a JSON object"))
			return
		}
	}

	in := service.VendorApplicationInput{
		UserID:          middleware.GetUserID(c),
		BusinessName:    form.BusinessName,
		ContactEmail:    form.ContactEmail,
		Phone:           form.Phone,
		BusinessAddress: address,
	}

	doc, ok := formFile(c, service.KYCDocumentRule.Field)
	if !ok {
		return
	}
	in.Document = doc

	vendor, err := ctrl.vendorService.Apply(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"data":    vendor,
		"message": "Application submitted",
	})
}

// GetMyApplication 当前用户的申请
// GET /api/vendor/application
func (ctrl *VendorController) GetMyApplication(c *gin.Context) {
	vendor, err := ctrl.vendorService.GetByUserID(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": vendor})
}

// ==================== 管理端接口 ====================

// List 商家列表
// GET /api/admin/vendors?status=&keyword=&page=&page_size=
func (ctrl *VendorController) List(c *gin.Context) {
	var q dto.VendorListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err.Error())
		return
	}

	vendors, total, err := ctrl.vendorService.List(c.Request.Context(), repository.VendorFilter{
		Status:   q.Status,
		Keyword:  q.Keyword,
		Page:     q.Page,
		PageSize: q.PageSize,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPageResp(vendors, total, q.PageQuery))
}

// Get 商家详情
// GET /api/admin/vendors/:id
func (ctrl *VendorController) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	vendor, err := ctrl.vendorService.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": vendor})
}

// Approve 通过申请
// POST /api/admin/vendors/:id/approve
func (ctrl *VendorController) Approve(c *gin.Context) {
	ctrl.review(c, true)
}

// Reject 驳回申请
// POST /api/admin/vendors/:id/reject
func (ctrl *VendorController) Reject(c *gin.Context) {
	ctrl.review(c, false)
}

func (ctrl *VendorController) review(c *gin.Context, approve bool) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req dto.ReviewReq
	// 通过时 body 可以为空
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid JSON body")
			return
		}
	}

	ctx := c.Request.Context()
	reviewer := middleware.GetUserID(c)

	var (
		vendor  *model.Vendor
		err     error
		message string
	)
	if approve {
		vendor, err = ctrl.vendorService.Approve(ctx, id, reviewer, req.Reason)
		message = "Vendor approved"
	} else {
		vendor, err = ctrl.vendorService.Reject(ctx, id, reviewer, req.Reason)
		message = "Vendor rejected"
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": vendor, "message": message})
}

// UpdateCommission 修改佣金比例
// PATCH /api/admin/vendors/:id/commission
func (ctrl *VendorController) UpdateCommission(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req dto.CommissionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, service.NewValidationError("commission_rate", "is required"))
		return
	}

	vendor, err := ctrl.vendorService.UpdateCommission(c.Request.Context(), id, *req.CommissionRate)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": vendor, "message": "Commission updated"})
}

// GetKYCDocument KYC 材料临时访问地址
// GET /api/admin/vendors/:id/kyc-document
func (ctrl *VendorController) GetKYCDocument(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	url, expiresAt, err := ctrl.vendorService.GetKYCDocumentURL(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": dto.KYCDocumentResp{URL: url, ExpiresAt: expiresAt.Unix()}})
}
