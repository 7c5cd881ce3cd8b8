package controller

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"marketplace_admin/internal/api/dto"
	"marketplace_admin/internal/middleware"
	"marketplace_admin/internal/model"
	"marketplace_admin/internal/repository"
	"marketplace_admin/internal/service"
)

// ProductController 商品、审核与批量导入
type ProductController struct {
	productService *service.ProductService
}

// NewProductController 创建商品控制器
func NewProductController(productService *service.ProductService) *ProductController {
	return &ProductController{productService: productService}
}

// ToProductResp 模型转响应
func ToProductResp(p *model.Product) dto.ProductResp {
	resp := dto.ProductResp{
		ID:             p.ID,
		VendorID:       p.VendorID,
		CategoryID:     p.CategoryID,
		Code:           p.Code,
		Name:           p.Name,
		Description:    p.Description,
		Price:          p.GetPrice(),
		Currency:       p.Currency,
		StockQty:       p.StockQty,
		ImageURL:       p.ImageURL,
		Tags:           []string(p.Tags),
		Status:         p.Status,
		ModerationNote: p.ModerationNote,
		ModeratedBy:    p.ModeratedBy,
		Source:         p.Source,
		CreatedAt:      p.CreatedAt.Unix(),
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	if p.ModeratedAt != nil {
		ts := p.ModeratedAt.Unix()
		resp.ModeratedAt = &ts
	}
	return resp
}

func toProductRespList(products []model.Product) []dto.ProductResp {
	list := make([]dto.ProductResp, 0, len(products))
	for i := range products {
		list = append(list, ToProductResp(&products[i]))
	}
	return list
}

// ==================== 商家端 ====================

// Create 商家创建商品
// POST /api/vendor/products
func (ctrl *ProductController) Create(c *gin.Context) {
	var in service.ProductInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid JSON body")
		return
	}

	product, err := ctrl.productService.Create(c.Request.Context(), middleware.GetVendorID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": ToProductResp(product), "message": "Product submitted for review"})
}

// ListOwn 商家自己的商品
// GET /api/vendor/products?status=&page=&page_size=
func (ctrl *ProductController) ListOwn(c *gin.Context) {
	var q dto.ProductListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err.Error())
		return
	}
	// 商家只能看到自己的商品
	q.VendorID = middleware.GetVendorID(c)
	ctrl.list(c, q)
}

// UploadOwnImage 商家上传自己商品的图片
// POST /api/vendor/products/:id/image
func (ctrl *ProductController) UploadOwnImage(c *gin.Context) {
	ctrl.uploadImage(c, middleware.GetVendorID(c))
}

// BulkImport 商家批量导入
// POST /api/vendor/products/bulk
func (ctrl *ProductController) BulkImport(c *gin.Context) {
	ctrl.bulkImport(c, middleware.GetVendorID(c))
}

// ==================== 管理端 ====================

// List 商品列表
// GET /api/admin/products?status=&vendor_id=&keyword=
func (ctrl *ProductController) List(c *gin.Context) {
	var q dto.ProductListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err.Error())
		return
	}
	ctrl.list(c, q)
}

// Get 商品详情
// GET /api/admin/products/:id
func (ctrl *ProductController) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	product, err := ctrl.productService.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": ToProductResp(product)})
}

// Moderate 审核动作处理器
// POST /api/admin/products/:id/approve|reject|flag
func (ctrl *ProductController) Moderate(action service.ModerationAction) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c, "id")
		if !ok {
			return
		}

		var req dto.ModerateReq
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				badRequest(c, "Invalid JSON body")
				return
			}
		}

		product, err := ctrl.productService.Moderate(c.Request.Context(), id, action, middleware.GetUserID(c), req.Reason)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"data":    ToProductResp(product),
			"message": "Product " + product.Status,
		})
	}
}

// UploadImage 管理端上传商品图片
// POST /api/admin/products/:id/image
func (ctrl *ProductController) UploadImage(c *gin.Context) {
	ctrl.uploadImage(c, 0)
}

// AdminBulkImport 管理员代商家批量导入
// POST /api/admin/vendors/:id/products/bulk
func (ctrl *ProductController) AdminBulkImport(c *gin.Context) {
	vendorID, ok := parseID(c, "id")
	if !ok {
		return
	}
	ctrl.bulkImport(c, vendorID)
}

// ==================== 共用实现 ====================

func (ctrl *ProductController) list(c *gin.Context, q dto.ProductListQuery) {
	products, total, err := ctrl.productService.List(c.Request.Context(), repository.ProductFilter{
		VendorID:   q.VendorID,
		CategoryID: q.CategoryID,
		Status:     q.Status,
		Source:     q.Source,
		Keyword:    q.Keyword,
		Page:       q.Page,
		PageSize:   q.PageSize,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPageResp(toProductRespList(products), total, q.PageQuery))
}

func (ctrl *ProductController) uploadImage(c *gin.Context, vendorID int64) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	file, ok := formFile(c, service.ProductImageRule.Field)
	if !ok {
		return
	}

	product, err := ctrl.productService.UploadImage(c.Request.Context(), id, vendorID, file)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": ToProductResp(product), "message": "Image uploaded"})
}

func (ctrl *ProductController) bulkImport(c *gin.Context, vendorID int64) {
	var form dto.BulkImportForm
	if err := c.ShouldBind(&form); err != nil {
		badRequest(c, "Invalid form: "+err.Error())
		return
	}

	file, ok := formFile(c, service.BulkCSVRule.Field)
	if !ok {
		return
	}

	summary, err := ctrl.productService.BulkImport(c.Request.Context(), vendorID, file, service.BulkImportMapping{
		Name:        form.MapName,
		Price:       form.MapPrice,
		Description: form.MapDescription,
		StockQty:    form.MapStockQty,
		ImageURL:    form.MapImageURL,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":    summary,
		"message": fmt.Sprintf("Imported %d products (max %d per file)", summary.Created, service.MaxBulkImportRows),
	})
}

// formFile 读取上传文件；字段缺失时返回 nil，由 ValidateUpload 给出字段错误
func formFile(c *gin.Context, field string) (service.UploadableFile, bool) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, true
	}
	f, err := service.NewMultipartFile(fh)
	if err != nil {
		badRequest(c, "Could not read uploaded file")
		return nil, false
	}
	return f, true
}
