package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"marketplace_admin/internal/service"
)

// CategoryController 商品分类
type CategoryController struct {
	categoryService *service.CategoryService
}

// NewCategoryController 创建分类控制器
func NewCategoryController(categoryService *service.CategoryService) *CategoryController {
	return &CategoryController{categoryService: categoryService}
}

// ListActive 启用的分类
// GET /api/categories
func (ctrl *CategoryController) ListActive(c *gin.Context) {
	categories, err := ctrl.categoryService.ListActive(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": categories})
}

// ListAll 全部分类
// GET /api/admin/categories
func (ctrl *CategoryController) ListAll(c *gin.Context) {
	categories, err := ctrl.categoryService.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": categories})
}

// Create 创建分类
// POST /api/admin/categories
func (ctrl *CategoryController) Create(c *gin.Context) {
	var in service.CategoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid JSON body")
		return
	}

	category, err := ctrl.categoryService.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": category, "message": "Category created"})
}

// Update 更新分类
// PUT /api/admin/categories/:id
func (ctrl *CategoryController) Update(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var in service.CategoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid JSON body")
		return
	}

	category, err := ctrl.categoryService.Update(c.Request.Context(), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": category, "message": "Category updated"})
}

// Delete 删除分类
// DELETE /api/admin/categories/:id
func (ctrl *CategoryController) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := ctrl.categoryService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category deleted"})
}
