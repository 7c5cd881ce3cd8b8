package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"marketplace_admin/internal/controller"
	"marketplace_admin/internal/middleware"
	"marketplace_admin/internal/service"
	"marketplace_admin/pkg/logger"
)

// Deps 路由依赖
type Deps struct {
	VendorCtl   *controller.VendorController
	ProductCtl  *controller.ProductController
	CategoryCtl *controller.CategoryController
	OrderCtl    *controller.OrderController
	TaskCtl     *controller.TaskController // 可选

	// 商家路由通过它确认当前用户有已审核通过的商家档案
	VendorResolver middleware.VendorResolver

	// 批量导入冷却，Interval <= 0 时不限制
	ImportLimiter  *middleware.CooldownLimiter
	ImportCooldown time.Duration

	// 全局按 IP 限流，nil 时不限制
	RateLimiter *middleware.ClientRateLimiter

	// 本地存储落盘目录，非空时挂载到 /uploads
	UploadDir string
}

// NewEngine 创建 gin 引擎并注册所有路由
func NewEngine(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logger.RequestLogger())
	if deps.RateLimiter != nil {
		r.Use(middleware.RateLimit(deps.RateLimiter))
	}
	InitRoutes(r, deps)
	return r
}

// InitRoutes 注册所有路由
func InitRoutes(r *gin.Engine, deps Deps) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if deps.UploadDir != "" {
		r.Static("/uploads", deps.UploadDir)
	}

	importGuard := func(c *gin.Context) { c.Next() }
	if deps.ImportLimiter != nil && deps.ImportCooldown > 0 {
		importGuard = middleware.ImportCooldown(deps.ImportLimiter, deps.ImportCooldown)
	}

	api := r.Group("/api")
	api.Use(middleware.JWTAuth(), middleware.AuditContext())
	{
		// GET /api/categories 任意已登录用户
		api.GET("/categories", deps.CategoryCtl.ListActive)

		// 入驻申请：任意已登录用户
		application := api.Group("/vendor/application")
		{
			application.POST("", deps.VendorCtl.Apply)
			application.GET("", deps.VendorCtl.GetMyApplication)
		}

		// 商家端：以数据库中的审核状态为准，不依赖 token 角色
		vendor := api.Group("/vendor")
		vendor.Use(middleware.RequireVendor(deps.VendorResolver))
		{
			vendor.GET("/products", deps.ProductCtl.ListOwn)
			vendor.POST("/products", deps.ProductCtl.Create)
			vendor.POST("/products/:id/image", deps.ProductCtl.UploadOwnImage)
			vendor.POST("/products/bulk", importGuard, deps.ProductCtl.BulkImport)

			vendor.GET("/orders", deps.OrderCtl.ListOwn)
			vendor.GET("/orders/stats", deps.OrderCtl.StatsOwn)
			vendor.PATCH("/orders/items/:id/fulfillment", deps.OrderCtl.UpdateFulfillment)
		}

		// 管理端
		admin := api.Group("/admin")
		{
			// 商品审核：admin 与 moderator
			moderation := admin.Group("/products")
			moderation.Use(middleware.RequireRole(middleware.RoleAdmin, middleware.RoleModerator))
			{
				moderation.GET("", deps.ProductCtl.List)
				moderation.GET("/:id", deps.ProductCtl.Get)
				moderation.POST("/:id/approve", deps.ProductCtl.Moderate(service.ActionApprove))
				moderation.POST("/:id/reject", deps.ProductCtl.Moderate(service.ActionReject))
				moderation.POST("/:id/flag", deps.ProductCtl.Moderate(service.ActionFlag))
				moderation.POST("/:id/image", deps.ProductCtl.UploadImage)
			}

			// 其余仅 admin
			adminOnly := admin.Group("")
			adminOnly.Use(middleware.RequireRole(middleware.RoleAdmin))
			{
				adminOnly.GET("/vendors", deps.VendorCtl.List)
				adminOnly.GET("/vendors/:id", deps.VendorCtl.Get)
				adminOnly.GET("/vendors/:id/kyc-document", deps.VendorCtl.GetKYCDocument)
				adminOnly.POST("/vendors/:id/approve", deps.VendorCtl.Approve)
				adminOnly.POST("/vendors/:id/reject", deps.VendorCtl.Reject)
				adminOnly.PATCH("/vendors/:id/commission", deps.VendorCtl.UpdateCommission)
				adminOnly.POST("/vendors/:id/products/bulk", importGuard, deps.ProductCtl.AdminBulkImport)

				adminOnly.GET("/categories", deps.CategoryCtl.ListAll)
				adminOnly.POST("/categories", deps.CategoryCtl.Create)
				adminOnly.PUT("/categories/:id", deps.CategoryCtl.Update)
				adminOnly.DELETE("/categories/:id", deps.CategoryCtl.Delete)

				adminOnly.GET("/orders", deps.OrderCtl.List)
				adminOnly.GET("/orders/stats", deps.OrderCtl.Stats)
				adminOnly.PATCH("/orders/items/:id/fulfillment", deps.OrderCtl.AdminUpdateFulfillment)

				if deps.TaskCtl != nil {
					adminOnly.GET("/tasks", deps.TaskCtl.Status)
					adminOnly.POST("/tasks/order-expiry", deps.TaskCtl.TriggerOrderExpiry)
				}
			}
		}
	}
}
