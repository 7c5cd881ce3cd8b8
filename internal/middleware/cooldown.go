package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// ==================== 导入冷却中间件 ====================

// ImportCooldown 批量导入冷却中间件
// 按商家维度限流：优先取 RequireVendor 注入的商家 ID，其次取路由参数 :id（管理员代导入）。
// 请求失败（状态码 >= 400）时释放冷却，允许商家修正文件后立即重试。
//
// 使用示例:
//
//	vendor.POST("/products/bulk",
//	    middleware.ImportCooldown(limiter, 30*time.Second),
//	    productCtl.BulkImport,
//	)
func ImportCooldown(limiter *CooldownLimiter, interval time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		vendorID := GetVendorID(c)
		if vendorID == 0 {
			id, err := strconv.ParseInt(c.Param("id"), 10, 64)
			if err != nil || id <= 0 {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid vendor ID"})
				return
			}
			vendorID = id
		}

		key := VendorImportKey(vendorID)
		result := limiter.Check(key, interval)
		if !result.Allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": formatRetryMessage(result.RetryAfter),
				"data": gin.H{
					"retry_after": retryAfterSeconds(result.RetryAfter),
				},
			})
			return
		}

		c.Next()

		if c.Writer.Status() >= http.StatusBadRequest {
			limiter.Reset(key)
		}
	}
}

// ==================== 辅助函数 ====================

// retryAfterSeconds 向上取整，避免提示 0 秒
func retryAfterSeconds(d time.Duration) int {
	return int((d + time.Second - 1) / time.Second)
}

// formatRetryMessage 格式化重试提示信息
func formatRetryMessage(d time.Duration) string {
	seconds := retryAfterSeconds(d)

	if seconds < 60 {
		return fmt.Sprintf("Import cooling down, retry in %d seconds", seconds)
	}

	minutes := seconds / 60
	remainingSeconds := seconds % 60

	if remainingSeconds == 0 {
		return fmt.Sprintf("Import cooling down, retry in %d minutes", minutes)
	}

	return fmt.Sprintf("Import cooling down, retry in %d min %d s", minutes, remainingSeconds)
}
