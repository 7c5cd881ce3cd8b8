package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"marketplace_admin/internal/service"
	"marketplace_admin/pkg/logger"
)

// ==================== 错误映射 ====================

// respondError 将服务层错误映射为 HTTP 响应
// 校验错误: 400 {"error", "errors"}；业务冲突: 409；其他: 500
func respondError(c *gin.Context, err error) {
	if ve, ok := service.IsValidationError(err); ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Message, "errors": ve.FieldErrors})
		return
	}

	var ie *service.ImportError
	if errors.As(err, &ie) {
		c.JSON(http.StatusBadRequest, gin.H{"error": ie.Message})
		return
	}

	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
	case errors.Is(err, service.ErrVendorNotApproved):
		c.JSON(http.StatusForbidden, gin.H{"error": "Vendor account is not approved"})
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrApplicationExists),
		errors.Is(err, service.ErrOrderTerminated),
		errors.Is(err, service.ErrCategoryInUse),
		errors.Is(err, service.ErrCategoryHasChildren):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrStorageDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "File storage is not available"})
	default:
		logger.FromContext(c).Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// badRequest 参数错误
func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// ==================== 参数解析 ====================

// parseID 解析路径参数中的正整数 ID
func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "Invalid "+name)
		return 0, false
	}
	return id, true
}
