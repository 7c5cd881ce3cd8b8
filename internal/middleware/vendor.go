package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ContextKeyVendorID 当前商家 ID
const ContextKeyVendorID = "vendor_id"

// ErrNoApprovedVendor 当前用户没有已通过审核的商家档案
var ErrNoApprovedVendor = errors.New("no approved vendor")

// VendorResolver 根据用户 ID 查找已通过审核的商家 ID
type VendorResolver interface {
	ResolveApprovedVendorID(ctx context.Context, userID string) (int64, error)
}

// RequireVendor 商家路由中间件，需在 JWTAuth 之后使用
func RequireVendor(resolver VendorResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := GetUserID(c)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		vendorID, err := resolver.ResolveApprovedVendorID(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, ErrNoApprovedVendor) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Vendor account is not approved"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve vendor"})
			return
		}

		c.Set(ContextKeyVendorID, vendorID)
		c.Next()
	}
}

// GetVendorID 从 Context 获取商家 ID，未设置返回 0
func GetVendorID(c *gin.Context) int64 {
	return c.GetInt64(ContextKeyVendorID)
}
