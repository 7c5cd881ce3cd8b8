package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func setupJWT(t *testing.T) {
	prev := GetJWTConfig()
	SetJWTConfig(&JWTConfig{SecretKey: testSecret, Leeway: time.Second})
	t.Cleanup(func() { SetJWTConfig(prev) })
}

func performRequest(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ==================== JWT ====================

func TestParseToken_RoundTrip(t *testing.T) {
	setupJWT(t)

	token, err := GenerateAccessToken("user-1", "a@example.com", RoleAdmin, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "a@example.com", claims.Email)
	assert.Equal(t, RoleAdmin, claims.AppRole())
}

func TestParseToken_Rejects(t *testing.T) {
	setupJWT(t)

	expired, err := GenerateAccessToken("user-1", "", RoleAdmin, -time.Hour)
	require.NoError(t, err)

	wrongKey := jwt.NewWithClaims(jwt.SigningMethodHS256, &UserClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	wrongSigned, err := wrongKey.SignedString([]byte("other"))
	require.NoError(t, err)

	noExpiry := jwt.NewWithClaims(jwt.SigningMethodHS256, &UserClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"},
	})
	noExpirySigned, err := noExpiry.SignedString([]byte(testSecret))
	require.NoError(t, err)

	noSubject := jwt.NewWithClaims(jwt.SigningMethodHS256, &UserClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	noSubjectSigned, err := noSubject.SignedString([]byte(testSecret))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"过期":    expired,
		"密钥错误":  wrongSigned,
		"无过期时间": noExpirySigned,
		"无用户":   noSubjectSigned,
		"乱码":    "not-a-token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseToken(token)
			assert.Error(t, err)
		})
	}
}

func TestUserClaims_AppRoleFallback(t *testing.T) {
	c := &UserClaims{Role: "moderator"}
	assert.Equal(t, "moderator", c.AppRole())
	c.AppMetadata.Role = RoleAdmin
	assert.Equal(t, RoleAdmin, c.AppRole())
}

func TestJWTAuthAndRequireRole(t *testing.T) {
	setupJWT(t)

	r := gin.New()
	r.GET("/admin", JWTAuth(), RequireRole(RoleAdmin, RoleModerator), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": GetUserID(c), "role": GetUserRole(c)})
	})

	admin, _ := GenerateAccessToken("u-admin", "", RoleAdmin, time.Hour)
	moderator, _ := GenerateAccessToken("u-mod", "", RoleModerator, time.Hour)
	vendor, _ := GenerateAccessToken("u-vendor", "", RoleVendor, time.Hour)
	noRole, _ := GenerateAccessToken("u-none", "", "", time.Hour)

	tests := []struct {
		name       string
		token      string
		wantStatus int
	}{
		{"未登录", "", http.StatusUnauthorized},
		{"无效 token", "garbage", http.StatusUnauthorized},
		{"管理员", admin, http.StatusOK},
		{"审核员", moderator, http.StatusOK},
		{"商家无权限", vendor, http.StatusForbidden},
		{"无业务角色", noRole, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(r, http.MethodGet, "/admin", tt.token)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestJWTAuth_BadScheme(t *testing.T) {
	setupJWT(t)

	r := gin.New()
	r.GET("/me", JWTAuth(), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Basic abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// ==================== RequireVendor ====================

type stubResolver struct {
	vendorID int64
	err      error
}

func (s stubResolver) ResolveApprovedVendorID(ctx context.Context, userID string) (int64, error) {
	return s.vendorID, s.err
}

func TestRequireVendor(t *testing.T) {
	setupJWT(t)
	token, _ := GenerateAccessToken("u-1", "", RoleVendor, time.Hour)

	tests := []struct {
		name       string
		resolver   VendorResolver
		wantStatus int
	}{
		{"已通过", stubResolver{vendorID: 7}, http.StatusOK},
		{"未通过", stubResolver{err: ErrNoApprovedVendor}, http.StatusForbidden},
		{"查询失败", stubResolver{err: errors.New("db down")}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/v", JWTAuth(), RequireVendor(tt.resolver), func(c *gin.Context) {
				assert.Equal(t, int64(7), GetVendorID(c))
				c.Status(http.StatusOK)
			})
			w := performRequest(r, http.MethodGet, "/v", token)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

// ==================== 冷却限流 ====================

func TestCooldownLimiter(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewCooldownLimiter()
	l.now = func() time.Time { return now }

	key := VendorImportKey(1)
	assert.True(t, l.Check(key, 30*time.Second).Allowed)

	now = now.Add(10 * time.Second)
	res := l.Check(key, 30*time.Second)
	assert.False(t, res.Allowed)
	assert.Equal(t, 20*time.Second, res.RetryAfter)

	// 其它商家不受影响
	assert.True(t, l.Check(VendorImportKey(2), 30*time.Second).Allowed)

	now = now.Add(21 * time.Second)
	assert.True(t, l.Check(key, 30*time.Second).Allowed)

	// Reset 后立即放行
	assert.False(t, l.Check(key, 30*time.Second).Allowed)
	l.Reset(key)
	assert.True(t, l.Check(key, 30*time.Second).Allowed)
}

func TestImportCooldown(t *testing.T) {
	limiter := NewCooldownLimiter()
	status := http.StatusOK

	r := gin.New()
	r.POST("/vendors/:id/bulk", ImportCooldown(limiter, time.Minute), func(c *gin.Context) {
		c.Status(status)
	})

	w := performRequest(r, http.MethodPost, "/vendors/5/bulk", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = performRequest(r, http.MethodPost, "/vendors/5/bulk", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "retry_after")

	// 失败请求释放冷却
	w = performRequest(r, http.MethodPost, "/vendors/6/bulk", "")
	assert.Equal(t, http.StatusOK, w.Code)
	limiter.Reset(VendorImportKey(6))
	status = http.StatusBadRequest
	performRequest(r, http.MethodPost, "/vendors/6/bulk", "")
	status = http.StatusOK
	w = performRequest(r, http.MethodPost, "/vendors/6/bulk", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = performRequest(r, http.MethodPost, "/vendors/abc/bulk", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFormatRetryMessage(t *testing.T) {
	assert.Equal(t, "Import cooling down, retry in 1 seconds", formatRetryMessage(200*time.Millisecond))
	assert.Equal(t, "Import cooling down, retry in 2 minutes", formatRetryMessage(2*time.Minute))
	assert.Equal(t, "Import cooling down, retry in 1 min 5 s", formatRetryMessage(65*time.Second))
}

// ==================== 客户端限流 ====================

func TestRateLimit(t *testing.T) {
	limiter := NewClientRateLimiter(1, 2)

	r := gin.New()
	r.GET("/ping", RateLimit(limiter), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, performRequest(r, http.MethodGet, "/ping", "").Code)
	assert.Equal(t, http.StatusOK, performRequest(r, http.MethodGet, "/ping", "").Code)
	w := performRequest(r, http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}
