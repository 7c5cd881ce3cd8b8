package service

import (
	"errors"
	"strings"
)

// ==================== 业务错误 ====================

var (
	ErrNotFound          = errors.New("record not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrVendorNotApproved = errors.New("vendor is not approved")
	ErrApplicationExists = errors.New("vendor application already submitted")
	ErrOrderTerminated   = errors.New("order is cancelled or expired")
	ErrCategoryInUse     = errors.New("category still has products")
	ErrStorageDisabled   = errors.New("object storage is not configured")
)

// ==================== 校验错误 ====================

// ValidationError 字段级校验失败，对应控制器的 {"error", "errors"} 响应
type ValidationError struct {
	Message     string
	FieldErrors map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.FieldErrors) == 0 {
		return e.Message
	}
	parts := make([]string, 0, len(e.FieldErrors))
	for field, msg := range e.FieldErrors {
		parts = append(parts, field+": "+msg)
	}
	return e.Message + " (" + strings.Join(parts, "; ") + ")"
}

// NewValidationError 创建单字段校验错误
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{
		Message:     "Invalid input",
		FieldErrors: map[string]string{field: msg},
	}
}

// IsValidationError 判断是否为校验错误
func IsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
