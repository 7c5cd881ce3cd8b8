package service

import (
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ==================== UploadableFile 上传文件能力 ====================

// UploadableFile 上传文件的最小能力集，平台相关的文件类型通过适配器满足该接口
type UploadableFile interface {
	Name() string
	SizeBytes() int64
	MimeType() string
	ReadBytes() ([]byte, error)
}

// UploadRule 上传校验规则
type UploadRule struct {
	Field        string   // 表单字段名，用于字段级错误
	MaxBytes     int64    // 最大字节数
	AllowedMimes []string // 允许的 MIME，空表示不限制
	AllowedExts  []string // 允许的扩展名（小写，带点），空表示不限制
}

// 常用规则
var (
	KYCDocumentRule = UploadRule{
		Field:        "document",
		MaxBytes:     10 << 20,
		AllowedMimes: []string{"application/pdf", "image/jpeg", "image/png"},
	}
	ProductImageRule = UploadRule{
		Field:        "image",
		MaxBytes:     5 << 20,
		AllowedMimes: []string{"image/jpeg", "image/png", "image/webp"},
	}
	BulkCSVRule = UploadRule{
		Field:        "file",
		MaxBytes:     2 << 20,
		AllowedMimes: []string{"text/csv", "text/plain", "application/vnd.ms-excel"},
		AllowedExts:  []string{".csv", ".txt"},
	}
)

// ValidateUpload 按规则校验上传文件，失败返回 *ValidationError
func ValidateUpload(f UploadableFile, rule UploadRule) error {
	if f == nil || f.Name() == "" {
		return NewValidationError(rule.Field, "file is required")
	}
	if f.SizeBytes() <= 0 {
		return NewValidationError(rule.Field, "file is empty")
	}
	if rule.MaxBytes > 0 && f.SizeBytes() > rule.MaxBytes {
		return NewValidationError(rule.Field, fmt.Sprintf("file exceeds %d MB", rule.MaxBytes>>20))
	}

	if len(rule.AllowedExts) > 0 {
		ext := strings.ToLower(filepath.Ext(f.Name()))
		if !containsString(rule.AllowedExts, ext) {
			return NewValidationError(rule.Field, "unsupported file extension "+ext)
		}
	}

	if len(rule.AllowedMimes) > 0 {
		mime := baseMime(f.MimeType())
		if !containsString(rule.AllowedMimes, mime) {
			return NewValidationError(rule.Field, "unsupported file type "+mime)
		}
	}
	return nil
}

// baseMime 去掉参数部分，如 "text/plain; charset=utf-8" -> "text/plain"
func baseMime(m string) string {
	if i := strings.Index(m, ";"); i >= 0 {
		m = m[:i]
	}
	return strings.ToLower(strings.TrimSpace(m))
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// ==================== multipart 适配 ====================

// multipartFile 将 gin 的 *multipart.FileHeader 适配为 UploadableFile。
// MIME 取自文件内容嗅探，不信任客户端声明的 Content-Type。
type multipartFile struct {
	header *multipart.FileHeader
	data   []byte
	mime   string
}

// NewMultipartFile 读取并嗅探上传文件
func NewMultipartFile(fh *multipart.FileHeader) (UploadableFile, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	return &multipartFile{
		header: fh,
		data:   data,
		mime:   mimetype.Detect(data).String(),
	}, nil
}

func (f *multipartFile) Name() string               { return f.header.Filename }
func (f *multipartFile) SizeBytes() int64           { return int64(len(f.data)) }
func (f *multipartFile) MimeType() string           { return f.mime }
func (f *multipartFile) ReadBytes() ([]byte, error) { return f.data, nil }

// ==================== 内存文件 ====================

// BytesFile 内存中的文件，供 CLI 与测试使用
type BytesFile struct {
	FileName string
	Data     []byte
	Mime     string // 为空时按内容嗅探
}

func (f *BytesFile) Name() string     { return f.FileName }
func (f *BytesFile) SizeBytes() int64 { return int64(len(f.Data)) }
func (f *BytesFile) MimeType() string {
	if f.Mime != "" {
		return f.Mime
	}
	return mimetype.Detect(f.Data).String()
}
func (f *BytesFile) ReadBytes() ([]byte, error) { return f.Data, nil }
