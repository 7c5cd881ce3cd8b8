package service

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// MaxBulkImportRows 单个文件最多接受的行数
const MaxBulkImportRows = 200

// ==================== 导入错误 ====================

var (
	ErrCSVEmpty       = errors.New("CSV is empty")
	ErrCSVHeader      = errors.New("invalid CSV header")
	ErrMissingMapping = errors.New("missing column mapping")
	ErrNoValidRows    = errors.New("no valid rows")
)

// ImportError 批次级导入失败，整批拒绝，无任何副作用。
// Kind 为上面的哨兵错误之一，可用 errors.Is 判断。
type ImportError struct {
	Kind    error
	Message string
}

func (e *ImportError) Error() string { return e.Message }
func (e *ImportError) Unwrap() error { return e.Kind }

func newImportError(kind error, format string, args ...interface{}) *ImportError {
	return &ImportError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// ==================== 映射与结果 ====================

// BulkImportMapping 逻辑字段 -> CSV 表头名称（大小写不敏感）
type BulkImportMapping struct {
	Name        string `json:"name"`
	Price       string `json:"price"`
	Description string `json:"description,omitempty"`
	StockQty    string `json:"stockQty,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

// BulkImportRow 通过校验的商品候选记录
type BulkImportRow struct {
	Code        string  `json:"code" validate:"required,uuid4"`
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description"`
	Price       float64 `json:"price" validate:"gte=0"`
	StockQty    *int    `json:"stock_qty,omitempty" validate:"omitempty,gte=0"`
	ImageURL    string  `json:"image_url,omitempty" validate:"omitempty,http_url"`
}

// BulkImportResult 导入结果
type BulkImportResult struct {
	Accepted    []BulkImportRow `json:"accepted"`
	TotalRows   int             `json:"total_rows"`   // 已扫描的数据行
	SkippedRows int             `json:"skipped_rows"` // 被静默跳过的数据行
	Capped      bool            `json:"capped"`       // 达到上限后仍有未扫描的行
}

var rowValidator = validator.New()

// columnIndex 解析后的列下标，-1 表示未映射
type columnIndex struct {
	name, price, description, stockQty, imageURL int
}

// ==================== 导入 ====================

// ImportBulkProducts 将 CSV 文本按列映射转换为商品候选记录。
// 纯函数：不做 I/O，不持久化；插入事务由调用方负责。
func ImportBulkProducts(csvText string, mapping BulkImportMapping) (*BulkImportResult, error) {
	if strings.TrimSpace(mapping.Name) == "" {
		return nil, newImportError(ErrMissingMapping, "Missing column mapping for name")
	}
	if strings.TrimSpace(mapping.Price) == "" {
		return nil, newImportError(ErrMissingMapping, "Missing column mapping for price")
	}

	lines := splitNonBlankLines(csvText)
	if len(lines) == 0 {
		return nil, newImportError(ErrCSVEmpty, "CSV is empty")
	}

	header, err := tokenizeLine(lines[0])
	if err != nil {
		return nil, newImportError(ErrCSVHeader, "CSV header row could not be read: %v", err)
	}
	if !hasColumns(header) {
		return nil, newImportError(ErrCSVHeader, "CSV header row has no columns")
	}

	cols := columnIndex{
		name:        findColumn(header, mapping.Name),
		price:       findColumn(header, mapping.Price),
		description: findColumn(header, mapping.Description),
		stockQty:    findColumn(header, mapping.StockQty),
		imageURL:    findColumn(header, mapping.ImageURL),
	}
	if cols.name < 0 {
		return nil, newImportError(ErrMissingMapping, "Column %q mapped to name was not found in the CSV header", mapping.Name)
	}
	if cols.price < 0 {
		return nil, newImportError(ErrMissingMapping, "Column %q mapped to price was not found in the CSV header", mapping.Price)
	}

	result := &BulkImportResult{Accepted: make([]BulkImportRow, 0)}
	data := lines[1:]
	for _, line := range data {
		if len(result.Accepted) >= MaxBulkImportRows {
			result.Capped = true
			break
		}
		result.TotalRows++

		record, err := tokenizeLine(line)
		if err != nil {
			continue
		}
		row, ok := buildRow(record, cols)
		if !ok {
			continue
		}
		if err := rowValidator.Struct(row); err != nil {
			continue
		}
		result.Accepted = append(result.Accepted, row)
	}
	result.SkippedRows = result.TotalRows - len(result.Accepted)

	if len(result.Accepted) == 0 {
		return nil, newImportError(ErrNoValidRows, "CSV has no valid rows")
	}
	return result, nil
}

// buildRow 单行强制转换，name 或 price 无效时返回 false
func buildRow(record []string, cols columnIndex) (BulkImportRow, bool) {
	name := strings.TrimSpace(cell(record, cols.name))
	if name == "" {
		return BulkImportRow{}, false
	}

	price, ok := parsePrice(cell(record, cols.price))
	if !ok {
		return BulkImportRow{}, false
	}

	row := BulkImportRow{
		Code:        uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(cell(record, cols.description)),
		Price:       price,
	}
	if qty, ok := parseStockQty(cell(record, cols.stockQty)); ok {
		row.StockQty = &qty
	}
	if u := strings.TrimSpace(cell(record, cols.imageURL)); isHTTPURL(u) {
		row.ImageURL = u
	}
	return row, true
}

// ==================== 解析辅助 ====================

// splitNonBlankLines 按行结束符预切分，丢弃去掉尾部空白后为空的行。
// 引号内的换行不受支持：行在分词前已被切开。
func splitNonBlankLines(text string) []string {
	text = strings.TrimPrefix(text, "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRightFunc(line, unicode.IsSpace)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// tokenizeLine 按 RFC4180 引号规则切分单行
func tokenizeLine(line string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r.Read()
}

func hasColumns(header []string) bool {
	for _, h := range header {
		if strings.TrimSpace(h) != "" {
			return true
		}
	}
	return false
}

// findColumn 大小写不敏感查找表头，找不到或未映射返回 -1
func findColumn(header []string, name string) int {
	name = strings.TrimSpace(name)
	if name == "" {
		return -1
	}
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

func cell(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}

// parsePrice 去掉千分位逗号，要求有限且非负
func parsePrice(raw string) (float64, bool) {
	s := strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return v, true
}

// parseStockQty 0..MaxInt32 的整数，"3.0" 视为 3
func parseStockQty(raw string) (int, bool) {
	s := strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return int(n), n >= 0 && n <= math.MaxInt32
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// isHTTPURL 仅接受 http/https 绝对地址
func isHTTPURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return (scheme == "http" || scheme == "https") && u.Host != ""
}
