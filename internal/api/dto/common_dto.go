package dto

// PageQuery 通用分页参数
type PageQuery struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}

// PageResp 分页响应
type PageResp struct {
	Data     interface{} `json:"data"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

// NewPageResp 页码与页大小回显为实际生效的值
func NewPageResp(data interface{}, total int64, q PageQuery) PageResp {
	page, pageSize := q.Page, q.PageSize
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return PageResp{Data: data, Total: total, Page: page, PageSize: pageSize}
}
