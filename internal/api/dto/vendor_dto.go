package dto

// ==================== 请求 DTO ====================

// VendorApplicationForm 入驻申请（multipart 表单，KYC 材料字段名 document）
type VendorApplicationForm struct {
	BusinessName string `form:"business_name"`
	ContactEmail string `form:"contact_email"`
	Phone        string `form:"phone"`

	// JSON 对象字符串，如 {"city":"Berlin","country":"DE"}
	BusinessAddress string `form:"business_address"`
}

// VendorListQuery 商家列表查询
type VendorListQuery struct {
	PageQuery
	Status  string `form:"status"`
	Keyword string `form:"keyword"`
}

// ReviewReq 审核请求，驳回时 Reason 必填
type ReviewReq struct {
	Reason string `json:"reason"`
}

// CommissionReq 修改佣金比例
type CommissionReq struct {
	CommissionRate *float64 `json:"commission_rate" binding:"required"`
}

// ==================== 响应 DTO ====================

// KYCDocumentResp KYC 材料临时地址
type KYCDocumentResp struct {
	URL       string `json:"url"`
	ExpiresAt int64  `json:"expires_at"`
}
