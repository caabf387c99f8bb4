package handlers

import (
	"ahmp/internal/services"
	"ahmp/pkg/response"

	"github.com/gin-gonic/gin"
)

type CompanyHandler struct {
	service *services.CompanyService
}

func NewCompanyHandler(service *services.CompanyService) *CompanyHandler {
	return &CompanyHandler{service: service}
}

// Get 当前租户信息
func (h *CompanyHandler) Get(c *gin.Context) {
	profile := getCurrentProfile(c)

	companyID := profile.ResolvedCompanyID()
	if companyID == 0 {
		response.NotFound(c, "尚未归属任何公司")
		return
	}

	company, err := h.service.GetByID(companyID)
	if err != nil {
		response.NotFound(c, "公司不存在")
		return
	}

	response.Success(c, company)
}

// Update 更新公司设置（仅管理员，路由层已做角色校验）
func (h *CompanyHandler) Update(c *gin.Context) {
	profile := getCurrentProfile(c)

	companyID := profile.ResolvedCompanyID()
	if companyID == 0 {
		response.NotFound(c, "尚未归属任何公司")
		return
	}

	var req struct {
		Name  string `json:"name"`
		Plan  string `json:"plan"`
		Seats int    `json:"seats"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	company, err := h.service.Update(companyID, req.Name, req.Plan, req.Seats)
	if err != nil {
		writeActionError(c, err)
		return
	}

	response.SuccessWithMessage(c, "公司设置更新成功", gin.H{
		"company":  company,
		"redirect": "/dashboard/settings",
	})
}
