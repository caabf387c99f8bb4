package handlers

import (
	"errors"
	"fmt"
	"strconv"

	"ahmp/internal/models"
	"ahmp/internal/services"
	"ahmp/pkg/pagination"
	"ahmp/pkg/response"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ApplicantHandler struct {
	service *services.ApplicantService
}

func NewApplicantHandler(service *services.ApplicantService) *ApplicantHandler {
	return &ApplicantHandler{service: service}
}

// List 申请人列表
func (h *ApplicantHandler) List(c *gin.Context) {
	profile := getCurrentProfile(c)
	params := pagination.ParsePageParams(c)

	applicants, total := h.service.List(
		profile.ResolvedCompanyID(), profile.UserID,
		c.Query("status"), c.Query("keyword"),
		params.Page, params.PageSize,
	)

	response.SuccessWithPage(c, applicants, pagination.NewPageInfo(params.Page, params.PageSize, total))
}

// Get 申请人详情
func (h *ApplicantHandler) Get(c *gin.Context) {
	profile := getCurrentProfile(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "ID格式错误")
		return
	}

	applicant, err := h.service.GetByID(profile.ResolvedCompanyID(), profile.UserID, uint(id))
	if err != nil {
		// 不存在与无权访问不作区分
		response.NotFound(c, "记录不存在")
		return
	}

	response.Success(c, applicant)
}

// StatusCounts 状态分布统计
func (h *ApplicantHandler) StatusCounts(c *gin.Context) {
	profile := getCurrentProfile(c)
	response.Success(c, h.service.StatusCounts(profile.ResolvedCompanyID(), profile.UserID))
}

// Create 创建申请人
func (h *ApplicantHandler) Create(c *gin.Context) {
	profile := getCurrentProfile(c)

	var applicant models.Applicant
	if err := c.ShouldBindJSON(&applicant); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	if err := h.service.Create(profile, &applicant); err != nil {
		writeActionError(c, err)
		return
	}

	response.SuccessWithMessage(c, "创建成功", gin.H{
		"applicant": applicant,
		"redirect":  fmt.Sprintf("/dashboard/applicants/%d", applicant.ID),
	})
}

// Update 更新申请人
func (h *ApplicantHandler) Update(c *gin.Context) {
	profile := getCurrentProfile(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "ID格式错误")
		return
	}

	var input models.Applicant
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	applicant, err := h.service.Update(profile.ResolvedCompanyID(), profile.UserID, uint(id), &input)
	if err != nil {
		writeActionError(c, err)
		return
	}

	response.SuccessWithMessage(c, "更新成功", gin.H{
		"applicant": applicant,
		"redirect":  fmt.Sprintf("/dashboard/applicants/%d", applicant.ID),
	})
}

// UpdateStatus 申请人状态流转
func (h *ApplicantHandler) UpdateStatus(c *gin.Context) {
	profile := getCurrentProfile(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "ID格式错误")
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	applicant, err := h.service.UpdateStatus(profile, uint(id), req.Status)
	if err != nil {
		writeActionError(c, err)
		return
	}

	response.SuccessWithMessage(c, "状态更新成功", applicant)
}

// Delete 删除申请人
func (h *ApplicantHandler) Delete(c *gin.Context) {
	profile := getCurrentProfile(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "ID格式错误")
		return
	}

	if err := h.service.Delete(profile, uint(id)); err != nil {
		writeActionError(c, err)
		return
	}

	response.SuccessWithMessage(c, "删除成功", gin.H{
		"redirect": "/dashboard/applicants",
	})
}

// writeActionError 写路径错误统一映射
func writeActionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrForbidden):
		response.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrInvalidStatus):
		response.BadRequest(c, err.Error())
	case errors.Is(err, gorm.ErrRecordNotFound):
		response.NotFound(c, "记录不存在")
	default:
		response.ServerError(c, err.Error())
	}
}
