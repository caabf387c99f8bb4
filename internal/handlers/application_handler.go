package handlers

import (
	"fmt"
	"strconv"

	"ahmp/internal/models"
	"ahmp/internal/services"
	"ahmp/pkg/pagination"
	"ahmp/pkg/response"

	"github.com/gin-gonic/gin"
)

type ApplicationHandler struct {
	service *services.ApplicationService
}

func NewApplicationHandler(service *services.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{service: service}
}

// List 申请列表
func (h *ApplicationHandler) List(c *gin.Context) {
	profile := getCurrentProfile(c)
	params := pagination.ParsePageParams(c)

	var projectID uint
	if v, err := strconv.ParseUint(c.Query("project_id"), 10, 32); err == nil {
		projectID = uint(v)
	}

	applications, total := h.service.List(
		profile.ResolvedCompanyID(), profile.UserID,
		c.Query("status"), projectID,
		params.Page, params.PageSize,
	)

	response.SuccessWithPage(c, applications, pagination.NewPageInfo(params.Page, params.PageSize, total))
}

// Get 申请详情
func (h *ApplicationHandler) Get(c *gin.Context) {
	profile := getCurrentProfile(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "ID格式错误")
		return
	}

	application, err := h.service.GetByID(profile.ResolvedCompanyID(), profile.UserID, uint(id))
	if err != nil {
		response.NotFound(c, "记录不存在")
		return
	}

	response.Success(c, application)
}

// StatusCounts 状态分布统计
func (h *ApplicationHandler) StatusCounts(c *gin.Context) {
	profile := getCurrentProfile(c)
	response.Success(c, h.service.StatusCounts(profile.ResolvedCompanyID(), profile.UserID))
}

// Create 提交申请
func (h *ApplicationHandler) Create(c *gin.Context) {
	profile := getCurrentProfile(c)

	var application models.Application
	if err := c.ShouldBindJSON(&application); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	if err := h.service.Create(profile, &application); err != nil {
		writeActionError(c, err)
		return
	}

	response.SuccessWithMessage(c, "申请提交成功", gin.H{
		"application": application,
		"redirect":    fmt.Sprintf("/dashboard/applications/%d", application.ID),
	})
}

// UpdateStatus 申请状态流转（仅 developer/admin，服务层再校验一次）
func (h *ApplicationHandler) UpdateStatus(c *gin.Context) {
	profile := getCurrentProfile(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "ID格式错误")
		return
	}

	var req struct {
		Status string `json:"status" binding:"required"`
		Notes  string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	application, err := h.service.UpdateStatus(profile, uint(id), req.Status, req.Notes)
	if err != nil {
		writeActionError(c, err)
		return
	}

	response.SuccessWithMessage(c, "状态更新成功", application)
}

// Withdraw 撤回申请
func (h *ApplicationHandler) Withdraw(c *gin.Context) {
	profile := getCurrentProfile(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "ID格式错误")
		return
	}

	application, err := h.service.Withdraw(profile, uint(id))
	if err != nil {
		writeActionError(c, err)
		return
	}

	response.SuccessWithMessage(c, "申请已撤回", application)
}

// Delete 删除申请
func (h *ApplicationHandler) Delete(c *gin.Context) {
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
		"redirect": "/dashboard/applications",
	})
}
