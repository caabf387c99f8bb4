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

type ProjectHandler struct {
	service *services.ProjectService
}

func NewProjectHandler(service *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{service: service}
}

// List 项目列表
func (h *ProjectHandler) List(c *gin.Context) {
	profile := getCurrentProfile(c)
	params := pagination.ParsePageParams(c)

	projects, total := h.service.List(
		profile.ResolvedCompanyID(), profile.UserID,
		c.Query("status"), c.Query("keyword"),
		params.Page, params.PageSize,
	)

	response.SuccessWithPage(c, projects, pagination.NewPageInfo(params.Page, params.PageSize, total))
}

// ListPublic 公开项目列表（营销页数据，无需登录）
func (h *ProjectHandler) ListPublic(c *gin.Context) {
	params := pagination.ParsePageParams(c)
	projects, total := h.service.ListPublic(params.Page, params.PageSize)
	response.SuccessWithPage(c, projects, pagination.NewPageInfo(params.Page, params.PageSize, total))
}

// Get 项目详情
func (h *ProjectHandler) Get(c *gin.Context) {
	profile := getCurrentProfile(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "ID格式错误")
		return
	}

	project, err := h.service.GetByID(profile.ResolvedCompanyID(), profile.UserID, uint(id))
	if err != nil {
		response.NotFound(c, "记录不存在")
		return
	}

	response.Success(c, project)
}

// StatusCounts 状态分布统计
func (h *ProjectHandler) StatusCounts(c *gin.Context) {
	profile := getCurrentProfile(c)
	response.Success(c, h.service.StatusCounts(profile.ResolvedCompanyID(), profile.UserID))
}

// Create 创建项目
func (h *ProjectHandler) Create(c *gin.Context) {
	profile := getCurrentProfile(c)

	var project models.Project
	if err := c.ShouldBindJSON(&project); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	if err := h.service.Create(profile, &project); err != nil {
		writeActionError(c, err)
		return
	}

	response.SuccessWithMessage(c, "创建成功", gin.H{
		"project":  project,
		"redirect": fmt.Sprintf("/dashboard/projects/%d", project.ID),
	})
}

// Update 更新项目
func (h *ProjectHandler) Update(c *gin.Context) {
	profile := getCurrentProfile(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "ID格式错误")
		return
	}

	var input models.Project
	if err := c.ShouldBindJSON(&input); err != nil {
		response.BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	project, err := h.service.Update(profile, uint(id), &input)
	if err != nil {
		writeActionError(c, err)
		return
	}

	response.SuccessWithMessage(c, "更新成功", gin.H{
		"project":  project,
		"redirect": fmt.Sprintf("/dashboard/projects/%d", project.ID),
	})
}

// UpdateStatus 项目状态流转
func (h *ProjectHandler) UpdateStatus(c *gin.Context) {
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

	project, err := h.service.UpdateStatus(profile, uint(id), req.Status)
	if err != nil {
		writeActionError(c, err)
		return
	}

	response.SuccessWithMessage(c, "状态更新成功", project)
}

// Delete 删除项目
func (h *ProjectHandler) Delete(c *gin.Context) {
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
		"redirect": "/dashboard/projects",
	})
}
