package handlers

import (
	"strconv"

	"ahmp/internal/services"
	"ahmp/pkg/response"

	"github.com/gin-gonic/gin"
)

// MatchHandler 匹配结果代理接口
// 评分由外部匹配服务完成，这里透传调用方令牌
type MatchHandler struct {
	service *services.MatchService
}

func NewMatchHandler(service *services.MatchService) *MatchHandler {
	return &MatchHandler{service: service}
}

// ProjectMatches 项目的匹配结果
func (h *MatchHandler) ProjectMatches(c *gin.Context) {
	profile := getCurrentProfile(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "ID格式错误")
		return
	}

	matches, err := h.service.ProjectMatches(profile, getBearerToken(c), uint(id))
	if err != nil {
		writeActionError(c, err)
		return
	}

	response.Success(c, matches)
}

// ApplicantMatches 申请人的匹配结果
func (h *MatchHandler) ApplicantMatches(c *gin.Context) {
	profile := getCurrentProfile(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		response.BadRequest(c, "ID格式错误")
		return
	}

	matches, err := h.service.ApplicantMatches(profile, getBearerToken(c), uint(id))
	if err != nil {
		writeActionError(c, err)
		return
	}

	response.Success(c, matches)
}

// AllMatches 全部项目的匹配结果聚合
func (h *MatchHandler) AllMatches(c *gin.Context) {
	matches, err := h.service.AllMatches(getBearerToken(c))
	if err != nil {
		writeActionError(c, err)
		return
	}

	response.Success(c, matches)
}

// Run 触发评分服务重新计算
func (h *MatchHandler) Run(c *gin.Context) {
	profile := getCurrentProfile(c)

	var req struct {
		ProjectID *uint `json:"project_id"`
	}
	// 空请求体等价于全量计算
	_ = c.ShouldBindJSON(&req)

	if err := h.service.Run(profile, getBearerToken(c), req.ProjectID); err != nil {
		writeActionError(c, err)
		return
	}

	response.SuccessWithMessage(c, "匹配计算已触发", nil)
}

// UpdateStatus 更新匹配审核状态
func (h *MatchHandler) UpdateStatus(c *gin.Context) {
	profile := getCurrentProfile(c)
	matchID := c.Param("id")
	if matchID == "" {
		response.BadRequest(c, "匹配ID不能为空")
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

	match, err := h.service.UpdateStatus(profile, getBearerToken(c), matchID, req.Status, req.Notes)
	if err != nil {
		writeActionError(c, err)
		return
	}

	response.SuccessWithMessage(c, "审核状态更新成功", match)
}
