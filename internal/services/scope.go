package services

import (
	"ahmp/pkg/logger"

	"gorm.io/gorm"
)

// StatusCount 状态分布统计
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// tenantScope 租户过滤
// 所有租户数据的读写都先按 company_id 等值过滤；档案尚未归属租户时
// 退回按操作者 created_by 过滤。这是有意保留的弱兜底（数据会按用户
// 而非按租户隔离），待产品确认
func tenantScope(query *gorm.DB, companyID, userID uint) *gorm.DB {
	if companyID != 0 {
		return query.Where("company_id = ?", companyID)
	}
	logger.GetLogger().Debugf("租户未归属，按用户 %d 兜底过滤", userID)
	return query.Where("created_by = ?", userID)
}
