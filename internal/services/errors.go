package services

import "errors"

// 服务层公共错误
var (
	ErrForbidden     = errors.New("权限不足")
	ErrInvalidStatus = errors.New("状态无效")
)
