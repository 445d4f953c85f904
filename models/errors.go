package models

import "errors"

var (
	// ErrNotFound 记录不存在
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument 参数无效
	ErrInvalidArgument = errors.New("invalid argument")
)
