package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthController 存活检查
type HealthController struct {
	storage string
	remote  bool
}

// NewHealthController storage 为存储类型，remote 表示是否配置了远程预测服务
func NewHealthController(storage string, remote bool) *HealthController {
	return &HealthController{storage: storage, remote: remote}
}

// Health 返回服务状态
func (hc *HealthController) Health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"storage": hc.storage,
		"remote":  hc.remote,
	})
}
