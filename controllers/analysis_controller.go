package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"go-soilsync/logger"
	"go-soilsync/middleware"
	"go-soilsync/models"
	"go-soilsync/services"
	"go-soilsync/utils"
)

// AnalysisController 处理测土配肥推荐及历史记录相关的请求
type AnalysisController struct {
	svc *services.AnalysisService
	log *logger.Logger
}

// NewAnalysisController 创建一个新的AnalysisController实例
func NewAnalysisController(svc *services.AnalysisService, log *logger.Logger) *AnalysisController {
	if log == nil {
		log = logger.Nop()
	}
	return &AnalysisController{svc: svc, log: log.With("controller", "analysis")}
}

// NotSavedResponse 推荐已生成但未写入历史
type NotSavedResponse struct {
	Recommendation models.Recommendation `json:"recommendation"`
	SoilData       models.SoilSample     `json:"soilData"`
	Saved          bool                  `json:"saved"`
}

// Predict 只返回推荐结果
func (ac *AnalysisController) Predict(ctx *gin.Context) {
	var sample models.SoilSample
	if err := ctx.ShouldBindJSON(&sample); err != nil {
		utils.BadRequest(ctx, "invalid soil sample: "+err.Error())
		return
	}
	utils.Success(ctx, ac.svc.Predict(ctx.Request.Context(), sample))
}

// SaveAnalysis 生成推荐并保存到调用者的历史记录
func (ac *AnalysisController) SaveAnalysis(ctx *gin.Context) {
	var sample models.SoilSample
	if err := ctx.ShouldBindJSON(&sample); err != nil {
		utils.BadRequest(ctx, "invalid soil sample: "+err.Error())
		return
	}

	user := middleware.CurrentUser(ctx)
	entry, err := ac.svc.Analyze(ctx.Request.Context(), user.ID, sample)
	if errors.Is(err, services.ErrNotSaved) {
		_ = ctx.Error(err)
		utils.Partial(ctx, http.StatusInternalServerError, services.ErrNotSaved.Error(), NotSavedResponse{
			Recommendation: entry.Recommendation,
			SoilData:       entry.SoilData,
			Saved:          false,
		})
		return
	}
	if err != nil {
		utils.InternalServerError(ctx, err.Error())
		return
	}
	utils.Created(ctx, entry)
}

// GetAnalyses 获取历史记录，limit 缺省或超过上限时返回全部保留的记录
func (ac *AnalysisController) GetAnalyses(ctx *gin.Context) {
	owner, ok := ac.owner(ctx)
	if !ok {
		return
	}

	limit := ac.svc.MaxEntries()
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			utils.BadRequest(ctx, "limit must be a non-negative integer")
			return
		}
		if n > 0 && n < limit {
			limit = n
		}
	}

	entries, err := ac.svc.History(ctx.Request.Context(), owner, limit)
	if err != nil {
		ac.log.Error("Failed to load history", "owner", owner, "error", err)
		utils.InternalServerError(ctx, "failed to load history")
		return
	}
	utils.SuccessList(ctx, entries, len(entries), limit)
}

// GetAnalysis 获取单条记录
func (ac *AnalysisController) GetAnalysis(ctx *gin.Context) {
	owner, ok := ac.owner(ctx)
	if !ok {
		return
	}

	entry, err := ac.svc.Get(ctx.Request.Context(), owner, ctx.Param("id"))
	if errors.Is(err, models.ErrNotFound) {
		utils.NotFound(ctx, "analysis not found")
		return
	}
	if err != nil {
		ac.log.Error("Failed to load analysis", "id", ctx.Param("id"), "error", err)
		utils.InternalServerError(ctx, "failed to load analysis")
		return
	}
	utils.Success(ctx, entry)
}

// GetAnalytics 统计调用者的历史记录
func (ac *AnalysisController) GetAnalytics(ctx *gin.Context) {
	owner, ok := ac.owner(ctx)
	if !ok {
		return
	}

	analytics, err := ac.svc.Analytics(ctx.Request.Context(), owner)
	if err != nil {
		ac.log.Error("Failed to compute analytics", "owner", owner, "error", err)
		utils.InternalServerError(ctx, "failed to compute analytics")
		return
	}
	utils.Success(ctx, analytics)
}

// Simulate 返回一次模拟的传感器读数
func (ac *AnalysisController) Simulate(ctx *gin.Context) {
	utils.Success(ctx, ac.svc.Simulate())
}

// owner 默认为调用者本人，管理员可以通过 userId 查询其他用户
func (ac *AnalysisController) owner(ctx *gin.Context) (string, bool) {
	user := middleware.CurrentUser(ctx)
	target, ok := ctx.GetQuery("userId")
	if !ok || target == user.ID {
		return user.ID, true
	}
	if !user.IsAdmin() {
		utils.Forbidden(ctx, "only service accounts may read other users' history")
		return "", false
	}
	return target, true
}
