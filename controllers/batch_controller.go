package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-soilsync/logger"
	"go-soilsync/models"
	"go-soilsync/services"
	"go-soilsync/utils"
)

// MaxUploadBytes CSV 文件大小上限
const MaxUploadBytes = 10 << 20

// BatchController 处理 CSV 批量预测
type BatchController struct {
	svc *services.AnalysisService
	log *logger.Logger
}

// NewBatchController 创建一个新的BatchController实例
func NewBatchController(svc *services.AnalysisService, log *logger.Logger) *BatchController {
	if log == nil {
		log = logger.Nop()
	}
	return &BatchController{svc: svc, log: log.With("controller", "batch")}
}

// Upload 读取表单字段 file 中的 CSV，返回逐行预测和汇总
func (bc *BatchController) Upload(ctx *gin.Context) {
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, MaxUploadBytes)

	header, err := ctx.FormFile("file")
	if err != nil {
		utils.BadRequest(ctx, "multipart field \"file\" is required")
		return
	}
	file, err := header.Open()
	if err != nil {
		utils.BadRequest(ctx, "cannot open uploaded file")
		return
	}
	defer file.Close()

	report, err := bc.svc.Batch(ctx.Request.Context(), file)
	if errors.Is(err, models.ErrInvalidArgument) {
		utils.BadRequest(ctx, err.Error())
		return
	}
	if err != nil {
		bc.log.Error("Batch prediction failed", "file", header.Filename, "error", err)
		utils.InternalServerError(ctx, "batch prediction failed")
		return
	}

	bc.log.Info("Batch prediction finished", "file", header.Filename, "rows", report.Summary.Total, "accuracy", report.Summary.Accuracy)
	utils.Success(ctx, report)
}
