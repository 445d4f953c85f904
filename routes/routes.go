package routes

import (
	"github.com/gin-gonic/gin"

	"go-soilsync/controllers"
	"go-soilsync/logger"
	"go-soilsync/middleware"
	"go-soilsync/services"
)

// Deps 路由依赖
type Deps struct {
	Service     *services.AnalysisService
	Log         *logger.Logger
	JWTSecret   string
	CORSOrigins []string
	Storage     string
	Remote      bool
}

// SetupRouter 配置所有路由
func SetupRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger(deps.Log), middleware.CORS(deps.CORSOrigins))

	// 创建控制器实例
	analysisController := controllers.NewAnalysisController(deps.Service, deps.Log)
	batchController := controllers.NewBatchController(deps.Service, deps.Log)
	healthController := controllers.NewHealthController(deps.Storage, deps.Remote)

	// 公共路由
	r.GET("/healthz", healthController.Health)

	// 解析调用者身份的路由，未登录时按匿名处理
	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(deps.JWTSecret))
	{
		// 推荐
		api.POST("/predict", analysisController.Predict)
		api.GET("/simulate", analysisController.Simulate)
		api.POST("/batch", batchController.Upload)

		// 历史记录与统计
		api.POST("/analyses", analysisController.SaveAnalysis)
		api.GET("/analyses", analysisController.GetAnalyses)
		api.GET("/analyses/:id", analysisController.GetAnalysis)
		api.GET("/analytics", analysisController.GetAnalytics)
	}

	return r
}
