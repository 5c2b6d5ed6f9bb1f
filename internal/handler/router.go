package handler

import (
	"kargopay/internal/config"
	"kargopay/internal/gateway"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// SetupRouter 配置路由
func SetupRouter(db *gorm.DB, rdb *redis.Client, cfg *config.Config, gw gateway.PaymentGateway) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(RecoveryMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	h := NewHandler(db, rdb, cfg, gw)

	api := r.Group("/api/v1")
	api.Use(AuthMiddleware())
	{
		// 钱包相关
		wallet := api.Group("/wallet")
		{
			wallet.GET("/balance", h.GetBalance)
			wallet.GET("/nakliyeci", h.GetCarrierSummary)
			wallet.POST("/topup/intent", h.CreateTopupIntent)
			wallet.POST("/topup/confirm", h.ConfirmTopup)

			// 佣金冻结/释放（后台操作）
			commission := wallet.Group("/commission")
			commission.Use(RequireAdmin())
			{
				commission.POST("/capture", h.CaptureCommission)
				commission.POST("/release", h.ReleaseCommission)
			}
		}

		// 可疑行为相关（管理员）
		suspicious := api.Group("/suspicious-activity")
		suspicious.Use(RequireAdmin())
		{
			suspicious.POST("/scan", h.ScanUser)
			suspicious.POST("/bulk-scan", h.BulkScan)
			suspicious.GET("", h.ListActivities)
			suspicious.PUT("/:id/status", h.UpdateActivityStatus)
			suspicious.GET("/stats/overview", h.GetStatsOverview)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
