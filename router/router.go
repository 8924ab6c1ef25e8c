package router

import (
	"context"
	"net/http"
	"time"

	"familyfinance/api"
	"familyfinance/config"
	_ "familyfinance/docs"
	"familyfinance/middleware"
	"familyfinance/service"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Pinger 健康检查依赖
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps 路由依赖
type Deps struct {
	Service  *service.Service
	Store    Pinger
	Realtime http.Handler // /ws
}

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, d Deps) *gin.Engine {
	// 设置运行模式
	gin.SetMode(cfg.Server.Mode)

	r := gin.Default()

	// CORS 中间件
	r.Use(CORSMiddleware())

	authHandler := api.NewAuthHandler(d.Service)
	familyHandler := api.NewFamilyHandler(d.Service)
	profileHandler := api.NewProfileHandler(d.Service)
	transactionHandler := api.NewTransactionHandler(d.Service)
	budgetHandler := api.NewBudgetHandler(d.Service)
	goalHandler := api.NewGoalHandler(d.Service)
	categoryHandler := api.NewCategoryHandler(d.Service)

	maxAttempts, window := cfg.RateLimit.MaxAttempts, cfg.RateLimit.Window
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	if window <= 0 {
		window = time.Minute
	}

	apiGroup := r.Group("/api")
	{
		// 公开接口
		limited := apiGroup.Group("")
		limited.Use(middleware.LoginRateLimit(maxAttempts, window))
		{
			limited.POST("/register", authHandler.Register)
			limited.POST("/login", authHandler.Login)
		}
		apiGroup.POST("/logout", authHandler.Logout)

		// 需要登录
		authorized := apiGroup.Group("")
		authorized.Use(middleware.JWTAuth())
		{
			authorized.POST("/families", familyHandler.Create)
			authorized.GET("/families", familyHandler.List)
			authorized.POST("/families/join", familyHandler.Join)
			authorized.PATCH("/family", familyHandler.Update)
			authorized.GET("/family/members", familyHandler.Members)
			authorized.DELETE("/family/members/:id", familyHandler.RemoveMember)
			authorized.POST("/family/invite", familyHandler.Invite)
			authorized.DELETE("/family_delete", familyHandler.Delete)
			authorized.POST("/roles/assign", familyHandler.AssignRole)
			authorized.GET("/activity", familyHandler.Activity)

			authorized.GET("/me", profileHandler.Get)
			authorized.PUT("/me", profileHandler.Update)
			authorized.PUT("/me/password", profileHandler.ChangePassword)

			authorized.GET("/transactions", transactionHandler.List)
			authorized.POST("/transactions", transactionHandler.Create)
			authorized.GET("/transactions/export", transactionHandler.Export)
			authorized.DELETE("/transactions/:id", transactionHandler.Delete)

			authorized.GET("/budgets", budgetHandler.List)
			authorized.POST("/budgets", budgetHandler.Upsert)
			authorized.DELETE("/budgets/:id", budgetHandler.Delete)

			authorized.GET("/goals", goalHandler.List)
			authorized.POST("/goals", goalHandler.Create)
			authorized.POST("/goals/:id/adjust", goalHandler.Adjust)

			authorized.GET("/categories", categoryHandler.List)
			authorized.POST("/categories", categoryHandler.Create)
			authorized.PUT("/categories/:id", categoryHandler.Update)
			authorized.DELETE("/categories/:id", categoryHandler.Delete)
		}
	}

	// 实时推送，握手时自行校验会话
	if d.Realtime != nil {
		r.GET("/ws", gin.WrapH(d.Realtime))
	}

	// Swagger 文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		if d.Store != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := d.Store.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status": "unavailable",
				})
				return
			}
		}
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	return r
}

// CORSMiddleware CORS 跨域中间件，回显请求的 Origin
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			origin = "*"
		}
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Vary", "Origin")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
