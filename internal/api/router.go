package api

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/namma_kumta_server/config"
	"github.com/qs3c/namma_kumta_server/internal/api/handler"
	"github.com/qs3c/namma_kumta_server/internal/api/middleware"
	"github.com/qs3c/namma_kumta_server/internal/pkg/logger"
	"github.com/qs3c/namma_kumta_server/internal/pkg/metrics"
)

type Router struct {
	authHandler      *handler.AuthHandler
	adHandler        *handler.AdHandler
	adminHandler     *handler.AdminHandler
	paymentHandler   *handler.PaymentHandler
	mediaHandler     *handler.MediaHandler
	websocketHandler *handler.WebSocketHandler
	healthHandler    *handler.HealthHandler
	cfg              *config.Config
	log              *logger.Logger
}

func NewRouter(
	authHandler *handler.AuthHandler,
	adHandler *handler.AdHandler,
	adminHandler *handler.AdminHandler,
	paymentHandler *handler.PaymentHandler,
	mediaHandler *handler.MediaHandler,
	websocketHandler *handler.WebSocketHandler,
	healthHandler *handler.HealthHandler,
	cfg *config.Config,
	log *logger.Logger,
) *Router {
	return &Router{
		authHandler:      authHandler,
		adHandler:        adHandler,
		adminHandler:     adminHandler,
		paymentHandler:   paymentHandler,
		mediaHandler:     mediaHandler,
		websocketHandler: websocketHandler,
		healthHandler:    healthHandler,
		cfg:              cfg,
		log:              log,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(r.log))
	engine.Use(middleware.CORS(r.cfg.CORS))

	engine.GET("/health", r.healthHandler.Health)
	engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	// 登录注册和网关回调共用一个按 IP 的限流器
	limited := middleware.RateLimit(r.cfg.RateLimit)

	api := engine.Group("/api/v1")
	{
		// WebSocket
		api.GET("/ws", r.websocketHandler.Handle)

		// 公开接口 - 认证
		auth := api.Group("/auth")
		{
			auth.POST("/register", limited, r.authHandler.Register)
			auth.POST("/login", limited, r.authHandler.Login)
			auth.GET("/me", middleware.Auth(r.cfg.JWT.Secret), r.authHandler.Me)
		}

		// 支付网关回调，签名校验代替登录
		api.POST("/payments/callback", limited, r.paymentHandler.Callback)

		// 公开接口 - 在线广告
		public := api.Group("/public")
		{
			public.GET("/ads", r.adHandler.ListPublic)
			public.GET("/ads/:id", r.adHandler.GetPublic)
			public.GET("/plans", r.adHandler.Plans)
		}

		// 需要认证的接口
		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(r.cfg.JWT.Secret))
		{
			ads := authenticated.Group("/ads")
			{
				ads.POST("", r.adHandler.Submit)
				ads.GET("/mine", r.adHandler.ListMine)
				ads.POST("/media", r.mediaHandler.Upload)
				ads.GET("/:id", r.adHandler.Get)
				ads.PUT("/:id", r.adHandler.Update)
				ads.DELETE("/:id", r.adHandler.Delete)
				ads.POST("/:id/payments", r.adHandler.InitiatePayment)
				ads.GET("/:id/payments", r.adHandler.ListPayments)
			}

			authenticated.GET("/payments/:txid", r.paymentHandler.Get)
		}

		// 管理端
		admin := api.Group("/admin")
		admin.Use(middleware.Auth(r.cfg.JWT.Secret), middleware.RequireAdmin())
		{
			admin.GET("/ads", r.adminHandler.List)
			admin.GET("/ads/:id", r.adminHandler.Get)
			admin.POST("/ads/:id/approve", r.adminHandler.Approve)
			admin.POST("/ads/:id/reject", r.adminHandler.Reject)
			admin.DELETE("/ads/:id", r.adminHandler.Delete)
			admin.GET("/stats", r.adminHandler.Stats)
			admin.POST("/sweep", r.adminHandler.Sweep)
		}
	}

	return engine
}
