package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/sajulab/sajuback/docs"
	"github.com/sajulab/sajuback/internal/app/api/handlers"
	mw "github.com/sajulab/sajuback/internal/app/api/middleware"
	"github.com/sajulab/sajuback/internal/app/service/account"
	"github.com/sajulab/sajuback/internal/app/service/cronjob"
	"github.com/sajulab/sajuback/internal/app/service/saju"
	subsvc "github.com/sajulab/sajuback/internal/app/service/subscription"
	cfgpkg "github.com/sajulab/sajuback/pkg/config"
	metrics "github.com/sajulab/sajuback/pkg/metrics"
)

func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	// Request logger & access log are attached per group in registerRoutes
	r.Use(mw.TraceMiddleware())
	return r
}

func registerRoutes(
	r *gin.Engine,
	log *zap.SugaredLogger,
	cfg *cfgpkg.Config,
	sajuMgr saju.Manager,
	subMgr subsvc.Manager,
	cronMgr cronjob.Manager,
	accountMgr account.Manager,
) {
	if cfg.MetricsAddr != "" {
		p := metrics.New(log)
		r.Use(p.Middleware())
		p.Serve(cfg.MetricsAddr)
		log.Infow("metrics started", "addr", cfg.MetricsAddr)
	}

	// Public group: request logger + access log
	pub := r.Group("/")
	pub.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	handlers.RegisterHealthRoutes(pub)
	docs.SwaggerInfo.BasePath = "/"
	pub.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Webhook and cron callers authenticate with signatures/shared secrets,
	// not bearer tokens.
	handlers.RegisterWebhookRoutes(pub, cfg, log, accountMgr)

	api := r.Group("/api")
	api.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	handlers.RegisterCronRoutes(api, cfg, cronMgr)

	authed := api.Group("/")
	authed.Use(mw.AuthMiddleware(cfg))
	handlers.RegisterSajuRoutes(authed, sajuMgr)
	handlers.RegisterSubscriptionRoutes(authed, subMgr)
}

func runServer(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting HTTP server", "addr", addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Errorf("server error: %v", err)
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping HTTP server")
			shutdownCtx, cancel := context.WithTimeout(ctx, 120*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(newEngine),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
)
