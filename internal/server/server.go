package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/careerforge/careerforge/internal/account"
	accountdomain "github.com/careerforge/careerforge/internal/account/domain"
	"github.com/careerforge/careerforge/internal/advisor"
	advisordomain "github.com/careerforge/careerforge/internal/advisor/domain"
	"github.com/careerforge/careerforge/internal/clock"
	"github.com/careerforge/careerforge/internal/config"
	"github.com/careerforge/careerforge/internal/identity"
	"github.com/careerforge/careerforge/internal/ledger"
	ledgerdomain "github.com/careerforge/careerforge/internal/ledger/domain"
	"github.com/careerforge/careerforge/internal/observability"
	obsmiddleware "github.com/careerforge/careerforge/internal/observability/logger"
	obsmetrics "github.com/careerforge/careerforge/internal/observability/metrics"
	obstracing "github.com/careerforge/careerforge/internal/observability/tracing"
	"github.com/careerforge/careerforge/internal/order"
	orderdomain "github.com/careerforge/careerforge/internal/order/domain"
	"github.com/careerforge/careerforge/internal/payment"
	paymentdomain "github.com/careerforge/careerforge/internal/payment/domain"
	"github.com/careerforge/careerforge/internal/payment/gateway"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	config.Module,
	clock.Module,
	identity.Module,
	account.Module,
	ledger.Module,
	gateway.Module,
	order.Module,
	payment.Module,
	advisor.Module,
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			_ = ctx
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	log           *zap.Logger
	verifier      *identity.Verifier
	accountSvc    accountdomain.Service
	ledgerSvc     ledgerdomain.Service
	orderSvc      orderdomain.Service
	paymentSvc    paymentdomain.Service
	advisorSvc    advisordomain.Service
	obsMetrics    *obsmetrics.Metrics
	verifyLimiter *rateLimiter
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Log        *zap.Logger
	Verifier   *identity.Verifier
	AccountSvc accountdomain.Service
	LedgerSvc  ledgerdomain.Service
	OrderSvc   orderdomain.Service
	PaymentSvc paymentdomain.Service
	AdvisorSvc advisordomain.Service
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		log:           p.Log.Named("http.server"),
		verifier:      p.Verifier,
		accountSvc:    p.AccountSvc,
		ledgerSvc:     p.LedgerSvc,
		orderSvc:      p.OrderSvc,
		paymentSvc:    p.PaymentSvc,
		advisorSvc:    p.AdvisorSvc,
		obsMetrics:    p.ObsMetrics,
		verifyLimiter: newRateLimiter(10, time.Minute),
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/sessions", s.CreateSession)
	auth.GET("/me", s.AuthRequired(), s.Me)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.GET("/packages", s.ListPackages)

	api.POST("/orders", s.AuthRequired(), s.CreateOrder)
	api.POST("/payments/verify", s.AuthRequired(), s.VerifyRateLimit(), s.VerifyPayment)
	api.POST("/payments/webhook", s.HandlePaymentWebhook)

	api.GET("/tokens/balance", s.AuthRequired(), s.GetTokenBalance)
	api.GET("/tokens/ledger", s.AuthRequired(), s.ListTokenLedger)

	api.GET("/profile", s.AuthRequired(), s.GetProfile)
	api.PUT("/profile", s.AuthRequired(), s.UpdateProfile)

	advisor := api.Group("/advisor", s.AuthRequired())
	{
		advisor.POST("/assessments", s.CreateAssessment)
		advisor.POST("/assessments/:id/submit", s.SubmitAssessment)
		advisor.POST("/resume/improve", s.ImproveResume)
		advisor.POST("/cover-letters", s.CreateCoverLetter)
		advisor.GET("/insights/:industry", s.GetIndustryInsights)
	}
}
