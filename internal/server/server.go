package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	accountdomain "github.com/smallbiznis/hrledger/internal/account/domain"
	auditdomain "github.com/smallbiznis/hrledger/internal/audit/domain"
	authdomain "github.com/smallbiznis/hrledger/internal/auth/domain"
	"github.com/smallbiznis/hrledger/internal/authorization"
	checkoutdomain "github.com/smallbiznis/hrledger/internal/checkout/domain"
	"github.com/smallbiznis/hrledger/internal/clock"
	"github.com/smallbiznis/hrledger/internal/config"
	coupondomain "github.com/smallbiznis/hrledger/internal/coupon/domain"
	ledgerdomain "github.com/smallbiznis/hrledger/internal/ledger/domain"
	"github.com/smallbiznis/hrledger/internal/observability"
	obsmiddleware "github.com/smallbiznis/hrledger/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/hrledger/internal/observability/metrics"
	obstracing "github.com/smallbiznis/hrledger/internal/observability/tracing"
	paymentdomain "github.com/smallbiznis/hrledger/internal/payment/domain"
	"github.com/smallbiznis/hrledger/internal/payment/webhook"
	"github.com/smallbiznis/hrledger/internal/providers/pdf"
	"github.com/smallbiznis/hrledger/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(RegisterRoutes),
	fx.Invoke(RunHTTP),
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

func RunHTTP(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

func RegisterRoutes(s *Server) {
	s.RegisterAPIRoutes()
	s.RegisterWebhookRoutes()
	s.RegisterAdminRoutes()
	s.RegisterFallback()
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	log         *zap.Logger
	clock       clock.Clock
	authsvc     authdomain.Service
	authzSvc    authorization.Service
	auditSvc    auditdomain.Service
	checkoutSvc checkoutdomain.Service
	couponSvc   coupondomain.Service
	ledgerSvc   ledgerdomain.Service
	accountSvc  accountdomain.Service
	paymentSvc  paymentdomain.Service
	webhookSvc  *webhook.Service
	receipts    pdf.Provider
	limiter     *ratelimit.CheckoutLimiter
	obsMetrics  *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	Log         *zap.Logger
	Clock       clock.Clock
	Authsvc     authdomain.Service
	AuthzSvc    authorization.Service
	AuditSvc    auditdomain.Service
	CheckoutSvc checkoutdomain.Service
	CouponSvc   coupondomain.Service
	LedgerSvc   ledgerdomain.Service
	AccountSvc  accountdomain.Service
	PaymentSvc  paymentdomain.Service
	WebhookSvc  *webhook.Service
	Receipts    pdf.Provider
	Limiter     *ratelimit.CheckoutLimiter `optional:"true"`
	ObsMetrics  *obsmetrics.Metrics        `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		log:         p.Log.Named("http.server"),
		clock:       p.Clock,
		authsvc:     p.Authsvc,
		authzSvc:    p.AuthzSvc,
		auditSvc:    p.AuditSvc,
		checkoutSvc: p.CheckoutSvc,
		couponSvc:   p.CouponSvc,
		ledgerSvc:   p.LedgerSvc,
		accountSvc:  p.AccountSvc,
		paymentSvc:  p.PaymentSvc,
		webhookSvc:  p.WebhookSvc,
		receipts:    p.Receipts,
		limiter:     p.Limiter,
		obsMetrics:  p.ObsMetrics,
	}
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) RegisterAPIRoutes() {
	api := s.engine.Group("/api", s.UserAuthRequired())

	api.GET("/account", s.GetAccount)

	// -------- Checkouts --------
	api.POST("/checkouts", s.CreateCheckout)
	api.POST("/checkouts/verify", s.VerifyRateLimit(), s.VerifyCheckout)

	// -------- Coupons --------
	api.GET("/coupons/validate", s.ValidateCoupon)

	// -------- Receipts --------
	api.GET("/transactions/:id/receipt.pdf", s.DownloadReceipt)
}

func (s *Server) RegisterWebhookRoutes() {
	s.engine.POST("/webhooks/yoco", s.HandleYocoWebhook)
}

func (s *Server) RegisterAdminRoutes() {
	admin := s.engine.Group("/admin", s.AdminKeyRequired())

	// -------- Coupons --------
	admin.GET("/coupons", s.authorizeAdminAction(authorization.ObjectCoupon, authorization.ActionCouponView), s.ListCoupons)
	admin.POST("/coupons", s.authorizeAdminAction(authorization.ObjectCoupon, authorization.ActionCouponCreate), s.CreateCoupon)
	admin.POST("/coupons/:id/deactivate", s.authorizeAdminAction(authorization.ObjectCoupon, authorization.ActionCouponDeactivate), s.DeactivateCoupon)

	// -------- Accounts & ledger --------
	admin.POST("/accounts/:userId/credits", s.authorizeAdminAction(authorization.ObjectCredit, authorization.ActionCreditAdjust), s.AdjustCredits)
	admin.GET("/accounts/:userId/reconciliation", s.authorizeAdminAction(authorization.ObjectTransaction, authorization.ActionTransactionReconcile), s.ReconcileAccount)
	admin.GET("/transactions", s.authorizeAdminAction(authorization.ObjectTransaction, authorization.ActionTransactionView), s.ListTransactions)

	// -------- Settings --------
	admin.GET("/settings/payment-mode", s.authorizeAdminAction(authorization.ObjectSettings, authorization.ActionPaymentModeView), s.GetPaymentMode)
	admin.PUT("/settings/payment-mode", s.authorizeAdminAction(authorization.ObjectSettings, authorization.ActionPaymentModeUpdate), s.UpdatePaymentMode)

	admin.GET("/audit-logs", s.authorizeAdminAction(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)
}

func (s *Server) RegisterFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
