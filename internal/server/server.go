package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tallyhq/tally/internal/config"
	"github.com/tallyhq/tally/internal/customer"
	customerdomain "github.com/tallyhq/tally/internal/customer/domain"
	"github.com/tallyhq/tally/internal/events"
	"github.com/tallyhq/tally/internal/invoice"
	invoicedomain "github.com/tallyhq/tally/internal/invoice/domain"
	obsmetrics "github.com/tallyhq/tally/internal/observability/metrics"
	"github.com/tallyhq/tally/internal/payment"
	paymentdomain "github.com/tallyhq/tally/internal/payment/domain"
	"github.com/tallyhq/tally/internal/plan"
	plandomain "github.com/tallyhq/tally/internal/plan/domain"
	"github.com/tallyhq/tally/internal/product"
	productdomain "github.com/tallyhq/tally/internal/product/domain"
	"github.com/tallyhq/tally/internal/subscription"
	subscriptiondomain "github.com/tallyhq/tally/internal/subscription/domain"
	"github.com/tallyhq/tally/internal/usage"
	usagedomain "github.com/tallyhq/tally/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	obsmetrics.Module,
	events.Module,
	customer.Module,
	product.Module,
	plan.Module,
	subscription.Module,
	usage.Module,
	invoice.Module,
	payment.Module,
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, log *zap.Logger, httpMetrics *obsmetrics.Metrics) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log.Named("http")))
	r.Use(httpMetrics.Middleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": cfg.AppName})
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
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
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

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	obsMetrics      *obsmetrics.Metrics
	customerSvc     customerdomain.Service
	productSvc      productdomain.Service
	planSvc         plandomain.Service
	subscriptionSvc subscriptiondomain.Service
	usageSvc        usagedomain.Service
	invoiceSvc      invoicedomain.Service
	paymentSvc      paymentdomain.Service
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	ObsMetrics      *obsmetrics.Metrics `optional:"true"`
	CustomerSvc     customerdomain.Service
	ProductSvc      productdomain.Service
	PlanSvc         plandomain.Service
	SubscriptionSvc subscriptiondomain.Service
	UsageSvc        usagedomain.Service
	InvoiceSvc      invoicedomain.Service
	PaymentSvc      paymentdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		obsMetrics:      p.ObsMetrics,
		customerSvc:     p.CustomerSvc,
		productSvc:      p.ProductSvc,
		planSvc:         p.PlanSvc,
		subscriptionSvc: p.SubscriptionSvc,
		usageSvc:        p.UsageSvc,
		invoiceSvc:      p.InvoiceSvc,
		paymentSvc:      p.PaymentSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")

	api.POST("/customers", s.CreateCustomer)
	api.GET("/customers", s.ListCustomers)
	api.GET("/customers/:id", s.GetCustomerByID)

	api.POST("/products", s.CreateProduct)
	api.GET("/products", s.ListProducts)
	api.GET("/products/:id", s.GetProductByID)

	api.POST("/plans", s.CreatePlan)
	api.GET("/plans", s.ListPlans)
	api.GET("/plans/:id", s.GetPlanByID)

	api.POST("/prices", s.CreatePrice)
	api.GET("/prices", s.ListPrices)
	api.GET("/prices/:id", s.GetPriceByID)

	api.POST("/subscriptions", s.CreateSubscription)
	api.GET("/subscriptions", s.ListSubscriptions)
	api.GET("/subscriptions/:id", s.GetSubscriptionByID)
	api.PATCH("/subscriptions/:id", s.UpdateSubscription)
	api.GET("/subscriptions/:id/unbilled-usage", s.ListUnbilledUsage)

	api.POST("/usage-records", s.RecordUsage)
	api.GET("/usage-records", s.ListUsageRecords)
	api.POST("/usage-records/:id/line-item", s.AttachLineItem)

	api.POST("/invoices", s.CreateInvoice)
	api.GET("/invoices/:id", s.GetInvoiceByID)
	api.POST("/invoices/:id/finalize", s.FinalizeInvoice)
	api.POST("/invoices/:id/pay", s.PayInvoice)
	api.POST("/invoices/:id/void", s.VoidInvoice)

	api.POST("/payment-methods", s.AddPaymentMethod)
	api.GET("/payment-methods", s.ListPaymentMethods)

	api.POST("/payments", s.RecordPayment)
}
