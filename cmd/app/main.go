package main

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"fotolio/cmd/fx/checkout_fx"
	"fotolio/cmd/fx/config_fx"
	"fotolio/cmd/fx/db_fx"
	"fotolio/cmd/fx/gallery_fx"
	"fotolio/cmd/fx/gateway_fx"
	"fotolio/cmd/fx/logger_fx"
	"fotolio/cmd/fx/mail_fx"
	"fotolio/cmd/fx/rabbit_fx"
	"fotolio/cmd/fx/reaper_fx"
	"fotolio/cmd/fx/reconciler_fx"
	"fotolio/cmd/fx/referral_fx"
	"fotolio/cmd/fx/scheduler_fx"
	"fotolio/cmd/fx/storage_fx"
	"fotolio/cmd/fx/transaction_fx"
	"fotolio/cmd/fx/wallet_fx"
	"fotolio/internal/api/controllers"
	"fotolio/internal/config"
	"fotolio/internal/consumer"
	"fotolio/internal/infra"
	"fotolio/internal/worker"
	"fotolio/pkg/middleware"
)

func main() {
	app := fx.New(
		config_fx.Module,
		logger_fx.Module,
		db_fx.Module,
		storage_fx.Module,
		gateway_fx.Module,
		mail_fx.Module,

		wallet_fx.Module,
		transaction_fx.Module,
		gallery_fx.Module,
		referral_fx.Module,
		scheduler_fx.Module,
		checkout_fx.Module,
		reconciler_fx.Module,
		reaper_fx.Module,
		rabbit_fx.Module,

		fx.Provide(ProvideRouter),
		fx.Invoke(infra.AutoMigrate),
		fx.Invoke(StartServer),
		fx.Invoke(StartBackground),
	)

	app.Run()
}

func StartServer(lc fx.Lifecycle, engine *gin.Engine, cfg *config.Config, logger *zap.Logger) {
	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: engine,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				logger.Info("starting HTTP server", zap.String("addr", server.Addr))
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Fatal("HTTP server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping HTTP server")
			return server.Shutdown(ctx)
		},
	})
}

// StartBackground launches the expiry worker and, when a broker is
// configured, the gateway event relay consumer.
func StartBackground(lc fx.Lifecycle, schedulerWorker *worker.SchedulerWorker, eventConsumer *consumer.EventConsumer) {
	runCtx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			schedulerWorker.Start(runCtx)
			if eventConsumer != nil {
				return eventConsumer.Start(runCtx)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			return nil
		},
	})
}

func ProvideRouter(
	paymentController *controllers.PaymentController,
	walletController *controllers.WalletController,
	transactionController *controllers.TransactionController,
	galleryController *controllers.GalleryController,
	planController *controllers.PlanController,
) *gin.Engine {
	r := gin.Default()
	r.Use(gin.Recovery())
	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.TraceIDMiddleware())

	RegisterRoutes(r, paymentController, walletController, transactionController, galleryController, planController)

	return r
}

func RegisterRoutes(r *gin.Engine,
	paymentController *controllers.PaymentController,
	walletController *controllers.WalletController,
	transactionController *controllers.TransactionController,
	galleryController *controllers.GalleryController,
	planController *controllers.PlanController,
) {
	// Signature-verified, no bearer token.
	r.POST("/payments/webhook", paymentController.HandleWebhook)
	r.GET("/plans", planController.ListPlans)

	authed := r.Group("/", middleware.JWTAuthMiddleware())
	authed.POST("/checkout/gallery", paymentController.CreateGalleryCheckout)
	authed.POST("/checkout/topup", paymentController.CreateTopUpCheckout)
	authed.GET("/wallet", walletController.GetBalance)
	authed.GET("/transactions", transactionController.ListTransactions)
	authed.DELETE("/galleries/:id", galleryController.DeleteGallery)
}
