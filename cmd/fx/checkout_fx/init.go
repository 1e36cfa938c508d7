package checkout_fx

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"fotolio/internal/api/controllers"
	"fotolio/internal/config"
	"fotolio/internal/gateway"
	"fotolio/internal/repositories"
	"fotolio/internal/services"
)

var Module = fx.Provide(
	provideCheckoutService,
	controllers.NewPaymentController,
)

func provideCheckoutService(
	cfg *config.Config,
	galleryRepo repositories.IGalleryRepository,
	planRepo repositories.IPlanRepository,
	assetRepo repositories.IGalleryAssetRepository,
	wallets services.WalletService,
	transactions services.TransactionServiceInterface,
	referrals services.ReferralServiceInterface,
	scheduler services.SchedulerServiceInterface,
	gatewayClient gateway.Client,
	logger *zap.Logger,
) services.CheckoutServiceInterface {
	return services.NewCheckoutService(
		galleryRepo, planRepo, assetRepo,
		wallets, transactions, referrals, scheduler,
		gatewayClient, cfg.Stripe.Currency, logger,
	)
}
