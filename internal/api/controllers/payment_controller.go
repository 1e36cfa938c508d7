package controllers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fotolio/internal/gateway"
	"fotolio/internal/models/request_models"
	"fotolio/internal/services"
	"fotolio/pkg/utils"
)

const maxWebhookBodyBytes = 1 << 20

type PaymentController struct {
	checkoutService services.CheckoutServiceInterface
	reconciler      services.ReconcilerServiceInterface
	gateway         gateway.Client
}

func NewPaymentController(
	checkoutService services.CheckoutServiceInterface,
	reconciler services.ReconcilerServiceInterface,
	gatewayClient gateway.Client,
) *PaymentController {
	return &PaymentController{
		checkoutService: checkoutService,
		reconciler:      reconciler,
		gateway:         gatewayClient,
	}
}

// CreateGalleryCheckout godoc
// @Summary Start checkout for a gallery purchase
// @Description Debits the wallet first and returns a gateway checkout URL for any remainder
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body request_models.GalleryCheckoutRequest true "Gallery Checkout Request"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /checkout/gallery [post]
func (p *PaymentController) CreateGalleryCheckout(c *gin.Context) {
	var request request_models.GalleryCheckoutRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	galleryID, err := uuid.Parse(request.GalleryID)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "gallery_id must be a valid UUID")
		return
	}

	input := services.GalleryCheckoutInput{
		UserID:       userID,
		GalleryID:    galleryID,
		DiscountCode: request.DiscountCode,
	}
	if request.ReferrerID != "" {
		referrerID, err := uuid.Parse(request.ReferrerID)
		if err != nil {
			utils.RespondError(c, http.StatusBadRequest, "referrer_id must be a valid UUID")
			return
		}
		input.ReferrerID = &referrerID
	}

	checkout, err := p.checkoutService.CreateGalleryCheckout(c.Request.Context(), input)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, checkout, "Checkout created successfully")
}

// CreateTopUpCheckout godoc
// @Summary Start checkout for a wallet top-up
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body request_models.TopUpRequest true "Top Up Request"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /checkout/topup [post]
func (p *PaymentController) CreateTopUpCheckout(c *gin.Context) {
	var request request_models.TopUpRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid request payload")
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	checkout, err := p.checkoutService.CreateTopUpCheckout(c.Request.Context(), userID, request.AmountMinor)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, checkout, "Top-up checkout created successfully")
}

// HandleWebhook receives gateway events. The signature check is the only
// authentication on this route; a bad signature is rejected before any
// settlement work happens.
func (p *PaymentController) HandleWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Unable to read webhook payload")
		return
	}

	event, err := p.gateway.VerifyWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Webhook signature verification failed")
		return
	}

	if err := p.reconciler.Process(c.Request.Context(), event); err != nil {
		// Non-2xx makes the gateway redeliver; settlement is idempotent so
		// the retry is safe.
		utils.RespondError(c, http.StatusInternalServerError, "Event processing failed")
		return
	}

	utils.RespondSuccess(c, gin.H{"received": true}, "Event processed")
}
