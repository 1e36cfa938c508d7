package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fotolio/internal/models/response_models"
	"fotolio/internal/services"
	"fotolio/pkg/utils"
)

type WalletController struct {
	walletService services.WalletService
}

func NewWalletController(walletService services.WalletService) *WalletController {
	return &WalletController{walletService: walletService}
}

// GetBalance godoc
// @Summary Get the current wallet balance
// @Tags Wallet
// @Produce json
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /wallet [get]
func (w *WalletController) GetBalance(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	balance, err := w.walletService.GetBalance(c.Request.Context(), userID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.RespondSuccess(c, response_models.WalletResponse{BalanceMinor: balance}, "Balance retrieved successfully")
}

// currentUserID pulls the authenticated user out of the gin context. It
// writes the error response itself so handlers can bail with a bare return.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.GetString("user_id")
	if raw == "" {
		utils.RespondError(c, http.StatusUnauthorized, "user_id is required")
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		utils.RespondError(c, http.StatusUnauthorized, "user_id is malformed")
		return uuid.Nil, false
	}
	return userID, true
}
