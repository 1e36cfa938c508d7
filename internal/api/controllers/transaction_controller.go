package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fotolio/internal/models/db_models"
	"fotolio/internal/models/response_models"
	"fotolio/internal/repositories"
	"fotolio/internal/services"
	"fotolio/pkg/utils"
)

type TransactionController struct {
	transactionService services.TransactionServiceInterface
}

func NewTransactionController(transactionService services.TransactionServiceInterface) *TransactionController {
	return &TransactionController{transactionService: transactionService}
}

// ListTransactions godoc
// @Summary List the caller's transactions
// @Tags Transactions
// @Produce json
// @Param status query string false "Filter by status"
// @Param type query string false "Filter by type"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /transactions [get]
func (t *TransactionController) ListTransactions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "page must be an integer")
		return
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "page_size must be an integer")
		return
	}

	filter := repositories.TransactionFilter{
		Status: db_models.TransactionStatus(c.Query("status")),
		Type:   db_models.TransactionType(c.Query("type")),
	}

	items, total, err := t.transactionService.ListByUser(c.Request.Context(), userID, filter, page, pageSize)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	responses := make([]response_models.TransactionResponse, 0, len(items))
	for _, txn := range items {
		responses = append(responses, toTransactionResponse(txn))
	}

	utils.RespondSuccess(c, response_models.TransactionPage{
		Items:    responses,
		Page:     page,
		PageSize: pageSize,
		Total:    total,
	}, "Transactions retrieved successfully")
}

func toTransactionResponse(txn db_models.Transaction) response_models.TransactionResponse {
	response := response_models.TransactionResponse{
		ID:           txn.ID.String(),
		Type:         string(txn.Type),
		Status:       string(txn.Status),
		Method:       string(txn.Method),
		AmountMinor:  txn.AmountMinor,
		WalletMinor:  txn.WalletMinor,
		GatewayMinor: txn.GatewayMinor,
		CreatedAt:    txn.CreatedAt,
		PaidAt:       txn.PaidAt,
	}
	if txn.GalleryID != nil {
		response.GalleryID = txn.GalleryID.String()
	}
	return response
}
