package controllers

import (
	"github.com/gin-gonic/gin"

	"fotolio/internal/models/response_models"
	"fotolio/internal/repositories"
	"fotolio/pkg/utils"
)

type PlanController struct {
	planRepo repositories.IPlanRepository
}

func NewPlanController(planRepo repositories.IPlanRepository) *PlanController {
	return &PlanController{planRepo: planRepo}
}

// ListPlans godoc
// @Summary List the purchasable gallery plans
// @Tags Plans
// @Produce json
// @Success 200 {object} utils.APIResponse
// @Router /plans [get]
func (p *PlanController) ListPlans(c *gin.Context) {
	plans, err := p.planRepo.GetAllPlans(c.Request.Context())
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	responses := make([]response_models.PlanResponse, 0, len(plans))
	for _, plan := range plans {
		responses = append(responses, response_models.PlanResponse{
			Code:              plan.Code,
			Name:              plan.Name,
			PriceMinor:        plan.PriceMinor,
			Currency:          plan.Currency,
			DurationDays:      plan.DurationDays,
			StorageLimitBytes: plan.StorageLimitBytes,
		})
	}
	utils.RespondSuccess(c, responses, "Plans retrieved successfully")
}
