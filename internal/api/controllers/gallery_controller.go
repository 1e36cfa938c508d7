package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fotolio/internal/models/response_models"
	"fotolio/internal/services"
	"fotolio/pkg/utils"
)

type GalleryController struct {
	reaperService services.ReaperServiceInterface
}

func NewGalleryController(reaperService services.ReaperServiceInterface) *GalleryController {
	return &GalleryController{reaperService: reaperService}
}

// DeleteGallery godoc
// @Summary Delete a gallery and all of its resources
// @Description Removes images, stored objects, orders and the gallery record. Partial deletions report counts and can be retried.
// @Tags Galleries
// @Produce json
// @Param id path string true "Gallery ID"
// @Success 200 {object} utils.APIResponse
// @Security BearerAuth
// @Router /galleries/{id} [delete]
func (g *GalleryController) DeleteGallery(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	galleryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, "id must be a valid UUID")
		return
	}

	report, err := g.reaperService.Delete(c.Request.Context(), galleryID, services.DeleteOptions{
		RequestedBy:       &userID,
		SendNotifications: true,
	})
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	message := "Gallery deleted successfully"
	if report.Partial {
		message = "Gallery deletion incomplete, retry to finish"
	}
	utils.RespondSuccess(c, response_models.DeletionReportResponse{
		ObjectsDeleted:   report.ObjectsDeleted,
		ImageRowsDeleted: report.ImageRowsDeleted,
		OrdersDeleted:    report.OrdersDeleted,
		Partial:          report.Partial,
		StepErrors:       report.StepErrors,
	}, message)
}
