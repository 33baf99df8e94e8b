package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	v1 "github.com/backupqa/qa-agent/api/v1"
	"github.com/backupqa/qa-agent/internal/models"
	"github.com/backupqa/qa-agent/internal/services"
)

// ListWaits returns the recorded job waits
// (GET /waits)
func (h *Handler) ListWaits(c *gin.Context, params v1.ListWaitsParams) {
	page, pageSize := pagination(params.Page, params.PageSize)

	svcParams := services.WaitListParams{
		Limit:  uint64(pageSize),
		Offset: uint64((page - 1) * pageSize),
	}
	if params.RunId != nil {
		svcParams.RunID = *params.RunId
	}
	if params.JobId != nil {
		svcParams.JobIDs = *params.JobId
	}
	if params.Outcome != nil {
		for _, o := range *params.Outcome {
			if _, err := models.ParseWaitOutcome(o); err != nil {
				c.JSON(http.StatusBadRequest, v1.ErrorResponse{Error: err.Error()})
				return
			}
		}
		svcParams.Outcomes = *params.Outcome
	}

	result, err := h.waitSrv.List(c.Request.Context(), svcParams)
	if err != nil {
		zap.S().Named("wait_handler").Errorw("failed to list waits", "error", err)
		c.JSON(http.StatusInternalServerError, v1.ErrorResponse{Error: "failed to list waits"})
		return
	}

	apiWaits := make([]v1.Wait, 0, len(result.Waits))
	for _, w := range result.Waits {
		apiWaits = append(apiWaits, v1.NewWaitFromModel(w))
	}

	c.JSON(http.StatusOK, v1.WaitListResponse{
		Page:      page,
		PageCount: pageCount(result.Total, pageSize),
		Total:     result.Total,
		Waits:     apiWaits,
	})
}
