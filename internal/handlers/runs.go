package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	v1 "github.com/backupqa/qa-agent/api/v1"
	"github.com/backupqa/qa-agent/internal/models"
	"github.com/backupqa/qa-agent/internal/services"
)

// StartRun queues a run of a testcase
// (POST /runs)
func (h *Handler) StartRun(c *gin.Context) {
	var req v1.StartRunJSONRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, v1.ErrorResponse{Error: "invalid request body"})
		return
	}
	if req.TestcaseId == "" {
		c.JSON(http.StatusBadRequest, v1.ErrorResponse{Error: "testcaseId is required"})
		return
	}

	var inputs map[string]any
	if req.Inputs != nil {
		inputs = *req.Inputs
	}

	run, err := h.runSrv.Start(c.Request.Context(), req.TestcaseId, inputs)
	if err != nil {
		abortWithError(c, zap.S().Named("run_handler"), "failed to start run", err)
		return
	}
	c.JSON(http.StatusAccepted, v1.NewRunFromModel(*run))
}

// ListRuns returns the run history with filtering and pagination
// (GET /runs)
func (h *Handler) ListRuns(c *gin.Context, params v1.ListRunsParams) {
	page, pageSize := pagination(params.Page, params.PageSize)

	svcParams := services.RunListParams{
		Limit:  uint64(pageSize),
		Offset: uint64((page - 1) * pageSize),
	}
	if params.TestcaseId != nil {
		svcParams.TestcaseIDs = *params.TestcaseId
	}
	if params.Status != nil {
		for _, s := range *params.Status {
			if _, err := models.ParseRunStatus(s); err != nil {
				c.JSON(http.StatusBadRequest, v1.ErrorResponse{Error: err.Error()})
				return
			}
		}
		svcParams.Statuses = *params.Status
	}

	result, err := h.runSrv.List(c.Request.Context(), svcParams)
	if err != nil {
		zap.S().Named("run_handler").Errorw("failed to list runs", "error", err)
		c.JSON(http.StatusInternalServerError, v1.ErrorResponse{Error: "failed to list runs"})
		return
	}

	apiRuns := make([]v1.Run, 0, len(result.Runs))
	for _, run := range result.Runs {
		apiRuns = append(apiRuns, v1.NewRunFromModel(run))
	}

	c.JSON(http.StatusOK, v1.RunListResponse{
		Page:      page,
		PageCount: pageCount(result.Total, pageSize),
		Total:     result.Total,
		Runs:      apiRuns,
	})
}

// GetRun returns a run
// (GET /runs/{id})
func (h *Handler) GetRun(c *gin.Context, id string) {
	run, err := h.runSrv.Get(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, zap.S().Named("run_handler"), "failed to get run", err)
		return
	}
	c.JSON(http.StatusOK, v1.NewRunFromModel(*run))
}

// CancelRun stops an active run. A finished run is returned as is.
// (DELETE /runs/{id})
func (h *Handler) CancelRun(c *gin.Context, id string) {
	run, err := h.runSrv.Cancel(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, zap.S().Named("run_handler"), "failed to cancel run", err)
		return
	}
	c.JSON(http.StatusOK, v1.NewRunFromModel(*run))
}
