package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	v1 "github.com/backupqa/qa-agent/api/v1"
)

// ListTestcases returns the registered testcases
// (GET /testcases)
func (h *Handler) ListTestcases(c *gin.Context) {
	infos := h.runSrv.Testcases()
	resp := make([]v1.TestcaseInfo, 0, len(infos))
	for _, info := range infos {
		resp = append(resp, v1.NewTestcaseInfo(info))
	}
	c.JSON(http.StatusOK, resp)
}

// GetTestcaseInputs returns the stored inputs of a testcase
// (GET /testcases/{id}/inputs)
func (h *Handler) GetTestcaseInputs(c *gin.Context, id string) {
	inputs, err := h.runSrv.Inputs(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, zap.S().Named("testcase_handler"), "failed to get inputs", err)
		return
	}
	c.JSON(http.StatusOK, v1.NewInputsDocument(*inputs))
}

// PutTestcaseInputs stores the inputs used by runs started without any
// (PUT /testcases/{id}/inputs)
func (h *Handler) PutTestcaseInputs(c *gin.Context, id string) {
	var body v1.PutTestcaseInputsJSONRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, v1.ErrorResponse{Error: "inputs must be a JSON object"})
		return
	}

	ctx := c.Request.Context()
	log := zap.S().Named("testcase_handler")
	if err := h.runSrv.SaveInputs(ctx, id, body); err != nil {
		abortWithError(c, log, "failed to save inputs", err)
		return
	}

	inputs, err := h.runSrv.Inputs(ctx, id)
	if err != nil {
		abortWithError(c, log, "failed to get inputs", err)
		return
	}
	log.Infow("inputs saved", "testcase", id)
	c.JSON(http.StatusOK, v1.NewInputsDocument(*inputs))
}
