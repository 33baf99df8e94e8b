package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	v1 "github.com/backupqa/qa-agent/api/v1"
	"github.com/backupqa/qa-agent/internal/services"
	srvErrors "github.com/backupqa/qa-agent/pkg/errors"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type Handler struct {
	runSrv  *services.RunService
	waitSrv *services.WaitService
}

var _ v1.ServerInterface = (*Handler)(nil)

func New(runSrv *services.RunService, waitSrv *services.WaitService) *Handler {
	return &Handler{
		runSrv:  runSrv,
		waitSrv: waitSrv,
	}
}

// pagination returns the page and the page size clamped to maxPageSize.
func pagination(pageParam, pageSizeParam *int) (page, pageSize int) {
	page = 1
	if pageParam != nil && *pageParam > 0 {
		page = *pageParam
	}
	pageSize = defaultPageSize
	if pageSizeParam != nil && *pageSizeParam > 0 {
		pageSize = *pageSizeParam
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}
	}
	return page, pageSize
}

func pageCount(total, pageSize int) int {
	count := (total + pageSize - 1) / pageSize
	if count == 0 {
		count = 1
	}
	return count
}

// abortWithError maps service errors to status codes.
func abortWithError(c *gin.Context, log *zap.SugaredLogger, msg string, err error) {
	switch {
	case srvErrors.IsResourceNotFoundError(err):
		c.JSON(http.StatusNotFound, v1.ErrorResponse{Error: err.Error()})
	case srvErrors.IsRunInProgressError(err):
		c.JSON(http.StatusConflict, v1.ErrorResponse{Error: err.Error()})
	case srvErrors.IsInvalidInputsError(err):
		c.JSON(http.StatusBadRequest, v1.ErrorResponse{Error: err.Error()})
	default:
		log.Errorw(msg, "error", err)
		c.JSON(http.StatusInternalServerError, v1.ErrorResponse{Error: msg})
	}
}
