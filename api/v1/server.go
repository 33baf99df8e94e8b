package v1

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/oapi-codegen/runtime"
)

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// (GET /testcases)
	ListTestcases(c *gin.Context)
	// (GET /testcases/{id}/inputs)
	GetTestcaseInputs(c *gin.Context, id string)
	// (PUT /testcases/{id}/inputs)
	PutTestcaseInputs(c *gin.Context, id string)
	// (GET /runs)
	ListRuns(c *gin.Context, params ListRunsParams)
	// (POST /runs)
	StartRun(c *gin.Context)
	// (GET /runs/{id})
	GetRun(c *gin.Context, id string)
	// (DELETE /runs/{id})
	CancelRun(c *gin.Context, id string)
	// (GET /waits)
	ListWaits(c *gin.Context, params ListWaitsParams)
}

// ServerInterfaceWrapper converts contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler      ServerInterface
	ErrorHandler func(*gin.Context, error, int)
}

func (siw *ServerInterfaceWrapper) ListTestcases(c *gin.Context) {
	siw.Handler.ListTestcases(c)
}

func (siw *ServerInterfaceWrapper) GetTestcaseInputs(c *gin.Context) {
	id, ok := siw.pathParam(c, "id")
	if !ok {
		return
	}
	siw.Handler.GetTestcaseInputs(c, id)
}

func (siw *ServerInterfaceWrapper) PutTestcaseInputs(c *gin.Context) {
	id, ok := siw.pathParam(c, "id")
	if !ok {
		return
	}
	siw.Handler.PutTestcaseInputs(c, id)
}

func (siw *ServerInterfaceWrapper) ListRuns(c *gin.Context) {
	var params ListRunsParams
	query := c.Request.URL.Query()

	if err := runtime.BindQueryParameter("form", true, false, "testcaseId", query, &params.TestcaseId); err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter testcaseId: %w", err), http.StatusBadRequest)
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "status", query, &params.Status); err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter status: %w", err), http.StatusBadRequest)
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "page", query, &params.Page); err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter page: %w", err), http.StatusBadRequest)
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "pageSize", query, &params.PageSize); err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter pageSize: %w", err), http.StatusBadRequest)
		return
	}

	siw.Handler.ListRuns(c, params)
}

func (siw *ServerInterfaceWrapper) StartRun(c *gin.Context) {
	siw.Handler.StartRun(c)
}

func (siw *ServerInterfaceWrapper) GetRun(c *gin.Context) {
	id, ok := siw.pathParam(c, "id")
	if !ok {
		return
	}
	siw.Handler.GetRun(c, id)
}

func (siw *ServerInterfaceWrapper) CancelRun(c *gin.Context) {
	id, ok := siw.pathParam(c, "id")
	if !ok {
		return
	}
	siw.Handler.CancelRun(c, id)
}

func (siw *ServerInterfaceWrapper) ListWaits(c *gin.Context) {
	var params ListWaitsParams
	query := c.Request.URL.Query()

	if err := runtime.BindQueryParameter("form", true, false, "runId", query, &params.RunId); err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter runId: %w", err), http.StatusBadRequest)
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "jobId", query, &params.JobId); err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter jobId: %w", err), http.StatusBadRequest)
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "outcome", query, &params.Outcome); err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter outcome: %w", err), http.StatusBadRequest)
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "page", query, &params.Page); err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter page: %w", err), http.StatusBadRequest)
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "pageSize", query, &params.PageSize); err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter pageSize: %w", err), http.StatusBadRequest)
		return
	}

	siw.Handler.ListWaits(c, params)
}

func (siw *ServerInterfaceWrapper) pathParam(c *gin.Context, name string) (string, bool) {
	var value string
	err := runtime.BindStyledParameterWithOptions("simple", name, c.Param(name), &value,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter %s: %w", name, err), http.StatusBadRequest)
		return "", false
	}
	return value, true
}

// GinServerOptions provides options for the Gin server.
type GinServerOptions struct {
	BaseURL      string
	ErrorHandler func(*gin.Context, error, int)
}

// RegisterHandlers creates http.Handler with routing matching the API.
func RegisterHandlers(router gin.IRouter, si ServerInterface) {
	RegisterHandlersWithOptions(router, si, GinServerOptions{})
}

// RegisterHandlersWithOptions creates http.Handler with additional options.
func RegisterHandlersWithOptions(router gin.IRouter, si ServerInterface, options GinServerOptions) {
	errorHandler := options.ErrorHandler
	if errorHandler == nil {
		errorHandler = func(c *gin.Context, err error, statusCode int) {
			c.JSON(statusCode, ErrorResponse{Error: err.Error()})
		}
	}

	wrapper := ServerInterfaceWrapper{
		Handler:      si,
		ErrorHandler: errorHandler,
	}

	router.GET(options.BaseURL+"/testcases", wrapper.ListTestcases)
	router.GET(options.BaseURL+"/testcases/:id/inputs", wrapper.GetTestcaseInputs)
	router.PUT(options.BaseURL+"/testcases/:id/inputs", wrapper.PutTestcaseInputs)
	router.GET(options.BaseURL+"/runs", wrapper.ListRuns)
	router.POST(options.BaseURL+"/runs", wrapper.StartRun)
	router.GET(options.BaseURL+"/runs/:id", wrapper.GetRun)
	router.DELETE(options.BaseURL+"/runs/:id", wrapper.CancelRun)
	router.GET(options.BaseURL+"/waits", wrapper.ListWaits)
}
