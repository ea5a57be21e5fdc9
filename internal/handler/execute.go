package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quantalink/qnet-gateway/internal/apierr"
	"github.com/quantalink/qnet-gateway/internal/capability"
	"github.com/quantalink/qnet-gateway/internal/executor"
	"github.com/quantalink/qnet-gateway/internal/middleware"
)

// ExecuteHandler runs quantum network operations for keyed callers. The
// classifier and rate limiter have already run by the time it is reached;
// only the capability gate and parameter validation remain.
type ExecuteHandler struct {
	executor *executor.Executor
}

func NewExecuteHandler(exec *executor.Executor) *ExecuteHandler {
	return &ExecuteHandler{executor: exec}
}

type executeRequest struct {
	Protocol string `json:"protocol" binding:"required"`
	Qubits   int    `json:"qubits"`
	Backend  string `json:"backend"`
}

// Execute handles POST /v1/execute.
func (h *ExecuteHandler) Execute(c *gin.Context) {
	var req executeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.Abort(c, http.StatusBadRequest, err.Error(), apierr.CodeInvalidParameters)
		return
	}

	protocol, err := executor.ParseProtocol(req.Protocol)
	if err != nil {
		apierr.Abort(c, http.StatusBadRequest, err.Error(), apierr.CodeInvalidParameters)
		return
	}

	var wantsHardware bool
	switch req.Backend {
	case "", executor.BackendSimulator:
	case executor.BackendHardware:
		wantsHardware = true
	default:
		apierr.Abort(c, http.StatusBadRequest, "backend must be \"simulator\" or \"hardware\"", apierr.CodeInvalidParameters)
		return
	}

	t := middleware.TierFromContext(c)
	if t == nil {
		apierr.Abort(c, http.StatusUnauthorized, "Missing API key", apierr.CodeInvalidAPIKey)
		return
	}

	decision := capability.Authorize(t, wantsHardware)
	if decision.Denied {
		// Hard denial: the caller asked for hardware and does not get a
		// simulator run instead.
		apierr.Abort(c, http.StatusForbidden,
			"Tier \""+t.Name+"\" does not include hardware execution", decision.Reason)
		return
	}

	c.Set(middleware.CtxProtocol, string(protocol))
	c.Set(middleware.CtxHardware, decision.Hardware)

	result, err := h.executor.Run(c.Request.Context(), executor.Request{
		Protocol: protocol,
		Qubits:   req.Qubits,
		Hardware: decision.Hardware,
	})
	if err != nil {
		apierr.Abort(c, http.StatusBadRequest, err.Error(), apierr.CodeInvalidParameters)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Protocols handles GET /v1/protocols.
func (h *ExecuteHandler) Protocols(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"protocols": executor.Protocols(),
	})
}
