package restapi

import (
	"net/http"

	"address_vision/internal/app/port"
	"address_vision/internal/domain/entity"

	"github.com/gin-gonic/gin"
)

// LookupRequest is the body of a lookup submission.
type LookupRequest struct {
	Query string `json:"query"`
}

// APIViewResponse wraps the view state returned after submit and retry.
type APIViewResponse struct {
	Data          entity.ViewState `json:"data"`
	StatusMessage string           `json:"status_message"`
}

// APIErrorResponse is returned for malformed requests.
type APIErrorResponse struct {
	Error string `json:"error"`
}

// LookupHandler serves lookup and history requests.
type LookupHandler struct {
	lookups port.LookupService
	history port.HistoryProvider
	logger  port.Logger
}

// NewLookupHandler creates a new LookupHandler.
func NewLookupHandler(lookups port.LookupService, history port.HistoryProvider, logger port.Logger) *LookupHandler {
	return &LookupHandler{lookups: lookups, history: history, logger: logger}
}

// SubmitHandler starts a lookup. The result is read back through ViewHandler.
func (h *LookupHandler) SubmitHandler(c *gin.Context) {
	var req LookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, APIErrorResponse{Error: "request body must be a JSON object with a query field"})
		return
	}

	view := h.lookups.Submit(c.Request.Context(), req.Query)
	// A valid submission clears the hint.
	if view.Hint != "" {
		c.JSON(http.StatusUnprocessableEntity, APIViewResponse{Data: view, StatusMessage: view.Hint})
		return
	}
	c.JSON(http.StatusAccepted, APIViewResponse{Data: view, StatusMessage: statusMessage(view)})
}

// RetryHandler refetches failed sources, or resubmits a query whose resolution failed.
func (h *LookupHandler) RetryHandler(c *gin.Context) {
	view := h.lookups.Retry(c.Request.Context())
	c.JSON(http.StatusAccepted, APIViewResponse{Data: view, StatusMessage: statusMessage(view)})
}

// ViewHandler returns the current snapshot of every state slice.
func (h *LookupHandler) ViewHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.lookups.Snapshot())
}

// HistoryHandler lists previously resolved addresses, most recent first.
func (h *LookupHandler) HistoryHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.history.List()})
}

// DeleteHistoryHandler removes one address from the history.
func (h *LookupHandler) DeleteHistoryHandler(c *gin.Context) {
	address := c.Param("address")
	if !h.history.Remove(address) {
		c.JSON(http.StatusNotFound, APIErrorResponse{Error: "address not in history"})
		return
	}
	h.logger.Info("History entry removed", "address", address)
	c.Status(http.StatusNoContent)
}

func statusMessage(view entity.ViewState) string {
	switch view.Kind {
	case entity.ViewIdle:
		return "Waiting for a query."
	case entity.ViewResolving:
		return "Resolving identity."
	case entity.ViewNotFound:
		return "No address found for this name."
	case entity.ViewError:
		return "Resolution failed. Retry to try again."
	}
	if view.FailedSources > 0 {
		return "Identity resolved. Some sources failed and can be retried."
	}
	if view.PendingSources > 0 {
		return "Identity resolved. Sources are loading."
	}
	return "Lookup complete."
}
