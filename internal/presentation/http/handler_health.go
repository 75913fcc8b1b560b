package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health handles GET /health (liveness probe). The process is alive as
// long as it can answer, regardless of connection state.
func (h *Handler) Health(c *gin.Context) {
	respondWithSuccess(c, http.StatusOK, map[string]string{"status": "healthy"})
}

// Ready handles GET /ready (readiness probe): ready means the protocol
// session is usable, i.e. able to accept sends. A degraded persistence
// layer (§7: two consecutive flush failures) doesn't fail readiness — the
// bridge keeps sending — but is surfaced so an operator notices state is
// no longer being saved to disk.
func (h *Handler) Ready(c *gin.Context) {
	snap := h.core.Status()
	if !snap.ConnectionState.IsUsable() {
		c.JSON(http.StatusServiceUnavailable, map[string]any{
			"success": false,
			"data": map[string]any{
				"status":           "not_ready",
				"connection_state": snap.ConnectionState,
			},
		})
		return
	}

	status := "ready"
	if h.core.PersistenceDegraded() {
		status = "degraded"
	}
	respondWithSuccess(c, http.StatusOK, map[string]any{
		"status":              status,
		"connection_state":    snap.ConnectionState,
		"persistence_degraded": h.core.PersistenceDegraded(),
	})
}
