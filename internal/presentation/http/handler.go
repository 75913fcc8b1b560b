// Package http implements the §6.1 HTTP operation set directly against the
// process-wide core.Core value: one handler, no session routing, no
// per-request auth (an external reverse proxy is the auth collaborator).
package http

import (
	"net/http"

	"wabridge/internal/core"

	"github.com/gin-gonic/gin"
)

// Handler implements the §6.1 HTTP operation set.
type Handler struct {
	core *core.Core
}

// NewHandler creates a new Handler wrapping the process-wide Core.
func NewHandler(c *core.Core) *Handler {
	return &Handler{core: c}
}

// Send handles POST /send (§6.1 send(to, text, replyTo?)).
func (h *Handler) Send(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, "INVALID_JSON", "invalid request body", nil)
		return
	}

	result, err := h.core.Send(c.Request.Context(), req.To, req.Text, req.ReplyTo)
	if err != nil {
		handleDomainError(c, err)
		return
	}

	respondWithSuccess(c, http.StatusAccepted, map[string]any{
		"message_id": result.MessageID,
	})
}

// Status handles GET /status (§6.1 status()).
func (h *Handler) Status(c *gin.Context) {
	snap := h.core.Status()
	respondWithSuccess(c, http.StatusOK, StatusResponse{
		ConnectionState:   snap.ConnectionState,
		Phone:             snap.Phone,
		DisplayName:       snap.DisplayName,
		Uptime:            snap.Uptime,
		Sent:              snap.Sent,
		Received:          snap.Received,
		ResponseRatio:     snap.ResponseRatio,
		RiskLevel:         snap.RiskLevel,
		RiskScore:         snap.RiskScore,
		Hibernating:       snap.Hibernating,
		ReconnectAttempts: snap.ReconnectAttempts,
		ReconnectGaveUp:   snap.ReconnectGaveUp,
		WarmupTier:        snap.WarmupTier,
	})
}

// RateLimitStatus handles GET /rate-limit-status (§6.1 rateLimitStatus()).
func (h *Handler) RateLimitStatus(c *gin.Context) {
	respondWithSuccess(c, http.StatusOK, h.core.RateLimitStatus())
}

// SetAccountAge handles POST /account-age (§6.1 setAccountAge(weeks)).
func (h *Handler) SetAccountAge(c *gin.Context) {
	var req SetAccountAgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, "INVALID_JSON", "invalid request body", nil)
		return
	}

	tier := h.core.SetAccountAge(req.Weeks)
	respondWithSuccess(c, http.StatusOK, map[string]any{"warmup_tier": tier})
}

// Reconnect handles POST /reconnect (§6.1 reconnect()).
func (h *Handler) Reconnect(c *gin.Context) {
	h.core.Reconnect(c.Request.Context())
	respondWithSuccess(c, http.StatusAccepted, map[string]string{"message": "reconnect requested"})
}

// BanWarningStatus handles GET /ban-warning-status (§6.1 banWarningStatus()).
func (h *Handler) BanWarningStatus(c *gin.Context) {
	respondWithSuccess(c, http.StatusOK, h.core.BanWarningStatus())
}

// ExitHibernation handles POST /exit-hibernation (§6.1 exitHibernation()).
func (h *Handler) ExitHibernation(c *gin.Context) {
	if err := h.core.ExitHibernation(); err != nil {
		handleDomainError(c, err)
		return
	}
	respondWithSuccess(c, http.StatusOK, map[string]string{"message": "hibernation exited"})
}

// ResetBanWarning handles POST /reset-ban-warning (§6.1 resetBanWarning()).
func (h *Handler) ResetBanWarning(c *gin.Context) {
	if err := h.core.ResetBanWarning(c.Request.Context()); err != nil {
		handleDomainError(c, err)
		return
	}
	respondWithSuccess(c, http.StatusOK, map[string]string{"message": "ban warning reset"})
}

// PresenceOverride handles POST /presence (§6.1 presenceOverride(online)).
func (h *Handler) PresenceOverride(c *gin.Context) {
	var req PresenceOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, http.StatusBadRequest, "INVALID_JSON", "invalid request body", nil)
		return
	}

	if err := h.core.PresenceOverride(c.Request.Context(), req.Online); err != nil {
		handleDomainError(c, err)
		return
	}
	respondWithSuccess(c, http.StatusOK, map[string]string{"message": "presence updated"})
}
