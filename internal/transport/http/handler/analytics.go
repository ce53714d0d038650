package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"learnhub/internal/app"
	"learnhub/internal/model"
	"learnhub/internal/transport/http/response"
)

type AnalyticsHandler struct {
	statsService *app.StatsService
}

func NewAnalyticsHandler(statsService *app.StatsService) *AnalyticsHandler {
	return &AnalyticsHandler{statsService: statsService}
}

// UserStats serves a user's own aggregates; admins may read any user's.
func (h *AnalyticsHandler) UserStats(c *gin.Context) {
	callerID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}
	targetID, ok := parseUintParam(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid user id")
		return
	}
	if targetID != callerID && getRoleFromContext(c) != model.RoleAdmin {
		response.Error(c, http.StatusForbidden, response.CodeForbidden, "not allowed to read other users' stats")
		return
	}

	stats, err := h.statsService.UserStats(c.Request.Context(), targetID)
	if err != nil {
		respondError(c, err, "user stats failed")
		return
	}
	response.OK(c, stats)
}

// SystemStats is admin-only; the role check happens in routing middleware.
func (h *AnalyticsHandler) SystemStats(c *gin.Context) {
	stats, err := h.statsService.SystemStats(c.Request.Context())
	if err != nil {
		respondError(c, err, "system stats failed")
		return
	}
	response.OK(c, stats)
}
