package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"learnhub/internal/ai"
	"learnhub/internal/app"
	"learnhub/internal/model"
	"learnhub/internal/repository"
	"learnhub/internal/transport/http/middleware"
	"learnhub/internal/transport/http/response"
)

func getUserIDFromContext(c *gin.Context) (uint, bool) {
	userIDAny, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}
	userID, ok := userIDAny.(uint)
	return userID, ok
}

func getRoleFromContext(c *gin.Context) model.Role {
	roleAny, exists := c.Get(middleware.ContextRoleKey)
	if !exists {
		return model.RoleStandard
	}
	role, ok := roleAny.(model.Role)
	if !ok {
		return model.RoleStandard
	}
	return role
}

func parseUintParam(c *gin.Context, name string) (uint, bool) {
	raw, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || raw == 0 {
		return 0, false
	}
	return uint(raw), true
}

// respondError maps the service error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput), errors.Is(err, app.ErrUserUnknown):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrNotOwner):
		response.Error(c, http.StatusForbidden, response.CodeForbidden, err.Error())
	case errors.Is(err, app.ErrSessionNotFound),
		errors.Is(err, app.ErrQuizNotFound),
		errors.Is(err, app.ErrShareTokenNotFound):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, err.Error())
	case errors.Is(err, app.ErrQuizNotInProgress), errors.Is(err, app.ErrQuizIncomplete):
		response.Error(c, http.StatusConflict, response.CodeConflict, err.Error())
	case errors.Is(err, ai.ErrUpstream):
		response.Error(c, http.StatusBadGateway, response.CodeUpstream, "generation failed, please retry")
	case errors.Is(err, repository.ErrStorage):
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "storage unavailable")
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, fallback)
	}
}
