package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/bbsforum/services"
	"github.com/cppla/bbsforum/utils"
)

// respondError maps service errors onto HTTP statuses and the envelope codes.
func respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrEntityNotFound):
		utils.Error(ctx, http.StatusNotFound, 40400, err.Error())
	case errors.Is(err, services.ErrNotOwner), errors.Is(err, services.ErrAccessDenied):
		utils.Error(ctx, http.StatusForbidden, 40300, err.Error())
	case errors.Is(err, services.ErrInvalidToken):
		utils.Error(ctx, http.StatusUnauthorized, 40100, err.Error())
	case errors.Is(err, services.ErrInvalidValue):
		utils.Error(ctx, http.StatusBadRequest, 40000, err.Error())
	default:
		utils.Logger.Error("request failed",
			zap.String("path", ctx.FullPath()),
			zap.Error(err),
		)
		utils.Error(ctx, http.StatusInternalServerError, 50000, "internal server error")
	}
}

func badRequest(ctx *gin.Context, message string) {
	utils.Error(ctx, http.StatusBadRequest, 40001, message)
}

func unauthorized(ctx *gin.Context) {
	utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
}
