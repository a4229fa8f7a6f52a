package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cppla/madickblog/middleware"
	"github.com/cppla/madickblog/models"
	"github.com/cppla/madickblog/utils"
)

// respondError maps an engine error to the envelope. Internal failures of write paths
// answer 500.
func respondError(ctx *gin.Context, err error) {
	writeAppError(ctx, err, http.StatusInternalServerError, 50020)
}

// respondReadError is respondError for reads: an unavailable store answers 503.
func respondReadError(ctx *gin.Context, err error) {
	writeAppError(ctx, err, http.StatusServiceUnavailable, 50300)
}

func writeAppError(ctx *gin.Context, err error, internalStatus, internalCode int) {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		appErr = models.NewInternalError("internal error", err)
	}

	switch appErr.Kind {
	case models.KindMissingField:
		utils.ErrorWithData(ctx, http.StatusBadRequest, 40010, appErr.Message, gin.H{"field": appErr.Field})
	case models.KindInvalidField:
		utils.ErrorWithData(ctx, http.StatusBadRequest, 40011, appErr.Message, gin.H{"field": appErr.Field})
	case models.KindInvalidIdentifier:
		utils.ErrorWithData(ctx, http.StatusBadRequest, 40012, appErr.Message, gin.H{"field": appErr.Field})
	case models.KindUnauthorized:
		utils.Error(ctx, http.StatusUnauthorized, 40110, appErr.Message)
	case models.KindForbidden:
		utils.Error(ctx, http.StatusForbidden, 40301, appErr.Message)
	case models.KindNotFound:
		code := 40401
		switch appErr.Resource {
		case models.ResourceComment:
			code = 40402
		case models.ResourceUser:
			code = 40403
		}
		if appErr.Reason != "" {
			utils.ErrorWithData(ctx, http.StatusNotFound, code, appErr.Message, gin.H{"reason": appErr.Reason})
			return
		}
		utils.Error(ctx, http.StatusNotFound, code, appErr.Message)
	case models.KindPartialFailure:
		logFailure(ctx, appErr)
		utils.Error(ctx, http.StatusInternalServerError, 50030, appErr.Message)
	default:
		logFailure(ctx, appErr)
		utils.Error(ctx, internalStatus, internalCode, appErr.Message)
	}
}

func logFailure(ctx *gin.Context, appErr *models.AppError) {
	utils.Logger.Error(appErr.Message,
		zap.String("kind", string(appErr.Kind)),
		zap.String("path", ctx.Request.URL.Path),
		zap.String("request_id", ctx.GetString(middleware.ContextRequestIDKey)),
		zap.Error(appErr.Err),
	)
}

func invalidPayload(ctx *gin.Context) {
	utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
}
