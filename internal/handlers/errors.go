package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/SscSPs/finledger/internal/apperrors"
	"github.com/SscSPs/finledger/internal/dto"
	"github.com/SscSPs/finledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// statusFor maps a service error onto an HTTP status and a client-safe message.
// fallback is used for errors whose detail should not leak.
func statusFor(err error, fallback string) (int, string) {
	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr) && appErr.Code >= 400 && appErr.Code < 600:
		return appErr.Code, appErr.Message
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, apperrors.ErrInsufficientPosition), errors.Is(err, apperrors.ErrDuplicate):
		return http.StatusConflict, err.Error()
	case errors.Is(err, apperrors.ErrAccountNotFound):
		return http.StatusNotFound, "Account not found"
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, "Resource not found"
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, apperrors.ErrAggregator), errors.Is(err, apperrors.ErrPriceUnavailable):
		return http.StatusBadGateway, fallback
	default:
		return http.StatusInternalServerError, fallback
	}
}

func respondError(c *gin.Context, logger *slog.Logger, err error, fallback string) {
	status, msg := statusFor(err, fallback)
	if status >= http.StatusInternalServerError {
		logger.Error(fallback, slog.String("error", err.Error()))
	} else {
		logger.Warn(fallback, slog.Int("status", status), slog.String("error", err.Error()))
	}
	c.JSON(status, dto.ErrorResponse{Error: msg})
}

// requireUser fetches the authenticated user id, aborting with 401 when absent.
func requireUser(c *gin.Context, logger *slog.Logger) (string, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Unauthorized"})
		return "", false
	}
	return userID, true
}
