package handlers

import (
	"log/slog"
	"net/http"

	"github.com/SscSPs/finledger/internal/core/domain"
	portssvc "github.com/SscSPs/finledger/internal/core/ports/services"
	"github.com/SscSPs/finledger/internal/dto"
	"github.com/SscSPs/finledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

type syncHandler struct {
	syncService portssvc.SyncSvcFacade
}

func registerSyncRoutes(rg *gin.RouterGroup, syncService portssvc.SyncSvcFacade) {
	h := &syncHandler{syncService: syncService}

	sync := rg.Group("/sync")
	{
		sync.POST("", h.syncAll)
		sync.POST("/accounts/:id", h.syncAccount)
	}
}

// bindRange reads the optional body. An empty body selects the default lookback.
func bindRange(c *gin.Context) (domain.DateRange, error) {
	var req dto.SyncRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			return domain.DateRange{}, err
		}
	}
	var r domain.DateRange
	if req.StartDate != nil {
		r.Start = *req.StartDate
	}
	if req.EndDate != nil {
		r.End = *req.EndDate
	}
	return r, nil
}

// syncAccount godoc
// @Summary Sync one linked account
// @Description Imports aggregator transactions. An empty body selects the default lookback.
// @Tags sync
// @Accept json
// @Produce json
// @Param id path string true "Account ID"
// @Param range body dto.SyncRequest false "Date range"
// @Success 200 {object} dto.SyncAccountResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid input"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "Account not found"
// @Failure 502 {object} dto.ErrorResponse "Aggregator unavailable"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /sync/accounts/{id} [post]
func (h *syncHandler) syncAccount(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}
	accountID := c.Param("id")
	logger = logger.With(slog.String("account_id", accountID))

	dateRange, err := bindRange(c)
	if err != nil {
		logger.Warn("Failed to bind JSON for SyncAccount", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	result, err := h.syncService.SyncAccount(c.Request.Context(), userID, accountID, dateRange)
	if err != nil {
		respondError(c, logger, err, "Failed to sync account")
		return
	}

	logger.Info("Account synced", slog.Int("accepted", result.Accepted), slog.Int("skipped", result.SkippedDuplicates))
	c.JSON(http.StatusOK, dto.SyncAccountResponse{AccountID: accountID, Result: result})
}

// syncAll godoc
// @Summary Sync every linked account
// @Description Per-account failures are reported in the body with a 200. Only a failure to enumerate accounts is an error response.
// @Tags sync
// @Accept json
// @Produce json
// @Param range body dto.SyncRequest false "Date range"
// @Success 200 {object} dto.SyncAllResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid input"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /sync [post]
func (h *syncHandler) syncAll(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}

	dateRange, err := bindRange(c)
	if err != nil {
		logger.Warn("Failed to bind JSON for SyncAll", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}

	results, err := h.syncService.SyncAll(c.Request.Context(), userID, dateRange)
	if err != nil {
		respondError(c, logger, err, "Failed to sync accounts")
		return
	}

	resp := dto.NewSyncAllResponse(results)
	logger.Info("Linked accounts synced", slog.Int("succeeded", resp.Succeeded), slog.Int("failed", resp.Failed))
	c.JSON(http.StatusOK, resp)
}
