package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/SscSPs/finledger/internal/core/domain"
	portssvc "github.com/SscSPs/finledger/internal/core/ports/services"
	"github.com/SscSPs/finledger/internal/dto"
	"github.com/SscSPs/finledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

type positionHandler struct {
	positionService portssvc.PositionSvcFacade
	maxAge          time.Duration
}

func registerPositionRoutes(rg *gin.RouterGroup, positionService portssvc.PositionSvcFacade, maxAge time.Duration) {
	h := &positionHandler{positionService: positionService, maxAge: maxAge}

	trades := rg.Group("/trades")
	{
		trades.POST("/buy", h.recordBuy)
		trades.POST("/sell", h.recordSell)
	}

	positions := rg.Group("/positions")
	{
		positions.GET("", h.listPositions)
		positions.POST("/refresh", h.refreshPositions)
	}
}

type tradeFunc func(ctx context.Context, userID string, req dto.RecordTradeRequest) (*domain.Position, error)

// recordBuy godoc
// @Summary Record a buy
// @Tags positions
// @Accept json
// @Produce json
// @Param trade body dto.RecordTradeRequest true "Trade details"
// @Success 201 {object} dto.RecordTradeResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid input"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "Account not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /trades/buy [post]
func (h *positionHandler) recordBuy(c *gin.Context) {
	h.recordTrade(c, domain.Buy, h.positionService.RecordBuy)
}

// recordSell godoc
// @Summary Record a sell
// @Description Selling the whole holding closes the position
// @Tags positions
// @Accept json
// @Produce json
// @Param trade body dto.RecordTradeRequest true "Trade details"
// @Success 201 {object} dto.RecordTradeResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid input"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "Account not found"
// @Failure 409 {object} dto.ErrorResponse "Insufficient shares"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /trades/sell [post]
func (h *positionHandler) recordSell(c *gin.Context) {
	h.recordTrade(c, domain.Sell, h.positionService.RecordSell)
}

func (h *positionHandler) recordTrade(c *gin.Context, side domain.TradeSide, record tradeFunc) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}

	var req dto.RecordTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for trade", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid request format: " + err.Error()})
		return
	}
	logger = logger.With(
		slog.String("account_id", req.AccountID),
		slog.String("symbol", req.Symbol),
		slog.String("side", string(side)),
	)

	position, err := record(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, logger, err, "Failed to record trade")
		return
	}

	resp := dto.RecordTradeResponse{Closed: position == nil}
	if position != nil {
		p := dto.ToPositionResponse(position)
		resp.Position = &p
	}
	logger.Info("Trade recorded", slog.Bool("closed", resp.Closed))
	c.JSON(http.StatusCreated, resp)
}

// listPositions godoc
// @Summary List open positions
// @Tags positions
// @Produce json
// @Param accountID query string false "Restrict to one account"
// @Success 200 {object} dto.ListPositionsResponse
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 404 {object} dto.ErrorResponse "Account not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /positions [get]
func (h *positionHandler) listPositions(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}

	positions, err := h.positionService.ListPositions(c.Request.Context(), userID, c.Query("accountID"))
	if err != nil {
		respondError(c, logger, err, "Failed to list positions")
		return
	}

	c.JSON(http.StatusOK, dto.ListPositionsResponse{Positions: dto.ToPositionResponses(positions)})
}

// refreshPositions godoc
// @Summary Refresh stale position prices
// @Description An optional maxAge (Go duration) overrides the configured staleness threshold
// @Tags positions
// @Produce json
// @Param maxAge query string false "Staleness threshold such as 30m"
// @Success 200 {object} dto.RefreshPositionsResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid input"
// @Failure 401 {object} dto.ErrorResponse "Unauthorized"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /positions/refresh [post]
func (h *positionHandler) refreshPositions(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}

	maxAge := h.maxAge
	if raw := c.Query("maxAge"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "maxAge must be a non-negative duration such as 30m"})
			return
		}
		maxAge = parsed
	}

	refreshed, err := h.positionService.RefreshStalePositionsForUser(c.Request.Context(), userID, maxAge)
	if err != nil {
		respondError(c, logger, err, "Failed to refresh positions")
		return
	}

	logger.Info("Positions refreshed", slog.Int("refreshed", refreshed))
	c.JSON(http.StatusOK, dto.RefreshPositionsResponse{Refreshed: refreshed})
}
