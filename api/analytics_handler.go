package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"simplecrm/internal/sales"
)

// analyticsHandler implements the /api/analytics endpoints.
type analyticsHandler struct {
	analytics AnalyticsService
	logger    *zap.Logger
}

func newAnalyticsHandler(analytics AnalyticsService, logger *zap.Logger) *analyticsHandler {
	return &analyticsHandler{analytics: analytics, logger: logger}
}

// handleTopSeller handles GET /api/analytics/top-seller?start=&end=.
func (h *analyticsHandler) handleTopSeller(ctx *gin.Context) {
	start, ok := queryTime(ctx, "start")
	if !ok {
		return
	}
	end, ok := queryTime(ctx, "end")
	if !ok {
		return
	}
	ctx.JSON(http.StatusOK, h.analytics.FindTopSellerByPeriod(ctx.Request.Context(), start, end))
}

// handleLowPerformers handles GET /api/analytics/low-performers?amount=&start=&end=.
func (h *analyticsHandler) handleLowPerformers(ctx *gin.Context) {
	raw := ctx.Query("amount")
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		respondBadRequest(ctx, "Invalid amount: '"+raw+"'")
		return
	}
	start, ok := queryTime(ctx, "start")
	if !ok {
		return
	}
	end, ok := queryTime(ctx, "end")
	if !ok {
		return
	}
	ctx.JSON(http.StatusOK, h.analytics.FindSellersWithTotalAmountLessThan(ctx.Request.Context(), &amount, start, end))
}

// handleBestPeriod handles GET /api/analytics/best-period/:sellerId. A seller
// without transactions yields 404 with an empty period.
func (h *analyticsHandler) handleBestPeriod(ctx *gin.Context) {
	sellerID, ok := pathID(ctx, "sellerId")
	if !ok {
		return
	}

	period, err := h.analytics.FindBestTransactionPeriodForSeller(ctx.Request.Context(), sellerID)
	if err != nil {
		h.logger.Error("failed to find best period", zap.Int64("seller_id", sellerID), zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, sales.BestPeriod{})
		return
	}
	if period.TransactionCount == 0 {
		ctx.JSON(http.StatusNotFound, sales.BestPeriod{})
		return
	}
	ctx.JSON(http.StatusOK, period)
}
