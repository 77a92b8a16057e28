package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"simplecrm/internal/sales"
)

// SellerService is the seller API the handlers depend on.
type SellerService interface {
	CreateSeller(ctx context.Context, req sales.SellerCreateRequest) (sales.SellerResult, error)
	GetSellerByID(ctx context.Context, id int64) (sales.SellerResult, error)
	GetSellerByName(ctx context.Context, name string) (sales.SellerResult, error)
	GetAllSellers(ctx context.Context) []*sales.SellerView
	UpdateSeller(ctx context.Context, id int64, req sales.SellerUpdateRequest) (sales.SellerResult, error)
	DeleteSellerByIDSoft(ctx context.Context, id int64) (sales.SellerResult, error)
	DeleteSellerByIDHard(ctx context.Context, id int64) (sales.SellerResult, error)
}

// TransactionService is the transaction API the handlers depend on.
type TransactionService interface {
	CreateTransaction(ctx context.Context, req sales.TransactionCreateRequest) (sales.TransactionResult, error)
	GetTransactionByID(ctx context.Context, id int64) (sales.TransactionResult, error)
	GetAllTransactions(ctx context.Context) []*sales.TransactionView
	UpdateTransactionByID(ctx context.Context, id int64, req sales.TransactionUpdateRequest) (sales.TransactionResult, error)
	DeleteTransactionByIDSoft(ctx context.Context, id int64) (sales.TransactionResult, error)
	DeleteTransactionByIDHard(ctx context.Context, id int64) (sales.TransactionResult, error)
	GetTransactionsBySellerID(ctx context.Context, sellerID int64) ([]*sales.TransactionFlatView, error)
	GetTransactionsBySellerIDAndDateRange(ctx context.Context, sellerID int64, start, end *time.Time) []*sales.TransactionView
	GetTransactionsByDateRange(ctx context.Context, start, end *time.Time) []*sales.TransactionView
}

// AnalyticsService is the reporting API the handlers depend on.
type AnalyticsService interface {
	FindTopSellerByPeriod(ctx context.Context, start, end *time.Time) []*sales.SellerView
	FindSellersWithTotalAmountLessThan(ctx context.Context, amount *decimal.Decimal, start, end *time.Time) []*sales.SellerView
	FindBestTransactionPeriodForSeller(ctx context.Context, sellerID int64) (sales.BestPeriod, error)
}

type sellerCreateRequest struct {
	Name        string `json:"name" validate:"notblank"`
	ContactInfo string `json:"contactInfo" validate:"notblank"`
}

type sellerUpdateRequest struct {
	Name        string `json:"name" validate:"notblank"`
	ContactInfo string `json:"contactInfo" validate:"notblank"`
	Version     *int64 `json:"version" validate:"required"`
}

// sellerHandler implements the /api/sellers endpoints.
type sellerHandler struct {
	sellers SellerService
	logger  *zap.Logger
}

func newSellerHandler(sellers SellerService, logger *zap.Logger) *sellerHandler {
	return &sellerHandler{sellers: sellers, logger: logger}
}

// handleGetAll handles GET /api/sellers.
func (h *sellerHandler) handleGetAll(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, h.sellers.GetAllSellers(ctx.Request.Context()))
}

// handleGet handles GET /api/sellers/:id.
func (h *sellerHandler) handleGet(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	result, err := h.sellers.GetSellerByID(ctx.Request.Context(), id)
	if err != nil {
		h.logger.Error("failed to get seller", zap.Int64("seller_id", id), zap.Error(err))
		respondFatal(ctx, err)
		return
	}
	respondSeller(ctx, http.StatusOK, result)
}

// handleSearch handles GET /api/sellers/search?name=.
func (h *sellerHandler) handleSearch(ctx *gin.Context) {
	name := ctx.Query("name")
	result, err := h.sellers.GetSellerByName(ctx.Request.Context(), name)
	if err != nil {
		h.logger.Error("failed to search seller", zap.String("name", name), zap.Error(err))
		respondFatal(ctx, err)
		return
	}
	respondSeller(ctx, http.StatusOK, result)
}

// handleCreate handles POST /api/sellers.
func (h *sellerHandler) handleCreate(ctx *gin.Context) {
	var req sellerCreateRequest
	if !bindAndValidate(ctx, h.logger, &req) {
		return
	}

	result, err := h.sellers.CreateSeller(ctx.Request.Context(), sales.SellerCreateRequest{
		Name:        req.Name,
		ContactInfo: req.ContactInfo,
	})
	if err != nil {
		h.logger.Error("failed to create seller", zap.Error(err))
		respondFatal(ctx, err)
		return
	}
	respondSeller(ctx, http.StatusCreated, result)
}

// handleUpdate handles PUT /api/sellers/:id.
func (h *sellerHandler) handleUpdate(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req sellerUpdateRequest
	if !bindAndValidate(ctx, h.logger, &req) {
		return
	}

	result, err := h.sellers.UpdateSeller(ctx.Request.Context(), id, sales.SellerUpdateRequest{
		Name:        req.Name,
		ContactInfo: req.ContactInfo,
		Version:     req.Version,
	})
	if err != nil {
		h.logger.Error("failed to update seller", zap.Int64("seller_id", id), zap.Error(err))
		respondFatal(ctx, err)
		return
	}
	respondSeller(ctx, http.StatusOK, result)
}

// handleDelete handles DELETE /api/sellers/:id?deleteType=soft|hard.
func (h *sellerHandler) handleDelete(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	hard, ok := deleteType(ctx)
	if !ok {
		return
	}

	remove := h.sellers.DeleteSellerByIDSoft
	if hard {
		remove = h.sellers.DeleteSellerByIDHard
	}
	result, err := remove(ctx.Request.Context(), id)
	if err != nil {
		h.logger.Error("failed to delete seller", zap.Int64("seller_id", id), zap.Bool("hard", hard), zap.Error(err))
		respondFatal(ctx, err)
		return
	}
	respondSeller(ctx, http.StatusNoContent, result)
}
