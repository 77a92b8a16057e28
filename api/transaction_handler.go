package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"simplecrm/internal/sales"
)

type transactionCreateRequest struct {
	SellerID        *int64           `json:"sellerId" validate:"required"`
	Amount          *decimal.Decimal `json:"amount" validate:"required,gte=0"`
	PaymentType     string           `json:"paymentType" validate:"required,paymenttype"`
	TransactionDate *timestamp       `json:"transactionDate"`
}

type transactionUpdateRequest struct {
	SellerID        *int64           `json:"sellerId"`
	Amount          *decimal.Decimal `json:"amount" validate:"required,gte=0"`
	PaymentType     string           `json:"paymentType" validate:"required,paymenttype"`
	TransactionDate *timestamp       `json:"transactionDate" validate:"required"`
	Version         *int64           `json:"version" validate:"required"`
}

// transactionHandler implements the /api/transactions endpoints.
type transactionHandler struct {
	transactions TransactionService
	logger       *zap.Logger
}

func newTransactionHandler(transactions TransactionService, logger *zap.Logger) *transactionHandler {
	return &transactionHandler{transactions: transactions, logger: logger}
}

func (h *transactionHandler) handleGetAll(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, h.transactions.GetAllTransactions(ctx.Request.Context()))
}

func (h *transactionHandler) handleGet(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	result, err := h.transactions.GetTransactionByID(ctx.Request.Context(), id)
	if err != nil {
		h.logger.Error("failed to get transaction", zap.Int64("transaction_id", id), zap.Error(err))
		respondFatal(ctx, err)
		return
	}
	respondTransaction(ctx, http.StatusOK, result)
}

func (h *transactionHandler) handleCreate(ctx *gin.Context) {
	var req transactionCreateRequest
	if !bindAndValidate(ctx, h.logger, &req) {
		return
	}
	paymentType, ok := parsePaymentType(ctx, req.PaymentType)
	if !ok {
		return
	}

	result, err := h.transactions.CreateTransaction(ctx.Request.Context(), sales.TransactionCreateRequest{
		SellerID:        *req.SellerID,
		Amount:          *req.Amount,
		PaymentType:     paymentType,
		TransactionDate: req.TransactionDate.ptr(),
	})
	if err != nil {
		h.logger.Error("failed to create transaction", zap.Int64("seller_id", *req.SellerID), zap.Error(err))
		respondFatal(ctx, err)
		return
	}
	respondTransaction(ctx, http.StatusCreated, result)
}

func (h *transactionHandler) handleUpdate(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req transactionUpdateRequest
	if !bindAndValidate(ctx, h.logger, &req) {
		return
	}
	paymentType, ok := parsePaymentType(ctx, req.PaymentType)
	if !ok {
		return
	}

	result, err := h.transactions.UpdateTransactionByID(ctx.Request.Context(), id, sales.TransactionUpdateRequest{
		SellerID:        req.SellerID,
		Amount:          *req.Amount,
		PaymentType:     paymentType,
		TransactionDate: req.TransactionDate.Time,
		Version:         req.Version,
	})
	if err != nil {
		h.logger.Error("failed to update transaction", zap.Int64("transaction_id", id), zap.Error(err))
		respondFatal(ctx, err)
		return
	}
	respondTransaction(ctx, http.StatusOK, result)
}

func (h *transactionHandler) handleDelete(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	hard, ok := deleteType(ctx)
	if !ok {
		return
	}

	remove := h.transactions.DeleteTransactionByIDSoft
	if hard {
		remove = h.transactions.DeleteTransactionByIDHard
	}
	result, err := remove(ctx.Request.Context(), id)
	if err != nil {
		h.logger.Error("failed to delete transaction", zap.Int64("transaction_id", id), zap.Bool("hard", hard), zap.Error(err))
		respondFatal(ctx, err)
		return
	}
	respondTransaction(ctx, http.StatusNoContent, result)
}

// handleBySeller handles GET /api/transactions/seller/:sellerId.
func (h *transactionHandler) handleBySeller(ctx *gin.Context) {
	sellerID, ok := pathID(ctx, "sellerId")
	if !ok {
		return
	}

	views, err := h.transactions.GetTransactionsBySellerID(ctx.Request.Context(), sellerID)
	if err != nil {
		h.logger.Error("failed to list seller transactions", zap.Int64("seller_id", sellerID), zap.Error(err))
		respondFatal(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, views)
}

// handleRange handles GET /api/transactions/range?start=&end=[&sellerId=].
func (h *transactionHandler) handleRange(ctx *gin.Context) {
	start, ok := queryTime(ctx, "start")
	if !ok {
		return
	}
	end, ok := queryTime(ctx, "end")
	if !ok {
		return
	}

	raw, bySeller := ctx.GetQuery("sellerId")
	if !bySeller {
		ctx.JSON(http.StatusOK, h.transactions.GetTransactionsByDateRange(ctx.Request.Context(), start, end))
		return
	}
	sellerID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		respondBadRequest(ctx, "Invalid sellerId: '"+raw+"'")
		return
	}
	ctx.JSON(http.StatusOK, h.transactions.GetTransactionsBySellerIDAndDateRange(ctx.Request.Context(), sellerID, start, end))
}
