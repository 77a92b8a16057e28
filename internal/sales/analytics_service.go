package sales

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AnalyticsService ranks sellers and inspects transaction activity. It only reads.
type AnalyticsService struct {
	uow    UnitOfWork
	logger *zap.Logger
}

// NewAnalyticsService creates a new AnalyticsService.
func NewAnalyticsService(uow UnitOfWork, logger *zap.Logger) *AnalyticsService {
	return &AnalyticsService{
		uow:    uow,
		logger: defaultLogger(logger),
	}
}

// FindTopSellerByPeriod returns at most one seller: the one with the highest
// transaction total in [start, end]. Sellers without transactions in the period
// never qualify. Invalid ranges and failures yield an empty list.
func (s *AnalyticsService) FindTopSellerByPeriod(ctx context.Context, start, end *time.Time) []*SellerView {
	ctx = detach(ctx)

	if !validRange(start, end) {
		return []*SellerView{}
	}

	var ranked []*Seller
	err := s.uow.Do(ctx, readTx, func(repos Repositories) error {
		var err error
		ranked, err = repos.Sellers().FindTopSellersByPeriod(ctx, *start, *end)
		return err
	})
	if err != nil {
		s.logger.Error("failed to rank sellers", zap.Time("start", *start), zap.Time("end", *end), zap.Error(err))
		return []*SellerView{}
	}

	if len(ranked) > 1 {
		ranked = ranked[:1]
	}
	return ToSellerViews(ranked)
}

// FindSellersWithTotalAmountLessThan returns the sellers whose transaction total in
// [start, end] is strictly below amount. Sellers without transactions count as zero.
// A nil or negative amount, an invalid range and failures yield an empty list.
func (s *AnalyticsService) FindSellersWithTotalAmountLessThan(ctx context.Context, amount *decimal.Decimal, start, end *time.Time) []*SellerView {
	ctx = detach(ctx)

	if amount == nil || amount.IsNegative() || !validRange(start, end) {
		return []*SellerView{}
	}

	var sellers []*Seller
	err := s.uow.Do(ctx, readTx, func(repos Repositories) error {
		var err error
		sellers, err = repos.Sellers().FindSellersWithAmountLessThan(ctx, *amount, *start, *end)
		return err
	})
	if err != nil {
		s.logger.Error("failed to find low performing sellers", zap.Stringer("amount", amount), zap.Error(err))
		return []*SellerView{}
	}
	return ToSellerViews(sellers)
}

// FindBestTransactionPeriodForSeller returns the widest run of the seller's
// transactions ordered by date. Every run i <= j over the sorted list has
// j-i+1 transactions, so the widest run always spans the whole list: the result
// is {first date, last date, total count}, or the zero BestPeriod when the seller
// has no transactions. Load failures are returned as errors.
func (s *AnalyticsService) FindBestTransactionPeriodForSeller(ctx context.Context, sellerID int64) (BestPeriod, error) {
	ctx = detach(ctx)

	if sellerID <= 0 {
		return BestPeriod{}, nil
	}

	var transactions []*Transaction
	err := s.uow.Do(ctx, readTx, func(repos Repositories) error {
		var err error
		transactions, err = repos.Transactions().FindBySellerIDNotDeleted(ctx, sellerID)
		return err
	})
	if err != nil {
		s.logger.Error("failed to load transactions for best period", zap.Int64("seller_id", sellerID), zap.Error(err))
		return BestPeriod{}, fmt.Errorf("error finding best transaction period: %w", err)
	}

	return bestPeriod(transactions), nil
}

func bestPeriod(transactions []*Transaction) BestPeriod {
	if len(transactions) == 0 {
		return BestPeriod{}
	}

	sorted := make([]*Transaction, len(transactions))
	copy(sorted, transactions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TransactionDate.Before(sorted[j].TransactionDate)
	})

	// The count of run (i, j) is j-i+1, maximized at i = 0, j = n-1; a strictly
	// greater count is needed to replace the best, so that span is what wins.
	first := sorted[0].TransactionDate
	last := sorted[len(sorted)-1].TransactionDate
	return BestPeriod{
		StartDate:        &first,
		EndDate:          &last,
		TransactionCount: len(sorted),
	}
}
