package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// TransactionService provides transaction management operations on a UnitOfWork.
type TransactionService struct {
	uow       UnitOfWork
	publisher Publisher
	now       func() time.Time
	logger    *zap.Logger
}

// NewTransactionService creates a new TransactionService.
func NewTransactionService(uow UnitOfWork, logger *zap.Logger, opts ...Option) *TransactionService {
	o := newOptions(opts)
	return &TransactionService{
		uow:       uow,
		publisher: o.publisher,
		now:       o.now,
		logger:    defaultLogger(logger),
	}
}

// CreateTransaction records a transaction for a not-deleted seller.
// Every failure, including the seller lookup, is reported as a generic error result.
func (s *TransactionService) CreateTransaction(ctx context.Context, req TransactionCreateRequest) (TransactionResult, error) {
	ctx = detach(ctx)

	var result TransactionResult
	err := s.uow.Do(ctx, writeTx, func(repos Repositories) error {
		seller, err := repos.Sellers().FindNotDeletedByID(ctx, req.SellerID)
		if errors.Is(err, ErrNotFound) {
			result = transactionSellerNotFound(req.SellerID)
			return nil
		}
		if err != nil {
			return err
		}

		date := s.now()
		if req.TransactionDate != nil {
			date = *req.TransactionDate
		}

		saved, err := repos.Transactions().Save(ctx, &Transaction{
			Seller:          seller,
			Amount:          req.Amount,
			PaymentType:     req.PaymentType,
			TransactionDate: date,
		})
		if err != nil {
			return err
		}
		result = TransactionSuccess{Transaction: ToTransactionView(saved)}
		return nil
	})
	if err != nil {
		s.logger.Error("failed to create transaction", zap.Int64("seller_id", req.SellerID), zap.Error(err))
		return TransactionGenericError{Msg: "Error creating transaction: " + err.Error()}, nil
	}

	if success, ok := result.(TransactionSuccess); ok {
		s.logger.Info("transaction created",
			zap.Int64("transaction_id", success.Transaction.ID),
			zap.Int64("seller_id", req.SellerID),
		)
		publish(ctx, s.logger, s.publisher, TransactionStream, EventTransactionCreated, success.Transaction)
	} else {
		s.logger.Warn("transaction rejected", zap.Int64("seller_id", req.SellerID), zap.String("reason", result.Message()))
	}
	return result, nil
}

// GetTransactionByID returns the not-deleted transaction with the given id.
func (s *TransactionService) GetTransactionByID(ctx context.Context, id int64) (TransactionResult, error) {
	ctx = detach(ctx)

	if id <= 0 {
		return TransactionValidationError{Msg: "Transaction ID must be positive"}, nil
	}

	var transaction *Transaction
	err := s.uow.Do(ctx, readTx, func(repos Repositories) error {
		var err error
		transaction, err = repos.Transactions().FindNotDeletedByID(ctx, id)
		return err
	})
	if errors.Is(err, ErrNotFound) {
		return transactionNotFound(id), nil
	}
	if err != nil {
		s.logger.Error("failed to find transaction", zap.Int64("transaction_id", id), zap.Error(err))
		return nil, fmt.Errorf("finding transaction %d: %w", id, err)
	}
	return TransactionSuccess{Transaction: ToTransactionView(transaction)}, nil
}

// GetAllTransactions lists every not-deleted transaction by date. Failures yield an empty list.
func (s *TransactionService) GetAllTransactions(ctx context.Context) []*TransactionView {
	ctx = detach(ctx)

	return s.list(ctx, "failed to list transactions", func(repos Repositories) ([]*Transaction, error) {
		return repos.Transactions().FindAllNotDeleted(ctx)
	})
}

// UpdateTransactionByID overwrites amount, payment type and date when req.Version
// matches the stored version, repointing the seller when req.SellerID is set.
func (s *TransactionService) UpdateTransactionByID(ctx context.Context, id int64, req TransactionUpdateRequest) (TransactionResult, error) {
	ctx = detach(ctx)

	if id <= 0 {
		return TransactionValidationError{Msg: "Transaction ID must be positive"}, nil
	}

	var result TransactionResult
	err := s.uow.Do(ctx, writeTx, func(repos Repositories) error {
		transaction, err := repos.Transactions().FindNotDeletedByID(ctx, id)
		if errors.Is(err, ErrNotFound) {
			result = transactionNotFound(id)
			return nil
		}
		if err != nil {
			return fatal(err)
		}

		if !versionMatches(req.Version, transaction.Version) {
			s.logger.Warn("stale transaction update rejected",
				zap.Int64("transaction_id", id),
				zap.Int64("version", transaction.Version),
			)
			result = TransactionValidationError{Msg: staleVersionMessage(req.Version, transaction.Version)}
			return nil
		}

		if req.SellerID != nil {
			seller, err := repos.Sellers().FindNotDeletedByID(ctx, *req.SellerID)
			if errors.Is(err, ErrNotFound) {
				result = transactionSellerNotFound(*req.SellerID)
				return nil
			}
			if err != nil {
				return err
			}
			transaction.Seller = seller
		}

		transaction.Amount = req.Amount
		transaction.PaymentType = req.PaymentType
		transaction.TransactionDate = req.TransactionDate

		saved, err := repos.Transactions().Save(ctx, transaction)
		if err != nil {
			return err
		}
		result = TransactionSuccess{Transaction: ToTransactionView(saved)}
		return nil
	})
	if cause, ok := asFatal(err); ok {
		s.logger.Error("failed to load transaction for update", zap.Int64("transaction_id", id), zap.Error(cause))
		return nil, fmt.Errorf("finding transaction %d: %w", id, cause)
	}
	if errors.Is(err, ErrConcurrentUpdate) {
		s.logger.Warn("concurrent transaction update", zap.Int64("transaction_id", id), zap.Error(err))
		return TransactionGenericError{Msg: msgConcurrentUpdate}, nil
	}
	if err != nil {
		s.logger.Error("failed to update transaction", zap.Int64("transaction_id", id), zap.Error(err))
		return TransactionGenericError{Msg: "Error updating transaction: " + err.Error()}, nil
	}

	if success, ok := result.(TransactionSuccess); ok {
		publish(ctx, s.logger, s.publisher, TransactionStream, EventTransactionUpdated, success.Transaction)
	}
	return result, nil
}

// DeleteTransactionByIDSoft flags a not-deleted transaction as deleted.
func (s *TransactionService) DeleteTransactionByIDSoft(ctx context.Context, id int64) (TransactionResult, error) {
	ctx = detach(ctx)

	if id <= 0 {
		return TransactionValidationError{Msg: "Transaction ID must be positive"}, nil
	}

	var result TransactionResult
	err := s.uow.Do(ctx, writeTx, func(repos Repositories) error {
		transaction, err := repos.Transactions().FindNotDeletedByID(ctx, id)
		if errors.Is(err, ErrNotFound) {
			result = transactionNotFound(id)
			return nil
		}
		if err != nil {
			return fatal(err)
		}

		transaction.Deleted = true
		saved, err := repos.Transactions().Save(ctx, transaction)
		if err != nil {
			return err
		}
		result = TransactionSuccess{Transaction: ToTransactionView(saved)}
		return nil
	})
	if cause, ok := asFatal(err); ok {
		s.logger.Error("failed to load transaction for delete", zap.Int64("transaction_id", id), zap.Error(cause))
		return nil, fmt.Errorf("finding transaction %d: %w", id, cause)
	}
	if err != nil {
		s.logger.Error("failed to soft delete transaction", zap.Int64("transaction_id", id), zap.Error(err))
		return TransactionGenericError{Msg: "Error deleting transaction: " + err.Error()}, nil
	}

	if _, ok := result.(TransactionSuccess); ok {
		publish(ctx, s.logger, s.publisher, TransactionStream, EventTransactionDeleted, DeletedEvent{ID: id, Kind: "transaction"})
	}
	return result, nil
}

// DeleteTransactionByIDHard removes the transaction row, including soft-deleted ones.
// Every failure is reported as a generic error result.
func (s *TransactionService) DeleteTransactionByIDHard(ctx context.Context, id int64) (TransactionResult, error) {
	ctx = detach(ctx)

	if id <= 0 {
		return TransactionValidationError{Msg: fmt.Sprintf("Invalid transaction ID: %d", id)}, nil
	}

	var result TransactionResult
	err := s.uow.Do(ctx, writeTx, func(repos Repositories) error {
		exists, err := repos.Transactions().ExistsByID(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			result = transactionNotFound(id)
			return nil
		}

		if err := repos.Transactions().DeleteByID(ctx, id); err != nil {
			return err
		}
		result = TransactionSuccess{}
		return nil
	})
	if err != nil {
		s.logger.Error("failed to hard delete transaction", zap.Int64("transaction_id", id), zap.Error(err))
		return TransactionGenericError{Msg: "Error deleting transaction: " + err.Error()}, nil
	}

	if _, ok := result.(TransactionSuccess); ok {
		publish(ctx, s.logger, s.publisher, TransactionStream, EventTransactionDeleted, DeletedEvent{ID: id, Hard: true, Kind: "transaction"})
	}
	return result, nil
}

// GetTransactionsBySellerID returns the flat projection of a seller's not-deleted
// transactions ordered by date. Unlike the other list operations, storage failures
// are returned to the caller.
func (s *TransactionService) GetTransactionsBySellerID(ctx context.Context, sellerID int64) ([]*TransactionFlatView, error) {
	ctx = detach(ctx)

	if sellerID <= 0 {
		return []*TransactionFlatView{}, nil
	}

	var flat []*TransactionFlatView
	err := s.uow.Do(ctx, readTx, func(repos Repositories) error {
		var err error
		flat, err = repos.Transactions().FindFlatBySellerID(ctx, sellerID)
		return err
	})
	if err != nil {
		s.logger.Error("failed to list seller transactions", zap.Int64("seller_id", sellerID), zap.Error(err))
		return nil, fmt.Errorf("finding transactions for seller %d: %w", sellerID, err)
	}
	if flat == nil {
		flat = []*TransactionFlatView{}
	}
	return flat, nil
}

// GetTransactionsBySellerIDAndDateRange lists a seller's transactions dated in [start, end].
// Invalid bounds and failures yield an empty list.
func (s *TransactionService) GetTransactionsBySellerIDAndDateRange(ctx context.Context, sellerID int64, start, end *time.Time) []*TransactionView {
	ctx = detach(ctx)

	if sellerID <= 0 || !validRange(start, end) {
		return []*TransactionView{}
	}
	return s.list(ctx, "failed to list seller transactions in range", func(repos Repositories) ([]*Transaction, error) {
		return repos.Transactions().FindBySellerIDAndDateRange(ctx, sellerID, *start, *end)
	})
}

// GetTransactionsByDateRange lists transactions dated in [start, end].
// Invalid bounds and failures yield an empty list.
func (s *TransactionService) GetTransactionsByDateRange(ctx context.Context, start, end *time.Time) []*TransactionView {
	ctx = detach(ctx)

	if !validRange(start, end) {
		return []*TransactionView{}
	}
	return s.list(ctx, "failed to list transactions in range", func(repos Repositories) ([]*Transaction, error) {
		return repos.Transactions().FindByDateRange(ctx, *start, *end)
	})
}

// list runs a read-only query and degrades failures to an empty slice.
func (s *TransactionService) list(ctx context.Context, failure string, query func(repos Repositories) ([]*Transaction, error)) []*TransactionView {
	var transactions []*Transaction
	err := s.uow.Do(ctx, readTx, func(repos Repositories) error {
		var err error
		transactions, err = query(repos)
		return err
	})
	if err != nil {
		s.logger.Error(failure, zap.Error(err))
		return []*TransactionView{}
	}
	return ToTransactionViews(transactions)
}

func transactionNotFound(id int64) TransactionNotFoundError {
	return TransactionNotFoundError{Msg: fmt.Sprintf("Transaction not found with id: %d", id)}
}

func transactionSellerNotFound(id int64) TransactionSellerNotFoundError {
	return TransactionSellerNotFoundError{Msg: fmt.Sprintf("Seller not found with id: %d", id)}
}
