package sales

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
)

const msgConcurrentUpdate = "Concurrent update error. Please try again."

// SellerService provides seller management operations on a UnitOfWork.
type SellerService struct {
	uow       UnitOfWork
	cache     SellerCache
	publisher Publisher
	now       func() time.Time
	logger    *zap.Logger
}

// NewSellerService creates a new SellerService.
func NewSellerService(uow UnitOfWork, logger *zap.Logger, opts ...Option) *SellerService {
	o := newOptions(opts)
	return &SellerService{
		uow:       uow,
		cache:     o.cache,
		publisher: o.publisher,
		now:       o.now,
		logger:    defaultLogger(logger),
	}
}

// CreateSeller registers a new seller with the current time as registration date.
func (s *SellerService) CreateSeller(ctx context.Context, req SellerCreateRequest) (SellerResult, error) {
	ctx = detach(ctx)

	seller := &Seller{
		Name:             req.Name,
		ContactInfo:      req.ContactInfo,
		RegistrationDate: s.now(),
	}

	var saved *Seller
	err := s.uow.Do(ctx, writeTx, func(repos Repositories) error {
		var err error
		saved, err = repos.Sellers().Save(ctx, seller)
		return err
	})
	if err != nil {
		s.logger.Error("failed to create seller", zap.String("name", req.Name), zap.Error(err))
		return SellerGenericError{Msg: "Error creating seller: " + err.Error()}, nil
	}

	view := ToSellerView(saved)
	s.logger.Info("seller created", zap.Int64("seller_id", view.ID))
	publish(ctx, s.logger, s.publisher, SellerStream, EventSellerCreated, view)
	return SellerSuccess{Seller: view}, nil
}

// GetSellerByID returns the not-deleted seller with the given id.
func (s *SellerService) GetSellerByID(ctx context.Context, id int64) (SellerResult, error) {
	ctx = detach(ctx)

	if id <= 0 {
		return SellerValidationError{Msg: "Seller ID must be positive"}, nil
	}

	if s.cache != nil {
		if view, ok := s.cache.Get(ctx, id); ok {
			return SellerSuccess{Seller: view}, nil
		}
	}

	var seller *Seller
	err := s.uow.Do(ctx, readTx, func(repos Repositories) error {
		var err error
		seller, err = repos.Sellers().FindNotDeletedByID(ctx, id)
		return err
	})
	if errors.Is(err, ErrNotFound) {
		return sellerNotFound(id), nil
	}
	if err != nil {
		s.logger.Error("failed to find seller", zap.Int64("seller_id", id), zap.Error(err))
		return nil, fmt.Errorf("finding seller %d: %w", id, err)
	}

	view := ToSellerView(seller)
	s.cacheStore(ctx, view)
	return SellerSuccess{Seller: view}, nil
}

// GetSellerByName returns the not-deleted seller with exactly the given name.
func (s *SellerService) GetSellerByName(ctx context.Context, name string) (SellerResult, error) {
	ctx = detach(ctx)

	if strings.TrimSpace(name) == "" {
		return SellerValidationError{Msg: "Seller name cannot be blank"}, nil
	}

	var seller *Seller
	err := s.uow.Do(ctx, readTx, func(repos Repositories) error {
		var err error
		seller, err = repos.Sellers().FindByNameNotDeleted(ctx, name)
		return err
	})
	if errors.Is(err, ErrNotFound) {
		return SellerNotFoundError{Msg: "Seller not found with name: " + name}, nil
	}
	if err != nil {
		s.logger.Error("failed to find seller by name", zap.String("name", name), zap.Error(err))
		return nil, fmt.Errorf("finding seller %q: %w", name, err)
	}
	return SellerSuccess{Seller: ToSellerView(seller)}, nil
}

// GetAllSellers lists every not-deleted seller. Failures yield an empty list.
func (s *SellerService) GetAllSellers(ctx context.Context) []*SellerView {
	ctx = detach(ctx)

	var sellers []*Seller
	err := s.uow.Do(ctx, readTx, func(repos Repositories) error {
		var err error
		sellers, err = repos.Sellers().FindAllNotDeleted(ctx)
		return err
	})
	if err != nil {
		s.logger.Error("failed to list sellers", zap.Error(err))
		return []*SellerView{}
	}
	return ToSellerViews(sellers)
}

// UpdateSeller overwrites name and contact info when req.Version matches the stored version.
func (s *SellerService) UpdateSeller(ctx context.Context, id int64, req SellerUpdateRequest) (SellerResult, error) {
	ctx = detach(ctx)

	if id <= 0 {
		return SellerValidationError{Msg: "Seller ID must be positive"}, nil
	}

	var result SellerResult
	err := s.uow.Do(ctx, writeTx, func(repos Repositories) error {
		seller, err := repos.Sellers().FindNotDeletedByID(ctx, id)
		if errors.Is(err, ErrNotFound) {
			result = sellerNotFound(id)
			return nil
		}
		if err != nil {
			return fatal(err)
		}

		if !versionMatches(req.Version, seller.Version) {
			s.logger.Warn("stale seller update rejected", zap.Int64("seller_id", id), zap.Int64("version", seller.Version))
			result = SellerValidationError{Msg: staleVersionMessage(req.Version, seller.Version)}
			return nil
		}

		seller.Name = req.Name
		seller.ContactInfo = req.ContactInfo
		saved, err := repos.Sellers().Save(ctx, seller)
		if err != nil {
			return err
		}
		result = SellerSuccess{Seller: ToSellerView(saved)}
		return nil
	})
	if cause, ok := asFatal(err); ok {
		s.logger.Error("failed to load seller for update", zap.Int64("seller_id", id), zap.Error(cause))
		return nil, fmt.Errorf("finding seller %d: %w", id, cause)
	}
	if errors.Is(err, ErrConcurrentUpdate) {
		s.logger.Warn("concurrent seller update", zap.Int64("seller_id", id), zap.Error(err))
		return SellerGenericError{Msg: msgConcurrentUpdate}, nil
	}
	if err != nil {
		s.logger.Error("failed to update seller", zap.Int64("seller_id", id), zap.Error(err))
		return SellerGenericError{Msg: "Error updating seller: " + err.Error()}, nil
	}

	if success, ok := result.(SellerSuccess); ok {
		s.cacheStore(ctx, success.Seller)
		publish(ctx, s.logger, s.publisher, SellerStream, EventSellerUpdated, success.Seller)
	}
	return result, nil
}

// DeleteSellerByIDSoft flags a not-deleted seller as deleted.
func (s *SellerService) DeleteSellerByIDSoft(ctx context.Context, id int64) (SellerResult, error) {
	ctx = detach(ctx)

	if id <= 0 {
		return SellerValidationError{Msg: "Seller ID must be positive"}, nil
	}

	var result SellerResult
	err := s.uow.Do(ctx, writeTx, func(repos Repositories) error {
		seller, err := repos.Sellers().FindNotDeletedByID(ctx, id)
		if errors.Is(err, ErrNotFound) {
			result = sellerNotFound(id)
			return nil
		}
		if err != nil {
			return fatal(err)
		}

		seller.Deleted = true
		saved, err := repos.Sellers().Save(ctx, seller)
		if err != nil {
			return err
		}
		result = SellerSuccess{Seller: ToSellerView(saved)}
		return nil
	})
	if cause, ok := asFatal(err); ok {
		s.logger.Error("failed to load seller for delete", zap.Int64("seller_id", id), zap.Error(cause))
		return nil, fmt.Errorf("finding seller %d: %w", id, cause)
	}
	if err != nil {
		s.logger.Error("failed to soft delete seller", zap.Int64("seller_id", id), zap.Error(err))
		return SellerGenericError{Msg: "Error deleting seller: " + err.Error()}, nil
	}

	if success, ok := result.(SellerSuccess); ok {
		s.tombstone(ctx, id, success.Seller.Version)
		publish(ctx, s.logger, s.publisher, SellerStream, EventSellerDeleted, DeletedEvent{ID: id, Kind: "seller"})
	}
	return result, nil
}

// DeleteSellerByIDHard removes the seller row, including soft-deleted ones.
// A failed lookup is returned as an error rather than a result.
func (s *SellerService) DeleteSellerByIDHard(ctx context.Context, id int64) (SellerResult, error) {
	ctx = detach(ctx)

	if id <= 0 {
		return SellerValidationError{Msg: "Seller ID must be positive"}, nil
	}

	var result SellerResult
	err := s.uow.Do(ctx, writeTx, func(repos Repositories) error {
		_, err := repos.Sellers().FindByID(ctx, id)
		if errors.Is(err, ErrNotFound) {
			result = sellerNotFound(id)
			return nil
		}
		if err != nil {
			return fatal(err)
		}

		if err := repos.Sellers().Delete(ctx, id); err != nil {
			return err
		}
		result = SellerSuccess{}
		return nil
	})
	if cause, ok := asFatal(err); ok {
		s.logger.Error("failed to load seller for hard delete", zap.Int64("seller_id", id), zap.Error(cause))
		return nil, fmt.Errorf("finding seller %d: %w", id, cause)
	}
	if err != nil {
		s.logger.Error("failed to hard delete seller", zap.Int64("seller_id", id), zap.Error(err))
		return SellerGenericError{Msg: "Error performing hard delete: " + err.Error()}, nil
	}

	if _, success := result.(SellerSuccess); success {
		s.tombstone(ctx, id, purgedVersion)
		publish(ctx, s.logger, s.publisher, SellerStream, EventSellerDeleted, DeletedEvent{ID: id, Hard: true, Kind: "seller"})
	}
	return result, nil
}

// purgedVersion tombstones a hard-deleted seller above any version it had.
const purgedVersion = math.MaxInt64

func (s *SellerService) cacheStore(ctx context.Context, view *SellerView) {
	if s.cache != nil {
		s.cache.Store(ctx, view)
	}
}

func (s *SellerService) tombstone(ctx context.Context, id, version int64) {
	if s.cache != nil {
		s.cache.Tombstone(ctx, id, version)
	}
}

func sellerNotFound(id int64) SellerNotFoundError {
	return SellerNotFoundError{Msg: fmt.Sprintf("Seller not found with id: %d", id)}
}
