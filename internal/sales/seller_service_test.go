package sales

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var registered = time.Date(2024, time.January, 15, 9, 30, 0, 0, time.UTC)

func newLocalSellerService(t *testing.T, opts ...Option) (*SellerService, *LocalStorage) {
	t.Helper()
	storage := NewLocalStorage()
	opts = append([]Option{fixedClock(registered)}, opts...)
	return NewSellerService(storage, zaptest.NewLogger(t), opts...), storage
}

func createSeller(t *testing.T, svc *SellerService, name string) *SellerView {
	t.Helper()
	res, err := svc.CreateSeller(context.Background(), SellerCreateRequest{Name: name, ContactInfo: name + "@x.com"})
	require.NoError(t, err)
	success, ok := res.(SellerSuccess)
	require.True(t, ok, "expected success, got %T: %s", res, res.Message())
	return success.Seller
}

func TestNewSellerService(t *testing.T) {
	svc := NewSellerService(NewLocalStorage(), nil)

	require.NotNil(t, svc)
	assert.NotNil(t, svc.logger, "nil logger should be replaced by a default")
	assert.NotNil(t, svc.now)
	assert.Nil(t, svc.cache)
	assert.Nil(t, svc.publisher)
}

func TestCreateSeller(t *testing.T) {
	svc, _ := newLocalSellerService(t)

	view := createSeller(t, svc, "Alice")

	assert.Equal(t, int64(1), view.ID)
	assert.Equal(t, "Alice", view.Name)
	assert.Equal(t, "Alice@x.com", view.ContactInfo)
	assert.Equal(t, registered, view.RegistrationDate)
	assert.Equal(t, int64(0), view.Version)
}

func TestCreateSeller_IgnoresCallerCancellation(t *testing.T) {
	svc, _ := newLocalSellerService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := svc.CreateSeller(ctx, SellerCreateRequest{Name: "Alice", ContactInfo: "a@x.com"})

	require.NoError(t, err)
	assert.IsType(t, SellerSuccess{}, res)
}

func TestCreateSeller_SaveFailure(t *testing.T) {
	uow := newMockUnitOfWork()
	uow.sellers.On("Save", mock.Anything, mock.Anything).Return(nil, errors.New("disk full"))
	svc := NewSellerService(uow, zaptest.NewLogger(t))

	res, err := svc.CreateSeller(context.Background(), SellerCreateRequest{Name: "Alice", ContactInfo: "a@x.com"})

	require.NoError(t, err)
	assert.Equal(t, SellerGenericError{Msg: "Error creating seller: disk full"}, res)
	assert.Equal(t, ErrorTypeGeneric, res.ErrorType())
}

func TestSellerService_NonPositiveIDs(t *testing.T) {
	svc, _ := newLocalSellerService(t)
	ctx := context.Background()
	want := SellerValidationError{Msg: "Seller ID must be positive"}

	for _, id := range []int64{0, -1, -42} {
		t.Run(fmt.Sprint(id), func(t *testing.T) {
			res, err := svc.GetSellerByID(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, want, res)

			res, err = svc.UpdateSeller(ctx, id, SellerUpdateRequest{Name: "x", ContactInfo: "y", Version: ptr(int64(0))})
			require.NoError(t, err)
			assert.Equal(t, want, res)

			res, err = svc.DeleteSellerByIDSoft(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, want, res)

			res, err = svc.DeleteSellerByIDHard(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, want, res)
		})
	}
}

func TestSellerService_UnknownIDs(t *testing.T) {
	svc, _ := newLocalSellerService(t)
	ctx := context.Background()
	createSeller(t, svc, "Alice")
	want := SellerNotFoundError{Msg: "Seller not found with id: 404"}

	res, err := svc.GetSellerByID(ctx, 404)
	require.NoError(t, err)
	assert.Equal(t, want, res)
	assert.Equal(t, ErrorTypeNotFound, res.ErrorType())

	res, err = svc.UpdateSeller(ctx, 404, SellerUpdateRequest{Name: "x", ContactInfo: "y", Version: ptr(int64(0))})
	require.NoError(t, err)
	assert.Equal(t, want, res)

	res, err = svc.DeleteSellerByIDSoft(ctx, 404)
	require.NoError(t, err)
	assert.Equal(t, want, res)

	res, err = svc.DeleteSellerByIDHard(ctx, 404)
	require.NoError(t, err)
	assert.Equal(t, want, res)
}

func TestUpdateSeller_VersionFlow(t *testing.T) {
	svc, _ := newLocalSellerService(t)
	ctx := context.Background()

	created := createSeller(t, svc, "Alice")
	require.Equal(t, int64(0), created.Version)

	update := SellerUpdateRequest{Name: "Alice Smith", ContactInfo: "alice@x.com", Version: ptr(int64(0))}
	res, err := svc.UpdateSeller(ctx, created.ID, update)
	require.NoError(t, err)
	success, ok := res.(SellerSuccess)
	require.True(t, ok, "got %T: %s", res, res.Message())
	assert.Equal(t, int64(1), success.Seller.Version)
	assert.Equal(t, "Alice Smith", success.Seller.Name)
	assert.Equal(t, registered, success.Seller.RegistrationDate)

	res, err = svc.UpdateSeller(ctx, created.ID, update)
	require.NoError(t, err)
	assert.Equal(t, ErrorTypeValidation, res.ErrorType())
	assert.Contains(t, res.Message(), "Expected version: 0, but found: 1")
}

func TestUpdateSeller_NilVersionIsStale(t *testing.T) {
	svc, _ := newLocalSellerService(t)
	created := createSeller(t, svc, "Alice")

	res, err := svc.UpdateSeller(context.Background(), created.ID, SellerUpdateRequest{Name: "x", ContactInfo: "y"})

	require.NoError(t, err)
	assert.Equal(t, SellerValidationError{
		Msg: "Data is stale, please refresh and try again. Expected version: null, but found: 0",
	}, res)
}

func TestUpdateSeller_StaleVersionNeverSaves(t *testing.T) {
	for name, version := range map[string]*int64{"mismatch": ptr(int64(2)), "nil": nil} {
		t.Run(name, func(t *testing.T) {
			uow := newMockUnitOfWork()
			uow.sellers.On("FindNotDeletedByID", mock.Anything, int64(1)).
				Return(&Seller{ID: 1, Name: "Alice", ContactInfo: "a@x.com", Version: 3}, nil)
			svc := NewSellerService(uow, zaptest.NewLogger(t))

			res, err := svc.UpdateSeller(context.Background(), 1, SellerUpdateRequest{Name: "x", ContactInfo: "y", Version: version})

			require.NoError(t, err)
			assert.Equal(t, ErrorTypeValidation, res.ErrorType())
			assert.Contains(t, res.Message(), "but found: 3")
			uow.sellers.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		})
	}
}

func TestUpdateSeller_ConcurrentConflict(t *testing.T) {
	uow := newMockUnitOfWork()
	uow.sellers.On("FindNotDeletedByID", mock.Anything, int64(1)).Return(&Seller{ID: 1, Version: 0}, nil)
	uow.sellers.On("Save", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("%w: seller 1", ErrConcurrentUpdate))
	svc := NewSellerService(uow, zaptest.NewLogger(t))

	res, err := svc.UpdateSeller(context.Background(), 1, SellerUpdateRequest{Name: "x", ContactInfo: "y", Version: ptr(int64(0))})

	require.NoError(t, err)
	assert.Equal(t, SellerGenericError{Msg: "Concurrent update error. Please try again."}, res)
	uow.sellers.AssertNumberOfCalls(t, "Save", 1)
}

func TestUpdateSeller_SaveFailure(t *testing.T) {
	uow := newMockUnitOfWork()
	uow.sellers.On("FindNotDeletedByID", mock.Anything, int64(1)).Return(&Seller{ID: 1, Version: 0}, nil)
	uow.sellers.On("Save", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))
	svc := NewSellerService(uow, zaptest.NewLogger(t))

	res, err := svc.UpdateSeller(context.Background(), 1, SellerUpdateRequest{Name: "x", ContactInfo: "y", Version: ptr(int64(0))})

	require.NoError(t, err)
	assert.Equal(t, SellerGenericError{Msg: "Error updating seller: connection reset"}, res)
}

func TestSellerService_LookupFailurePropagates(t *testing.T) {
	boom := errors.New("connection refused")
	uow := newMockUnitOfWork()
	uow.sellers.On("FindNotDeletedByID", mock.Anything, int64(1)).Return(nil, boom)
	uow.sellers.On("FindByID", mock.Anything, int64(1)).Return(nil, boom)
	svc := NewSellerService(uow, zaptest.NewLogger(t))
	ctx := context.Background()

	res, err := svc.GetSellerByID(ctx, 1)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, res)

	res, err = svc.UpdateSeller(ctx, 1, SellerUpdateRequest{Version: ptr(int64(0))})
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, res)

	res, err = svc.DeleteSellerByIDSoft(ctx, 1)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, res)

	res, err = svc.DeleteSellerByIDHard(ctx, 1)
	assert.ErrorIs(t, err, boom)
	assert.Nil(t, res)

	uow.sellers.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	uow.sellers.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestSellerService_BeginFailure(t *testing.T) {
	uow := newMockUnitOfWork()
	uow.err = errors.New("pool exhausted")
	svc := NewSellerService(uow, zaptest.NewLogger(t))

	res, err := svc.UpdateSeller(context.Background(), 1, SellerUpdateRequest{Version: ptr(int64(0))})

	require.NoError(t, err)
	assert.Equal(t, SellerGenericError{Msg: "Error updating seller: pool exhausted"}, res)
}

func TestDeleteSellerByIDSoft(t *testing.T) {
	svc, storage := newLocalSellerService(t)
	ctx := context.Background()
	created := createSeller(t, svc, "Alice")

	res, err := svc.DeleteSellerByIDSoft(ctx, created.ID)
	require.NoError(t, err)
	success, ok := res.(SellerSuccess)
	require.True(t, ok)
	assert.Equal(t, int64(1), success.Seller.Version)

	res, err = svc.GetSellerByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, ErrorTypeNotFound, res.ErrorType())
	assert.Empty(t, svc.GetAllSellers(ctx))

	// The row is kept and flagged.
	err = storage.Do(ctx, readTx, func(repos Repositories) error {
		seller, err := repos.Sellers().FindByID(ctx, created.ID)
		require.NoError(t, err)
		assert.True(t, seller.Deleted)
		return nil
	})
	require.NoError(t, err)

	res, err = svc.DeleteSellerByIDSoft(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, ErrorTypeNotFound, res.ErrorType())
}

func TestDeleteSellerByIDSoft_SaveFailure(t *testing.T) {
	uow := newMockUnitOfWork()
	uow.sellers.On("FindNotDeletedByID", mock.Anything, int64(1)).Return(&Seller{ID: 1}, nil)
	uow.sellers.On("Save", mock.Anything, mock.MatchedBy(func(s *Seller) bool { return s.Deleted })).
		Return(nil, errors.New("timeout"))
	svc := NewSellerService(uow, zaptest.NewLogger(t))

	res, err := svc.DeleteSellerByIDSoft(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, SellerGenericError{Msg: "Error deleting seller: timeout"}, res)
	uow.sellers.AssertExpectations(t)
}

func TestDeleteSellerByIDHard_ReachesSoftDeleted(t *testing.T) {
	svc, _ := newLocalSellerService(t)
	ctx := context.Background()
	created := createSeller(t, svc, "Alice")

	_, err := svc.DeleteSellerByIDSoft(ctx, created.ID)
	require.NoError(t, err)

	res, err := svc.DeleteSellerByIDHard(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, SellerSuccess{}, res)

	res, err = svc.DeleteSellerByIDHard(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, ErrorTypeNotFound, res.ErrorType())
}

func TestDeleteSellerByIDHard_DeleteFailure(t *testing.T) {
	svc, storage := newLocalSellerService(t)
	ctx := context.Background()
	created := createSeller(t, svc, "Alice")

	txSvc := NewTransactionService(storage, zaptest.NewLogger(t))
	_, err := txSvc.CreateTransaction(ctx, TransactionCreateRequest{SellerID: created.ID, PaymentType: PaymentTypeCash})
	require.NoError(t, err)

	res, err := svc.DeleteSellerByIDHard(ctx, created.ID)

	require.NoError(t, err)
	assert.Equal(t, ErrorTypeGeneric, res.ErrorType())
	assert.Contains(t, res.Message(), "Error performing hard delete: ")
	assert.Contains(t, res.Message(), ErrConstraintViolation.Error())
}

func TestGetSellerByName(t *testing.T) {
	svc, _ := newLocalSellerService(t)
	ctx := context.Background()
	createSeller(t, svc, "Alice")

	res, err := svc.GetSellerByName(ctx, "Alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice", res.(SellerSuccess).Seller.Name)

	res, err = svc.GetSellerByName(ctx, "Bob")
	require.NoError(t, err)
	assert.Equal(t, SellerNotFoundError{Msg: "Seller not found with name: Bob"}, res)

	res, err = svc.GetSellerByName(ctx, "  ")
	require.NoError(t, err)
	assert.Equal(t, ErrorTypeValidation, res.ErrorType())
}

func TestGetAllSellers(t *testing.T) {
	svc, _ := newLocalSellerService(t)
	ctx := context.Background()

	assert.NotNil(t, svc.GetAllSellers(ctx))

	createSeller(t, svc, "Alice")
	bob := createSeller(t, svc, "Bob")
	createSeller(t, svc, "Carol")
	_, err := svc.DeleteSellerByIDSoft(ctx, bob.ID)
	require.NoError(t, err)

	all := svc.GetAllSellers(ctx)
	require.Len(t, all, 2)
	assert.Equal(t, "Alice", all[0].Name)
	assert.Equal(t, "Carol", all[1].Name)
}

func TestGetAllSellers_FailSoft(t *testing.T) {
	uow := newMockUnitOfWork()
	uow.sellers.On("FindAllNotDeleted", mock.Anything).Return(nil, errors.New("boom"))
	svc := NewSellerService(uow, zaptest.NewLogger(t))

	all := svc.GetAllSellers(context.Background())

	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestSellerService_Cache(t *testing.T) {
	cache := newFakeSellerCache()
	svc, _ := newLocalSellerService(t, WithSellerCache(cache))
	ctx := context.Background()
	created := createSeller(t, svc, "Alice")

	_, err := svc.GetSellerByID(ctx, created.ID)
	require.NoError(t, err)
	cached, ok := cache.Get(ctx, created.ID)
	require.True(t, ok)
	assert.Equal(t, "Alice", cached.Name)

	_, err = svc.UpdateSeller(ctx, created.ID, SellerUpdateRequest{Name: "Alicia", ContactInfo: "a@x.com", Version: ptr(int64(0))})
	require.NoError(t, err)
	cached, ok = cache.Get(ctx, created.ID)
	require.True(t, ok, "update should store the new view")
	assert.Equal(t, "Alicia", cached.Name)
	assert.Equal(t, int64(1), cached.Version)

	_, err = svc.DeleteSellerByIDSoft(ctx, created.ID)
	require.NoError(t, err)
	_, ok = cache.Get(ctx, created.ID)
	assert.False(t, ok)
	assert.Equal(t, []int64{created.ID}, cache.tombstoned)

	res, err := svc.GetSellerByID(ctx, created.ID)
	require.NoError(t, err)
	assert.IsType(t, SellerNotFoundError{}, res)
}

func TestSellerService_CacheHitSkipsStorage(t *testing.T) {
	cache := newFakeSellerCache()
	cache.Store(context.Background(), &SellerView{ID: 5, Name: "Cached"})
	uow := newMockUnitOfWork()
	svc := NewSellerService(uow, zaptest.NewLogger(t), WithSellerCache(cache))

	res, err := svc.GetSellerByID(context.Background(), 5)

	require.NoError(t, err)
	assert.Equal(t, "Cached", res.(SellerSuccess).Seller.Name)
	uow.sellers.AssertNotCalled(t, "FindNotDeletedByID", mock.Anything, mock.Anything)
}

func TestSellerService_ReadRacingWriterKeepsCacheFresh(t *testing.T) {
	tests := []struct {
		name  string
		write func(t *testing.T, svc *SellerService, id int64)
		check func(t *testing.T, res SellerResult)
	}{
		{
			name: "soft delete",
			write: func(t *testing.T, svc *SellerService, id int64) {
				_, err := svc.DeleteSellerByIDSoft(context.Background(), id)
				require.NoError(t, err)
			},
			check: func(t *testing.T, res SellerResult) {
				assert.IsType(t, SellerNotFoundError{}, res)
			},
		},
		{
			name: "hard delete",
			write: func(t *testing.T, svc *SellerService, id int64) {
				_, err := svc.DeleteSellerByIDHard(context.Background(), id)
				require.NoError(t, err)
			},
			check: func(t *testing.T, res SellerResult) {
				assert.IsType(t, SellerNotFoundError{}, res)
			},
		},
		{
			name: "update",
			write: func(t *testing.T, svc *SellerService, id int64) {
				_, err := svc.UpdateSeller(context.Background(), id, SellerUpdateRequest{Name: "Alicia", ContactInfo: "a@x.com", Version: ptr(int64(0))})
				require.NoError(t, err)
			},
			check: func(t *testing.T, res SellerResult) {
				success, ok := res.(SellerSuccess)
				require.True(t, ok, "got %T", res)
				assert.Equal(t, "Alicia", success.Seller.Name)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uow := &interleavedUnitOfWork{UnitOfWork: NewLocalStorage()}
			svc := NewSellerService(uow, zaptest.NewLogger(t), fixedClock(registered), WithSellerCache(newFakeSellerCache()))
			created := createSeller(t, svc, "Alice")
			uow.afterRead = func() { tt.write(t, svc, created.ID) }

			// The first read sees Alice, then the writer commits before the
			// reader fills the cache.
			first, err := svc.GetSellerByID(context.Background(), created.ID)
			require.NoError(t, err)
			assert.Equal(t, "Alice", first.(SellerSuccess).Seller.Name)

			res, err := svc.GetSellerByID(context.Background(), created.ID)
			require.NoError(t, err)
			tt.check(t, res)
		})
	}
}

func TestSellerService_PublishesEvents(t *testing.T) {
	pub := &recordingPublisher{}
	svc, _ := newLocalSellerService(t, WithPublisher(pub))
	ctx := context.Background()

	created := createSeller(t, svc, "Alice")
	_, err := svc.UpdateSeller(ctx, created.ID, SellerUpdateRequest{Name: "Alicia", ContactInfo: "a@x.com", Version: ptr(int64(0))})
	require.NoError(t, err)
	// A stale update publishes nothing.
	_, err = svc.UpdateSeller(ctx, created.ID, SellerUpdateRequest{Name: "Alicia", ContactInfo: "a@x.com", Version: ptr(int64(0))})
	require.NoError(t, err)
	_, err = svc.DeleteSellerByIDSoft(ctx, created.ID)
	require.NoError(t, err)
	_, err = svc.DeleteSellerByIDHard(ctx, created.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{EventSellerCreated, EventSellerUpdated, EventSellerDeleted, EventSellerDeleted}, pub.types())
	assert.Equal(t, SellerStream, pub.events[0].Stream)
	assert.Equal(t, DeletedEvent{ID: created.ID, Hard: true, Kind: "seller"}, pub.events[3].Data)
}

func TestSellerService_PublishFailureKeepsResult(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("redis down")}
	svc, _ := newLocalSellerService(t, WithPublisher(pub))

	view := createSeller(t, svc, "Alice")

	assert.Equal(t, int64(1), view.ID)
	assert.Len(t, pub.events, 1)
}
