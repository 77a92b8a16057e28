package sales

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// mockUnitOfWork runs every unit of work directly against the mocked repositories.
type mockUnitOfWork struct {
	sellers      *mockSellerRepository
	transactions *mockTransactionRepository
	err          error
}

func newMockUnitOfWork() *mockUnitOfWork {
	return &mockUnitOfWork{
		sellers:      &mockSellerRepository{},
		transactions: &mockTransactionRepository{},
	}
}

func (u *mockUnitOfWork) Do(_ context.Context, _ TxOptions, fn func(repos Repositories) error) error {
	if u.err != nil {
		return u.err
	}
	return fn(u)
}

func (u *mockUnitOfWork) Sellers() SellerRepository           { return u.sellers }
func (u *mockUnitOfWork) Transactions() TransactionRepository { return u.transactions }

type mockSellerRepository struct {
	mock.Mock
}

func (m *mockSellerRepository) FindNotDeletedByID(ctx context.Context, id int64) (*Seller, error) {
	args := m.Called(ctx, id)
	s, _ := args.Get(0).(*Seller)
	return s, args.Error(1)
}

func (m *mockSellerRepository) FindByID(ctx context.Context, id int64) (*Seller, error) {
	args := m.Called(ctx, id)
	s, _ := args.Get(0).(*Seller)
	return s, args.Error(1)
}

func (m *mockSellerRepository) FindAllNotDeleted(ctx context.Context) ([]*Seller, error) {
	args := m.Called(ctx)
	s, _ := args.Get(0).([]*Seller)
	return s, args.Error(1)
}

func (m *mockSellerRepository) FindByNameNotDeleted(ctx context.Context, name string) (*Seller, error) {
	args := m.Called(ctx, name)
	s, _ := args.Get(0).(*Seller)
	return s, args.Error(1)
}

func (m *mockSellerRepository) FindTopSellersByPeriod(ctx context.Context, start, end time.Time) ([]*Seller, error) {
	args := m.Called(ctx, start, end)
	s, _ := args.Get(0).([]*Seller)
	return s, args.Error(1)
}

func (m *mockSellerRepository) FindSellersWithAmountLessThan(ctx context.Context, amount decimal.Decimal, start, end time.Time) ([]*Seller, error) {
	args := m.Called(ctx, amount, start, end)
	s, _ := args.Get(0).([]*Seller)
	return s, args.Error(1)
}

func (m *mockSellerRepository) Save(ctx context.Context, seller *Seller) (*Seller, error) {
	args := m.Called(ctx, seller)
	s, _ := args.Get(0).(*Seller)
	return s, args.Error(1)
}

func (m *mockSellerRepository) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type mockTransactionRepository struct {
	mock.Mock
}

func (m *mockTransactionRepository) FindNotDeletedByID(ctx context.Context, id int64) (*Transaction, error) {
	args := m.Called(ctx, id)
	t, _ := args.Get(0).(*Transaction)
	return t, args.Error(1)
}

func (m *mockTransactionRepository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *mockTransactionRepository) FindAllNotDeleted(ctx context.Context) ([]*Transaction, error) {
	args := m.Called(ctx)
	t, _ := args.Get(0).([]*Transaction)
	return t, args.Error(1)
}

func (m *mockTransactionRepository) FindBySellerIDNotDeleted(ctx context.Context, sellerID int64) ([]*Transaction, error) {
	args := m.Called(ctx, sellerID)
	t, _ := args.Get(0).([]*Transaction)
	return t, args.Error(1)
}

func (m *mockTransactionRepository) FindBySellerIDAndDateRange(ctx context.Context, sellerID int64, start, end time.Time) ([]*Transaction, error) {
	args := m.Called(ctx, sellerID, start, end)
	t, _ := args.Get(0).([]*Transaction)
	return t, args.Error(1)
}

func (m *mockTransactionRepository) FindByDateRange(ctx context.Context, start, end time.Time) ([]*Transaction, error) {
	args := m.Called(ctx, start, end)
	t, _ := args.Get(0).([]*Transaction)
	return t, args.Error(1)
}

func (m *mockTransactionRepository) FindFlatBySellerID(ctx context.Context, sellerID int64) ([]*TransactionFlatView, error) {
	args := m.Called(ctx, sellerID)
	t, _ := args.Get(0).([]*TransactionFlatView)
	return t, args.Error(1)
}

func (m *mockTransactionRepository) Save(ctx context.Context, transaction *Transaction) (*Transaction, error) {
	args := m.Called(ctx, transaction)
	t, _ := args.Get(0).(*Transaction)
	return t, args.Error(1)
}

func (m *mockTransactionRepository) DeleteByID(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

// fakeSellerCache is an in-memory SellerCache with the same version ordering
// as the Redis one. A nil view is a tombstone.
type fakeSellerCache struct {
	mu         sync.Mutex
	entries    map[int64]cacheEntry
	tombstoned []int64
}

type cacheEntry struct {
	version int64
	view    *SellerView
}

func newFakeSellerCache() *fakeSellerCache {
	return &fakeSellerCache{entries: map[int64]cacheEntry{}}
}

func (c *fakeSellerCache) Get(_ context.Context, id int64) (*SellerView, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok || e.view == nil {
		return nil, false
	}
	return e.view, true
}

func (c *fakeSellerCache) Store(_ context.Context, view *SellerView) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(view.ID, cacheEntry{version: view.Version, view: view})
}

func (c *fakeSellerCache) Tombstone(_ context.Context, id, version int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(id, cacheEntry{version: version})
	c.tombstoned = append(c.tombstoned, id)
}

func (c *fakeSellerCache) put(id int64, e cacheEntry) {
	if cur, ok := c.entries[id]; ok && cur.version >= e.version {
		return
	}
	c.entries[id] = e
}

// interleavedUnitOfWork runs afterRead once, right after the first read-only
// unit of work returns, to model a writer committing between a read and
// whatever the reader does next.
type interleavedUnitOfWork struct {
	UnitOfWork
	once      sync.Once
	afterRead func()
}

func (u *interleavedUnitOfWork) Do(ctx context.Context, opts TxOptions, fn func(repos Repositories) error) error {
	err := u.UnitOfWork.Do(ctx, opts, fn)
	if opts.ReadOnly && u.afterRead != nil {
		u.once.Do(u.afterRead)
	}
	return err
}

type publishedEvent struct {
	Stream string
	Type   string
	Data   any
}

// recordingPublisher keeps every published event and optionally fails.
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, stream, eventType string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Stream: stream, Type: eventType, Data: data})
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.Type)
	}
	return types
}

func fixedClock(t time.Time) Option {
	return WithClock(func() time.Time { return t })
}

func ptr[T any](v T) *T {
	return &v
}

func day(d int) time.Time {
	return time.Date(2024, time.March, d, 10, 0, 0, 0, time.UTC)
}
