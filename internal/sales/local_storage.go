package sales

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// LocalStorage provides an in-memory implementation of UnitOfWork.
// Write units of work are serialized and operate on a staged copy that only
// replaces the live state when the unit succeeds.
type LocalStorage struct {
	mu    sync.RWMutex
	state *localState
}

type localState struct {
	sellers           map[int64]Seller
	transactions      map[int64]transactionRecord
	nextSellerID      int64
	nextTransactionID int64
}

// transactionRecord stores the seller by id, like a foreign key column.
type transactionRecord struct {
	ID              int64
	SellerID        int64
	Amount          decimal.Decimal
	PaymentType     PaymentType
	TransactionDate time.Time
	Deleted         bool
	Version         int64
}

// NewLocalStorage instantiates a new LocalStorage with no sellers or transactions.
func NewLocalStorage() *LocalStorage {
	return &LocalStorage{
		state: &localState{
			sellers:      map[int64]Seller{},
			transactions: map[int64]transactionRecord{},
		},
	}
}

// Do runs fn against the in-memory state.
func (l *LocalStorage) Do(ctx context.Context, opts TxOptions, fn func(repos Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if opts.ReadOnly {
		l.mu.RLock()
		defer l.mu.RUnlock()
		return fn(&localRepos{state: l.state, readOnly: true})
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	staged := l.state.clone()
	if err := fn(&localRepos{state: staged}); err != nil {
		return err
	}
	l.state = staged
	return nil
}

func (s *localState) clone() *localState {
	c := &localState{
		sellers:           make(map[int64]Seller, len(s.sellers)),
		transactions:      make(map[int64]transactionRecord, len(s.transactions)),
		nextSellerID:      s.nextSellerID,
		nextTransactionID: s.nextTransactionID,
	}
	for id, seller := range s.sellers {
		c.sellers[id] = seller
	}
	for id, tx := range s.transactions {
		c.transactions[id] = tx
	}
	return c
}

type localRepos struct {
	state    *localState
	readOnly bool
}

func (r *localRepos) Sellers() SellerRepository           { return localSellers{r} }
func (r *localRepos) Transactions() TransactionRepository { return localTransactions{r} }

type localSellers struct{ *localRepos }

func (r localSellers) FindNotDeletedByID(_ context.Context, id int64) (*Seller, error) {
	s, ok := r.state.sellers[id]
	if !ok || s.Deleted {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (r localSellers) FindByID(_ context.Context, id int64) (*Seller, error) {
	s, ok := r.state.sellers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (r localSellers) FindAllNotDeleted(_ context.Context) ([]*Seller, error) {
	return r.activeSellers(), nil
}

func (r localSellers) FindByNameNotDeleted(_ context.Context, name string) (*Seller, error) {
	for _, s := range r.activeSellers() {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, ErrNotFound
}

func (r localSellers) FindTopSellersByPeriod(_ context.Context, start, end time.Time) ([]*Seller, error) {
	totals, counts := r.periodTotals(start, end)

	ranked := make([]*Seller, 0, len(counts))
	for _, s := range r.activeSellers() {
		if counts[s.ID] > 0 {
			ranked = append(ranked, s)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return totals[ranked[i].ID].GreaterThan(totals[ranked[j].ID])
	})
	return ranked, nil
}

func (r localSellers) FindSellersWithAmountLessThan(_ context.Context, amount decimal.Decimal, start, end time.Time) ([]*Seller, error) {
	totals, _ := r.periodTotals(start, end)

	sellers := make([]*Seller, 0)
	for _, s := range r.activeSellers() {
		if totals[s.ID].LessThan(amount) {
			sellers = append(sellers, s)
		}
	}
	return sellers, nil
}

func (r localSellers) Save(_ context.Context, seller *Seller) (*Seller, error) {
	if r.readOnly {
		return nil, ErrReadOnly
	}

	stored := *seller
	if stored.ID == 0 {
		r.state.nextSellerID++
		stored.ID = r.state.nextSellerID
		stored.Version = 0
		r.state.sellers[stored.ID] = stored
		return &stored, nil
	}

	current, ok := r.state.sellers[stored.ID]
	if !ok {
		return nil, ErrNotFound
	}
	if current.Version != stored.Version {
		return nil, fmt.Errorf("%w: seller %d has version %d, write was based on %d",
			ErrConcurrentUpdate, stored.ID, current.Version, stored.Version)
	}
	stored.RegistrationDate = current.RegistrationDate
	stored.Version++
	r.state.sellers[stored.ID] = stored
	return &stored, nil
}

func (r localSellers) Delete(_ context.Context, id int64) error {
	if r.readOnly {
		return ErrReadOnly
	}
	if _, ok := r.state.sellers[id]; !ok {
		return ErrNotFound
	}
	for _, tx := range r.state.transactions {
		if tx.SellerID == id {
			return fmt.Errorf("%w: seller %d is referenced by transaction %d", ErrConstraintViolation, id, tx.ID)
		}
	}
	delete(r.state.sellers, id)
	return nil
}

// activeSellers returns not-deleted sellers ordered by id.
func (r localSellers) activeSellers() []*Seller {
	sellers := make([]*Seller, 0, len(r.state.sellers))
	for _, s := range r.state.sellers {
		if s.Deleted {
			continue
		}
		sellers = append(sellers, &s)
	}
	sort.Slice(sellers, func(i, j int) bool { return sellers[i].ID < sellers[j].ID })
	return sellers
}

// periodTotals sums not-deleted transaction amounts in [start, end] per seller id.
func (r localSellers) periodTotals(start, end time.Time) (map[int64]decimal.Decimal, map[int64]int) {
	totals := map[int64]decimal.Decimal{}
	counts := map[int64]int{}
	for _, tx := range r.state.transactions {
		if tx.Deleted || !inRange(tx.TransactionDate, start, end) {
			continue
		}
		totals[tx.SellerID] = totals[tx.SellerID].Add(tx.Amount)
		counts[tx.SellerID]++
	}
	return totals, counts
}

type localTransactions struct{ *localRepos }

func (r localTransactions) FindNotDeletedByID(_ context.Context, id int64) (*Transaction, error) {
	rec, ok := r.state.transactions[id]
	if !ok || rec.Deleted {
		return nil, ErrNotFound
	}
	return r.hydrate(rec), nil
}

func (r localTransactions) ExistsByID(_ context.Context, id int64) (bool, error) {
	_, ok := r.state.transactions[id]
	return ok, nil
}

func (r localTransactions) FindAllNotDeleted(_ context.Context) ([]*Transaction, error) {
	return r.filter(func(rec transactionRecord) bool { return true }), nil
}

func (r localTransactions) FindBySellerIDNotDeleted(_ context.Context, sellerID int64) ([]*Transaction, error) {
	return r.filter(func(rec transactionRecord) bool { return rec.SellerID == sellerID }), nil
}

func (r localTransactions) FindBySellerIDAndDateRange(_ context.Context, sellerID int64, start, end time.Time) ([]*Transaction, error) {
	return r.filter(func(rec transactionRecord) bool {
		return rec.SellerID == sellerID && inRange(rec.TransactionDate, start, end)
	}), nil
}

func (r localTransactions) FindByDateRange(_ context.Context, start, end time.Time) ([]*Transaction, error) {
	return r.filter(func(rec transactionRecord) bool { return inRange(rec.TransactionDate, start, end) }), nil
}

func (r localTransactions) FindFlatBySellerID(ctx context.Context, sellerID int64) ([]*TransactionFlatView, error) {
	transactions, err := r.FindBySellerIDNotDeleted(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	flat := make([]*TransactionFlatView, 0, len(transactions))
	for _, t := range transactions {
		flat = append(flat, ToTransactionFlatView(t))
	}
	return flat, nil
}

func (r localTransactions) Save(_ context.Context, transaction *Transaction) (*Transaction, error) {
	if r.readOnly {
		return nil, ErrReadOnly
	}

	sellerID := transaction.SellerID()
	if _, ok := r.state.sellers[sellerID]; !ok {
		return nil, fmt.Errorf("%w: seller %d does not exist", ErrConstraintViolation, sellerID)
	}

	rec := transactionRecord{
		ID:              transaction.ID,
		SellerID:        sellerID,
		Amount:          transaction.Amount,
		PaymentType:     transaction.PaymentType,
		TransactionDate: transaction.TransactionDate,
		Deleted:         transaction.Deleted,
		Version:         transaction.Version,
	}

	if rec.ID == 0 {
		r.state.nextTransactionID++
		rec.ID = r.state.nextTransactionID
		rec.Version = 0
		r.state.transactions[rec.ID] = rec
		return r.hydrate(rec), nil
	}

	current, ok := r.state.transactions[rec.ID]
	if !ok {
		return nil, ErrNotFound
	}
	if current.Version != rec.Version {
		return nil, fmt.Errorf("%w: transaction %d has version %d, write was based on %d",
			ErrConcurrentUpdate, rec.ID, current.Version, rec.Version)
	}
	rec.Version++
	r.state.transactions[rec.ID] = rec
	return r.hydrate(rec), nil
}

func (r localTransactions) DeleteByID(_ context.Context, id int64) error {
	if r.readOnly {
		return ErrReadOnly
	}
	if _, ok := r.state.transactions[id]; !ok {
		return ErrNotFound
	}
	delete(r.state.transactions, id)
	return nil
}

func (r localTransactions) hydrate(rec transactionRecord) *Transaction {
	t := &Transaction{
		ID:              rec.ID,
		Amount:          rec.Amount,
		PaymentType:     rec.PaymentType,
		TransactionDate: rec.TransactionDate,
		Deleted:         rec.Deleted,
		Version:         rec.Version,
	}
	if s, ok := r.state.sellers[rec.SellerID]; ok {
		t.Seller = &s
	}
	return t
}

// filter returns not-deleted transactions matching keep, ordered by date then id.
func (r localTransactions) filter(keep func(rec transactionRecord) bool) []*Transaction {
	matched := make([]transactionRecord, 0)
	for _, rec := range r.state.transactions {
		if !rec.Deleted && keep(rec) {
			matched = append(matched, rec)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].TransactionDate.Equal(matched[j].TransactionDate) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].TransactionDate.Before(matched[j].TransactionDate)
	})

	transactions := make([]*Transaction, 0, len(matched))
	for _, rec := range matched {
		transactions = append(transactions, r.hydrate(rec))
	}
	return transactions
}

// inRange reports whether t lies in the closed interval [start, end].
func inRange(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}
