package sales

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a seller or transaction with the given ID is not found.
var ErrNotFound = errors.New("entity not found")

// ErrConcurrentUpdate is returned by Save when the stored version no longer
// matches the version the entity was read with.
var ErrConcurrentUpdate = errors.New("concurrent update")

// ErrConstraintViolation is returned when a write would break referential integrity,
// such as removing a seller that transactions still point at.
var ErrConstraintViolation = errors.New("constraint violation")

// ErrReadOnly is returned when a write is attempted inside a read-only unit of work.
var ErrReadOnly = errors.New("write in read-only unit of work")

// SellerRepository is the persistence boundary for sellers.
// Lookups return ErrNotFound when nothing matches.
type SellerRepository interface {
	FindNotDeletedByID(ctx context.Context, id int64) (*Seller, error)
	// FindByID ignores the deleted flag.
	FindByID(ctx context.Context, id int64) (*Seller, error)
	FindAllNotDeleted(ctx context.Context) ([]*Seller, error)
	FindByNameNotDeleted(ctx context.Context, name string) (*Seller, error)
	// FindTopSellersByPeriod ranks sellers by the sum of their transactions in
	// [start, end], highest first. Sellers without transactions in the period are omitted.
	FindTopSellersByPeriod(ctx context.Context, start, end time.Time) ([]*Seller, error)
	// FindSellersWithAmountLessThan returns sellers whose total in [start, end] is
	// strictly below amount. Sellers without transactions count as zero.
	FindSellersWithAmountLessThan(ctx context.Context, amount decimal.Decimal, start, end time.Time) ([]*Seller, error)
	// Save inserts a seller with ID 0 or updates an existing one, returning the
	// stored state with its new version.
	Save(ctx context.Context, seller *Seller) (*Seller, error)
	Delete(ctx context.Context, id int64) error
}

// TransactionRepository is the persistence boundary for transactions.
// Loaded transactions always carry their seller.
type TransactionRepository interface {
	FindNotDeletedByID(ctx context.Context, id int64) (*Transaction, error)
	// ExistsByID ignores the deleted flag.
	ExistsByID(ctx context.Context, id int64) (bool, error)
	FindAllNotDeleted(ctx context.Context) ([]*Transaction, error)
	FindBySellerIDNotDeleted(ctx context.Context, sellerID int64) ([]*Transaction, error)
	FindBySellerIDAndDateRange(ctx context.Context, sellerID int64, start, end time.Time) ([]*Transaction, error)
	FindByDateRange(ctx context.Context, start, end time.Time) ([]*Transaction, error)
	FindFlatBySellerID(ctx context.Context, sellerID int64) ([]*TransactionFlatView, error)
	Save(ctx context.Context, transaction *Transaction) (*Transaction, error)
	DeleteByID(ctx context.Context, id int64) error
}

// Repositories exposes the repositories bound to one unit of work.
type Repositories interface {
	Sellers() SellerRepository
	Transactions() TransactionRepository
}

// TxOptions configures a unit of work.
type TxOptions struct {
	ReadOnly bool
}

var (
	readTx  = TxOptions{ReadOnly: true}
	writeTx = TxOptions{}
)

// UnitOfWork runs fn inside a single storage transaction. The transaction is
// committed when fn returns nil and rolled back otherwise.
type UnitOfWork interface {
	Do(ctx context.Context, opts TxOptions, fn func(repos Repositories) error) error
}
