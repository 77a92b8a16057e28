package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"simplecrm/internal/sales"
)

const foreignKeyViolation = "23503"

// querier is the subset of *sql.Tx the repositories need.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

// UnitOfWork runs each unit in its own READ COMMITTED transaction.
type UnitOfWork struct {
	db *sql.DB
}

// NewUnitOfWork returns a UnitOfWork that runs each Do in its own transaction on db.
func NewUnitOfWork(db *sql.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

// Do begins a transaction, hands fn repositories bound to it, and commits when
// fn returns nil. Any error or panic rolls the transaction back.
func (u *UnitOfWork) Do(ctx context.Context, opts sales.TxOptions, fn func(repos sales.Repositories) error) error {
	tx, err := u.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
		ReadOnly:  opts.ReadOnly,
	})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&repositories{q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type repositories struct {
	q querier
}

func (r *repositories) Sellers() sales.SellerRepository {
	return &SellerRepository{q: r.q}
}

func (r *repositories) Transactions() sales.TransactionRepository {
	return &TransactionRepository{q: r.q}
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation
}
