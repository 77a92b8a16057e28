package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"simplecrm/internal/sales"
)

const transactionSelect = `
	SELECT t.id, t.amount, t.payment_type, t.transaction_date, t.deleted, t.version,
		` + sellerColumns + `
	FROM transactions t
	JOIN sellers s ON s.id = t.seller_id
`

const byDate = ` ORDER BY t.transaction_date ASC, t.id ASC`

// TransactionRepository reads and writes the transactions table inside a transaction.
// Every loaded transaction carries its seller.
type TransactionRepository struct {
	q querier
}

// FindNotDeletedByID returns sales.ErrNotFound for missing or soft-deleted transactions.
func (r *TransactionRepository) FindNotDeletedByID(ctx context.Context, id int64) (*sales.Transaction, error) {
	query := transactionSelect + `WHERE t.id = $1 AND t.deleted = FALSE`
	transaction, err := scanTransaction(r.q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sales.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return transaction, nil
}

// ExistsByID reports whether a row with id exists, soft-deleted or not.
func (r *TransactionRepository) ExistsByID(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM transactions WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check transaction: %w", err)
	}
	return exists, nil
}

// FindAllNotDeleted returns every transaction that is not soft-deleted.
func (r *TransactionRepository) FindAllNotDeleted(ctx context.Context) ([]*sales.Transaction, error) {
	return r.findMany(ctx, transactionSelect+`WHERE t.deleted = FALSE`+byDate)
}

// FindBySellerIDNotDeleted returns the not-deleted transactions of one seller.
func (r *TransactionRepository) FindBySellerIDNotDeleted(ctx context.Context, sellerID int64) ([]*sales.Transaction, error) {
	return r.findMany(ctx, transactionSelect+`WHERE t.seller_id = $1 AND t.deleted = FALSE`+byDate, sellerID)
}

// FindBySellerIDAndDateRange returns a seller's not-deleted transactions dated in [start, end].
func (r *TransactionRepository) FindBySellerIDAndDateRange(ctx context.Context, sellerID int64, start, end time.Time) ([]*sales.Transaction, error) {
	query := transactionSelect +
		`WHERE t.seller_id = $1 AND t.deleted = FALSE AND t.transaction_date >= $2 AND t.transaction_date <= $3` + byDate
	return r.findMany(ctx, query, sellerID, start, end)
}

// FindByDateRange returns not-deleted transactions dated in [start, end].
func (r *TransactionRepository) FindByDateRange(ctx context.Context, start, end time.Time) ([]*sales.Transaction, error) {
	query := transactionSelect +
		`WHERE t.deleted = FALSE AND t.transaction_date >= $1 AND t.transaction_date <= $2` + byDate
	return r.findMany(ctx, query, start, end)
}

// FindFlatBySellerID is FindBySellerIDNotDeleted projected to flat views.
func (r *TransactionRepository) FindFlatBySellerID(ctx context.Context, sellerID int64) ([]*sales.TransactionFlatView, error) {
	transactions, err := r.FindBySellerIDNotDeleted(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	flat := make([]*sales.TransactionFlatView, 0, len(transactions))
	for _, t := range transactions {
		flat = append(flat, sales.ToTransactionFlatView(t))
	}
	return flat, nil
}

// Save inserts transactions with ID 0 and otherwise updates the row whose version
// still matches transaction.Version.
func (r *TransactionRepository) Save(ctx context.Context, transaction *sales.Transaction) (*sales.Transaction, error) {
	saved := *transaction

	if saved.ID == 0 {
		query := `
			INSERT INTO transactions (seller_id, amount, payment_type, transaction_date, deleted, version)
			VALUES ($1, $2, $3, $4, $5, 0)
			RETURNING id, version
		`
		err := r.q.QueryRowContext(ctx, query,
			saved.SellerID(), saved.Amount, string(saved.PaymentType), saved.TransactionDate, saved.Deleted,
		).Scan(&saved.ID, &saved.Version)
		if err != nil {
			if isForeignKeyViolation(err) {
				return nil, fmt.Errorf("%w: seller %d does not exist", sales.ErrConstraintViolation, saved.SellerID())
			}
			return nil, fmt.Errorf("failed to insert transaction: %w", err)
		}
		return &saved, nil
	}

	query := `
		UPDATE transactions
		SET seller_id = $2, amount = $3, payment_type = $4, transaction_date = $5, deleted = $6,
			version = version + 1
		WHERE id = $1 AND version = $7
		RETURNING version
	`
	err := r.q.QueryRowContext(ctx, query,
		saved.ID, saved.SellerID(), saved.Amount, string(saved.PaymentType), saved.TransactionDate, saved.Deleted, saved.Version,
	).Scan(&saved.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, versionConflict(ctx, r.q, "transactions", saved.ID, saved.Version)
	}
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("%w: seller %d does not exist", sales.ErrConstraintViolation, saved.SellerID())
		}
		return nil, fmt.Errorf("failed to update transaction: %w", err)
	}
	return &saved, nil
}

// DeleteByID removes the transaction row, returning sales.ErrNotFound when none matched.
func (r *TransactionRepository) DeleteByID(ctx context.Context, id int64) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return sales.ErrNotFound
	}
	return nil
}

func (r *TransactionRepository) findMany(ctx context.Context, query string, args ...any) ([]*sales.Transaction, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	transactions := make([]*sales.Transaction, 0)
	for rows.Next() {
		transaction, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, transaction)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return transactions, nil
}

func scanTransaction(row scanner) (*sales.Transaction, error) {
	var t sales.Transaction
	var s sales.Seller
	var paymentType string
	var contact sql.NullString

	err := row.Scan(
		&t.ID, &t.Amount, &paymentType, &t.TransactionDate, &t.Deleted, &t.Version,
		&s.ID, &s.Name, &contact, &s.RegistrationDate, &s.Deleted, &s.Version,
	)
	if err != nil {
		return nil, err
	}

	pt, err := sales.ParsePaymentType(paymentType)
	if err != nil {
		return nil, err
	}
	t.PaymentType = pt
	s.ContactInfo = contact.String
	t.Seller = &s
	return &t, nil
}
