package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"simplecrm/internal/sales"
)

const sellerColumns = `s.id, s.name, s.contact_info, s.registration_date, s.deleted, s.version`

// SellerRepository reads and writes the sellers table inside a transaction.
type SellerRepository struct {
	q querier
}

// FindNotDeletedByID returns sales.ErrNotFound for missing or soft-deleted sellers.
func (r *SellerRepository) FindNotDeletedByID(ctx context.Context, id int64) (*sales.Seller, error) {
	query := `SELECT ` + sellerColumns + ` FROM sellers s WHERE s.id = $1 AND s.deleted = FALSE`
	return r.findOne(ctx, query, id)
}

// FindByID returns the seller with id, including soft-deleted ones.
func (r *SellerRepository) FindByID(ctx context.Context, id int64) (*sales.Seller, error) {
	query := `SELECT ` + sellerColumns + ` FROM sellers s WHERE s.id = $1`
	return r.findOne(ctx, query, id)
}

// FindAllNotDeleted returns every seller that is not soft-deleted, ordered by id.
func (r *SellerRepository) FindAllNotDeleted(ctx context.Context) ([]*sales.Seller, error) {
	query := `SELECT ` + sellerColumns + ` FROM sellers s WHERE s.deleted = FALSE ORDER BY s.id`
	return r.findMany(ctx, query)
}

// FindByNameNotDeleted returns the not-deleted seller whose name matches exactly.
func (r *SellerRepository) FindByNameNotDeleted(ctx context.Context, name string) (*sales.Seller, error) {
	query := `SELECT ` + sellerColumns + ` FROM sellers s WHERE s.name = $1 AND s.deleted = FALSE ORDER BY s.id LIMIT 1`
	return r.findOne(ctx, query, name)
}

// FindTopSellersByPeriod ranks sellers by their transaction total in [start, end], highest first.
func (r *SellerRepository) FindTopSellersByPeriod(ctx context.Context, start, end time.Time) ([]*sales.Seller, error) {
	query := `
		SELECT ` + sellerColumns + `
		FROM sellers s
		JOIN transactions t ON t.seller_id = s.id
		WHERE s.deleted = FALSE AND t.deleted = FALSE
			AND t.transaction_date >= $1 AND t.transaction_date <= $2
		GROUP BY s.id
		ORDER BY SUM(t.amount) DESC, s.id
	`
	return r.findMany(ctx, query, start, end)
}

// FindSellersWithAmountLessThan returns sellers whose total in [start, end] is below amount.
// Sellers without transactions in the period count as zero.
func (r *SellerRepository) FindSellersWithAmountLessThan(ctx context.Context, amount decimal.Decimal, start, end time.Time) ([]*sales.Seller, error) {
	query := `
		SELECT ` + sellerColumns + `
		FROM sellers s
		LEFT JOIN transactions t ON t.seller_id = s.id
			AND t.transaction_date >= $2 AND t.transaction_date <= $3
			AND t.deleted = FALSE
		WHERE s.deleted = FALSE
		GROUP BY s.id
		HAVING COALESCE(SUM(t.amount), 0) < $1
		ORDER BY s.id
	`
	return r.findMany(ctx, query, amount, start, end)
}

// Save inserts sellers with ID 0 and otherwise updates the row whose version
// still matches seller.Version.
func (r *SellerRepository) Save(ctx context.Context, seller *sales.Seller) (*sales.Seller, error) {
	saved := *seller

	if saved.ID == 0 {
		query := `
			INSERT INTO sellers (name, contact_info, registration_date, deleted, version)
			VALUES ($1, $2, $3, $4, 0)
			RETURNING id, version
		`
		err := r.q.QueryRowContext(ctx, query,
			saved.Name, nullString(saved.ContactInfo), saved.RegistrationDate, saved.Deleted,
		).Scan(&saved.ID, &saved.Version)
		if err != nil {
			return nil, fmt.Errorf("failed to insert seller: %w", err)
		}
		return &saved, nil
	}

	query := `
		UPDATE sellers
		SET name = $2, contact_info = $3, deleted = $4, version = version + 1
		WHERE id = $1 AND version = $5
		RETURNING registration_date, version
	`
	err := r.q.QueryRowContext(ctx, query,
		saved.ID, saved.Name, nullString(saved.ContactInfo), saved.Deleted, saved.Version,
	).Scan(&saved.RegistrationDate, &saved.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, versionConflict(ctx, r.q, "sellers", saved.ID, saved.Version)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update seller: %w", err)
	}
	return &saved, nil
}

// Delete removes the seller row. It fails with sales.ErrConstraintViolation while
// transactions still reference it.
func (r *SellerRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM sellers WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: seller %d is referenced by transactions", sales.ErrConstraintViolation, id)
		}
		return fmt.Errorf("failed to delete seller: %w", err)
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

func (r *SellerRepository) findOne(ctx context.Context, query string, args ...any) (*sales.Seller, error) {
	seller, err := scanSeller(r.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sales.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get seller: %w", err)
	}
	return seller, nil
}

func (r *SellerRepository) findMany(ctx context.Context, query string, args ...any) ([]*sales.Seller, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sellers: %w", err)
	}
	defer rows.Close()

	sellers := make([]*sales.Seller, 0)
	for rows.Next() {
		seller, err := scanSeller(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan seller: %w", err)
		}
		sellers = append(sellers, seller)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sellers: %w", err)
	}
	return sellers, nil
}

func scanSeller(row scanner) (*sales.Seller, error) {
	var s sales.Seller
	var contact sql.NullString
	if err := row.Scan(&s.ID, &s.Name, &contact, &s.RegistrationDate, &s.Deleted, &s.Version); err != nil {
		return nil, err
	}
	s.ContactInfo = contact.String
	return &s, nil
}

// versionConflict explains why a versioned UPDATE matched no row.
func versionConflict(ctx context.Context, q querier, table string, id, version int64) error {
	var current int64
	err := q.QueryRowContext(ctx, `SELECT version FROM `+table+` WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return sales.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read current version: %w", err)
	}
	return fmt.Errorf("%w: %s %d has version %d, write was based on %d",
		sales.ErrConcurrentUpdate, table, id, current, version)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
