package sales

import (
	"time"

	"github.com/shopspring/decimal"
)

// SellerView is the externally visible shape of a seller.
type SellerView struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	ContactInfo      string    `json:"contactInfo"`
	RegistrationDate time.Time `json:"registrationDate"`
	Version          int64     `json:"version"`
}

// TransactionView is the externally visible shape of a transaction.
type TransactionView struct {
	ID              int64           `json:"id"`
	Seller          *SellerView     `json:"seller,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentType     PaymentType     `json:"paymentType"`
	TransactionDate time.Time       `json:"transactionDate"`
	Version         int64           `json:"version"`
}

// FlatSellerView is the seller summary embedded in a TransactionFlatView.
type FlatSellerView struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	ContactInfo      string    `json:"contactInfo"`
	RegistrationDate time.Time `json:"registrationDate"`
	Version          int64     `json:"version"`
}

// TransactionFlatView joins a transaction with its seller in a single row.
type TransactionFlatView struct {
	ID              int64           `json:"id"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentType     PaymentType     `json:"paymentType"`
	TransactionDate time.Time       `json:"transactionDate"`
	Version         int64           `json:"version"`
	Seller          FlatSellerView  `json:"seller"`
}

// BestPeriod describes the busiest run of transactions found for a seller.
// The zero value means no period was found.
type BestPeriod struct {
	StartDate        *time.Time `json:"startDate"`
	EndDate          *time.Time `json:"endDate"`
	TransactionCount int        `json:"transactionCount"`
}

// SellerCreateRequest carries the fields needed to register a seller.
type SellerCreateRequest struct {
	Name        string
	ContactInfo string
}

// SellerUpdateRequest carries the new seller fields and the version the caller last saw.
type SellerUpdateRequest struct {
	Name        string
	ContactInfo string
	Version     *int64
}

// TransactionCreateRequest carries the fields needed to record a transaction.
// A nil TransactionDate means "now".
type TransactionCreateRequest struct {
	SellerID        int64
	Amount          decimal.Decimal
	PaymentType     PaymentType
	TransactionDate *time.Time
}

// TransactionUpdateRequest carries the new transaction fields. A nil SellerID keeps
// the current seller.
type TransactionUpdateRequest struct {
	SellerID        *int64
	Amount          decimal.Decimal
	PaymentType     PaymentType
	TransactionDate time.Time
	Version         *int64
}
