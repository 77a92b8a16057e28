package sales

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidPaymentType is returned when a payment type is not one of the known values.
var ErrInvalidPaymentType = errors.New("invalid payment type")

// PaymentType is the closed set of ways a transaction can be paid.
type PaymentType string

const (
	PaymentTypeCash     PaymentType = "CASH"
	PaymentTypeCard     PaymentType = "CARD"
	PaymentTypeTransfer PaymentType = "TRANSFER"
)

// PaymentTypes lists every valid payment type in declaration order.
var PaymentTypes = []PaymentType{PaymentTypeCash, PaymentTypeCard, PaymentTypeTransfer}

// ParsePaymentType converts s into a PaymentType. Matching is case-insensitive.
func ParsePaymentType(s string) (PaymentType, error) {
	switch PaymentType(strings.ToUpper(strings.TrimSpace(s))) {
	case PaymentTypeCash:
		return PaymentTypeCash, nil
	case PaymentTypeCard:
		return PaymentTypeCard, nil
	case PaymentTypeTransfer:
		return PaymentTypeTransfer, nil
	default:
		return "", fmt.Errorf("%w: '%s'", ErrInvalidPaymentType, s)
	}
}

// Seller is a registered seller as persisted by the storage layer.
type Seller struct {
	ID               int64
	Name             string
	ContactInfo      string
	RegistrationDate time.Time
	Deleted          bool
	// Version is assigned by storage and advances on every successful write.
	Version int64
}

// Transaction is a sale recorded against exactly one seller.
type Transaction struct {
	ID              int64
	Seller          *Seller
	Amount          decimal.Decimal
	PaymentType     PaymentType
	TransactionDate time.Time
	Deleted         bool
	Version         int64
}

// SellerID returns the id of the owning seller, or 0 when none is attached.
func (t *Transaction) SellerID() int64 {
	if t.Seller == nil {
		return 0
	}
	return t.Seller.ID
}
