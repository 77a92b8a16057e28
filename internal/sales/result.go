package sales

// ErrorType classifies a failed result so callers can map it without
// inspecting the concrete variant.
type ErrorType string

const (
	ErrorTypeNone           ErrorType = ""
	ErrorTypeValidation     ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound       ErrorType = "NOT_FOUND"
	ErrorTypeSellerNotFound ErrorType = "SELLER_NOT_FOUND"
	ErrorTypeGeneric        ErrorType = "GENERIC_ERROR"
)

// SellerResult is the outcome of a seller operation. The set of variants is
// closed: SellerSuccess, SellerValidationError, SellerNotFoundError and
// SellerGenericError.
type SellerResult interface {
	Message() string
	ErrorType() ErrorType
	sellerResult()
}

// SellerSuccess carries the mapped seller. Seller is nil for hard deletes.
type SellerSuccess struct {
	Seller *SellerView
}

type SellerValidationError struct{ Msg string }

type SellerNotFoundError struct{ Msg string }

type SellerGenericError struct{ Msg string }

func (SellerSuccess) Message() string      { return "" }
func (SellerSuccess) ErrorType() ErrorType { return ErrorTypeNone }
func (SellerSuccess) sellerResult()        {}

func (r SellerValidationError) Message() string { return r.Msg }
func (SellerValidationError) ErrorType() ErrorType {
	return ErrorTypeValidation
}
func (SellerValidationError) sellerResult() {}

func (r SellerNotFoundError) Message() string { return r.Msg }
func (SellerNotFoundError) ErrorType() ErrorType {
	return ErrorTypeNotFound
}
func (SellerNotFoundError) sellerResult() {}

func (r SellerGenericError) Message() string { return r.Msg }
func (SellerGenericError) ErrorType() ErrorType {
	return ErrorTypeGeneric
}
func (SellerGenericError) sellerResult() {}

// TransactionResult is the outcome of a transaction operation. Variants:
// TransactionSuccess, TransactionValidationError, TransactionNotFoundError,
// TransactionSellerNotFoundError and TransactionGenericError.
type TransactionResult interface {
	Message() string
	ErrorType() ErrorType
	transactionResult()
}

// TransactionSuccess carries the mapped transaction. Transaction is nil for hard deletes.
type TransactionSuccess struct {
	Transaction *TransactionView
}

type TransactionValidationError struct{ Msg string }

type TransactionNotFoundError struct{ Msg string }

// TransactionSellerNotFoundError reports that the referenced seller is missing or deleted.
type TransactionSellerNotFoundError struct{ Msg string }

type TransactionGenericError struct{ Msg string }

func (TransactionSuccess) Message() string      { return "" }
func (TransactionSuccess) ErrorType() ErrorType { return ErrorTypeNone }
func (TransactionSuccess) transactionResult()   {}

func (r TransactionValidationError) Message() string { return r.Msg }
func (TransactionValidationError) ErrorType() ErrorType {
	return ErrorTypeValidation
}
func (TransactionValidationError) transactionResult() {}

func (r TransactionNotFoundError) Message() string { return r.Msg }
func (TransactionNotFoundError) ErrorType() ErrorType {
	return ErrorTypeNotFound
}
func (TransactionNotFoundError) transactionResult() {}

func (r TransactionSellerNotFoundError) Message() string { return r.Msg }
func (TransactionSellerNotFoundError) ErrorType() ErrorType {
	return ErrorTypeSellerNotFound
}
func (TransactionSellerNotFoundError) transactionResult() {}

func (r TransactionGenericError) Message() string { return r.Msg }
func (TransactionGenericError) ErrorType() ErrorType {
	return ErrorTypeGeneric
}
func (TransactionGenericError) transactionResult() {}
