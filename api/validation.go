package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"simplecrm/internal/sales"
)

var validate = newValidator()

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

// messages holds the user-facing text per "<Struct>.<Field>.<tag>".
var messages = map[string]string{
	"sellerCreateRequest.Name.notblank":                 "Name cannot be blank",
	"sellerCreateRequest.ContactInfo.notblank":          "Contact info cannot be blank",
	"sellerUpdateRequest.Name.notblank":                 "Name cannot be blank for update",
	"sellerUpdateRequest.ContactInfo.notblank":          "Contact info cannot be blank for update",
	"sellerUpdateRequest.Version.required":              "Version cannot be null for update",
	"transactionCreateRequest.SellerID.required":        "Seller ID cannot be null",
	"transactionCreateRequest.Amount.required":          "Amount cannot be null",
	"transactionCreateRequest.Amount.gte":               "Amount cannot be negative",
	"transactionCreateRequest.PaymentType.required":     "Payment type cannot be null",
	"transactionUpdateRequest.Amount.required":          "Amount cannot be null for update",
	"transactionUpdateRequest.Amount.gte":               "Amount cannot be negative",
	"transactionUpdateRequest.PaymentType.required":     "Payment type cannot be null for update",
	"transactionUpdateRequest.TransactionDate.required": "Transaction date cannot be null for update",
	"transactionUpdateRequest.Version.required":         "Version cannot be null for update",
}

// timestamp decodes RFC 3339 or zone-less local timestamps from JSON strings.
type timestamp struct {
	time.Time
}

func (t *timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := parseTime(s)
	if err != nil {
		return fmt.Errorf("invalid timestamp '%s'", s)
	}
	t.Time = parsed
	return nil
}

// ptr returns nil for a nil timestamp and the wrapped time otherwise.
func (t *timestamp) ptr() *time.Time {
	if t == nil {
		return nil
	}
	return &t.Time
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		d, ok := field.Interface().(decimal.Decimal)
		if !ok {
			return nil
		}
		f, _ := d.Float64()
		return f
	}, decimal.Decimal{})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("paymenttype", func(fl validator.FieldLevel) bool {
		_, err := sales.ParsePaymentType(fl.Field().String())
		return err == nil
	})
	return v
}

// validateRequest returns one fieldError per failed rule, or nil.
func validateRequest(obj any) []fieldError {
	err := validate.Struct(obj)
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return []fieldError{{Message: err.Error(), Type: "invalid"}}
	}

	out := make([]fieldError, 0, len(errs))
	for _, fe := range errs {
		out = append(out, fieldError{
			Field:   fe.Field(),
			Message: errorMessage(fe),
			Type:    fe.Tag(),
		})
	}
	return out
}

func errorMessage(fe validator.FieldError) string {
	if msg, ok := messages[fe.StructNamespace()+"."+fe.Tag()]; ok {
		return msg
	}
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "notblank":
		return "This field cannot be blank"
	case "paymenttype":
		return fmt.Sprintf("Payment type must be one of %s, %s, %s", sales.PaymentTypeCash, sales.PaymentTypeCard, sales.PaymentTypeTransfer)
	case "gte":
		return "Value must be greater than or equal to " + fe.Param()
	default:
		return "Invalid value"
	}
}

// bindAndValidate decodes the JSON body into req and validates it, writing a
// 400 and returning false on failure.
func bindAndValidate(ctx *gin.Context, logger *zap.Logger, req any) bool {
	if err := ctx.ShouldBindJSON(req); err != nil {
		logger.Warn("failed to bind JSON request", zap.Error(err))
		respondBadRequest(ctx, "Invalid request payload: "+err.Error())
		return false
	}

	if details := validateRequest(req); len(details) > 0 {
		logger.Warn("request validation failed", zap.Any("details", details))
		ctx.JSON(http.StatusBadRequest, errorResponse{
			Message:   details[0].Message,
			ErrorType: sales.ErrorTypeValidation,
			Details:   details,
		})
		return false
	}
	return true
}
