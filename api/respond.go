package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"simplecrm/internal/sales"
)

// localDateTime is the zone-less ISO layout accepted next to RFC 3339.
const localDateTime = "2006-01-02T15:04:05"

type errorResponse struct {
	Message   string          `json:"message"`
	ErrorType sales.ErrorType `json:"errorType"`
	Details   []fieldError    `json:"details,omitempty"`
}

// statusFor maps a result classification to an HTTP status. success is used
// for results that carry no error.
func statusFor(t sales.ErrorType, success int) int {
	switch t {
	case sales.ErrorTypeNone:
		return success
	case sales.ErrorTypeNotFound:
		return http.StatusNotFound
	case sales.ErrorTypeValidation, sales.ErrorTypeSellerNotFound:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondSeller(ctx *gin.Context, success int, result sales.SellerResult) {
	if s, ok := result.(sales.SellerSuccess); ok {
		respondView(ctx, success, s.Seller)
		return
	}
	respondError(ctx, statusFor(result.ErrorType(), success), result.ErrorType(), result.Message())
}

func respondTransaction(ctx *gin.Context, success int, result sales.TransactionResult) {
	if s, ok := result.(sales.TransactionSuccess); ok {
		respondView(ctx, success, s.Transaction)
		return
	}
	respondError(ctx, statusFor(result.ErrorType(), success), result.ErrorType(), result.Message())
}

// respondView writes view with the given status. 204 and nil views produce an empty body.
func respondView[T any](ctx *gin.Context, status int, view *T) {
	if status == http.StatusNoContent || view == nil {
		ctx.Status(status)
		return
	}
	ctx.JSON(status, view)
}

func respondError(ctx *gin.Context, status int, t sales.ErrorType, message string) {
	ctx.JSON(status, errorResponse{Message: message, ErrorType: t})
}

// respondFatal reports an error returned by a service instead of a result.
func respondFatal(ctx *gin.Context, err error) {
	respondError(ctx, http.StatusInternalServerError, sales.ErrorTypeGeneric, "Error: "+err.Error())
}

func respondBadRequest(ctx *gin.Context, message string) {
	respondError(ctx, http.StatusBadRequest, sales.ErrorTypeValidation, message)
}

// pathID parses the named path parameter as an id, writing a 400 when it is not a number.
func pathID(ctx *gin.Context, name string) (int64, bool) {
	raw := ctx.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		respondBadRequest(ctx, fmt.Sprintf("Invalid %s: '%s'", name, raw))
		return 0, false
	}
	return id, true
}

// parsePaymentType converts a bound payment type, writing a 400 when it is unknown.
func parsePaymentType(ctx *gin.Context, raw string) (sales.PaymentType, bool) {
	pt, err := sales.ParsePaymentType(raw)
	if err != nil {
		respondBadRequest(ctx, err.Error())
		return "", false
	}
	return pt, true
}

// deleteType reads the deleteType query parameter. It reports hard=true for
// "hard", false for "soft" and writes a 400 for anything else.
func deleteType(ctx *gin.Context) (hard bool, ok bool) {
	switch v := ctx.Query("deleteType"); {
	case strings.EqualFold(v, "soft"):
		return false, true
	case strings.EqualFold(v, "hard"):
		return true, true
	default:
		respondBadRequest(ctx, fmt.Sprintf("deleteType must be 'soft' or 'hard', got '%s'", v))
		return false, false
	}
}

// queryTime reads a required timestamp query parameter.
func queryTime(ctx *gin.Context, name string) (*time.Time, bool) {
	raw, present := ctx.GetQuery(name)
	if !present || raw == "" {
		respondBadRequest(ctx, fmt.Sprintf("Query parameter '%s' is required", name))
		return nil, false
	}
	t, err := parseTime(raw)
	if err != nil {
		respondBadRequest(ctx, fmt.Sprintf("Invalid %s: '%s'", name, raw))
		return nil, false
	}
	return &t, true
}

// parseTime accepts RFC 3339 or a zone-less local timestamp, read as UTC.
func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(localDateTime, s)
}
