package orders

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/bayala/bayala-stock/internal/sales/lineitems"
)

// Validation errors.
var (
	ErrClientNameRequired = errors.New("client name is required")
	ErrClientFieldTooLong = errors.New("client field is too long")
	ErrNoLines            = errors.New("at least one line item is required")
	ErrProductNotSelected = errors.New("product not selected")
	ErrInvalidQuantity    = errors.New("quantity must be at least 1")
)

// Issue is one problem found while validating a draft. Line is 1-based and
// zero for problems outside the line items.
type Issue struct {
	Field   string `json:"field"`
	Line    int    `json:"line,omitempty"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// ValidationError lists everything that keeps a draft from being submitted.
// Err and Line describe the first offending line item when there is one,
// otherwise the first issue.
type ValidationError struct {
	Err    error
	Line   int
	Issues []Issue
}

func (e *ValidationError) Error() string {
	msg := e.Err.Error()
	if e.Line > 0 {
		msg = fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	if len(e.Issues) > 1 {
		msg = fmt.Sprintf("%s (and %d more)", msg, len(e.Issues)-1)
	}
	return "validation failed: " + msg
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks everything a submission needs before any network call.
// All problems are reported together.
func Validate(mode Mode, client ClientInfo, payment PaymentType, items []lineitems.LineItem) error {
	var issues []Issue
	add := func(field string, line int, err error) {
		issues = append(issues, Issue{Field: field, Line: line, Message: err.Error(), Err: err})
	}

	if err := validate.Struct(client.Normalize()); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("validate client: %w", err)
		}
		for _, fe := range fieldErrs {
			field := "client." + fe.Field()
			if fe.Tag() == "required" {
				add(field, 0, ErrClientNameRequired)
				continue
			}
			add(field, 0, ErrClientFieldTooLong)
		}
	}

	if mode.RequiresPayment && !payment.Valid() {
		add("paymentType", 0, ErrUnknownPaymentType)
	}

	if len(items) == 0 {
		add("lineItems", 0, ErrNoLines)
	}
	for i, item := range items {
		line := i + 1
		if id, ok := item.Slot.ProductID(); !ok || !lineitems.Submittable(id, 1) {
			add("productId", line, ErrProductNotSelected)
		}
		if item.Quantity < 1 {
			add("quantity", line, ErrInvalidQuantity)
		}
		if !item.Type.Valid() {
			add("type", line, lineitems.ErrUnknownType)
		}
	}

	if len(issues) == 0 {
		return nil
	}
	verr := &ValidationError{Err: issues[0].Err, Issues: issues}
	for _, is := range issues {
		if is.Line > 0 {
			verr.Err = is.Err
			verr.Line = is.Line
			break
		}
	}
	return verr
}
