package apperr

import (
	"errors"
	"fmt"
)

// Code identifies a caller-visible failure class. Codes are stable across
// transports; the HTTP layer maps them onto status codes.
type Code string

const (
	CodeItemNotFound         Code = "ITEM_NOT_FOUND"
	CodeOrderNotFound        Code = "ORDER_NOT_FOUND"
	CodeItemsNotAvailable    Code = "ITEMS_NOT_AVAILABLE"
	CodeInsufficientStock    Code = "INSUFFICIENT_STOCK"
	CodeInvalidInventoryType Code = "INVALID_INVENTORY_TYPE"
	CodeInvalidTransition    Code = "INVALID_TRANSITION"
	CodeInvalidArgument      Code = "INVALID_ARGUMENT"
	CodeDuplicateRequest     Code = "DUPLICATE_REQUEST"
	CodeInternal             Code = "INTERNAL"
)

type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf returns the code of the outermost *Error in err's chain,
// or CodeInternal when the error carries no code.
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInternal
}

func IsCode(err error, code Code) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Code == code
}
