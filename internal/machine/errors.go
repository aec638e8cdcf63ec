package machine

import (
	"errors"

	"github.com/fairyhunter13/vending-machine-simulator/internal/model"
)

// Error is returned when the machine rejects an operation. The same kind and
// context are reported to the Logger.
type Error struct {
	Kind    model.ErrorKind
	Message string
	Context map[string]any
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches any *Error of the same kind, so callers can use the sentinels
// below with errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrInsufficientMoney = &Error{Kind: model.InsufficientMoney, Message: "insufficient money"}
	ErrOutOfStock        = &Error{Kind: model.OutOfStock, Message: "out of stock"}
	ErrCannotMakeChange  = &Error{Kind: model.CannotMakeChange, Message: "cannot provide change - exact payment required"}
	ErrProductNotFound   = &Error{Kind: model.ProductNotFound, Message: "product not found"}
)

func newError(kind model.ErrorKind, message string, ctx map[string]any) *Error {
	return &Error{Kind: kind, Message: message, Context: ctx}
}

// KindOf returns the kind of a machine error, if err is one.
func KindOf(err error) (model.ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
