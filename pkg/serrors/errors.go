package serrors

import (
	"errors"
)

// BaseError is a coded sentinel error. Two BaseErrors match under errors.Is
// when their codes are equal, so wrapped copies keep matching the sentinel.
type BaseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewError(code, message string) *BaseError {
	return &BaseError{Code: code, Message: message}
}

func (e *BaseError) Error() string {
	return e.Message
}

func (e *BaseError) Is(target error) bool {
	var t *BaseError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Code returns the code of the first BaseError in the chain, or fallback.
func Code(err error, fallback string) string {
	var be *BaseError
	if errors.As(err, &be) {
		return be.Code
	}
	return fallback
}
