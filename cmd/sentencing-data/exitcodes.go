package main

import (
	"errors"

	"github.com/iota-uz/sentencing-etl/modules/sentencing/domain"
	"github.com/iota-uz/sentencing-etl/pkg/serrors"
)

type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string {
	return e.err.Error()
}

func (e *cliError) Unwrap() error {
	return e.err
}

const (
	exitOK         = 0
	exitValidation = 2
	exitUsage      = 3
	exitDB         = 4
	exitDBWrite    = 5
	exitSafetyNet  = 6
)

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &cliError{code: code, err: err}
}

// loadCode classifies a loader failure.
func loadCode(err error) int {
	switch {
	case errors.Is(err, serrors.ErrValidation), errors.Is(err, domain.ErrMalformedFile):
		return exitValidation
	case errors.Is(err, domain.ErrMissingCases):
		return exitSafetyNet
	default:
		return exitDBWrite
	}
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code
	}
	return 1
}
