package domain

import (
	"fmt"
	"strings"

	"github.com/iota-uz/sentencing-etl/pkg/serrors"
)

var (
	ErrMissingCases      = serrors.NewError("SENTENCING_MISSING_CASES", "cases exist in the store but are missing from the import")
	ErrUnsupportedObject = serrors.NewError("SENTENCING_UNSUPPORTED_OBJECT", "unsupported bucket + object pair")
	ErrMalformedFile     = serrors.NewError("SENTENCING_MALFORMED_FILE", "import file is not a JSON array or JSON lines")
)

// MissingCasesError lists the stored cases a case import omitted.
type MissingCasesError struct {
	StateCode StateCode
	IDs       []string
}

func (e *MissingCasesError) Error() string {
	return fmt.Sprintf("%s for %s: %s", ErrMissingCases.Message, e.StateCode, strings.Join(e.IDs, ", "))
}

func (e *MissingCasesError) Unwrap() error {
	return ErrMissingCases
}
