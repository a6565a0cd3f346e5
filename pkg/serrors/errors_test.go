package serrors_test

import (
	"errors"
	"testing"

	gerrors "github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/sentencing-etl/pkg/serrors"
)

var errGone = serrors.NewError("GONE", "gone")

func TestBaseError_MatchesByCode(t *testing.T) {
	wrapped := gerrors.Wrap(serrors.NewError("GONE", "object gone"), "fetch")
	require.ErrorIs(t, wrapped, errGone)
	require.NotErrorIs(t, wrapped, serrors.ErrValidation)
	require.Equal(t, "GONE", serrors.Code(wrapped, "INTERNAL"))
	require.Equal(t, "INTERNAL", serrors.Code(errors.New("plain"), "INTERNAL"))
}

type row struct {
	Name string `validate:"required"`
	Age  int    `validate:"gte=18"`
}

func TestValidationErrors_CollectsEveryRecord(t *testing.T) {
	v := validator.New()
	verrs := &serrors.ValidationErrors{Subject: "staff"}
	require.NoError(t, verrs.Err())

	verrs.AddValidator(2, v.Struct(row{Name: "a", Age: 3}))
	verrs.AddValidator(0, v.Struct(row{Age: 20}))
	verrs.Add(serrors.FieldError{Index: 1, Field: "state_code", Rule: "matches file state", Value: "US_NY"})

	err := verrs.Err()
	require.Error(t, err)
	require.ErrorIs(t, err, serrors.ErrValidation)
	require.Equal(t, "VALIDATION_FAILED", serrors.Code(err, ""))

	var got *serrors.ValidationErrors
	require.ErrorAs(t, err, &got)
	require.Len(t, got.Fields, 3)
	require.Equal(t, serrors.FieldError{Index: 0, Field: "Name", Rule: "required"}, got.Fields[0])
	require.Equal(t, 1, got.Fields[1].Index)
	require.Equal(t, serrors.FieldError{Index: 2, Field: "Age", Rule: "gte=18", Value: "3"}, got.Fields[2])
	require.Contains(t, err.Error(), "staff: 3 validation error(s)")
	require.Contains(t, err.Error(), `record 1: state_code failed "matches file state" (got "US_NY")`)
}

func TestValidationErrors_NonValidatorError(t *testing.T) {
	verrs := &serrors.ValidationErrors{}
	verrs.AddValidator(4, errors.New("bad json"))
	require.Equal(t, []serrors.FieldError{{Index: 4, Field: "$", Rule: "bad json"}}, verrs.Fields)
	require.Contains(t, verrs.Error(), "batch: 1 validation error(s)")
}
