package services_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/sentencing-etl/modules/sentencing/domain"
	"github.com/iota-uz/sentencing-etl/modules/sentencing/services"
)

func TestPathResolver_Resolve(t *testing.T) {
	e := newEnv(1)
	r := services.NewPathResolver("", e.loaders)

	for object, entity := range services.ObjectEntities {
		target, err := r.Resolve("any-bucket", "US_ID/"+object)
		require.NoError(t, err, object)
		require.Equal(t, entity, target.Entity)
		require.Equal(t, domain.StateCodeUSID, target.StateCode)
		require.Same(t, e.loaders[entity], target.Loader)
	}

	target, err := r.Resolve("b", "US_IX/sentencing_case_record.json")
	require.NoError(t, err)
	require.Equal(t, domain.StateCodeUSID, target.StateCode)
	require.Equal(t, "US_IX/sentencing_case_record.json", target.Object)

	target, err = r.Resolve("b", "US_ND/sentencing_staff_record.json")
	require.NoError(t, err)
	require.Equal(t, domain.StateCodeUSND, target.StateCode)
}

func TestPathResolver_RejectsUnknownObjects(t *testing.T) {
	e := newEnv(1)
	r := services.NewPathResolver("imports", e.loaders)

	for _, tc := range [][2]string{
		{"other", "US_ID/sentencing_case_record.json"},
		{"imports", "sentencing_case_record.json"},
		{"imports", "US_ID/nested/sentencing_case_record.json"},
		{"imports", "US_XX/sentencing_case_record.json"},
		{"imports", "us_id/sentencing_case_record.json"},
		{"imports", "US_ID/unknown_record.json"},
	} {
		_, err := r.Resolve(tc[0], tc[1])
		require.True(t, errors.Is(err, domain.ErrUnsupportedObject), "%v: %v", tc, err)
	}

	partial := services.NewPathResolver("", services.Loaders{})
	_, err := partial.Resolve("b", "US_ID/sentencing_case_record.json")
	require.True(t, errors.Is(err, domain.ErrUnsupportedObject))
}
