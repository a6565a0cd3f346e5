package blob_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/sentencing-etl/pkg/blob"
)

func TestCheckKey(t *testing.T) {
	ok := [][2]string{
		{"bucket", "US_ID/sentencing_case_record.json"},
		{"b", "a..b.json"},
	}
	for _, k := range ok {
		require.NoError(t, blob.CheckKey(k[0], k[1]), k)
	}

	bad := [][2]string{
		{"", "x.json"},
		{"bucket", ""},
		{"a/b", "x.json"},
		{"..", "x.json"},
		{"bucket", "/etc/passwd"},
		{"bucket", "US_ID/../../x.json"},
	}
	for _, k := range bad {
		err := blob.CheckKey(k[0], k[1])
		require.True(t, errors.Is(err, blob.ErrInvalidKey), k)
	}
}
