package fs_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/sentencing-etl/pkg/blob"
	blobfs "github.com/iota-uz/sentencing-etl/pkg/blob/fs"
)

func TestStore_PutGet(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := blobfs.New(root)
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "imports", "US_ID/sentencing_case_record.json", strings.NewReader(`{"a":1}`), ""))
	_, err = os.Stat(filepath.Join(root, "imports", "US_ID", "sentencing_case_record.json"))
	require.NoError(t, err)

	rc, err := s.Get(ctx, "imports", "US_ID/sentencing_case_record.json")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	require.Equal(t, `{"a":1}`, string(data))

	_, err = s.Get(ctx, "imports", "US_ID/missing.json")
	require.True(t, errors.Is(err, blob.ErrNotFound))
}

func TestStore_RejectsTraversal(t *testing.T) {
	s, err := blobfs.New(t.TempDir())
	require.NoError(t, err)

	_, err = s.Get(context.Background(), "imports", "../../etc/passwd")
	require.True(t, errors.Is(err, blob.ErrInvalidKey))
	err = s.Put(context.Background(), "../x", "a.json", strings.NewReader("x"), "")
	require.True(t, errors.Is(err, blob.ErrInvalidKey))
}
