package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-faster/errors"

	"github.com/iota-uz/sentencing-etl/modules/sentencing/domain"
	"github.com/iota-uz/sentencing-etl/pkg/blob"
)

type BlobFetcher struct {
	store   blob.Fetcher
	maxSize int64
}

// NewBlobFetcher reads import files from store. Files larger than maxSize
// bytes are rejected; maxSize <= 0 disables the limit.
func NewBlobFetcher(store blob.Fetcher, maxSize int64) *BlobFetcher {
	return &BlobFetcher{store: store, maxSize: maxSize}
}

func (f *BlobFetcher) Fetch(ctx context.Context, bucket, object string) ([]json.RawMessage, error) {
	rc, err := f.store.Get(ctx, bucket, object)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var r io.Reader = rc
	if f.maxSize > 0 {
		r = io.LimitReader(rc, f.maxSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s/%s", bucket, object)
	}
	if f.maxSize > 0 && int64(len(data)) > f.maxSize {
		return nil, errors.Errorf("%s/%s exceeds %d bytes", bucket, object, f.maxSize)
	}
	return ParseRecords(data)
}

// ParseRecords splits an import file into its records. The file is either
// one JSON array or JSON lines, one object per line. Empty and non-text
// files are malformed.
func ParseRecords(data []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.Wrap(domain.ErrMalformedFile, "empty file")
	}
	if mime := mimetype.Detect(trimmed); !isText(mime) {
		return nil, errors.Wrapf(domain.ErrMalformedFile, "unexpected %s content", mime.String())
	}
	if trimmed[0] == '[' {
		var out []json.RawMessage
		if err := json.Unmarshal(trimmed, &out); err != nil {
			return nil, errors.Wrap(domain.ErrMalformedFile, err.Error())
		}
		return out, nil
	}

	out := []json.RawMessage{}
	sc := bufio.NewScanner(bytes.NewReader(trimmed))
	sc.Buffer(make([]byte, 0, 64*1024), len(trimmed)+1)
	line := 0
	for sc.Scan() {
		line++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		if b[0] != '{' || !json.Valid(b) {
			return nil, errors.Wrapf(domain.ErrMalformedFile, "line %d is not a JSON object", line)
		}
		out = append(out, json.RawMessage(bytes.Clone(b)))
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(domain.ErrMalformedFile, err.Error())
	}
	return out, nil
}

// isText reports whether mime is text/plain or one of its descendants, such
// as application/json and application/x-ndjson.
func isText(mime *mimetype.MIME) bool {
	for m := mime; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}
