package services

import (
	"context"
	"encoding/json"

	"github.com/iota-uz/sentencing-etl/modules/sentencing/domain"
)

// TokenVerifier checks the Authorization header of an import request.
type TokenVerifier interface {
	Verify(ctx context.Context, authorization, expectedEmail string) error
}

type ObjectFetcher interface {
	Fetch(ctx context.Context, bucket, object string) ([]json.RawMessage, error)
}

// Scheduler enqueues a handle request for bucket/object.
type Scheduler interface {
	Schedule(ctx context.Context, bucket, object string) error
}

// Resolver maps a bucket/object pair to the loader of its entity, or
// returns an error wrapping domain.ErrUnsupportedObject.
type Resolver interface {
	Resolve(bucket, object string) (Target, error)
}

// Reporter forwards a message to the alerting channel. It must not block
// or panic.
type Reporter interface {
	Report(ctx context.Context, message string)
}

// Target is a resolved import file.
type Target struct {
	Bucket    string
	Object    string
	StateCode domain.StateCode
	Entity    domain.Entity
	Loader    Loader
}
