package services

import (
	"strings"

	"github.com/go-faster/errors"

	"github.com/iota-uz/sentencing-etl/modules/sentencing/domain"
)

// ObjectEntities maps the file name of an export to the entity it holds.
var ObjectEntities = map[string]domain.Entity{
	"sentencing_client_record.json":                domain.EntityClient,
	"sentencing_staff_record.json":                 domain.EntityStaff,
	"sentencing_case_record.json":                  domain.EntityCase,
	"sentencing_community_opportunity_record.json": domain.EntityOpportunity,
	"case_insights_record.json":                    domain.EntityInsight,
	"sentencing_charge_record.json":                domain.EntityOffense,
}

// PathResolver resolves objects laid out as <STATE>/<file name>.
type PathResolver struct {
	bucket  string
	loaders Loaders
}

// NewPathResolver accepts any bucket when bucket is empty.
func NewPathResolver(bucket string, loaders Loaders) *PathResolver {
	return &PathResolver{bucket: bucket, loaders: loaders}
}

func (r *PathResolver) Resolve(bucket, object string) (Target, error) {
	t := Target{Bucket: bucket, Object: object}
	if r.bucket != "" && bucket != r.bucket {
		return t, errors.Wrapf(domain.ErrUnsupportedObject, "bucket %q", bucket)
	}
	folder, name, ok := strings.Cut(object, "/")
	if !ok || strings.Contains(name, "/") {
		return t, errors.Wrapf(domain.ErrUnsupportedObject, "object %q", object)
	}
	state := domain.NormalizeStateCode(folder)
	if folder != strings.ToUpper(folder) || !state.Valid() {
		return t, errors.Wrapf(domain.ErrUnsupportedObject, "state %q", folder)
	}
	entity, ok := ObjectEntities[name]
	if !ok {
		return t, errors.Wrapf(domain.ErrUnsupportedObject, "file %q", name)
	}
	loader, ok := r.loaders[entity]
	if !ok {
		return t, errors.Wrapf(domain.ErrUnsupportedObject, "no loader for %s", entity)
	}
	t.StateCode, t.Entity, t.Loader = state, entity, loader
	return t, nil
}
