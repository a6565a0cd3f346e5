package records

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iota-uz/sentencing-etl/modules/sentencing/domain"
	"github.com/iota-uz/sentencing-etl/pkg/constants"
)

// vocabularies backs the enum=<name> validation tag.
var vocabularies = map[string]map[string]struct{}{
	"need":          setOf(domain.NeedsToBeAddressed),
	"prior_history": setOf(domain.PriorCriminalHistoryCriteria),
	"mental_health": setOf(domain.MentalHealthDiagnosisCriteria),
	"asam":          setOf(domain.AsamLevelOfCareCriteria),
	"substance_use": setOf(domain.SubstanceUseDisorderCriteria),
}

func init() {
	constants.Validate.RegisterTagNameFunc(jsonFieldName)
	mustRegister("statecode", func(fl validator.FieldLevel) bool {
		return domain.StateCode(fl.Field().String()).Valid()
	})
	mustRegister("gender", func(fl validator.FieldLevel) bool {
		return domain.Gender(fl.Field().String()).Valid()
	})
	mustRegister("reporttype", func(fl validator.FieldLevel) bool {
		_, ok := domain.ReportTypeFromExternal(fl.Field().String())
		return ok
	})
	mustRegister("enum", func(fl validator.FieldLevel) bool {
		set, ok := vocabularies[fl.Param()]
		if !ok {
			return false
		}
		_, ok = set[fl.Field().String()]
		return ok
	})
}

func mustRegister(tag string, fn validator.Func) {
	if err := constants.Validate.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

func setOf(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
