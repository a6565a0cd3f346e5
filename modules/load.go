package modules

import (
	"github.com/iota-uz/sentencing-etl/modules/sentencing"
	"github.com/iota-uz/sentencing-etl/pkg/application"
)

// BuiltInModules returns the modules every server and CLI instance runs.
func BuiltInModules(opts *sentencing.ModuleOptions) []application.Module {
	return []application.Module{
		sentencing.NewModule(opts),
	}
}

func Load(app application.Application, externalModules ...application.Module) error {
	for _, module := range externalModules {
		if err := module.Register(app); err != nil {
			return err
		}
	}
	return nil
}
