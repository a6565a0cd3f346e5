// Package sentencing imports the daily sentencing exports into the store
// that backs the PSI case tool.
package sentencing

import (
	"github.com/go-faster/errors"

	"github.com/iota-uz/sentencing-etl/modules/sentencing/domain"
	"github.com/iota-uz/sentencing-etl/modules/sentencing/infrastructure/persistence"
	"github.com/iota-uz/sentencing-etl/modules/sentencing/presentation/controllers"
	"github.com/iota-uz/sentencing-etl/modules/sentencing/services"
	"github.com/iota-uz/sentencing-etl/pkg/application"
	"github.com/iota-uz/sentencing-etl/pkg/blob"
	"github.com/iota-uz/sentencing-etl/pkg/configuration"
)

type ModuleOptions struct {
	Import        configuration.ImportOptions
	Blobs         blob.Fetcher
	MaxObjectSize int64
	Verifier      services.TokenVerifier
	Scheduler     services.Scheduler

	// Optional. Reporter defaults to a LogReporter on the application
	// logger, Repositories to the Postgres repositories.
	Reporter     services.Reporter
	Repositories *domain.Repositories
}

func NewModule(opts *ModuleOptions) application.Module {
	return &Module{opts: opts}
}

type Module struct {
	opts *ModuleOptions
}

func (m *Module) Register(app application.Application) error {
	o := m.opts
	switch {
	case o == nil:
		return errors.New("sentencing: module options are required")
	case o.Blobs == nil:
		return errors.New("sentencing: blob store is required")
	case o.Verifier == nil:
		return errors.New("sentencing: token verifier is required")
	case o.Scheduler == nil:
		return errors.New("sentencing: scheduler is required")
	}

	reporter := o.Reporter
	if reporter == nil {
		reporter = services.NewLogReporter(app.Logger())
	}
	repos := persistence.NewRepositories()
	if o.Repositories != nil {
		repos = *o.Repositories
	}

	loaders := services.NewLoaders(repos, reporter, services.LoaderOptions{WriteConcurrency: o.Import.WriteConcurrency})
	resolver := services.NewPathResolver(o.Import.Bucket, loaders)
	importer := services.NewImportService(services.NewBlobFetcher(o.Blobs, o.MaxObjectSize))

	app.Migrations().RegisterSchema(m.Name(), persistence.Schema())
	app.RegisterServices(resolver, importer)
	app.RegisterControllers(
		controllers.NewImportController(controllers.ImportControllerOptions{
			TriggerPath:     o.Import.TriggerPath,
			HandlePath:      o.Import.HandlePath,
			TriggerIAMEmail: o.Import.TriggerIAMEmail,
			HandleIAMEmail:  o.Import.HandleIAMEmail,
			Verifier:        o.Verifier,
			Scheduler:       o.Scheduler,
			Resolver:        resolver,
			Importer:        importer,
			Reporter:        reporter,
		}),
	)
	return nil
}

func (m *Module) Name() string {
	return "sentencing"
}
