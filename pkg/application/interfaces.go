package application

import (
	"context"
	"io/fs"
	"reflect"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

type Controller interface {
	Register(r *mux.Router)
	Key() string
}

type Module interface {
	Name() string
	Register(app Application) error
}

// Application is the registry modules plug their controllers, services and
// migrations into.
type Application interface {
	DB() *pgxpool.Pool
	Logger() *logrus.Logger
	Controllers() []Controller
	Middleware() []mux.MiddlewareFunc
	Migrations() MigrationManager
	RegisterControllers(controllers ...Controller)
	RegisterMiddleware(middleware ...mux.MiddlewareFunc)
	RegisterServices(services ...interface{})
	Service(service interface{}) interface{}
	Services() map[reflect.Type]interface{}
}

type MigrationManager interface {
	// RegisterSchema adds the goose migrations of one module. Each module
	// keeps its own version table.
	RegisterSchema(module string, migrations fs.FS)
	Up(ctx context.Context) error
	Status(ctx context.Context) ([]MigrationStatus, error)
}

type MigrationStatus struct {
	Module  string
	Version int64
	Path    string
	Applied bool
}
