package configuration

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/iota-uz/utils/fs"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/sentencing-etl/pkg/logging"
)

const Production = "production"

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		c.Unload()
		panic(err)
	}
	return c
})

// LoadEnv loads the env files that exist. Relative names are looked up in the working
// directory first, then in the nearest parent directory holding a go.mod.
func LoadEnv(envFiles []string) (int, error) {
	existingFiles := make([]string, 0, len(envFiles))
	root := moduleRoot()
	for _, file := range envFiles {
		switch {
		case fs.FileExists(file):
			existingFiles = append(existingFiles, file)
		case root != "" && !filepath.IsAbs(file) && fs.FileExists(filepath.Join(root, file)):
			existingFiles = append(existingFiles, filepath.Join(root, file))
		}
	}

	if len(existingFiles) == 0 {
		return 0, nil
	}

	return len(existingFiles), godotenv.Load(existingFiles...)
}

func moduleRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if fs.FileExists(filepath.Join(dir, "go.mod")) {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

type DatabaseOptions struct {
	Opts     string `env:"-"`
	Name     string `env:"DB_NAME" envDefault:"sentencing"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
	MaxConns int32  `env:"DB_MAX_CONNS" envDefault:"10"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable pool_max_conns=%d",
		d.Host, d.Port, d.User, d.Name, d.Password, d.MaxConns,
	)
}

type LogOptions struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
	Path  string `env:"LOG_PATH" envDefault:""`
}

type OpenTelemetryOptions struct {
	Enabled     bool   `env:"OTEL_ENABLED" envDefault:"false"`
	TempoURL    string `env:"OTEL_TEMPO_URL" envDefault:"localhost:4318"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"sentencing-etl"`
}

type PrometheusOptions struct {
	Enabled bool   `env:"PROMETHEUS_METRICS_ENABLED" envDefault:"false"`
	Path    string `env:"PROMETHEUS_METRICS_PATH" envDefault:"/debug/prometheus"`
}

type RateLimitOptions struct {
	Enabled   bool   `env:"RATE_LIMIT_ENABLED" envDefault:"false"`
	GlobalRPS int    `env:"RATE_LIMIT_GLOBAL_RPS" envDefault:"100"`
	Storage   string `env:"RATE_LIMIT_STORAGE" envDefault:"memory"` // memory or redis
	RedisURL  string `env:"RATE_LIMIT_REDIS_URL"`
}

// Validate checks the rate limit configuration for errors
func (r *RateLimitOptions) Validate() error {
	if r.GlobalRPS < 0 {
		return fmt.Errorf("rate limit GlobalRPS must be non-negative, got %d", r.GlobalRPS)
	}
	if r.GlobalRPS > 1000000 {
		return fmt.Errorf("rate limit GlobalRPS too high, maximum is 1,000,000, got %d", r.GlobalRPS)
	}
	if r.Storage != "memory" && r.Storage != "redis" {
		return fmt.Errorf("rate limit Storage must be 'memory' or 'redis', got '%s'", r.Storage)
	}
	if r.Storage == "redis" && r.RedisURL == "" {
		return fmt.Errorf("rate limit RedisURL is required when Storage is 'redis'")
	}
	return nil
}

// ImportOptions configures the trigger/handle endpoint pair.
type ImportOptions struct {
	TriggerPath     string `env:"IMPORT_TRIGGER_PATH" envDefault:"/trigger_import"`
	HandlePath      string `env:"IMPORT_HANDLE_PATH" envDefault:"/handle_import"`
	TriggerIAMEmail string `env:"IMPORT_TRIGGER_IAM_EMAIL"`
	HandleIAMEmail  string `env:"IMPORT_HANDLE_IAM_EMAIL"`
	// Empty audience skips the aud claim check.
	TokenAudience    string `env:"IMPORT_TOKEN_AUDIENCE"`
	Bucket           string `env:"IMPORT_BUCKET"`
	WriteConcurrency int    `env:"IMPORT_WRITE_CONCURRENCY" envDefault:"1"`
}

func (o *ImportOptions) Validate() error {
	if o.WriteConcurrency < 1 {
		return fmt.Errorf("IMPORT_WRITE_CONCURRENCY must be >= 1, got %d", o.WriteConcurrency)
	}
	if !strings.HasPrefix(o.TriggerPath, "/") || !strings.HasPrefix(o.HandlePath, "/") {
		return fmt.Errorf("import paths must start with '/' (got %q, %q)", o.TriggerPath, o.HandlePath)
	}
	if o.TriggerPath == o.HandlePath {
		return fmt.Errorf("IMPORT_TRIGGER_PATH and IMPORT_HANDLE_PATH must differ")
	}
	return nil
}

type StorageOptions struct {
	Driver        string `env:"STORAGE_DRIVER" envDefault:"gcs"` // gcs, s3, fs or memory
	FSRoot        string `env:"STORAGE_FS_ROOT" envDefault:"./blobdata"`
	S3Region      string `env:"STORAGE_S3_REGION" envDefault:"us-east-1"`
	S3Endpoint    string `env:"STORAGE_S3_ENDPOINT"`
	S3PathStyle   bool   `env:"STORAGE_S3_PATH_STYLE" envDefault:"false"`
	S3AccessKey   string `env:"STORAGE_S3_ACCESS_KEY_ID"`
	S3SecretKey   string `env:"STORAGE_S3_SECRET_ACCESS_KEY"`
	GCSEndpoint   string `env:"STORAGE_GCS_ENDPOINT"`
	MaxObjectSize int64  `env:"STORAGE_MAX_OBJECT_SIZE" envDefault:"268435456"`
}

func (s *StorageOptions) Validate() error {
	switch s.Driver {
	case "gcs", "s3", "memory":
	case "fs":
		if s.FSRoot == "" {
			return fmt.Errorf("STORAGE_FS_ROOT is required when STORAGE_DRIVER is 'fs'")
		}
	default:
		return fmt.Errorf("STORAGE_DRIVER must be one of gcs|s3|fs|memory, got %q", s.Driver)
	}
	return nil
}

type SchedulerOptions struct {
	Driver string `env:"SCHEDULER_DRIVER" envDefault:"cloudtasks"` // cloudtasks or outbox
	// HandleURL is the absolute URL tasks are delivered to.
	HandleURL           string `env:"SCHEDULER_HANDLE_URL"`
	ServiceAccountEmail string `env:"SCHEDULER_SERVICE_ACCOUNT_EMAIL"`
	CloudTasksProject   string `env:"CLOUD_TASKS_PROJECT"`
	CloudTasksLocation  string `env:"CLOUD_TASKS_LOCATION" envDefault:"us-central1"`
	CloudTasksQueue     string `env:"CLOUD_TASKS_QUEUE"`
}

func (s *SchedulerOptions) Validate() error {
	switch s.Driver {
	case "cloudtasks":
		if s.CloudTasksProject == "" || s.CloudTasksQueue == "" {
			return fmt.Errorf("CLOUD_TASKS_PROJECT and CLOUD_TASKS_QUEUE are required when SCHEDULER_DRIVER is 'cloudtasks'")
		}
	case "outbox":
	default:
		return fmt.Errorf("SCHEDULER_DRIVER must be 'cloudtasks' or 'outbox', got %q", s.Driver)
	}
	return nil
}

type OutboxOptions struct {
	Table                string        `env:"OUTBOX_TABLE" envDefault:"public.sentencing_import_outbox"`
	RelayEnabled         bool          `env:"OUTBOX_RELAY_ENABLED" envDefault:"true"`
	RelayPollInterval    time.Duration `env:"OUTBOX_RELAY_POLL_INTERVAL" envDefault:"1s"`
	RelayBatchSize       int           `env:"OUTBOX_RELAY_BATCH_SIZE" envDefault:"10"`
	RelayLockTTL         time.Duration `env:"OUTBOX_RELAY_LOCK_TTL" envDefault:"15m"`
	RelayMaxAttempts     int           `env:"OUTBOX_RELAY_MAX_ATTEMPTS" envDefault:"25"`
	RelaySingleActive    bool          `env:"OUTBOX_RELAY_SINGLE_ACTIVE" envDefault:"true"`
	RelayDispatchTimeout time.Duration `env:"OUTBOX_RELAY_DISPATCH_TIMEOUT" envDefault:"10m"`

	LastErrorMaxBytes int `env:"OUTBOX_LAST_ERROR_MAX_BYTES" envDefault:"2048"`

	CleanerEnabled       bool          `env:"OUTBOX_CLEANER_ENABLED" envDefault:"true"`
	CleanerInterval      time.Duration `env:"OUTBOX_CLEANER_INTERVAL" envDefault:"1m"`
	CleanerRetention     time.Duration `env:"OUTBOX_CLEANER_RETENTION" envDefault:"168h"`
	CleanerDeadRetention time.Duration `env:"OUTBOX_CLEANER_DEAD_RETENTION" envDefault:"0"`
}

type Configuration struct {
	Database      DatabaseOptions
	Log           LogOptions
	OpenTelemetry OpenTelemetryOptions
	Prometheus    PrometheusOptions
	RateLimit     RateLimitOptions
	Import        ImportOptions
	Storage       StorageOptions
	Scheduler     SchedulerOptions
	Outbox        OutboxOptions

	MigrateOnStart   bool   `env:"MIGRATE_ON_START" envDefault:"false"`
	ServerPort       int    `env:"PORT" envDefault:"3200"`
	GoAppEnvironment string `env:"GO_APP_ENV" envDefault:"development"`
	SocketAddress    string `env:"-"`
	// Looked up on each request; a random uuid is generated when absent.
	RequestIDHeader string `env:"REQUEST_ID_HEADER" envDefault:"X-Request-ID"`
	// Looked up on each request; request.RemoteAddr is used when absent.
	RealIPHeader string `env:"REAL_IP_HEADER" envDefault:"X-Real-IP"`

	logFile *os.File
	logger  *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.Log.Level {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}

func Use() *Configuration {
	return singleton()
}

// Validate checks the option groups that cannot be expressed as env defaults.
func (c *Configuration) Validate() error {
	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("rate limit configuration error: %w", err)
	}
	if err := c.Import.Validate(); err != nil {
		return fmt.Errorf("import configuration error: %w", err)
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage configuration error: %w", err)
	}
	if err := c.Scheduler.Validate(); err != nil {
		return fmt.Errorf("scheduler configuration error: %w", err)
	}
	return nil
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}

	f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.Log.Path)
	if err != nil {
		return err
	}
	c.logFile = f
	c.logger = logger

	c.Database.Opts = c.Database.ConnectionString()
	if c.GoAppEnvironment == Production {
		c.SocketAddress = fmt.Sprintf(":%d", c.ServerPort)
	} else {
		c.SocketAddress = fmt.Sprintf("localhost:%d", c.ServerPort)
	}
	return nil
}

// Unload handles a graceful shutdown.
func (c *Configuration) Unload() {
	if c.logFile != nil {
		if err := c.logFile.Close(); err != nil {
			log.Printf("Failed to close log file: %v", err)
		}
	}
}
