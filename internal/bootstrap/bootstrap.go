// Package bootstrap builds the configured collaborators shared by the server
// and the sentencing-data CLI.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"github.com/iota-uz/sentencing-etl/modules/sentencing"
	"github.com/iota-uz/sentencing-etl/modules/sentencing/infrastructure/tasks"
	"github.com/iota-uz/sentencing-etl/modules/sentencing/services"
	"github.com/iota-uz/sentencing-etl/pkg/bearer"
	"github.com/iota-uz/sentencing-etl/pkg/blob"
	"github.com/iota-uz/sentencing-etl/pkg/blob/fs"
	"github.com/iota-uz/sentencing-etl/pkg/blob/gcs"
	"github.com/iota-uz/sentencing-etl/pkg/blob/memory"
	"github.com/iota-uz/sentencing-etl/pkg/blob/s3"
	"github.com/iota-uz/sentencing-etl/pkg/configuration"
	"github.com/iota-uz/sentencing-etl/pkg/outbox"
	"github.com/iota-uz/sentencing-etl/pkg/outbox/dispatchers/httptask"
)

func BlobStore(ctx context.Context, opts configuration.StorageOptions) (blob.Store, error) {
	switch blob.Driver(opts.Driver) {
	case blob.DriverGCS:
		var clientOpts []option.ClientOption
		if opts.GCSEndpoint != "" {
			clientOpts = append(clientOpts, option.WithEndpoint(opts.GCSEndpoint), option.WithoutAuthentication())
		}
		return gcs.New(ctx, clientOpts...)
	case blob.DriverS3:
		return s3.New(ctx, s3.Config{
			Region:          opts.S3Region,
			Endpoint:        opts.S3Endpoint,
			PathStyle:       opts.S3PathStyle,
			AccessKeyID:     opts.S3AccessKey,
			SecretAccessKey: opts.S3SecretKey,
		})
	case blob.DriverFilesystem:
		return fs.New(opts.FSRoot)
	case blob.DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
	}
}

func Scheduler(ctx context.Context, conf *configuration.Configuration, pool *pgxpool.Pool) (services.Scheduler, error) {
	s := conf.Scheduler
	switch s.Driver {
	case "cloudtasks":
		return tasks.NewCloudTasksScheduler(ctx, tasks.CloudTasksOptions{
			Project:             s.CloudTasksProject,
			Location:            s.CloudTasksLocation,
			Queue:               s.CloudTasksQueue,
			HandleURL:           s.HandleURL,
			ServiceAccountEmail: s.ServiceAccountEmail,
			Audience:            conf.Import.TokenAudience,
		})
	case "outbox":
		table, err := outbox.ParseIdentifier(conf.Outbox.Table)
		if err != nil {
			return nil, errors.Wrap(err, "OUTBOX_TABLE")
		}
		if pool == nil {
			return tasks.NewOutboxScheduler(nil, table, nil), nil
		}
		return tasks.NewOutboxScheduler(pool, table, nil), nil
	default:
		return nil, fmt.Errorf("unknown scheduler driver %q", s.Driver)
	}
}

// ModuleOptions wires the sentencing module from conf.
func ModuleOptions(ctx context.Context, conf *configuration.Configuration, pool *pgxpool.Pool) (*sentencing.ModuleOptions, error) {
	store, err := BlobStore(ctx, conf.Storage)
	if err != nil {
		return nil, errors.Wrap(err, "blob store")
	}
	scheduler, err := Scheduler(ctx, conf, pool)
	if err != nil {
		return nil, errors.Wrap(err, "scheduler")
	}
	return &sentencing.ModuleOptions{
		Import:        conf.Import,
		Blobs:         store,
		MaxObjectSize: conf.Storage.MaxObjectSize,
		Verifier:      bearer.NewVerifier(conf.Import.TokenAudience),
		Scheduler:     scheduler,
	}, nil
}

// StartOutbox runs the relay and cleaner of the import outbox until ctx is
// done. It does nothing unless the outbox scheduler is configured.
func StartOutbox(ctx context.Context, conf *configuration.Configuration, pool *pgxpool.Pool, logger *logrus.Logger) error {
	if conf.Scheduler.Driver != "outbox" {
		return nil
	}
	log := logger.WithField("component", "outbox")
	table, err := outbox.ParseIdentifier(conf.Outbox.Table)
	if err != nil {
		return errors.Wrap(err, "OUTBOX_TABLE")
	}

	if conf.Outbox.RelayEnabled {
		if conf.Scheduler.HandleURL == "" {
			return errors.New("SCHEDULER_HANDLE_URL is required for the outbox relay")
		}
		dispatcher := httptask.New(conf.Scheduler.HandleURL, nil)
		if conf.Scheduler.ServiceAccountEmail != "" {
			audience := conf.Import.TokenAudience
			if audience == "" {
				audience = conf.Scheduler.HandleURL
			}
			dispatcher, err = httptask.NewWithIDToken(ctx, conf.Scheduler.HandleURL, audience)
			if err != nil {
				return err
			}
		}
		relay, err := outbox.NewRelay(pool, table, dispatcher, outbox.RelayOptions{
			PollInterval:    conf.Outbox.RelayPollInterval,
			BatchSize:       conf.Outbox.RelayBatchSize,
			LockTTL:         conf.Outbox.RelayLockTTL,
			MaxAttempts:     conf.Outbox.RelayMaxAttempts,
			SingleActive:    conf.Outbox.RelaySingleActive,
			LastErrorMaxLen: conf.Outbox.LastErrorMaxBytes,
			DispatchTimeout: conf.Outbox.RelayDispatchTimeout,
			Logger:          log,
		})
		if err != nil {
			return errors.Wrap(err, "outbox relay")
		}
		go func() {
			if err := relay.Run(ctx); err != nil && ctx.Err() == nil {
				log.WithError(err).Error("outbox: relay stopped")
			}
		}()
	}

	if conf.Outbox.CleanerEnabled {
		cleaner, err := outbox.NewCleaner(pool, table, outbox.CleanerOptions{
			Interval:      conf.Outbox.CleanerInterval,
			Retention:     conf.Outbox.CleanerRetention,
			DeadRetention: conf.Outbox.CleanerDeadRetention,
			MaxAttempts:   conf.Outbox.RelayMaxAttempts,
			Logger:        log,
		})
		if err != nil {
			return errors.Wrap(err, "outbox cleaner")
		}
		go func() {
			if err := cleaner.Run(ctx); err != nil && ctx.Err() == nil {
				log.WithError(err).Error("outbox: cleaner stopped")
			}
		}()
	}
	return nil
}
