package main

import (
	"context"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/iota-uz/sentencing-etl/internal/bootstrap"
	"github.com/iota-uz/sentencing-etl/modules/sentencing/domain"
	"github.com/iota-uz/sentencing-etl/modules/sentencing/services"
	"github.com/iota-uz/sentencing-etl/pkg/configuration"
)

type scheduleOptions struct {
	bucket string
	object string
}

func newScheduleCmd() *cobra.Command {
	var opts scheduleOptions

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Schedule an import task for an object, as the trigger endpoint would",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			conf := configuration.Use()

			var pool *pgxpool.Pool
			if conf.Scheduler.Driver == "outbox" {
				var err error
				if pool, err = connectDB(ctx, conf); err != nil {
					return err
				}
				defer pool.Close()
			}
			scheduler, err := bootstrap.Scheduler(ctx, conf, pool)
			if err != nil {
				return withCode(exitUsage, err)
			}
			return runSchedule(ctx, opts, conf.Import.Bucket, scheduler, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.bucket, "bucket", "", "Bucket holding the export (required)")
	cmd.Flags().StringVar(&opts.object, "object", "", "Object name, e.g. US_ID/sentencing_case_record.json (required)")
	_ = cmd.MarkFlagRequired("bucket")
	_ = cmd.MarkFlagRequired("object")
	return cmd
}

func runSchedule(ctx context.Context, opts scheduleOptions, allowedBucket string, scheduler services.Scheduler, out io.Writer) error {
	// Loaders are only looked up here, never run.
	loaders := services.NewLoaders(domain.Repositories{}, nil, services.LoaderOptions{WriteConcurrency: 1})
	target, err := services.NewPathResolver(allowedBucket, loaders).Resolve(opts.bucket, opts.object)
	if err != nil {
		return withCode(exitUsage, err)
	}
	if err := scheduler.Schedule(ctx, target.Bucket, target.Object); err != nil {
		return withCode(exitDBWrite, fmt.Errorf("schedule %s/%s: %w", target.Bucket, target.Object, err))
	}
	return writeJSONLine(out, map[string]string{
		"bucketId": target.Bucket,
		"objectId": target.Object,
		"entity":   string(target.Entity),
		"state":    string(target.StateCode),
	})
}
