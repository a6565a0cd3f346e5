package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iota-uz/sentencing-etl/modules/sentencing/domain"
	"github.com/iota-uz/sentencing-etl/modules/sentencing/infrastructure/memory"
	"github.com/iota-uz/sentencing-etl/modules/sentencing/infrastructure/persistence"
	"github.com/iota-uz/sentencing-etl/modules/sentencing/services"
	"github.com/iota-uz/sentencing-etl/pkg/composables"
	"github.com/iota-uz/sentencing-etl/pkg/configuration"
)

type loadOptions struct {
	entity      string
	state       string
	file        string
	dryRun      bool
	concurrency int
}

func newLoadCmd() *cobra.Command {
	var opts loadOptions

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Run one loader on a local export file",
		Long:  `Run one loader on a local export file (JSON array or JSON lines).

The entity is taken from --entity, or from the file name when it is one of the
export names (e.g. sentencing_case_record.json). With --dry-run the batch is
validated and loaded into an empty in-memory store instead of the database.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			conf := configuration.Use()
			reporter := services.NewLogReporter(conf.Logger())

			if opts.dryRun {
				return runLoad(ctx, opts, memory.NewStore().Repositories(), reporter, cmd.OutOrStdout())
			}
			pool, err := connectDB(ctx, conf)
			if err != nil {
				return err
			}
			defer pool.Close()
			return runLoad(composables.WithPool(ctx, pool), opts, persistence.NewRepositories(), reporter, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.entity, "entity", "", "Entity: client|staff|case|opportunity|insight|offense (default: from file name)")
	cmd.Flags().StringVar(&opts.state, "state", "", "State code, e.g. US_ID (required)")
	cmd.Flags().StringVar(&opts.file, "file", "", "Export file (required)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Load into an in-memory store instead of the database")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 1, "Concurrent record writes")
	_ = cmd.MarkFlagRequired("state")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (o loadOptions) resolve() (domain.Entity, domain.StateCode, error) {
	state := domain.NormalizeStateCode(strings.TrimSpace(o.state))
	if !state.Valid() {
		return "", "", withCode(exitUsage, fmt.Errorf("unknown state %q", o.state))
	}
	if o.concurrency < 1 {
		return "", "", withCode(exitUsage, fmt.Errorf("--concurrency must be >= 1"))
	}
	if o.entity == "" {
		entity, ok := services.ObjectEntities[filepath.Base(o.file)]
		if !ok {
			return "", "", withCode(exitUsage, fmt.Errorf("--entity is required for %s", filepath.Base(o.file)))
		}
		return entity, state, nil
	}
	return domain.Entity(strings.ToLower(o.entity)), state, nil
}

func runLoad(ctx context.Context, opts loadOptions, repos domain.Repositories, reporter services.Reporter, out io.Writer) error {
	entity, state, err := opts.resolve()
	if err != nil {
		return err
	}
	loader, ok := services.NewLoaders(repos, reporter, services.LoaderOptions{WriteConcurrency: opts.concurrency})[entity]
	if !ok {
		return withCode(exitUsage, fmt.Errorf("unknown entity %q", opts.entity))
	}

	data, err := os.ReadFile(opts.file)
	if err != nil {
		return withCode(exitUsage, err)
	}
	raw, err := services.ParseRecords(data)
	if err != nil {
		return withCode(exitValidation, fmt.Errorf("%s: %w", opts.file, err))
	}

	result, err := loader.Load(ctx, state, raw)
	if err != nil {
		return withCode(loadCode(err), err)
	}
	return writeJSONLine(out, result)
}
