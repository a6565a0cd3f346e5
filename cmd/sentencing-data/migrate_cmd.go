package main

import (
	"github.com/spf13/cobra"

	"github.com/iota-uz/sentencing-etl/modules/sentencing/infrastructure/persistence"
	"github.com/iota-uz/sentencing-etl/pkg/application"
	"github.com/iota-uz/sentencing-etl/pkg/configuration"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect the sentencing schema migrations",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, closeDB, err := migrations(cmd)
			if err != nil {
				return err
			}
			defer closeDB()
			if err := m.Up(cmd.Context()); err != nil {
				return withCode(exitDBWrite, err)
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print one JSON line per migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, closeDB, err := migrations(cmd)
			if err != nil {
				return err
			}
			defer closeDB()
			statuses, err := m.Status(cmd.Context())
			if err != nil {
				return withCode(exitDB, err)
			}
			for _, s := range statuses {
				if err := writeJSONLine(cmd.OutOrStdout(), s); err != nil {
					return err
				}
			}
			return nil
		},
	})
	return cmd
}

func migrations(cmd *cobra.Command) (application.MigrationManager, func(), error) {
	conf := configuration.Use()
	pool, err := connectDB(cmd.Context(), conf)
	if err != nil {
		return nil, nil, err
	}
	m := application.NewMigrationManager(pool, conf.Logger())
	m.RegisterSchema("sentencing", persistence.Schema())
	return m, pool.Close, nil
}
