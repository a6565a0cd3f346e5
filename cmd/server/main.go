package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iota-uz/sentencing-etl/internal/bootstrap"
	"github.com/iota-uz/sentencing-etl/internal/server"
	"github.com/iota-uz/sentencing-etl/modules"
	"github.com/iota-uz/sentencing-etl/pkg/application"
	"github.com/iota-uz/sentencing-etl/pkg/configuration"
	"github.com/iota-uz/sentencing-etl/pkg/logging"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			configuration.Use().Unload()
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	defer conf.Unload()
	logger := conf.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if conf.OpenTelemetry.Enabled {
		tracingCleanup := logging.SetupTracing(ctx, conf.OpenTelemetry.ServiceName, conf.OpenTelemetry.TempoURL)
		defer tracingCleanup()
		logger.Info("OpenTelemetry tracing enabled, exporting to Tempo at " + conf.OpenTelemetry.TempoURL)
	}

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := pgxpool.New(connectCtx, conf.Database.Opts)
	if err != nil {
		panic(err)
	}
	defer pool.Close()

	app := application.New(&application.ApplicationOptions{Pool: pool, Logger: logger})
	moduleOpts, err := bootstrap.ModuleOptions(ctx, conf, pool)
	if err != nil {
		log.Fatalf("failed to configure modules: %v", err)
	}
	if err := modules.Load(app, modules.BuiltInModules(moduleOpts)...); err != nil {
		log.Fatalf("failed to load modules: %v", err)
	}

	if conf.MigrateOnStart {
		if err := app.Migrations().Up(ctx); err != nil {
			log.Fatalf("failed to apply migrations: %v", err)
		}
	}
	if err := bootstrap.StartOutbox(ctx, conf, pool, logger); err != nil {
		log.Fatalf("failed to start outbox: %v", err)
	}

	serverInstance, err := server.Default(&server.DefaultOptions{
		Logger:        logger,
		Configuration: conf,
		Application:   app,
		Pool:          pool,
	})
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}
	log.Printf("Listening on: %s\n", conf.SocketAddress)
	if err := serverInstance.Start(ctx, conf.SocketAddress); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
