// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/time/rate"

	"github.com/bureau-foundation/debrepo/lib/assemble"
	"github.com/bureau-foundation/debrepo/lib/config"
	"github.com/bureau-foundation/debrepo/lib/jobs"
	"github.com/bureau-foundation/debrepo/lib/process"
	"github.com/bureau-foundation/debrepo/lib/service"
	"github.com/bureau-foundation/debrepo/lib/trigger"
	"github.com/bureau-foundation/debrepo/lib/version"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

func run(args []string) error {
	flagSet := pflag.NewFlagSet("debrepo-service", pflag.ContinueOnError)
	showVersion := flagSet.Bool("version", false, "print version information and exit")
	configPath := flagSet.String("config", "", "configuration file (default $DEBREPO_CONFIG)")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return &process.ExitError{Code: 2, Err: err}
	}
	if *showVersion {
		fmt.Printf("debrepo-service %s\n", version.Full())
		return nil
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil)).With(
		"service", "debrepo",
		"version", version.Version,
		"environment", cfg.Environment,
	)
	slog.SetDefault(logger)

	ctx, stop := process.SignalContext()
	defer stop()

	daemon, err := newDaemon(ctx, cfg, assemble.Options{Logger: logger})
	if err != nil {
		return err
	}
	defer daemon.Close()

	return daemon.Run(ctx)
}

func loadConfig(path string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	if err := cfg.EnsurePaths(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// daemon is the wired service: job store, builder, queue and HTTP
// listener.
type daemon struct {
	store      *jobs.SQLiteStore
	components *assemble.Components
	queue      *jobs.Queue
	server     *service.HTTPServer
	logger     *slog.Logger
}

func newDaemon(ctx context.Context, cfg *config.Config, options assemble.Options) (*daemon, error) {
	logger := options.Logger

	store, err := jobs.OpenSQLiteStore(ctx, cfg.Paths.Database, logger)
	if err != nil {
		return nil, err
	}
	d := &daemon{store: store, logger: logger}

	d.components, err = assemble.New(ctx, cfg, options)
	if err != nil {
		d.Close()
		return nil, err
	}

	d.queue, err = jobs.NewQueue(jobs.QueueConfig{
		Runner:       d.components.Builder,
		Store:        store,
		Workers:      cfg.Service.Workers,
		Capacity:     cfg.Service.QueueCapacity,
		BuildTimeout: time.Duration(cfg.Service.BuildTimeout),
		Clock:        options.Clock,
		Logger:       logger,
	})
	if err != nil {
		d.Close()
		return nil, err
	}

	handler, err := trigger.New(trigger.Config{
		Queue:         d.queue,
		Store:         store,
		WebhookSecret: []byte(cfg.Service.WebhookSecret),
		RateLimit:     rate.Limit(cfg.Service.RateLimit),
		Burst:         cfg.Service.RateBurst,
		TrustProxy:    cfg.Service.TrustProxy,
		Clock:         options.Clock,
		Logger:        logger,
	})
	if err != nil {
		d.Close()
		return nil, err
	}
	if cfg.Service.WebhookSecret == "" {
		logger.Warn("service.webhook_secret is empty; POST /webhooks/github is disabled")
	}

	d.server, err = service.NewHTTPServer(service.HTTPServerConfig{
		Address:         cfg.Service.Address,
		Handler:         service.AccessLog(logger, handler, "/healthz"),
		ShutdownTimeout: time.Duration(cfg.Service.ShutdownTimeout),
		Logger:          logger,
	})
	if err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

// Run serves until ctx is cancelled or the listener fails, then waits
// for the listener to drain and running builds to return.
func (d *daemon) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	queueDone := make(chan error, 1)
	go func() {
		queueDone <- d.queue.Run(ctx)
	}()

	httpDone := make(chan error, 1)
	go func() {
		httpDone <- d.server.Serve(ctx)
	}()

	var httpErr error
	select {
	case <-d.server.Ready():
		d.logger.Info("trigger API ready", "address", d.server.Addr().String())
		select {
		case <-ctx.Done():
			d.logger.Info("shutting down")
			httpErr = <-httpDone
		case httpErr = <-httpDone:
		}
	case httpErr = <-httpDone:
	}
	cancel()
	queueErr := <-queueDone

	var errs []error
	if httpErr != nil {
		errs = append(errs, fmt.Errorf("http server: %w", httpErr))
	}
	if queueErr != nil {
		errs = append(errs, fmt.Errorf("build queue: %w", queueErr))
	}
	return errors.Join(errs...)
}

func (d *daemon) Close() {
	if d.components != nil {
		if err := d.components.Close(); err != nil {
			d.logger.Warn("closing object store", "error", err)
		}
	}
	if err := d.store.Close(); err != nil {
		d.logger.Warn("closing job store", "error", err)
	}
}
