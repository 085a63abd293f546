package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/jessevdk/go-flags"
	"golang.org/x/sync/errgroup"

	"github.com/maxpoletaev/gms/api"
)

func main() {
	p := flags.NewParser(&opts, flags.Default)

	if _, err := p.Parse(); err != nil {
		var flagsErr *flags.Error
		if !errors.As(err, &flagsErr) || flagsErr.Type != flags.ErrHelp {
			fmt.Println("cli error:", err)
		}

		os.Exit(2)
	}

	if opts.Config != "" {
		if err := loadConfigFile(p, opts.Config); err != nil {
			fmt.Println("config error:", err)
			os.Exit(2)
		}
	}

	logger, closeLogger := setupLogger()

	if err := run(logger); err != nil {
		level.Error(logger).Log("msg", "agent failed", "err", err)
		_ = closeLogger(context.Background())
		os.Exit(1)
	}

	_ = closeLogger(context.Background())
}

func run(logger kitlog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg, metricsHandler := setupMetrics()

	transport, err := setupTransport(logger)
	if err != nil {
		return err
	}

	group, err := setupGroup(logger)
	if err != nil {
		_ = transport.Close()
		return err
	}

	gossiper, closeGossiper, err := setupGossiper(transport, group, reg, logger)
	if err != nil {
		_ = transport.Close()
		return err
	}

	level.Info(logger).Log(
		"msg", "node started",
		"addr", gossiper.LocalAddr(),
		"id", group.ID(),
		"transport", opts.Node.Transport,
	)

	eg, egCtx := errgroup.WithContext(ctx)

	if opts.RestAPI.Enabled {
		router := api.CreateRouter(gossiper, group, metricsHandler)

		eg.Go(func() error {
			return api.StartServer(egCtx, router, logger, opts.RestAPI.BindAddr)
		})
	}

	// Block until we receive a signal to shut down, or the API server fails.
	<-egCtx.Done()
	level.Info(logger).Log("msg", "shutting down")

	// Components must be shut down in a particular order.
	shutdownOrder := []shutdownFunc{
		closeGossiper,
	}

	for _, f := range shutdownOrder {
		if err := f(context.Background()); err != nil {
			level.Error(logger).Log("msg", "failed to shutdown component", "err", err)
		}
	}

	return eg.Wait()
}
