package main

import (
	"context"
	"fmt"
	"net/http"
	"net/netip"
	"os"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/maxpoletaev/gms/faildetector"
	"github.com/maxpoletaev/gms/gossip"
	"github.com/maxpoletaev/gms/membership"
	"github.com/maxpoletaev/gms/transport/rpc"
	"github.com/maxpoletaev/gms/transport/udp"
)

type shutdownFunc func(ctx context.Context) error

var noopShutdown = func(ctx context.Context) error { return nil }

func setupLogger() (kitlog.Logger, shutdownFunc) {
	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stderr))
	logger = kitlog.With(logger, "ts", kitlog.DefaultTimestampUTC)

	if !opts.Verbose {
		logger = level.NewFilter(logger, level.AllowInfo())
	}

	return logger, noopShutdown
}

func setupMetrics() (*prometheus.Registry, http.Handler) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return reg, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

func setupTransport(logger kitlog.Logger) (gossip.Transport, error) {
	bindAddr, err := netip.ParseAddrPort(opts.Node.BindAddr)
	if err != nil {
		return nil, fmt.Errorf("invalid bind address: %w", err)
	}

	var advertiseAddr netip.AddrPort

	if opts.Node.AdvertiseAddr != "" {
		advertiseAddr, err = netip.ParseAddrPort(opts.Node.AdvertiseAddr)
		if err != nil {
			return nil, fmt.Errorf("invalid advertise address: %w", err)
		}
	} else if bindAddr.Addr().IsUnspecified() {
		return nil, fmt.Errorf("advertise address is required when binding to %s", bindAddr)
	}

	logger = kitlog.With(logger, "transport", opts.Node.Transport)

	switch opts.Node.Transport {
	case "grpc":
		return rpc.Create(rpc.Config{
			BindAddr:      bindAddr,
			AdvertiseAddr: advertiseAddr,
			CallTimeout:   time.Duration(opts.Gossip.DialTimeout) * time.Millisecond,
			Logger:        logger,
		})
	default:
		return udp.Create(udp.Config{
			BindAddr:       bindAddr,
			AdvertiseAddr:  advertiseAddr,
			Workers:        opts.Gossip.Workers,
			MaxPayloadSize: opts.Gossip.MaxPayloadSize,
			Logger:         logger,
		})
	}
}

func setupGroup(logger kitlog.Logger) (*membership.Group, error) {
	conf := membership.DefaultConfig()
	conf.Logger = kitlog.With(logger, "component", "membership")
	conf.HeartbeatInterval = time.Duration(opts.Membership.HeartbeatInterval) * time.Millisecond
	conf.Timeout = time.Duration(opts.Membership.Timeout) * time.Millisecond
	conf.ForgetAfter = time.Duration(opts.Membership.ForgetAfter) * time.Second
	conf.BitsetWidth = opts.Membership.BitsetWidth
	conf.Preferred = opts.Node.Preferred

	return membership.New(conf)
}

func setupGossiper(
	transport gossip.Transport,
	group *membership.Group,
	reg prometheus.Registerer,
	logger kitlog.Logger,
) (*gossip.Gossiper, shutdownFunc, error) {
	seeds, err := parseAddrPorts(opts.Gossip.Seeds)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid seeds: %w", err)
	}

	estimator, err := faildetector.ParseEstimator(opts.Gossip.Estimator)
	if err != nil {
		return nil, nil, err
	}

	interval := time.Duration(opts.Gossip.Interval) * time.Millisecond

	conf := gossip.DefaultConfig()
	conf.Transport = transport
	conf.Receiver = group
	conf.Logger = kitlog.With(logger, "component", "gossip")
	conf.Metrics = gossip.NewMetrics(reg)
	conf.Seeds = seeds
	conf.Interval = interval
	conf.QuarantineDelay = time.Duration(opts.Gossip.QuarantineDelay) * time.Millisecond
	conf.UnreachableTTL = time.Duration(opts.Gossip.UnreachableTTL) * time.Second
	conf.DialTimeout = time.Duration(opts.Gossip.DialTimeout) * time.Millisecond
	conf.ConvictThreshold = opts.Gossip.ConvictThreshold
	conf.WindowSize = opts.Gossip.WindowSize
	conf.Estimator = estimator
	conf.MinInterval = time.Duration(opts.Gossip.MinInterval) * time.Millisecond
	conf.InitialInterval = 2 * time.Duration(opts.Membership.HeartbeatInterval) * time.Millisecond

	gossiper, err := gossip.New(conf)
	if err != nil {
		return nil, nil, err
	}

	if err := group.Start(gossiper); err != nil {
		return nil, nil, err
	}

	if err := gossiper.Start(); err != nil {
		group.Terminate()
		return nil, nil, err
	}

	shutdown := func(ctx context.Context) error {
		level.Info(logger).Log("msg", "leaving the cluster")

		group.Terminate()

		if err := gossiper.Terminate(); err != nil {
			return fmt.Errorf("failed to terminate gossiper: %w", err)
		}

		return nil
	}

	return gossiper, shutdown, nil
}
