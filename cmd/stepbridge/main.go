// cmd/stepbridge/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/soya0924/shoe0522/internal/api"
	"github.com/soya0924/shoe0522/internal/bridge"
	"github.com/soya0924/shoe0522/internal/config"
	"github.com/soya0924/shoe0522/internal/hub"
	"github.com/soya0924/shoe0522/internal/link"
	"github.com/soya0924/shoe0522/internal/metrics"
	"github.com/soya0924/shoe0522/internal/mirror"
	"github.com/soya0924/shoe0522/internal/retention"
	"github.com/soya0924/shoe0522/internal/status"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var cfgPath string
	var checkOnly bool

	flagSet := pflag.NewFlagSet("stepbridge", pflag.ContinueOnError)
	flagSet.StringVarP(&cfgPath, "config", "c", "", "path to YAML config (defaults apply when omitted)")
	flagSet.BoolVar(&checkOnly, "check", false, "validate the config and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	config.Normalize(cfg)

	if checkOnly {
		fmt.Println("config ok")
		return nil
	}

	b := cfg.Bridge
	logger, err := newLogger(b.Logging)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --------------------
	// Metrics (optional)
	// --------------------

	var reg *prometheus.Registry
	var m *metrics.Metrics
	if b.Metrics.On() {
		reg = metrics.NewRegistry()
		m = metrics.New(reg)
	}

	// --------------------
	// Components
	// --------------------

	registry := status.NewRegistry(b.Reconnect.MaxAttempts)

	store, err := retention.Open(retention.Config{
		Path:    b.Retention.Path,
		Window:  time.Duration(b.Retention.WindowHours) * time.Hour,
		Metrics: m,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	discoverer := &link.PatternDiscoverer{
		Static: b.Device.Endpoints,
		Globs:  b.Device.ScanGlobs,
		Match:  b.Device.Match,
	}
	opener := link.SerialOpener(link.SerialConfig{
		BaudRate:    b.Device.BaudRate,
		DataBits:    b.Device.DataBits,
		StopBits:    b.Device.StopBits,
		Parity:      b.Device.Parity,
		ReadTimeout: ms(b.Device.ReadTimeoutMs),
	})

	manager, err := link.New(link.Config{
		MaxAttempts: b.Reconnect.MaxAttempts,
		Backoff: link.Backoff{
			Base: ms(b.Reconnect.BaseDelayMs),
			Max:  ms(b.Reconnect.MaxDelayMs),
		},
		MaxLineBytes: b.Device.MaxLineBytes,
	}, discoverer, opener, registry,
		link.WithLogger(logger),
		link.WithMetrics(m),
	)
	if err != nil {
		return err
	}

	h := hub.New(b.Live.QueueSize, hub.WithLogger(logger), hub.WithMetrics(m))

	deps := bridge.Deps{
		Registry: registry,
		Link:     manager,
		Store:    store,
		Hub:      h,
		Logger:   logger,
		Metrics:  m,
	}

	if b.StatusMemory.Enabled() {
		cli, err := mirror.NewEndpointClient(mirror.ClientConfig{
			Endpoint: b.StatusMemory.Endpoint,
			Timeout:  ms(b.StatusMemory.TimeoutMs),
		})
		if err != nil {
			return err
		}
		defer cli.Close()

		sw, err := mirror.NewStatusWriter(mirror.Plan{
			UnitID:     b.StatusMemory.UnitID,
			BaseSlot:   b.StatusMemory.BaseSlot,
			DeviceName: b.StatusMemory.DeviceName,
		}, cli)
		if err != nil {
			return err
		}
		deps.Mirror = mirror.New(sw, logger, m)
	}

	svc, err := bridge.New(deps)
	if err != nil {
		return err
	}

	// --------------------
	// Listeners
	// --------------------

	liveLn, err := net.Listen("tcp", b.Live.Addr)
	if err != nil {
		return fmt.Errorf("live listener: %w", err)
	}
	httpLn, err := net.Listen("tcp", b.HTTP.Addr)
	if err != nil {
		_ = liveLn.Close()
		return fmt.Errorf("http listener: %w", err)
	}

	liveMux := http.NewServeMux()
	liveMux.Handle(b.Live.Path, api.NewLiveHandler(svc, api.LiveConfig{
		WriteTimeout: ms(b.Live.WriteTimeoutMs),
	}, logger))

	logger.Info("stepbridge starting",
		"retention", store.Path(),
		"live_addr", liveLn.Addr().String(),
		"http_addr", httpLn.Addr().String(),
		"max_attempts", b.Reconnect.MaxAttempts,
		"status_memory", b.StatusMemory.Enabled(),
	)

	// --------------------
	// Run until signalled
	// --------------------

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return svc.Run(gctx) })
	g.Go(func() error { return api.Serve(gctx, liveLn, liveMux, logger) })
	g.Go(func() error { return api.Serve(gctx, httpLn, api.NewRouter(svc, reg, logger), logger) })

	err = g.Wait()
	logger.Info("stepbridge stopped")
	return err
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }
