// Package main is the entry point for the evmnet demo: a small
// terminal dashboard that wires up the connection manager, gas price
// oracle, contract caller and transaction executor against a real
// Ethereum-compatible RPC endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/fd1az/arbitrage-bot/business/evmnet"
	evmnetDI "github.com/fd1az/arbitrage-bot/business/evmnet/di"
	"github.com/fd1az/arbitrage-bot/business/evmnet/domain"
	"github.com/fd1az/arbitrage-bot/internal/apm"
	"github.com/fd1az/arbitrage-bot/internal/config"
	"github.com/fd1az/arbitrage-bot/internal/health"
	"github.com/fd1az/arbitrage-bot/internal/logger"
	"github.com/fd1az/arbitrage-bot/internal/metrics"
	"github.com/fd1az/arbitrage-bot/internal/monolith"
	"github.com/fd1az/arbitrage-bot/pkg/ui"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	cliMode := flag.Bool("cli", false, "Run in CLI mode with logs (no TUI)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("evmnet-demo %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	tuiMode := !*cliMode

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		if !tuiMode {
			fmt.Fprintf(os.Stderr, "received shutdown signal: %v\n", sig)
		}
		cancel()
	}()

	if err := run(ctx, *configPath, tuiMode); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, tuiMode bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logLevel := logger.LevelInfo
	switch cfg.App.LogLevel {
	case "debug":
		logLevel = logger.LevelDebug
	case "warn":
		logLevel = logger.LevelWarn
	case "error":
		logLevel = logger.LevelError
	}

	var log *logger.Logger
	if tuiMode {
		log = logger.New(io.Discard, logLevel, cfg.App.Name)
	} else {
		log = logger.New(os.Stderr, logLevel, cfg.App.Name)
		log.Info(ctx, "starting evmnet demo",
			"version", version,
			"environment", cfg.App.Environment,
		)
	}

	var traceProvider apm.TraceProvider
	if cfg.Telemetry.Enabled {
		if cfg.Telemetry.ServiceName != "" {
			os.Setenv("OTEL_SERVICE_NAME", cfg.Telemetry.ServiceName)
		}
		if cfg.Telemetry.OTLPEndpoint != "" {
			os.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint)
		}

		traceProvider = apm.NewTraceProvider(log, apm.WithProvider(apm.ZipkinProvider, log))
		log.Info(ctx, "tracing initialized", "provider", "zipkin", "endpoint", cfg.Telemetry.OTLPEndpoint)

		metrics.NewMetricProvider(
			metrics.WithServiceName(cfg.Telemetry.ServiceName),
			metrics.WithProviderConfig(metrics.ProviderCfg{
				Provider: metrics.PrometheusProvider,
			}),
		)

		port := cfg.Telemetry.PrometheusPort
		if port == 0 {
			port = 9090
		}
		go metrics.ServePrometheusMetrics(metrics.WithPort(strconv.Itoa(port)))
		log.Info(ctx, "prometheus metrics server started", "port", port)
	}
	defer func() {
		if traceProvider != nil {
			traceProvider.Stop()
		}
	}()

	healthServer := health.NewServer(8081, version)
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	} else {
		log.Info(ctx, "health server started", "port", 8081)
	}
	defer healthServer.Stop(ctx)

	mono, err := monolith.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer mono.Close()

	modules := []monolith.Module{
		&evmnet.Module{},
	}

	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}

	healthServer.RegisterCheck("connection-manager", func(ctx context.Context) (bool, string) {
		conn := evmnetDI.GetConnectionManager(mono.Services())
		state := conn.State()
		return state == domain.StateConnected, string(state)
	})

	if tuiMode {
		startFunc := func() error {
			return mono.StartModules(ctx, modules...)
		}
		return runTUI(ctx, mono, startFunc)
	}

	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}

	return runCLI(ctx, mono, log)
}

func runCLI(ctx context.Context, mono monolith.Monolith, log *logger.Logger) error {
	log.Info(ctx, "all modules started")

	conn := evmnetDI.GetConnectionManager(mono.Services())
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info(ctx, "shutting down")
			return nil
		case <-ticker.C:
			snap := conn.Snapshot()
			log.Info(ctx, "connection snapshot",
				"state", snap.State,
				"block", snap.BlockNumber,
				"gas_average", snap.GasPrices.Average,
			)
		}
	}
}

func runTUI(ctx context.Context, mono monolith.Monolith, startFunc func() error) error {
	startSignal := make(chan struct{}, 1)
	ui.OnStartModules = func() {
		select {
		case startSignal <- struct{}{}:
		default:
		}
	}

	p := tea.NewProgram(ui.New(), tea.WithAltScreen())
	ui.Program = p

	errCh := make(chan error, 1)
	go func() {
		select {
		case <-startSignal:
		case <-ctx.Done():
			errCh <- nil
			return
		}

		if err := startFunc(); err != nil {
			ui.Send(ui.ErrorMsg{Error: err})
			errCh <- err
			return
		}

		go streamSnapshots(ctx, mono)

		<-ctx.Done()
		errCh <- nil
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}

// streamSnapshots polls the connection manager and contract caller and
// forwards their state to the TUI at a human-readable cadence.
func streamSnapshots(ctx context.Context, mono monolith.Monolith) {
	conn := evmnetDI.GetConnectionManager(mono.Services())
	caller := evmnetDI.GetContractCaller(mono.Services())

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ui.Send(ui.SnapshotMsg{Snapshot: conn.Snapshot()})
			ui.Send(ui.QueueDepthMsg{Depth: caller.QueueDepth()})
		}
	}
}
