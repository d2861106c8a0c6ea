// custodyd serves the custody transfer pipeline over gRPC.
//
// The ledger backend is chosen at startup from the build-time backend
// registry. Configuration comes from the environment (IMMUTRACK_*), with
// flags overriding.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"

	"immutrack.io/custody/attest"
	"immutrack.io/custody/custodyapi"
	"immutrack.io/custody/internal/config"
	"immutrack.io/custody/ledger/ledgerregistry"
	"immutrack.io/custody/pipeline"
	"immutrack.io/custody/sequencer"

	_ "immutrack.io/custody/ledger/grpcledger"
	_ "immutrack.io/custody/ledger/memledger"
)

type envConfig struct {
	Listen        string `env:"IMMUTRACK_LISTEN" envDefault:"127.0.0.1:7788"`
	Backend       string `env:"IMMUTRACK_BACKEND" envDefault:"mem"`
	Network       string `env:"IMMUTRACK_NETWORK" envDefault:"localnet"`
	LedgerAddr    string `env:"IMMUTRACK_LEDGER_ADDR"`
	AutoAuthorize bool   `env:"IMMUTRACK_AUTO_AUTHORIZE" envDefault:"false"`
	LogLevel      string `env:"IMMUTRACK_LOG_LEVEL" envDefault:"info"`
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var cfg envConfig
	if err := config.ParseEnv(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	fs := flag.NewFlagSet("custodyd", flag.ExitOnError)
	listen := fs.String("listen", cfg.Listen, "listen address")
	backend := fs.String("backend", cfg.Backend, "ledger backend name")
	network := fs.String("network", cfg.Network, "network identifier for the attestation domain")
	ledgerAddr := fs.String("ledger", cfg.LedgerAddr, "ledger address 0x... for the attestation domain")
	autoAuthorize := fs.Bool("auto-authorize", cfg.AutoAuthorize, "authorize handlers on first valid attestation (trust on first use)")
	logLevel := fs.String("log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	listBackends := fs.Bool("list-backends", false, "List supported backends and exit")

	ledgerregistry.RegisterFlags(fs, ledgerregistry.UsageDaemon)

	_ = fs.Parse(args)
	if *listBackends {
		for _, b := range ledgerregistry.List(ledgerregistry.UsageDaemon) {
			if b.Description == "" {
				fmt.Fprintf(os.Stdout, "%s\n", b.Name)
				continue
			}
			fmt.Fprintf(os.Stdout, "%s\t%s\n", b.Name, b.Description)
		}
		return 0
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(*logLevel),
	}))

	if *ledgerAddr == "" {
		logger.Error("missing --ledger (or IMMUTRACK_LEDGER_ADDR)")
		return 2
	}
	ledgerID, err := attest.ParseIdentity(*ledgerAddr)
	if err != nil {
		logger.Error("invalid ledger address", "error", err)
		return 2
	}

	backing, closeFn, err := ledgerregistry.Open(*backend, ledgerregistry.UsageDaemon)
	if err != nil {
		logger.Error("open ledger backend", "backend", *backend, "error", err)
		return 2
	}
	if closeFn != nil {
		defer func() { _ = closeFn() }()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	seq := sequencer.New(backing, sequencer.Options{Logger: logger})
	go seq.Run(ctx)

	pipe, err := pipeline.New(backing, seq, pipeline.Options{
		Domain: attest.Domain{
			Scheme:  attest.DefaultScheme,
			Version: attest.DefaultVersion,
			Network: *network,
			Ledger:  ledgerID,
		},
		AutoAuthorize: *autoAuthorize,
		Logger:        logger,
	})
	if err != nil {
		logger.Error("build pipeline", "error", err)
		return 2
	}

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		logger.Error("listen", "addr", *listen, "error", err)
		return 1
	}
	defer lis.Close()

	srv := grpc.NewServer()
	custodyapi.RegisterCustodyServer(srv, &custodyapi.Server{Pipeline: pipe, Reader: backing})

	go func() {
		<-ctx.Done()
		srv.GracefulStop()
	}()

	logger.Info("custodyd listening",
		"addr", lis.Addr().String(), "backend", *backend,
		"network", *network, "auto_authorize", *autoAuthorize)
	if err := srv.Serve(lis); err != nil {
		logger.Error("serve", "error", err)
		return 1
	}
	return 0
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
