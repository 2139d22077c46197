// Command txsim runs the replicated transaction manager simulator's
// REPL: a script file if given, otherwise stdin, one command per line.
//
// Grounded in the teacher's cmd/relational-db/main.go plain-main shape
// and original_source/main.py's file-arg-or-stdin loop, with flags and
// signal handling adapted from the retrieved pack's cobra-based CLIs
// (bunbase's platform and docdb commands).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"txsim/internal/config"
	"txsim/pkg/txsim"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		file        string
		logLevel    string
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "txsim",
		Short: "Replicated Available-Copies transaction manager simulator",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(file, logLevel, metricsAddr)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "script file to execute (default: read stdin)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "if set, serve Prometheus metrics on this host:port")

	return cmd
}

func run(file, logLevel, metricsAddr string) error {
	cfg := config.Default()
	cfg.LogLevel = logLevel
	cfg.MetricsAddr = metricsAddr

	engine, err := txsim.New(cfg)
	if err != nil {
		return err
	}
	defer engine.Sync()

	if cfg.MetricsAddr != "" {
		serveMetrics(engine, cfg.MetricsAddr)
	}

	var input *os.File
	if file != "" {
		input, err = os.Open(file)
		if err != nil {
			return fmt.Errorf("txsim: opening %s: %w", file, err)
		}
		defer input.Close()
	} else {
		input = os.Stdin
	}

	return engine.Run(input, os.Stdout)
}

func serveMetrics(engine *txsim.Engine, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(engine.Metrics().Registry(), promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "txsim: metrics server: %v\n", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		stop()
		_ = server.Close()
	}()
}
