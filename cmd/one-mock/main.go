// one-mock serves an in-memory control plane over XML-RPC for local
// development against onectl or any other client.
//
// The RPC endpoint is http://<listen>/RPC2; prometheus metrics are served on
// --metrics-addr. With ONE_RPC_ETCD_ENDPOINTS set, the endpoint registers
// itself for discovery under /one-rpc/<service>/.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"one-rpc/config"
	"one-rpc/metrics"
	"one-rpc/middleware"
	"one-rpc/onetest"
	"one-rpc/registry"
	"one-rpc/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	flags := pflag.NewFlagSet("one-mock", pflag.ContinueOnError)
	configPath := flags.String("config", "", "YAML config file (default $ONE_RPC_CONFIG)")
	listen := flags.String("listen", "", "RPC listen address (default from config)")
	advertise := flags.String("advertise", "", "endpoint URL registered in etcd (default http://<listen>/RPC2)")
	metricsAddr := flags.String("metrics-addr", ":9464", "prometheus listen address, empty to disable")
	seedPath := flags.String("seed", "", "YAML fixture with users and templates")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *listen != "" {
		cfg.ListenAddr = *listen
	}

	logger, err := config.BuildLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cp := onetest.New()
	seed := defaultSeed(cfg)
	if *seedPath != "" {
		if seed, err = loadSeed(*seedPath); err != nil {
			return err
		}
	}
	seed.apply(cp)
	logger.Info("seeded control plane", zap.Int("users", len(seed.Users)), zap.Int("templates", len(seed.Templates)))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return err
	}

	opts := []server.Option{server.WithLogger(logger)}
	if len(cfg.EtcdEndpoints) > 0 {
		etcd, err := registry.NewEtcdRegistry(registry.EtcdConfig{Endpoints: cfg.EtcdEndpoints, Logger: logger})
		if err != nil {
			_ = ln.Close()
			return err
		}
		defer etcd.Close()
		addr := *advertise
		if addr == "" {
			addr = "http://" + ln.Addr().String() + "/RPC2"
		}
		opts = append(opts, server.WithRegistry(etcd, cfg.Service, addr, 10))
	}

	srv := cp.Server(opts...)
	srv.Use(middleware.RequestID())
	srv.Use(middleware.Logging(logger))
	srv.Use(middleware.Metrics(metrics.NewCollector(reg)))
	if cfg.RateLimit > 0 {
		srv.Use(middleware.RateLimit(cfg.RateLimit, cfg.RateBurst))
	}
	srv.Use(middleware.Timeout(cfg.Timeout))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(ln)
	})

	var metricsServer *http.Server
	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		metricsServer = &http.Server{Addr: *metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			if err := metricsServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if metricsServer != nil {
			_ = metricsServer.Shutdown(shutdownCtx)
		}
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
