package main

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"one-rpc/client"
	"one-rpc/config"
	"one-rpc/loadbalance"
	"one-rpc/middleware"
	"one-rpc/registry"
)

// newClient wires the call pipeline from cfg. The returned cleanup releases
// the etcd connection, if any.
func newClient(cfg config.Config, logger *zap.Logger) (*client.Client, func(), error) {
	mws := []middleware.Middleware{
		middleware.RequestID(),
		middleware.Logging(logger),
	}
	if cfg.RateLimit > 0 {
		mws = append(mws, middleware.RateLimit(cfg.RateLimit, cfg.RateBurst))
	}
	if cfg.MaxRetries > 0 {
		mws = append(mws, middleware.Retry(cfg.MaxRetries, cfg.RetryBaseDelay, logger))
	}

	opts := []client.Option{
		client.WithLogger(logger),
		client.WithMiddleware(mws...),
	}
	cleanup := func() {}

	if len(cfg.EtcdEndpoints) > 0 {
		reg, err := registry.NewEtcdRegistry(registry.EtcdConfig{
			Endpoints:   cfg.EtcdEndpoints,
			DialTimeout: 5 * time.Second,
			Logger:      logger,
		})
		if err != nil {
			return nil, nil, err
		}
		bal, err := loadbalance.New(cfg.Balancer)
		if err != nil {
			_ = reg.Close()
			return nil, nil, err
		}
		opts = append(opts, client.WithRegistry(reg, bal))
		cleanup = func() { _ = reg.Close() }
	}

	c, err := client.New(client.Config{
		Endpoint:    cfg.Endpoint,
		Timeout:     cfg.Timeout,
		ContentType: cfg.ContentType,
		Service:     cfg.Service,
	}, opts...)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("build client: %w", err)
	}
	return c, cleanup, nil
}
