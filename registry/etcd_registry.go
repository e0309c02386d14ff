// etcd holds the frontend list under
//
//	Key:   /one-rpc/{ServiceName}/{Addr}
//	Value: JSON-encoded ServiceInstance
//
// Registration uses TTL leases, so a crashed frontend (or one-mock instance)
// drops out once its lease expires.

package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
)

const DefaultPrefix = "/one-rpc/"

type EtcdConfig struct {
	Endpoints   []string
	DialTimeout time.Duration
	Prefix      string // defaults to DefaultPrefix
	Logger      *zap.Logger
}

// EtcdRegistry implements Registry on etcd v3.
type EtcdRegistry struct {
	client *clientv3.Client // thread-safe, shared across goroutines
	prefix string
	logger *zap.Logger

	// Lease keepalives outlive the Register call; Close stops them.
	ctx    context.Context
	cancel context.CancelFunc
}

func NewEtcdRegistry(cfg EtcdConfig) (*EtcdRegistry, error) {
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	c, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: cfg.DialTimeout,
		Logger:      cfg.Logger.Named("etcd"),
	})
	if err != nil {
		return nil, fmt.Errorf("connect etcd: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &EtcdRegistry{
		client: c,
		prefix: cfg.Prefix,
		logger: cfg.Logger,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

func (r *EtcdRegistry) key(serviceName, addr string) string {
	return r.servicePrefix(serviceName) + addr
}

func (r *EtcdRegistry) servicePrefix(serviceName string) string {
	return r.prefix + serviceName + "/"
}

// Register stores the instance under a lease of ttl seconds and keeps the
// lease alive until Close.
//
// leaseID stays local so one EtcdRegistry can register several instances.
func (r *EtcdRegistry) Register(ctx context.Context, serviceName string, instance ServiceInstance, ttl int64) error {
	lease, err := r.client.Grant(ctx, ttl)
	if err != nil {
		return fmt.Errorf("grant lease: %w", err)
	}

	val, err := json.Marshal(instance)
	if err != nil {
		return err
	}

	if _, err := r.client.Put(ctx, r.key(serviceName, instance.Addr), string(val), clientv3.WithLease(lease.ID)); err != nil {
		return fmt.Errorf("put %s: %w", instance.Addr, err)
	}

	ch, err := r.client.KeepAlive(r.ctx, lease.ID)
	if err != nil {
		return fmt.Errorf("keepalive: %w", err)
	}

	// Drain keepalive responses so the channel never fills up.
	go func() {
		for range ch {
		}
		r.logger.Debug("lease keepalive stopped",
			zap.String("service", serviceName),
			zap.String("addr", instance.Addr))
	}()

	r.logger.Info("registered instance",
		zap.String("service", serviceName),
		zap.String("addr", instance.Addr),
		zap.Int64("ttl", ttl))
	return nil
}

func (r *EtcdRegistry) Deregister(ctx context.Context, serviceName string, addr string) error {
	if _, err := r.client.Delete(ctx, r.key(serviceName, addr)); err != nil {
		return fmt.Errorf("delete %s: %w", addr, err)
	}
	return nil
}

// Discover lists the instances currently registered for serviceName.
// Entries that fail to decode are skipped.
func (r *EtcdRegistry) Discover(ctx context.Context, serviceName string) ([]ServiceInstance, error) {
	resp, err := r.client.Get(ctx, r.servicePrefix(serviceName), clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", serviceName, err)
	}

	instances := make([]ServiceInstance, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var instance ServiceInstance
		if err := json.Unmarshal(kv.Value, &instance); err != nil {
			r.logger.Warn("skipping bad registry entry", zap.ByteString("key", kv.Key), zap.Error(err))
			continue
		}
		instances = append(instances, instance)
	}
	if len(instances) == 0 {
		return nil, ErrNotFound
	}
	return instances, nil
}

// Watch re-reads the full list on every change under the service prefix
// instead of applying individual events.
func (r *EtcdRegistry) Watch(ctx context.Context, serviceName string) <-chan []ServiceInstance {
	ch := make(chan []ServiceInstance, 1)

	go func() {
		defer close(ch)
		watchChan := r.client.Watch(ctx, r.servicePrefix(serviceName), clientv3.WithPrefix())
		for range watchChan {
			instances, err := r.Discover(ctx, serviceName)
			if err != nil && !errors.Is(err, ErrNotFound) {
				r.logger.Warn("watch refresh failed", zap.String("service", serviceName), zap.Error(err))
				continue
			}
			select {
			case ch <- instances:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch
}

// Close stops keepalives and closes the etcd client. Leased keys expire on
// their own.
func (r *EtcdRegistry) Close() error {
	r.cancel()
	return r.client.Close()
}
