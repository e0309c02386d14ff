// Package registry tells the client which control-plane frontends exist.
//
// An instance address is the full endpoint URL of one XML-RPC frontend, e.g.
// "http://one-fe-1:2633/RPC2". The client picks one per call through a
// loadbalance.Balancer and posts to it.
package registry

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Discover when a service has no instances.
var ErrNotFound = errors.New("registry: service not found")

type ServiceInstance struct {
	Addr    string `json:"addr"`
	Weight  int    `json:"weight"` // Weight for load balancing
	Version string `json:"version,omitempty"`
}

type Registry interface {
	Register(ctx context.Context, serviceName string, instance ServiceInstance, ttl int64) error
	Deregister(ctx context.Context, serviceName string, addr string) error
	Discover(ctx context.Context, serviceName string) ([]ServiceInstance, error)
	// Watch emits the full instance list on every change until ctx ends.
	Watch(ctx context.Context, serviceName string) <-chan []ServiceInstance
}
