// Package loadbalance picks one control-plane frontend per call.
//
// Three strategies are implemented:
//   - RoundRobin:      equal frontends
//   - WeightedRandom:  frontends of different capacity
//   - ConsistentHash:  one user's calls stick to one frontend
package loadbalance

import (
	"errors"
	"fmt"

	"one-rpc/registry"
)

var ErrNoInstances = errors.New("loadbalance: no instances available")

// Balancer selects a target instance before each call. Implementations must
// be goroutine-safe.
type Balancer interface {
	// Pick selects one instance. key identifies the caller (the username of
	// the credential); strategies without affinity ignore it.
	Pick(key string, instances []registry.ServiceInstance) (*registry.ServiceInstance, error)

	// Name returns the strategy name (for logging/debugging).
	Name() string
}

// Strategy names accepted by New.
const (
	RoundRobin     = "round_robin"
	WeightedRandom = "weighted_random"
	ConsistentHash = "consistent_hash"
)

// New returns the balancer for a strategy name. "" means round robin.
func New(name string) (Balancer, error) {
	switch name {
	case "", RoundRobin:
		return &RoundRobinBalancer{}, nil
	case WeightedRandom:
		return &WeightedRandomBalancer{}, nil
	case ConsistentHash:
		return NewConsistentHashBalancer(), nil
	default:
		return nil, fmt.Errorf("loadbalance: unknown strategy %q", name)
	}
}
