package registry

import (
	"context"
	"slices"
	"sync"
)

// StaticRegistry is an in-memory registry. It serves fixed endpoint lists
// from config and stands in for etcd in tests.
type StaticRegistry struct {
	mu       sync.Mutex
	services map[string][]ServiceInstance
	watchers map[string][]chan []ServiceInstance
}

func NewStaticRegistry() *StaticRegistry {
	return &StaticRegistry{
		services: make(map[string][]ServiceInstance),
		watchers: make(map[string][]chan []ServiceInstance),
	}
}

// NewStatic returns a registry holding one service with equal-weight
// endpoints.
func NewStatic(serviceName string, endpoints ...string) *StaticRegistry {
	r := NewStaticRegistry()
	for _, ep := range endpoints {
		r.services[serviceName] = append(r.services[serviceName], ServiceInstance{Addr: ep, Weight: 1})
	}
	return r
}

// Register adds or replaces an instance. ttl is ignored.
func (r *StaticRegistry) Register(_ context.Context, serviceName string, instance ServiceInstance, _ int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.services[serviceName]
	i := slices.IndexFunc(list, func(s ServiceInstance) bool { return s.Addr == instance.Addr })
	if i >= 0 {
		list[i] = instance
	} else {
		list = append(list, instance)
	}
	r.services[serviceName] = list
	r.notify(serviceName)
	return nil
}

func (r *StaticRegistry) Deregister(_ context.Context, serviceName string, addr string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.services[serviceName] = slices.DeleteFunc(r.services[serviceName], func(s ServiceInstance) bool {
		return s.Addr == addr
	})
	r.notify(serviceName)
	return nil
}

func (r *StaticRegistry) Discover(_ context.Context, serviceName string) ([]ServiceInstance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.services[serviceName]
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return slices.Clone(list), nil
}

func (r *StaticRegistry) Watch(ctx context.Context, serviceName string) <-chan []ServiceInstance {
	ch := make(chan []ServiceInstance, 1)

	r.mu.Lock()
	r.watchers[serviceName] = append(r.watchers[serviceName], ch)
	ch <- slices.Clone(r.services[serviceName])
	r.mu.Unlock()

	go func() {
		<-ctx.Done()
		r.mu.Lock()
		defer r.mu.Unlock()
		r.watchers[serviceName] = slices.DeleteFunc(r.watchers[serviceName], func(c chan []ServiceInstance) bool {
			return c == ch
		})
		close(ch)
	}()
	return ch
}

// notify must be called with r.mu held. Slow watchers only see the latest
// list.
func (r *StaticRegistry) notify(serviceName string) {
	list := r.services[serviceName]
	for _, ch := range r.watchers[serviceName] {
		select {
		case <-ch:
		default:
		}
		ch <- slices.Clone(list)
	}
}
