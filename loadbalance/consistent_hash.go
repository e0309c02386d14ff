package loadbalance

import (
	"fmt"
	"hash/crc32"
	"slices"
	"sort"
	"strings"
	"sync"

	"one-rpc/registry"
)

// ConsistentHashBalancer maps keys to instances on a hash ring, so the same
// username lands on the same frontend until the frontend set changes.
//
// Each instance gets replicas virtual nodes hashed from "{addr}#{i}" to keep
// the ring balanced.
//
//	Hash Ring:
//	                  0
//	                ╱   ╲
//	              ╱       ╲
//	         B ●               ● A
//	           │    key ◆──►   │   (clockwise to nearest node → A)
//	         C ●               ● A' (virtual node of A)
//	              ╲       ╱
//	                ╲   ╱
type ConsistentHashBalancer struct {
	replicas int

	mu    sync.RWMutex
	sig   string                              // address set the ring was built from
	ring  []uint32                            // sorted virtual node hashes
	nodes map[uint32]registry.ServiceInstance // hash → instance
}

// NewConsistentHashBalancer creates a hash ring with 100 virtual nodes per instance.
func NewConsistentHashBalancer() *ConsistentHashBalancer {
	return &ConsistentHashBalancer{replicas: 100}
}

// Pick rebuilds the ring when the instance set differs from the last call,
// then walks clockwise from hash(key). The walk happens under the same lock
// that saw the matching ring.
func (b *ConsistentHashBalancer) Pick(key string, instances []registry.ServiceInstance) (*registry.ServiceInstance, error) {
	if len(instances) == 0 {
		return nil, ErrNoInstances
	}
	sig := signature(instances)
	hash := crc32.ChecksumIEEE([]byte(key))

	b.mu.RLock()
	if b.sig == sig {
		inst := b.lookup(hash)
		b.mu.RUnlock()
		return &inst, nil
	}
	b.mu.RUnlock()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sig != sig {
		b.rebuild(sig, instances)
	}
	inst := b.lookup(hash)
	return &inst, nil
}

// lookup must be called with b.mu held.
func (b *ConsistentHashBalancer) lookup(hash uint32) registry.ServiceInstance {
	idx := sort.Search(len(b.ring), func(i int) bool {
		return b.ring[i] >= hash
	})
	if idx == len(b.ring) {
		idx = 0
	}
	return b.nodes[b.ring[idx]]
}

// rebuild must be called with b.mu held for writing.
func (b *ConsistentHashBalancer) rebuild(sig string, instances []registry.ServiceInstance) {
	b.ring = make([]uint32, 0, len(instances)*b.replicas)
	b.nodes = make(map[uint32]registry.ServiceInstance, len(instances)*b.replicas)
	for _, inst := range instances {
		for i := 0; i < b.replicas; i++ {
			hash := crc32.ChecksumIEEE([]byte(fmt.Sprintf("%s#%d", inst.Addr, i)))
			b.ring = append(b.ring, hash)
			b.nodes[hash] = inst
		}
	}
	slices.Sort(b.ring)
	b.sig = sig
}

func (b *ConsistentHashBalancer) Name() string {
	return ConsistentHash
}

func signature(instances []registry.ServiceInstance) string {
	addrs := make([]string, len(instances))
	for i, inst := range instances {
		addrs[i] = inst.Addr
	}
	slices.Sort(addrs)
	return strings.Join(addrs, "\n")
}
