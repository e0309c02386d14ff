package loadbalance

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"one-rpc/registry"
)

var testInstances = []registry.ServiceInstance{
	{Addr: "http://fe1:2633/RPC2", Weight: 10},
	{Addr: "http://fe2:2633/RPC2", Weight: 5},
	{Addr: "http://fe3:2633/RPC2", Weight: 10},
}

func TestRoundRobin(t *testing.T) {
	b := &RoundRobinBalancer{}

	var results []string
	for i := 0; i < 3; i++ {
		inst, err := b.Pick("", testInstances)
		require.NoError(t, err)
		results = append(results, inst.Addr)
	}
	assert.ElementsMatch(t, []string{testInstances[0].Addr, testInstances[1].Addr, testInstances[2].Addr}, results)

	// Fourth pick wraps around.
	inst, _ := b.Pick("", testInstances)
	assert.Equal(t, results[0], inst.Addr)
}

func TestEmpty(t *testing.T) {
	for _, name := range []string{RoundRobin, WeightedRandom, ConsistentHash} {
		b, err := New(name)
		require.NoError(t, err)
		_, err = b.Pick("alice", nil)
		assert.ErrorIs(t, err, ErrNoInstances, name)
	}
}

func TestWeightedRandom(t *testing.T) {
	b := &WeightedRandomBalancer{}

	counts := map[string]int{}
	for i := 0; i < 10000; i++ {
		inst, err := b.Pick("", testInstances)
		require.NoError(t, err)
		counts[inst.Addr]++
	}

	// 10:5:10, so fe1 should see about twice what fe2 sees.
	ratio := float64(counts["http://fe1:2633/RPC2"]) / float64(counts["http://fe2:2633/RPC2"])
	assert.InDelta(t, 2.0, ratio, 0.5)
}

func TestWeightedRandomZeroWeights(t *testing.T) {
	b := &WeightedRandomBalancer{}
	inst, err := b.Pick("", []registry.ServiceInstance{{Addr: "a"}, {Addr: "b"}})
	require.NoError(t, err)
	assert.Contains(t, []string{"a", "b"}, inst.Addr)
}

func TestConsistentHash(t *testing.T) {
	b := NewConsistentHashBalancer()

	inst1, err := b.Pick("alice", testInstances)
	require.NoError(t, err)
	inst2, _ := b.Pick("alice", testInstances)
	assert.Equal(t, inst1.Addr, inst2.Addr)

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		inst, _ := b.Pick(fmt.Sprintf("user-%d", i), testInstances)
		seen[inst.Addr] = true
	}
	assert.GreaterOrEqual(t, len(seen), 2)
}

func TestConsistentHashRebuildsOnChange(t *testing.T) {
	b := NewConsistentHashBalancer()
	_, err := b.Pick("alice", testInstances)
	require.NoError(t, err)

	only := []registry.ServiceInstance{{Addr: "http://fe9:2633/RPC2"}}
	inst, err := b.Pick("alice", only)
	require.NoError(t, err)
	assert.Equal(t, "http://fe9:2633/RPC2", inst.Addr)
}

func TestNewUnknown(t *testing.T) {
	_, err := New("fastest")
	assert.Error(t, err)

	b, err := New("")
	require.NoError(t, err)
	assert.Equal(t, RoundRobin, b.Name())
}

func TestConsistentHashConcurrentSetsStayInSet(t *testing.T) {
	b := NewConsistentHashBalancer()
	setA := testInstances[:2]
	setB := []registry.ServiceInstance{{Addr: "http://fe7:2633/RPC2"}, {Addr: "http://fe8:2633/RPC2"}}

	inSet := func(set []registry.ServiceInstance, addr string) bool {
		for _, inst := range set {
			if inst.Addr == addr {
				return true
			}
		}
		return false
	}

	var wg sync.WaitGroup
	var stray atomic.Int32
	for g := 0; g < 8; g++ {
		set := setA
		if g%2 == 1 {
			set = setB
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				inst, err := b.Pick(fmt.Sprintf("user-%d", i), set)
				if err != nil || !inSet(set, inst.Addr) {
					stray.Add(1)
				}
			}
		}()
	}
	wg.Wait()
	assert.Zero(t, stray.Load())
}
