package registry

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// Set ONE_RPC_TEST_ETCD=host:2379 to run against a real etcd.
func newTestEtcd(t *testing.T) *EtcdRegistry {
	t.Helper()
	endpoints := os.Getenv("ONE_RPC_TEST_ETCD")
	if endpoints == "" {
		t.Skip("ONE_RPC_TEST_ETCD not set")
	}
	r, err := NewEtcdRegistry(EtcdConfig{
		Endpoints: strings.Split(endpoints, ","),
		Prefix:    "/one-rpc-test-" + t.Name() + "/",
		Logger:    zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestEtcdRegisterDiscover(t *testing.T) {
	r := newTestEtcd(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	inst := ServiceInstance{Addr: "http://127.0.0.1:2633/RPC2", Weight: 10, Version: "6.8"}
	require.NoError(t, r.Register(ctx, "one", inst, 10))

	got, err := r.Discover(ctx, "one")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, inst, got[0])

	require.NoError(t, r.Deregister(ctx, "one", inst.Addr))
	_, err = r.Discover(ctx, "one")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEtcdWatch(t *testing.T) {
	r := newTestEtcd(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch := r.Watch(ctx, "one")
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, r.Register(ctx, "one", ServiceInstance{Addr: "http://10.0.0.1:2633/RPC2", Weight: 1}, 10))
	select {
	case list := <-ch:
		require.Len(t, list, 1)
		assert.Equal(t, "http://10.0.0.1:2633/RPC2", list[0].Addr)
	case <-ctx.Done():
		t.Fatal("no watch event")
	}
}
