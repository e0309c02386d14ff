package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticRegistry(t *testing.T) {
	ctx := context.Background()
	r := NewStatic("one", "http://a:2633/RPC2", "http://b:2633/RPC2")

	got, err := r.Discover(ctx, "one")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Weight)

	require.NoError(t, r.Register(ctx, "one", ServiceInstance{Addr: "http://a:2633/RPC2", Weight: 5}, 10))
	got, _ = r.Discover(ctx, "one")
	require.Len(t, got, 2)
	assert.Equal(t, 5, got[0].Weight)

	require.NoError(t, r.Deregister(ctx, "one", "http://a:2633/RPC2"))
	require.NoError(t, r.Deregister(ctx, "one", "http://b:2633/RPC2"))
	_, err = r.Discover(ctx, "one")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStaticRegistryWatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewStatic("one", "http://a:2633/RPC2")

	ch := r.Watch(ctx, "one")
	first := <-ch
	require.Len(t, first, 1)

	require.NoError(t, r.Register(context.Background(), "one", ServiceInstance{Addr: "http://b:2633/RPC2", Weight: 1}, 10))
	select {
	case list := <-ch:
		assert.Len(t, list, 2)
	case <-time.After(time.Second):
		t.Fatal("no update after Register")
	}

	cancel()
	for range ch {
	}
}
