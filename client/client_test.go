package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"one-rpc/loadbalance"
	"one-rpc/message"
	"one-rpc/middleware"
	"one-rpc/protocol"
	"one-rpc/registry"
	"one-rpc/transport"
)

func stub(t *testing.T, resp func() ([]byte, error)) (transport.Transport, *[]byte) {
	t.Helper()
	var sent []byte
	return transport.Func(func(ctx context.Context, envelope []byte) ([]byte, error) {
		sent = envelope
		return resp()
	}), &sent
}

func TestCallSuccess(t *testing.T) {
	tr, sent := stub(t, func() ([]byte, error) { return protocol.BuildSuccess(protocol.IntPayload(42)) })
	c, err := New(Config{}, WithTransport(tr))
	require.NoError(t, err)

	p, err := c.Call(context.Background(), "one.template.instantiate",
		message.Str("alice:tok"), message.Int(7), message.Str("vm"), message.Bool(false))
	require.NoError(t, err)

	n, err := p.AsInt()
	require.NoError(t, err)
	assert.EqualValues(t, 42, n)
	assert.Contains(t, string(*sent), "<methodName>one.template.instantiate</methodName>")
	assert.Contains(t, string(*sent), "<value><boolean>0</boolean></value>")
}

func TestCallProtocolErrorCarriesMethod(t *testing.T) {
	tr, _ := stub(t, func() ([]byte, error) { return protocol.BuildFailure("No such object", protocol.CodeNoExists) })
	c, err := New(Config{}, WithTransport(tr))
	require.NoError(t, err)

	_, err = c.Call(context.Background(), "one.vm.info", message.Str("alice:tok"), message.Int(999))
	var pe *protocol.ProtocolError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "one.vm.info", pe.Method)
	assert.Equal(t, "No such object", pe.Message)
	assert.Equal(t, protocol.CodeNoExists, pe.Code)
}

func TestCallMalformed(t *testing.T) {
	tr, _ := stub(t, func() ([]byte, error) { return []byte("<methodResponse/>"), nil })
	c, err := New(Config{}, WithTransport(tr))
	require.NoError(t, err)

	_, err = c.Call(context.Background(), "one.vm.info", message.Str("alice:tok"), message.Int(1))
	var me *protocol.MalformedResponseError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "one.vm.info", me.Method)
}

func TestCallEmptyMethod(t *testing.T) {
	tr, sent := stub(t, func() ([]byte, error) { return nil, nil })
	c, err := New(Config{}, WithTransport(tr))
	require.NoError(t, err)

	_, err = c.Call(context.Background(), "")
	assert.Error(t, err)
	assert.Nil(t, *sent, "nothing may reach the wire")
}

func TestNewRequiresEndpoint(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestCallOverHTTP(t *testing.T) {
	var gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotType = r.Header.Get("Content-Type")
		_, _ = io.ReadAll(r.Body)
		raw, _ := protocol.BuildSuccess(protocol.StringPayload("<USER><NAME>alice</NAME></USER>"))
		_, _ = w.Write(raw)
	}))
	defer srv.Close()

	c, err := New(Config{Endpoint: srv.URL, ContentType: "text/xml"})
	require.NoError(t, err)

	p, err := c.Call(context.Background(), "one.user.info", message.Str("alice:tok"), message.Int(-1))
	require.NoError(t, err)
	doc, err := p.Document()
	require.NoError(t, err)
	assert.Equal(t, "alice", doc.Value("NAME"))
	assert.Equal(t, "text/xml", gotType)
}

func TestCallTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, err := New(Config{Endpoint: srv.URL})
	require.NoError(t, err)

	_, err = c.Call(context.Background(), "one.vm.info", message.Str("alice:tok"), message.Int(1))
	var te *protocol.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusServiceUnavailable, te.StatusCode)
	assert.Equal(t, "one.vm.info", te.Method)
}

func TestCallWithRegistry(t *testing.T) {
	var mu sync.Mutex
	hits := map[string]int{}
	newFrontend := func(name string) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			hits[name]++
			mu.Unlock()
			raw, _ := protocol.BuildSuccess(protocol.StringPayload(name))
			_, _ = w.Write(raw)
		}))
	}
	fe1, fe2 := newFrontend("fe1"), newFrontend("fe2")
	defer fe1.Close()
	defer fe2.Close()

	reg := registry.NewStatic(DefaultService, fe1.URL, fe2.URL)
	c, err := New(Config{}, WithRegistry(reg, loadbalance.NewConsistentHashBalancer()))
	require.NoError(t, err)

	// Same user, same frontend.
	var first string
	for i := 0; i < 5; i++ {
		p, err := c.Call(context.Background(), "one.user.info", message.Str("alice:tok"), message.Int(-1))
		require.NoError(t, err)
		s, _ := p.AsString()
		if first == "" {
			first = s
		}
		assert.Equal(t, first, s)
	}
	assert.Equal(t, 5, hits[first])
}

func TestCallRegistryEmpty(t *testing.T) {
	c, err := New(Config{}, WithRegistry(registry.NewStaticRegistry(), nil))
	require.NoError(t, err)

	_, err = c.Call(context.Background(), "one.vm.info", message.Str("alice:tok"), message.Int(1))
	assert.True(t, protocol.IsTransport(err))
	assert.ErrorIs(t, err, registry.ErrNotFound)
}

func TestMiddlewareRunsAroundRoundTrip(t *testing.T) {
	tr, _ := stub(t, func() ([]byte, error) { return protocol.BuildSuccess(protocol.IntPayload(1)) })
	var seen atomic.Value
	spy := func(next middleware.HandlerFunc) middleware.HandlerFunc {
		return func(ctx context.Context, call *message.MethodCall) (protocol.Payload, error) {
			seen.Store(call.MethodName)
			return next(ctx, call)
		}
	}
	c, err := New(Config{}, WithTransport(tr), WithMiddleware(spy))
	require.NoError(t, err)

	_, err = c.Call(context.Background(), "one.vmpool.info", message.Str("alice:tok"))
	require.NoError(t, err)
	assert.Equal(t, "one.vmpool.info", seen.Load())
}

func TestAffinityKey(t *testing.T) {
	assert.Equal(t, "alice", affinityKey(message.NewMethodCall("m", message.Str("alice:tok"))))
	assert.Equal(t, "", affinityKey(message.NewMethodCall("m", message.Int(1))))
	assert.Equal(t, "", affinityKey(message.NewMethodCall("m")))
}

func TestConcurrentCalls(t *testing.T) {
	c, err := New(Config{}, WithTransport(transport.Func(func(ctx context.Context, b []byte) ([]byte, error) {
		return protocol.BuildSuccess(protocol.IntPayload(3))
	})))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := c.Call(context.Background(), "one.vm.info", message.Str("a:b"), message.Int(1))
			assert.NoError(t, err)
			assert.Equal(t, protocol.IntPayload(3), p)
		}()
	}
	wg.Wait()
}
