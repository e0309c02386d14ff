package server

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"one-rpc/client"
	"one-rpc/codec"
	"one-rpc/message"
	"one-rpc/middleware"
	"one-rpc/protocol"
	"one-rpc/registry"
)

func newTestServer(t *testing.T) (*Server, *client.Client) {
	t.Helper()
	s := NewServer()
	s.Register("one.vm.info", func(ctx context.Context, call *message.MethodCall) (protocol.Payload, error) {
		if err := CheckArity(call, 2); err != nil {
			return protocol.Payload{}, err
		}
		id, err := IntParam(call, 1)
		if err != nil {
			return protocol.Payload{}, err
		}
		if id != 7 {
			return protocol.Payload{}, &protocol.ProtocolError{Message: "No such object", Code: protocol.CodeNoExists}
		}
		return protocol.StringPayload("<VM><ID>7</ID></VM>"), nil
	})
	s.Register("one.boom", func(ctx context.Context, call *message.MethodCall) (protocol.Payload, error) {
		return protocol.Payload{}, errors.New("disk on fire")
	})
	s.Register("one.empty", func(ctx context.Context, call *message.MethodCall) (protocol.Payload, error) {
		return protocol.Payload{}, nil
	})

	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)

	c, err := client.New(client.Config{Endpoint: ts.URL + "/RPC2"})
	require.NoError(t, err)
	return s, c
}

func TestServerSuccess(t *testing.T) {
	_, c := newTestServer(t)
	p, err := c.Call(context.Background(), "one.vm.info", message.Str("a:b"), message.Int(7))
	require.NoError(t, err)

	doc, err := p.Document()
	require.NoError(t, err)
	assert.Equal(t, "7", doc.Value("ID"))
}

func TestServerFailure(t *testing.T) {
	_, c := newTestServer(t)
	_, err := c.Call(context.Background(), "one.vm.info", message.Str("a:b"), message.Int(999))

	var pe *protocol.ProtocolError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "No such object", pe.Message)
	assert.Equal(t, protocol.CodeNoExists, pe.Code)
}

func TestServerParamErrors(t *testing.T) {
	_, c := newTestServer(t)

	_, err := c.Call(context.Background(), "one.vm.info", message.Str("a:b"))
	var pe *protocol.ProtocolError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, protocol.CodeXMLRPCAPI, pe.Code)

	_, err = c.Call(context.Background(), "one.vm.info", message.Str("a:b"), message.Str("7"))
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.Message, "want int, got string")
}

func TestServerInternalErrors(t *testing.T) {
	_, c := newTestServer(t)

	for _, m := range []string{"one.boom", "one.empty"} {
		_, err := c.Call(context.Background(), m, message.Str("a:b"))
		var pe *protocol.ProtocolError
		require.ErrorAs(t, err, &pe, m)
		assert.Equal(t, protocol.CodeInternal, pe.Code)
	}
}

func TestServerUnknownMethod(t *testing.T) {
	_, c := newTestServer(t)
	_, err := c.Call(context.Background(), "one.nope.info", message.Str("a:b"))

	var pe *protocol.ProtocolError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, protocol.FaultMethodNotFound, pe.Code)
}

func TestServerRejectsGarbage(t *testing.T) {
	s := NewServer()

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/RPC2", bytes.NewBufferString("<<<")))
	_, err := protocol.Decode(rec.Body.Bytes())
	var pe *protocol.ProtocolError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, protocol.FaultParse, pe.Code)

	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/RPC2", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServerBodyLimit(t *testing.T) {
	s := NewServer(WithMaxBodyBytes(16))
	env, err := codec.BuildEnvelope("one.vm.info", message.Str("a-rather-long-credential:secret"))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/RPC2", bytes.NewReader(env)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestServerMiddleware(t *testing.T) {
	s, c := newTestServer(t)
	seen := make(chan string, 1)
	s.Use(func(next middleware.HandlerFunc) middleware.HandlerFunc {
		return func(ctx context.Context, call *message.MethodCall) (protocol.Payload, error) {
			seen <- call.MethodName
			return next(ctx, call)
		}
	})

	_, err := c.Call(context.Background(), "one.vm.info", message.Str("a:b"), message.Int(7))
	require.NoError(t, err)
	assert.Equal(t, "one.vm.info", <-seen)
}

func TestServeRegistersAndShutdownDeregisters(t *testing.T) {
	reg := registry.NewStaticRegistry()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := "http://" + ln.Addr().String() + "/RPC2"

	s := NewServer(WithRegistry(reg, "one", addr, 10))
	s.Register("one.vm.info", func(ctx context.Context, call *message.MethodCall) (protocol.Payload, error) {
		return protocol.IntPayload(1), nil
	})

	errc := make(chan error, 1)
	go func() { errc <- s.Serve(ln) }()

	require.Eventually(t, func() bool {
		list, err := reg.Discover(context.Background(), "one")
		return err == nil && len(list) == 1 && list[0].Addr == addr
	}, time.Second, 10*time.Millisecond)

	c, err := client.New(client.Config{}, client.WithRegistry(reg, nil))
	require.NoError(t, err)
	p, err := c.Call(context.Background(), "one.vm.info", message.Str("a:b"), message.Int(1))
	require.NoError(t, err)
	assert.Equal(t, protocol.IntPayload(1), p)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	require.NoError(t, <-errc)

	_, err = reg.Discover(context.Background(), "one")
	assert.ErrorIs(t, err, registry.ErrNotFound)
}
