// Package client sends typed calls to the control plane.
//
// Call pipeline:
//
//	Call(method, params…)
//	  → middleware chain (request id, logging, metrics, rate limit, retry, timeout)
//	    → codec.Encode → pick endpoint → Transport.Send → protocol.Decode
//
// A Client holds no per-call state and is safe for concurrent use.
package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"one-rpc/codec"
	"one-rpc/loadbalance"
	"one-rpc/message"
	"one-rpc/middleware"
	"one-rpc/protocol"
	"one-rpc/registry"
	"one-rpc/transport"
)

// DefaultService is the registry name control-plane frontends register under.
const DefaultService = "one"

// Config is the fixed client configuration.
type Config struct {
	Endpoint    string        // e.g. http://10.10.1.3:2633/RPC2, unused with a registry
	Timeout     time.Duration // per HTTP round trip, default transport.DefaultTimeout
	ContentType string        // default application/xml
	Service     string        // registry service name, default DefaultService
}

type Client struct {
	cfg    Config
	codec  codec.Codec
	logger *zap.Logger

	registry registry.Registry
	balancer loadbalance.Balancer

	middlewares []middleware.Middleware
	handler     middleware.HandlerFunc

	fixed      transport.Transport
	mu         sync.Mutex
	transports map[string]transport.Transport // one per discovered endpoint
}

type Option func(*Client)

// WithTransport sends every call through t. It takes precedence over the
// endpoint and any registry.
func WithTransport(t transport.Transport) Option {
	return func(c *Client) { c.fixed = t }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRegistry discovers endpoints from reg on every call and picks one with
// bal. A nil bal means round robin.
func WithRegistry(reg registry.Registry, bal loadbalance.Balancer) Option {
	return func(c *Client) {
		c.registry = reg
		c.balancer = bal
	}
}

// WithMiddleware appends to the call chain, first one outermost.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(c *Client) { c.middlewares = append(c.middlewares, mws...) }
}

func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = transport.DefaultTimeout
	}
	if cfg.ContentType == "" {
		cfg.ContentType = codec.ContentTypeXML
	}
	if cfg.Service == "" {
		cfg.Service = DefaultService
	}

	c := &Client{
		cfg:        cfg,
		codec:      codec.GetCodec(cfg.ContentType),
		logger:     zap.NewNop(),
		transports: make(map[string]transport.Transport),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.fixed == nil && c.registry == nil {
		if cfg.Endpoint == "" {
			return nil, errors.New("client: endpoint is required")
		}
		c.fixed = c.newTransport(cfg.Endpoint)
	}
	if c.registry != nil && c.balancer == nil {
		c.balancer = &loadbalance.RoundRobinBalancer{}
	}

	// Build the chain once, not per call.
	c.handler = middleware.Chain(c.middlewares...)(c.roundTrip)
	return c, nil
}

// Call performs one remote call. Errors are *protocol.TransportError,
// *protocol.ProtocolError or *protocol.MalformedResponseError with Method set.
func (c *Client) Call(ctx context.Context, method string, params ...message.Param) (protocol.Payload, error) {
	payload, err := c.handler(ctx, message.NewMethodCall(method, params...))
	if err != nil {
		return protocol.Payload{}, protocol.WithMethod(err, method)
	}
	return payload, nil
}

func (c *Client) roundTrip(ctx context.Context, call *message.MethodCall) (protocol.Payload, error) {
	envelope, err := c.codec.Encode(call)
	if err != nil {
		return protocol.Payload{}, fmt.Errorf("encode %s: %w", call.MethodName, err)
	}

	t, err := c.pick(ctx, call)
	if err != nil {
		return protocol.Payload{}, err
	}

	raw, err := t.Send(ctx, envelope)
	if err != nil {
		return protocol.Payload{}, err
	}
	return protocol.Decode(raw)
}

// pick returns the transport for this call: the fixed one, or the endpoint the
// balancer selects among the registered frontends.
func (c *Client) pick(ctx context.Context, call *message.MethodCall) (transport.Transport, error) {
	if c.fixed != nil {
		return c.fixed, nil
	}

	instances, err := c.registry.Discover(ctx, c.cfg.Service)
	if err != nil {
		return nil, &protocol.TransportError{Err: fmt.Errorf("discover %s: %w", c.cfg.Service, err)}
	}
	instance, err := c.balancer.Pick(affinityKey(call), instances)
	if err != nil {
		return nil, &protocol.TransportError{Err: err}
	}
	c.logger.Debug("picked endpoint",
		zap.String("method", call.MethodName),
		zap.String("endpoint", instance.Addr),
		zap.String("balancer", c.balancer.Name()))
	return c.getTransport(instance.Addr), nil
}

func (c *Client) getTransport(addr string) transport.Transport {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.transports[addr]
	if !ok {
		t = c.newTransport(addr)
		c.transports[addr] = t
	}
	return t
}

func (c *Client) newTransport(endpoint string) transport.Transport {
	return transport.NewHTTPTransport(endpoint,
		transport.WithTimeout(c.cfg.Timeout),
		transport.WithContentType(c.cfg.ContentType))
}

// affinityKey is the username part of the credential, which is always the
// first param.
func affinityKey(call *message.MethodCall) string {
	if len(call.Params) == 0 || call.Params[0].Kind != message.KindString {
		return ""
	}
	user, _, _ := strings.Cut(call.Params[0].Str, ":")
	return user
}
