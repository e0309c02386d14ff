// Package server answers XML-RPC calls with boolean-convention responses.
//
// It speaks the same wire format as the control plane and backs the fake
// control plane used in tests and by one-mock.
//
// Request processing pipeline:
//
//	POST body → codec.Decode(MethodCall) → lookup method
//	  → middleware chain → method handler
//	    → protocol.BuildSuccess / BuildFailure → response body
//
// Unknown methods and unparseable calls get a standard XML-RPC fault.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"one-rpc/codec"
	"one-rpc/message"
	"one-rpc/middleware"
	"one-rpc/protocol"
	"one-rpc/registry"
)

const DefaultMaxBodyBytes = 4 << 20

// Server dispatches method calls to registered handlers.
type Server struct {
	mu          sync.RWMutex
	methods     map[string]middleware.HandlerFunc // "one.vm.info" → handler
	middlewares []middleware.Middleware           // applied in order
	handler     atomic.Pointer[middleware.HandlerFunc]

	logger       *zap.Logger
	codec        codec.Codec
	maxBodyBytes int64

	httpServer *http.Server
	shutdown   atomic.Bool

	registry      registry.Registry // nil if not using discovery
	service       string
	advertiseAddr string // endpoint URL clients should post to
	ttl           int64
}

type Option func(*Server)

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRegistry registers advertiseAddr under service while serving.
func WithRegistry(reg registry.Registry, service, advertiseAddr string, ttl int64) Option {
	return func(s *Server) {
		s.registry = reg
		s.service = service
		s.advertiseAddr = advertiseAddr
		s.ttl = ttl
	}
}

func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

func NewServer(opts ...Option) *Server {
	s := &Server{
		methods:      make(map[string]middleware.HandlerFunc),
		logger:       zap.NewNop(),
		codec:        codec.GetCodec(codec.ContentTypeXML),
		maxBodyBytes: DefaultMaxBodyBytes,
		ttl:          10,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register binds a method name to a handler. A handler reports remote-side
// failure by returning a *protocol.ProtocolError; any other error is sent as
// an internal error.
func (s *Server) Register(method string, h middleware.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.methods[method] = h
}

// Use registers a middleware. Middlewares run in the order they are added and
// must be registered before the first request.
func (s *Server) Use(mw middleware.Middleware) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.middlewares = append(s.middlewares, mw)
	s.handler.Store(nil)
}

// chain builds the middleware chain once and caches it until the next Use.
func (s *Server) chain() middleware.HandlerFunc {
	if h := s.handler.Load(); h != nil {
		return *h
	}
	s.mu.RLock()
	h := middleware.Chain(s.middlewares...)(s.dispatch)
	s.mu.RUnlock()
	s.handler.Store(&h)
	return h
}

// ServeHTTP handles one call per request.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}

	var call message.MethodCall
	if err := s.codec.Decode(body, &call); err != nil || call.MethodName == "" {
		s.logger.Debug("unparseable call", zap.Error(err))
		s.writeFault(w, protocol.FaultParse, "parse error: not a method call")
		return
	}

	s.mu.RLock()
	_, ok := s.methods[call.MethodName]
	s.mu.RUnlock()
	if !ok {
		s.writeFault(w, protocol.FaultMethodNotFound, fmt.Sprintf("unknown method %s", call.MethodName))
		return
	}

	payload, err := s.chain()(r.Context(), &call)
	s.write(w, s.encode(call.MethodName, payload, err))
}

func (s *Server) dispatch(ctx context.Context, call *message.MethodCall) (protocol.Payload, error) {
	s.mu.RLock()
	h := s.methods[call.MethodName]
	s.mu.RUnlock()
	return h(ctx, call)
}

func (s *Server) encode(method string, payload protocol.Payload, err error) []byte {
	var (
		raw  []byte
		berr error
	)
	var pe *protocol.ProtocolError
	switch {
	case errors.As(err, &pe):
		raw, berr = protocol.BuildFailure(pe.Message, pe.Code)
	case err != nil:
		s.logger.Error("handler failed", zap.String("method", method), zap.Error(err))
		raw, berr = protocol.BuildFailure(fmt.Sprintf("[%s] internal error: %v", method, err), protocol.CodeInternal)
	default:
		raw, berr = protocol.BuildSuccess(payload)
		if berr != nil {
			s.logger.Error("handler returned no payload", zap.String("method", method))
			raw, berr = protocol.BuildFailure(fmt.Sprintf("[%s] internal error: empty result", method), protocol.CodeInternal)
		}
	}
	if berr != nil {
		// Only reachable if encoding/xml fails on plain strings.
		s.logger.Error("encode response", zap.Error(berr))
	}
	return raw
}

func (s *Server) writeFault(w http.ResponseWriter, code int64, msg string) {
	raw, err := protocol.BuildFault(code, msg)
	if err != nil {
		http.Error(w, msg, http.StatusInternalServerError)
		return
	}
	s.write(w, raw)
}

func (s *Server) write(w http.ResponseWriter, raw []byte) {
	w.Header().Set("Content-Type", "text/xml")
	if _, err := w.Write(raw); err != nil {
		s.logger.Debug("write response", zap.Error(err))
	}
}

// Serve accepts connections on ln until Shutdown. The advertised address is
// registered once the listener is ready.
func (s *Server) Serve(ln net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle("/RPC2", s)
	mux.Handle("/", s)

	hs := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          zap.NewStdLog(s.logger),
	}
	s.mu.Lock()
	s.httpServer = hs
	s.mu.Unlock()
	if s.shutdown.Load() {
		_ = ln.Close()
		return nil
	}

	if s.registry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := s.registry.Register(ctx, s.service, registry.ServiceInstance{Addr: s.advertiseAddr, Weight: 1}, s.ttl)
		cancel()
		if err != nil {
			return fmt.Errorf("register %s: %w", s.advertiseAddr, err)
		}
	}

	s.logger.Info("serving", zap.String("addr", ln.Addr().String()))
	err := hs.Serve(ln)
	if s.shutdown.Load() && errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// ListenAndServe listens on a TCP address and calls Serve.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Shutdown deregisters first so clients stop routing here, then waits for
// in-flight calls until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.registry != nil {
		if err := s.registry.Deregister(ctx, s.service, s.advertiseAddr); err != nil {
			s.logger.Warn("deregister failed", zap.Error(err))
		}
	}
	s.shutdown.Store(true)

	s.mu.RLock()
	hs := s.httpServer
	s.mu.RUnlock()
	if hs == nil {
		return nil
	}
	return hs.Shutdown(ctx)
}
