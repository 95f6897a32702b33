package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"todo/pkg/httpx"
	"todo/pkg/logger"
	"todo/pkg/router"
	"todo/pkg/telemetry"
)

// ErrListen is wrapped by every socket, bind or listen failure from New.
var ErrListen = errors.New("listen failure")

const (
	// DefaultReadBufferSize bounds the single read taken from each
	// connection. Longer requests are truncated.
	DefaultReadBufferSize = 1024
	listenBacklog         = 5
)

// Middleware runs before route dispatch with the request and the response
// that will be sent. Returning false stops dispatch and sends res as is.
type Middleware func(req *httpx.Request, res *httpx.Response) bool

// Option configures a Server in New.
type Option func(*Server)

// WithReadBufferSize sets how many bytes are read from each connection.
func WithReadBufferSize(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.readBufSize = n
		}
	}
}

// WithListener makes New serve on ln instead of binding its own socket.
func WithListener(ln net.Listener) Option {
	return func(s *Server) { s.ln = ln }
}

// Server accepts one connection at a time, reads a single request from it,
// dispatches it to the first matching route and closes the connection.
// Middlewares and routers must be registered before Run.
type Server struct {
	ln          net.Listener
	readBufSize int
	buf         []byte
	middlewares []Middleware
	routers     []map[string]router.Route
}

// New binds an IPv4 TCP listener on addr ("host:port", empty host meaning
// 0.0.0.0) with a backlog of 5.
func New(addr string, opts ...Option) (*Server, error) {
	s := &Server{readBufSize: DefaultReadBufferSize}
	for _, opt := range opts {
		opt(s)
	}
	if s.ln == nil {
		ln, err := listen(addr, listenBacklog)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrListen, addr, err)
		}
		s.ln = ln
	}
	s.buf = make([]byte, s.readBufSize)
	return s, nil
}

// Addr returns the bound listener address.
func (s *Server) Addr() net.Addr { return s.ln.Addr() }

// Close stops the listener; a blocked Run returns.
func (s *Server) Close() error { return s.ln.Close() }

// Use appends a middleware. Middlewares run in registration order.
func (s *Server) Use(mw Middleware) {
	s.middlewares = append(s.middlewares, mw)
}

// UseRouter appends a snapshot of r. Routes added to r afterwards are not
// seen by the server.
func (s *Server) UseRouter(r *router.Router) {
	s.routers = append(s.routers, r.Routes())
}

// Dispatch runs the middlewares and then the first route, across the
// registered routers in order, whose method and literal pattern equal the
// request's. Matched handlers receive a 200 response seeded with "OK".
// With no match the result is a 404 "Not Found".
func (s *Server) Dispatch(req *httpx.Request) *httpx.Response {
	res := httpx.NewResponse(200, nil, "OK")
	for _, mw := range s.middlewares {
		if !mw(req, res) {
			return res
		}
	}
	for _, routes := range s.routers {
		rt, ok := routes[req.Method()]
		if !ok || rt.Pattern != req.Path() {
			continue
		}
		if rt.Handler != nil {
			rt.Handler(req, res)
		}
		return res
	}
	return httpx.NewResponse(404, nil, "Not Found")
}

// Run serves connections one after another until ctx is cancelled or the
// server is closed. Accept errors are logged and the loop carries on.
func (s *Server) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { s.ln.Close() })
	defer stop()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			logger.Warn("accept_failed", "error", err)
			continue
		}
		s.serveConn(conn)
	}
}

func (s *Server) serveConn(conn net.Conn) {
	start := time.Now()
	defer conn.Close()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("handler_panic", "remote", remote(conn), "panic", r)
		}
	}()

	n, err := conn.Read(s.buf)
	if err != nil && !errors.Is(err, io.EOF) {
		logger.Warn("read_failed", "remote", remote(conn), "error", err)
		telemetry.ObserveReadFailure()
		return
	}

	req := httpx.ParseRequest(string(s.buf[:n]))
	logger.Info("request_received", "path", req.Path())

	res := s.Dispatch(req)
	if _, err := res.WriteTo(conn); err != nil {
		logger.Warn("write_failed", "remote", remote(conn), "error", err)
	}
	telemetry.ObserveRequest(req.Method(), res.StatusCode(), time.Since(start))
}

func remote(conn net.Conn) string {
	if a := conn.RemoteAddr(); a != nil {
		return a.String()
	}
	return ""
}
