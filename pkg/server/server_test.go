package server

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"todo/pkg/httpx"
	"todo/pkg/logger"
	"todo/pkg/router"
)

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	s, err := New("127.0.0.1:0", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// startServer runs s in the background and returns its address.
func startServer(t *testing.T, s *Server) string {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Run returned %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Errorf("Run did not return after cancel")
		}
	})
	return s.Addr().String()
}

func roundTrip(t *testing.T, addr, raw string) string {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write([]byte(raw))
	require.NoError(t, err)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	b, err := io.ReadAll(conn)
	require.NoError(t, err)
	return string(b)
}

func TestDispatchMatchedAppendsToSeed(t *testing.T) {
	s := newTestServer(t)
	r := router.New()
	r.GET("/", func(_ *httpx.Request, res *httpx.Response) { res.Send("hi") })
	s.UseRouter(r)

	res := s.Dispatch(httpx.ParseRequest("GET / HTTP/1.1\r\n\r\n"))
	require.Equal(t, 200, res.StatusCode())
	require.Equal(t, "OKhi", res.Body())
}

func TestDispatchUnmatched(t *testing.T) {
	s := newTestServer(t)
	called := false
	r := router.New()
	r.GET("/", func(*httpx.Request, *httpx.Response) { called = true })
	s.UseRouter(r)

	for _, raw := range []string{
		"GET /missing HTTP/1.1\r\n\r\n",
		"POST / HTTP/1.1\r\n\r\n",
		"get / HTTP/1.1\r\n\r\n",
		"",
	} {
		res := s.Dispatch(httpx.ParseRequest(raw))
		require.Equal(t, 404, res.StatusCode(), raw)
		require.Equal(t, "Not Found", res.Body(), raw)
		require.Empty(t, res.Headers(), raw)
	}
	require.False(t, called, "handler invoked for unmatched request")
}

func TestDispatchFirstRouterWins(t *testing.T) {
	s := newTestServer(t)
	r1 := router.New()
	r1.GET("/same", func(_ *httpx.Request, res *httpx.Response) { res.Send("r1") })
	r2 := router.New()
	r2.GET("/same", func(_ *httpx.Request, res *httpx.Response) { res.Send("r2") })
	s.UseRouter(r1)
	s.UseRouter(r2)

	res := s.Dispatch(httpx.ParseRequest("GET /same HTTP/1.1\r\n\r\n"))
	require.Equal(t, "OKr1", res.Body())
}

func TestDispatchFallsThroughToLaterRouter(t *testing.T) {
	s := newTestServer(t)
	r1 := router.New()
	r1.GET("/", func(_ *httpx.Request, res *httpx.Response) { res.Send("root") })
	r2 := router.New()
	r2.GET("/healthz", func(_ *httpx.Request, res *httpx.Response) { res.Send("-ok") })
	s.UseRouter(r1)
	s.UseRouter(r2)

	res := s.Dispatch(httpx.ParseRequest("GET /healthz HTTP/1.1\r\n\r\n"))
	require.Equal(t, "OK-ok", res.Body())
}

func TestUseRouterTakesSnapshot(t *testing.T) {
	s := newTestServer(t)
	r := router.New()
	r.GET("/old", func(*httpx.Request, *httpx.Response) {})
	s.UseRouter(r)
	r.GET("/new", func(*httpx.Request, *httpx.Response) {})

	require.Equal(t, 200, s.Dispatch(httpx.ParseRequest("GET /old HTTP/1.1\r\n\r\n")).StatusCode())
	require.Equal(t, 404, s.Dispatch(httpx.ParseRequest("GET /new HTTP/1.1\r\n\r\n")).StatusCode())
}

func TestMiddlewareOrderAndShortCircuit(t *testing.T) {
	s := newTestServer(t)
	var order []string
	s.Use(func(_ *httpx.Request, res *httpx.Response) bool {
		order = append(order, "a")
		res.SetHeader("Server", "todo")
		return true
	})
	s.Use(func(req *httpx.Request, res *httpx.Response) bool {
		order = append(order, "b")
		if req.Path() == "/blocked" {
			res.SetStatusCode(403)
			return false
		}
		return true
	})
	handled := false
	r := router.New()
	r.GET("/blocked", func(*httpx.Request, *httpx.Response) { handled = true })
	s.UseRouter(r)

	res := s.Dispatch(httpx.ParseRequest("GET /blocked HTTP/1.1\r\n\r\n"))
	require.Equal(t, []string{"a", "b"}, order)
	require.False(t, handled)
	require.Equal(t, 403, res.StatusCode())
	v, ok := res.Header("Server")
	require.True(t, ok)
	require.Equal(t, "todo", v)
}

func TestMiddlewareHeadersReachHandlerResponse(t *testing.T) {
	s := newTestServer(t)
	s.Use(func(_ *httpx.Request, res *httpx.Response) bool {
		res.SetHeader("Server", "todo")
		return true
	})
	r := router.New()
	r.GET("/", func(*httpx.Request, *httpx.Response) {})
	s.UseRouter(r)

	res := s.Dispatch(httpx.ParseRequest("GET / HTTP/1.1\r\n\r\n"))
	require.Equal(t, "HTTP/1.1 200\r\nServer: todo\r\n\r\nOK", res.String())
}

func TestRunServesOverSocket(t *testing.T) {
	s := newTestServer(t)
	r := router.New()
	r.GET("/", func(req *httpx.Request, res *httpx.Response) {
		res.SetHeader("Content-Type", "text/plain")
		res.Send("hi")
	})
	s.UseRouter(r)
	addr := startServer(t, s)

	got := roundTrip(t, addr, "GET / HTTP/1.1\r\nHost: x\r\n\r\n")
	require.Equal(t, "HTTP/1.1 200\r\nContent-Type: text/plain\r\n\r\nOKhi", got)

	got = roundTrip(t, addr, "GET /nope HTTP/1.1\r\n\r\n")
	require.Equal(t, "HTTP/1.1 404\r\n\r\nNot Found", got)
}

func TestRunHeaderCaseSensitivity(t *testing.T) {
	s := newTestServer(t)
	var seen httpx.Header
	r := router.New()
	r.GET("/", func(req *httpx.Request, _ *httpx.Response) { seen = req.Headers() })
	s.UseRouter(r)
	addr := startServer(t, s)

	roundTrip(t, addr, "GET / HTTP/1.1\r\nX-Test: a\r\nx-test: b\r\n\r\n")
	require.Len(t, seen, 2)
	require.Equal(t, " a", seen["X-Test"])
	require.Equal(t, " b", seen["x-test"])
}

func TestRunSequentialConnections(t *testing.T) {
	s := newTestServer(t)
	r := router.New()
	r.GET("/", func(req *httpx.Request, res *httpx.Response) { res.Send(req.Body()) })
	s.UseRouter(r)
	addr := startServer(t, s)

	// first client connects and stays silent
	c1, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer c1.Close()
	time.Sleep(50 * time.Millisecond)

	// second client is queued in the backlog behind it
	c2, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer c2.Close()
	_, err = c2.Write([]byte("GET / HTTP/1.1\r\n\r\nsecond"))
	require.NoError(t, err)

	require.NoError(t, c2.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, err = c2.Read(make([]byte, 1))
	var nerr net.Error
	require.True(t, errors.As(err, &nerr) && nerr.Timeout(), "second connection served before first closed: %v", err)

	_, err = c1.Write([]byte("GET / HTTP/1.1\r\n\r\nfirst"))
	require.NoError(t, err)
	require.NoError(t, c1.SetReadDeadline(time.Now().Add(2*time.Second)))
	b1, err := io.ReadAll(c1)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(string(b1), "OKfirst"))

	require.NoError(t, c2.SetReadDeadline(time.Now().Add(2*time.Second)))
	b2, err := io.ReadAll(c2)
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(string(b2), "OKsecond"))
}

func TestServeConnTruncatesAtBuffer(t *testing.T) {
	s := newTestServer(t)
	var gotPad string
	r := router.New()
	r.GET("/", func(req *httpx.Request, _ *httpx.Response) { gotPad, _ = req.Header("X-Pad") })
	s.UseRouter(r)

	client, srv := net.Pipe()
	defer client.Close()
	raw := "GET / HTTP/1.1\r\nX-Pad: " + strings.Repeat("a", 3000) + "\r\n\r\n"
	go func() { _, _ = client.Write([]byte(raw)) }()
	go s.serveConn(srv)

	b, err := io.ReadAll(client)
	require.NoError(t, err)
	require.Equal(t, "HTTP/1.1 200\r\n\r\nOK", string(b))
	require.Equal(t, DefaultReadBufferSize-len("GET / HTTP/1.1\r\nX-Pad:"), len(gotPad))
}

func TestServeConnReadBufferOption(t *testing.T) {
	s := newTestServer(t, WithReadBufferSize(8))
	client, srv := net.Pipe()
	defer client.Close()
	go func() { _, _ = client.Write([]byte("GET / HTTP/1.1\r\n\r\n")) }()
	go s.serveConn(srv)

	b, err := io.ReadAll(client)
	require.NoError(t, err)
	// only "GET / HT" was read; no route is registered
	require.Equal(t, "HTTP/1.1 404\r\n\r\nNot Found", string(b))
}

func TestServeConnLogsRequestPath(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter(&buf, "info")
	t.Cleanup(func() { logger.Log = nil })

	s := newTestServer(t)
	client, srv := net.Pipe()
	defer client.Close()
	done := make(chan struct{})
	go func() { _, _ = client.Write([]byte("GET /x HTTP/1.1\r\n\r\n")) }()
	go func() {
		s.serveConn(srv)
		close(done)
	}()

	b, err := io.ReadAll(client)
	require.NoError(t, err)
	require.Equal(t, "HTTP/1.1 404\r\n\r\nNot Found", string(b))
	<-done

	var lines []string
	for _, l := range strings.Split(buf.String(), "\n") {
		if strings.Contains(l, "msg=request_received") {
			lines = append(lines, l)
		}
	}
	require.Len(t, lines, 1, buf.String())
	require.Contains(t, lines[0], "path=/x")
}

type failingConn struct {
	net.Conn
	wrote bool
}

func (c *failingConn) Read([]byte) (int, error)    { return 0, errors.New("reset") }
func (c *failingConn) Write(b []byte) (int, error) { c.wrote = true; return len(b), nil }
func (c *failingConn) Close() error                { return nil }
func (c *failingConn) RemoteAddr() net.Addr        { return nil }

func TestServeConnReadFailureSendsNothing(t *testing.T) {
	s := newTestServer(t)
	conn := &failingConn{}
	s.serveConn(conn)
	require.False(t, conn.wrote, "response written after read failure")
}

func TestNewListenFailure(t *testing.T) {
	s := newTestServer(t)
	_, err := New(s.Addr().String())
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrListen))

	_, err = New("not-an-address")
	require.True(t, errors.Is(err, ErrListen))

	_, err = New("[::1]:0")
	require.True(t, errors.Is(err, ErrListen))
}

func TestRunReturnsOnClose(t *testing.T) {
	s, err := New("127.0.0.1:0")
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, s.Close())
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}
}
