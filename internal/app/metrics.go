package app

import (
	"fmt"
	"net"
	"time"

	"github.com/valyala/fasthttp"

	"todo/pkg/logger"
	"todo/pkg/telemetry"
)

// metricsHandler serves the side listener routes.
func (a *App) metricsHandler() fasthttp.RequestHandler {
	prom := telemetry.Handler()
	return func(ctx *fasthttp.RequestCtx) {
		switch string(ctx.Path()) {
		case "/metrics":
			prom(ctx)
		case "/healthz":
			ctx.SetContentType("application/json")
			ctx.SetStatusCode(fasthttp.StatusOK)
			_, _ = ctx.WriteString(`{"status":"ok"}`)
		case "/readyz":
			a.readyz(ctx)
		default:
			ctx.SetContentType("application/json")
			ctx.SetStatusCode(fasthttp.StatusNotFound)
			_, _ = ctx.WriteString(`{"error":"not found"}`)
		}
	}
}

func (a *App) readyz(ctx *fasthttp.RequestCtx) {
	ctx.SetContentType("application/json")
	if err := a.store.Reload(); err != nil {
		ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
		_, _ = ctx.WriteString(`{"status":"not ready"}`)
		return
	}
	ver := a.version
	if ver == "" {
		ver = "dev"
	}
	ctx.SetStatusCode(fasthttp.StatusOK)
	_, _ = fmt.Fprintf(ctx, `{"status":"ok","version":%q,"tasks":%d}`, ver, a.store.Len())
}

// MetricsAddr returns the metrics listener address once it is bound.
func (a *App) MetricsAddr() string {
	v, _ := a.metricsAddr.Load().(string)
	return v
}

// startMetrics binds addr and serves metrics in the background. Serve
// errors are delivered on errCh.
func (a *App) startMetrics(addr string, errCh chan<- error) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listen %s: %w", addr, err)
	}
	a.metricsAddr.Store(ln.Addr().String())
	a.srvFast = &fasthttp.Server{
		Handler:           a.metricsHandler(),
		Name:              "todo",
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
		ReduceMemoryUsage: true,
	}
	logger.Info("metrics_started", "addr", ln.Addr().String())
	go func() {
		if err := a.srvFast.Serve(ln); err != nil {
			errCh <- fmt.Errorf("metrics serve: %w", err)
		}
	}()
	return nil
}
