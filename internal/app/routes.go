package app

import (
	"strings"

	"todo/pkg/format"
	"todo/pkg/httpx"
	"todo/pkg/logger"
	"todo/pkg/router"
)

func (a *App) registerRoutes() {
	a.srv.Use(a.serverHeader)

	pages := router.New()
	pages.GET("/", a.taskPage)
	a.srv.UseRouter(pages)

	health := router.New()
	health.GET("/healthz", healthz)
	a.srv.UseRouter(health)
}

func (a *App) serverHeader(_ *httpx.Request, res *httpx.Response) bool {
	v := a.version
	if v == "" {
		v = "dev"
	}
	res.SetHeader("Server", "todo/"+v)
	return true
}

// taskPage lists the tasks as HTML after the seeded body.
func (a *App) taskPage(_ *httpx.Request, res *httpx.Response) {
	if err := a.store.Reload(); err != nil {
		logger.Error("task_reload_failed", "error", err)
	}
	res.SetHeader("Content-Type", "text/html")
	res.Send(renderTaskPage(a.store.Descriptions()))
}

func renderTaskPage(descs []string) string {
	var sb strings.Builder
	sb.WriteString("<html><body><h1>Task Manager</h1><ul>")
	for _, d := range descs {
		sb.WriteString("<li>")
		sb.WriteString(format.HTML(d))
		sb.WriteString("</li>")
	}
	sb.WriteString("</ul></body></html>")
	return sb.String()
}

// healthz keeps the seeded body.
func healthz(*httpx.Request, *httpx.Response) {}
