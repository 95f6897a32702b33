package router

import (
	"todo/pkg/httpx"
)

// HandlerFunc serves a matched request by filling in the response.
type HandlerFunc func(req *httpx.Request, res *httpx.Response)

// Route binds a handler to a method and a literal path.
type Route struct {
	Method  string
	Pattern string
	Handler HandlerFunc
}

// Router is a registry of routes keyed by HTTP method. It holds at most one
// route per method; it does no matching itself.
type Router struct {
	routes map[string]Route
}

// New constructs an empty Router.
func New() *Router {
	return &Router{routes: make(map[string]Route)}
}

// AddRoute registers h for method at pattern, replacing any route already
// registered for method.
func (r *Router) AddRoute(method, pattern string, h HandlerFunc) {
	if r.routes == nil {
		r.routes = make(map[string]Route)
	}
	r.routes[method] = Route{Method: method, Pattern: pattern, Handler: h}
}

// GET registers a GET handler.
func (r *Router) GET(pattern string, h HandlerFunc) {
	r.AddRoute("GET", pattern, h)
}

// Routes returns a copy of the method to route mapping.
func (r *Router) Routes() map[string]Route {
	out := make(map[string]Route, len(r.routes))
	for k, v := range r.routes {
		out[k] = v
	}
	return out
}

// Clone returns a router holding a snapshot of r's routes.
func (r *Router) Clone() *Router {
	return &Router{routes: r.Routes()}
}
