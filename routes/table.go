package routes

import (
	"context"
	"strings"
)

// Handler answers a request.
type Handler interface {
	Handle(ctx context.Context, r *Request) (*Response, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, r *Request) (*Response, error)

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, r *Request) (*Response, error) {
	return f(ctx, r)
}

// Predicate selects requests for a route.
type Predicate func(r *Request) bool

// PathPrefix matches requests whose path starts with prefix.
func PathPrefix(prefix string) Predicate {
	return func(r *Request) bool { return strings.HasPrefix(r.Path, prefix) }
}

// AbsoluteTarget matches absolute-form targets with the given scheme, as
// sent by clients talking to a forward proxy.
func AbsoluteTarget(scheme string) Predicate {
	prefix := strings.ToLower(scheme) + "://"
	return func(r *Request) bool { return strings.HasPrefix(strings.ToLower(r.Path), prefix) }
}

// Method matches requests with the given method.
func Method(method string) Predicate {
	return func(r *Request) bool { return r.Method == method }
}

// Route binds a predicate to a handler.
type Route struct {
	Name    string
	Match   Predicate
	Handler Handler
}

// Table dispatches to the first matching route. It is immutable after
// NewTable and safe for concurrent use.
type Table struct {
	routes   []Route
	fallback Route
}

// NewTable builds a table. Routes are tried in the given order.
func NewTable(fallback Handler, routes ...Route) *Table {
	return &Table{
		routes:   append([]Route(nil), routes...),
		fallback: Route{Name: "default", Handler: fallback},
	}
}

// Lookup returns the route that handles r.
func (t *Table) Lookup(r *Request) Route {
	for _, route := range t.routes {
		if route.Match(r) {
			return route
		}
	}
	return t.fallback
}

// Handle dispatches r to its route. Bodies are dropped for statuses that
// forbid them.
func (t *Table) Handle(ctx context.Context, r *Request) (*Response, error) {
	resp, err := t.Lookup(r).Handler.Handle(ctx, r)
	if err != nil {
		return nil, err
	}
	if !bodyAllowed(resp.Status) {
		resp.Body = nil
		resp.Stream = nil
	}
	return resp, nil
}

// Names lists route names in dispatch order, default last.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.routes)+1)
	for _, route := range t.routes {
		names = append(names, route.Name)
	}
	return append(names, t.fallback.Name)
}

var _ Handler = (*Table)(nil)
