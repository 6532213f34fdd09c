package api

import (
	"context"
	"log/slog"
	"net"
	"strings"
)

// Request contains route parameters and additional args from the command.
type Request struct {
	Ctx     context.Context
	Params  map[string]string
	Payload string
}

// Response holds the JSON string to return to the client.
type Response struct {
	JSON string
}

// HandlerFunc processes a request and populates the response.
// Returns an error on failure. The logger provided is a connection-scoped logger
// enriched with remote address metadata by the API server.
type HandlerFunc func(req *Request, res *Response, logger *slog.Logger) error

// StreamHandlerFunc consumes a long-lived report stream for one attached feed.
// The handler owns conn and closes it when done. A returned error is logged
// by the server; the feed stays attached either way.
type StreamHandlerFunc func(conn net.Conn, feed *Feed, logger *slog.Logger) error

// Router implements simple path pattern matching with placeholders in {name}.
type Router struct {
	routes       []route[HandlerFunc]
	streamRoutes []route[StreamHandlerFunc]
}

type route[H any] struct {
	parts []string
	// names holds the placeholder name for each part, or "" for a literal.
	names   []string
	handler H
}

func newRoute[H any](pattern string, handler H) route[H] {
	parts := strings.Split(pattern, "/")
	names := make([]string, len(parts))
	for i, p := range parts {
		if strings.HasPrefix(p, "{") && strings.HasSuffix(p, "}") {
			names[i] = p[1 : len(p)-1]
		}
		parts[i] = strings.ToLower(p)
	}
	return route[H]{parts: parts, names: names, handler: handler}
}

func (rt route[H]) match(parts []string) (map[string]string, bool) {
	if len(rt.parts) != len(parts) {
		return nil, false
	}
	params := map[string]string{}
	for i, p := range parts {
		if rt.names[i] != "" {
			params[rt.names[i]] = p
			continue
		}
		if rt.parts[i] != p {
			return nil, false
		}
	}
	return params, true
}

func matchRoutes[H any](routes []route[H], path string) (H, map[string]string, bool) {
	parts := strings.Split(strings.ToLower(path), "/")
	for _, rt := range routes {
		if params, ok := rt.match(parts); ok {
			return rt.handler, params, true
		}
	}
	var zero H
	return zero, nil, false
}

// NewRouter returns a new Router instance.
func NewRouter() *Router { return &Router{} }

// Register registers a handler for a path pattern like "slots/{slot}/attach".
func (r *Router) Register(pattern string, handler HandlerFunc) {
	r.routes = append(r.routes, newRoute(pattern, handler))
}

// RegisterStream registers a StreamHandler for long-lived TCP connections.
// The pattern must contain a {slot} placeholder.
func (r *Router) RegisterStream(pattern string, handler StreamHandlerFunc) {
	r.streamRoutes = append(r.streamRoutes, newRoute(pattern, handler))
}

// Match returns the HandlerFunc and params if the given path matches any
// registered pattern. Returns nil if none match.
func (r *Router) Match(path string) (HandlerFunc, map[string]string) {
	h, params, _ := matchRoutes(r.routes, path)
	return h, params
}

// MatchStream returns the StreamHandler and params if the given path matches
// any registered stream pattern. Returns nil if none match.
func (r *Router) MatchStream(path string) (StreamHandlerFunc, map[string]string) {
	h, params, _ := matchRoutes(r.streamRoutes, path)
	return h, params
}
