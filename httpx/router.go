package httpx

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"
)

// Route represents a single HTTP route definition.
type Route struct {
	Method     string
	Path       string
	Handler    HandlerFunc
	Middleware []MiddlewareFunc
}

// RegisterRoutes applies routes to r. Definitions without a method or
// handler are rejected before any route is added. An empty path targets the
// router prefix itself.
func RegisterRoutes(r *Router, routes ...Route) error {
	if r == nil || r.group == nil {
		return fmt.Errorf("httpx: router is nil")
	}
	for i, route := range routes {
		if route.Handler == nil || route.Method == "" {
			return fmt.Errorf("httpx: route %d (%s %s) is incomplete", i, route.Method, route.Path)
		}
	}
	for _, route := range routes {
		r.group.Add(strings.ToUpper(route.Method), route.Path, route.Handler, route.Middleware...)
	}
	return nil
}

// Router wraps an echo group to provide chainable helpers for common verbs.
type Router struct {
	group *echo.Group
}

// NewRouter creates a router under an optional prefix with optional middleware.
func NewRouter(a *App, prefix string, mw ...MiddlewareFunc) *Router {
	if a == nil || a.e == nil {
		return &Router{}
	}
	return &Router{group: a.e.Group(prefix, mw...)}
}

// Use appends middleware to the group.
func (r *Router) Use(mw ...MiddlewareFunc) *Router {
	if r.group != nil {
		r.group.Use(mw...)
	}
	return r
}

func (r *Router) GET(path string, h HandlerFunc, mw ...MiddlewareFunc) *Router {
	r.add(echo.GET, path, h, mw...)
	return r
}

func (r *Router) POST(path string, h HandlerFunc, mw ...MiddlewareFunc) *Router {
	r.add(echo.POST, path, h, mw...)
	return r
}

func (r *Router) PUT(path string, h HandlerFunc, mw ...MiddlewareFunc) *Router {
	r.add(echo.PUT, path, h, mw...)
	return r
}

func (r *Router) DELETE(path string, h HandlerFunc, mw ...MiddlewareFunc) *Router {
	r.add(echo.DELETE, path, h, mw...)
	return r
}

func (r *Router) add(method, path string, h HandlerFunc, mw ...MiddlewareFunc) {
	if r.group == nil || h == nil {
		return
	}
	r.group.Add(method, path, h, mw...)
}
