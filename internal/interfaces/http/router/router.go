// Package router mounts the HTTP API under /api/<version>.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RouteRegistrar attaches its routes to the versioned API group.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

type Router struct {
	engine     *gin.Engine
	apiVersion string
	registrars []RouteRegistrar
}

type RouterOption func(*Router)

// WithAPIVersion replaces the default "v1" path segment.
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) { r.apiVersion = version }
}

func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{engine: engine, apiVersion: "v1"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register queues registrars; nothing reaches gin until Setup.
func (r *Router) Register(registrars ...RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrars...)
	return r
}

func (r *Router) APIPrefix() string { return "/api/" + r.apiVersion }

func (r *Router) Setup() {
	api := r.engine.Group(r.APIPrefix())
	for _, reg := range r.registrars {
		reg.RegisterRoutes(api)
	}
}

// DomainGroup collects routes, nested groups and middleware for one
// resource. Middleware added with Use wraps every route in the group and
// in its nested groups.
type DomainGroup struct {
	name       string
	prefix     string
	middleware []gin.HandlerFunc
	routes     []route
	children   []*DomainGroup
}

type route struct {
	method, path string
	handlers     []gin.HandlerFunc
}

func NewDomainGroup(name, prefix string) *DomainGroup {
	return &DomainGroup{name: name, prefix: prefix}
}

func (g *DomainGroup) Name() string { return g.name }

func (g *DomainGroup) Use(middleware ...gin.HandlerFunc) *DomainGroup {
	g.middleware = append(g.middleware, middleware...)
	return g
}

// Handle declares a route; the verb helpers below are shorthands.
func (g *DomainGroup) Handle(method, path string, handlers ...gin.HandlerFunc) *DomainGroup {
	g.routes = append(g.routes, route{method: method, path: path, handlers: handlers})
	return g
}

func (g *DomainGroup) GET(path string, h ...gin.HandlerFunc) *DomainGroup {
	return g.Handle(http.MethodGet, path, h...)
}

func (g *DomainGroup) POST(path string, h ...gin.HandlerFunc) *DomainGroup {
	return g.Handle(http.MethodPost, path, h...)
}

func (g *DomainGroup) PUT(path string, h ...gin.HandlerFunc) *DomainGroup {
	return g.Handle(http.MethodPut, path, h...)
}

func (g *DomainGroup) PATCH(path string, h ...gin.HandlerFunc) *DomainGroup {
	return g.Handle(http.MethodPatch, path, h...)
}

func (g *DomainGroup) DELETE(path string, h ...gin.HandlerFunc) *DomainGroup {
	return g.Handle(http.MethodDelete, path, h...)
}

// Group nests a group under this one's prefix.
func (g *DomainGroup) Group(name, prefix string) *DomainGroup {
	child := NewDomainGroup(name, prefix)
	g.children = append(g.children, child)
	return child
}

func (g *DomainGroup) RegisterRoutes(parent *gin.RouterGroup) {
	rg := parent.Group(g.prefix, g.middleware...)
	for _, r := range g.routes {
		rg.Handle(r.method, r.path, r.handlers...)
	}
	for _, child := range g.children {
		child.RegisterRoutes(rg)
	}
}
