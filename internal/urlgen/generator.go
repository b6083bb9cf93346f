package urlgen

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// RequestContext carries the scheme and host of an originating request so a
// generated link lands back on the same deployment the user is talking to.
// It is passed explicitly per call; the generator itself holds no mutable
// request state, so its configuration is identical before and after every
// generation, failed ones included.
type RequestContext struct {
	Scheme string
	Host   string
}

// FromRequest derives a RequestContext from an incoming request, honoring
// X-Forwarded-Proto when a proxy terminated TLS.
func FromRequest(r *http.Request) *RequestContext {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return &RequestContext{Scheme: scheme, Host: r.Host}
}

// Generator builds absolute URLs for named routes.
type Generator interface {
	Generate(route string, params url.Values, reqCtx *RequestContext) (string, error)
}

// RouteGenerator resolves route names to paths against a base URL.
type RouteGenerator struct {
	base   *url.URL
	routes map[string]string
}

func NewRouteGenerator(baseURL string, routes map[string]string) (*RouteGenerator, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	return &RouteGenerator{base: base, routes: routes}, nil
}

// Generate returns an absolute URL for the named route. When reqCtx is
// non-nil its scheme and host override the configured base.
func (g *RouteGenerator) Generate(route string, params url.Values, reqCtx *RequestContext) (string, error) {
	path, ok := g.routes[route]
	if !ok {
		return "", fmt.Errorf("unknown route %q", route)
	}

	u := url.URL{
		Scheme:   g.base.Scheme,
		Host:     g.base.Host,
		Path:     strings.TrimSuffix(g.base.Path, "/") + path,
		RawQuery: params.Encode(),
	}
	if reqCtx != nil {
		if reqCtx.Scheme != "" {
			u.Scheme = reqCtx.Scheme
		}
		if reqCtx.Host != "" {
			u.Host = reqCtx.Host
		}
	}
	return u.String(), nil
}
