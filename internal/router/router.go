package router

import (
	"fmt"
	"sort"
	"strings"

	"example.com/mediaserve/internal/config"
	"example.com/mediaserve/internal/http1"
	"example.com/mediaserve/internal/logger"
	"example.com/mediaserve/internal/server"
)

// MethodGet is the only method the server accepts.
const MethodGet = "GET"

// routeEntry is a configured route together with the handler built for it.
type routeEntry struct {
	route   config.Route
	handler server.Handler
}

// Router holds the routing table and dispatches requests.
// Exact matches take precedence over prefix matches; among prefix routes the longest
// pattern wins.
type Router struct {
	exactRoutes  map[string]routeEntry
	prefixRoutes []routeEntry // sorted by PathPattern length, longest first

	log *logger.Logger
}

// NewRouter builds the routing table. Every route's handler is created once through
// the registry, so handler construction errors surface at startup.
func NewRouter(routes []config.Route, registry *server.HandlerRegistry, mediaDir string, lg *logger.Logger) (*Router, error) {
	if registry == nil {
		return nil, fmt.Errorf("handler registry cannot be nil")
	}
	if lg == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	exactMap := make(map[string]routeEntry)
	var prefixList []routeEntry

	for _, route := range routes {
		if route.MatchType != config.MatchTypeExact && route.MatchType != config.MatchTypePrefix {
			return nil, fmt.Errorf("route %q: invalid match type %q", route.PathPattern, route.MatchType)
		}
		handler, err := registry.CreateHandler(route.HandlerType, mediaDir, lg)
		if err != nil {
			return nil, fmt.Errorf("route %q (%s): %w", route.PathPattern, route.MatchType, err)
		}
		entry := routeEntry{route: route, handler: handler}
		if route.MatchType == config.MatchTypeExact {
			if _, dup := exactMap[route.PathPattern]; dup {
				return nil, fmt.Errorf("duplicate exact route %q", route.PathPattern)
			}
			exactMap[route.PathPattern] = entry
		} else {
			prefixList = append(prefixList, entry)
		}
	}

	sort.SliceStable(prefixList, func(i, j int) bool {
		return len(prefixList[i].route.PathPattern) > len(prefixList[j].route.PathPattern)
	})

	return &Router{
		exactRoutes:  exactMap,
		prefixRoutes: prefixList,
		log:          lg,
	}, nil
}

// MatchedRouteInfo holds the matched route and its handler.
type MatchedRouteInfo struct {
	Handler server.Handler
	Route   config.Route
}

// FindRoute matches path against the routing table. It returns nil when no route
// matches.
func (r *Router) FindRoute(path string) *MatchedRouteInfo {
	if e, ok := r.exactRoutes[path]; ok {
		return &MatchedRouteInfo{Handler: e.handler, Route: e.route}
	}
	for _, e := range r.prefixRoutes {
		if strings.HasPrefix(path, e.route.PathPattern) {
			return &MatchedRouteInfo{Handler: e.handler, Route: e.route}
		}
	}
	return nil
}

// Route dispatches req to exactly one handler. Methods other than GET are rejected
// before the path is looked at.
func (r *Router) Route(req *http1.Request) (*http1.Response, error) {
	if req.Method() != MethodGet {
		return nil, http1.NewInvalidMethodError(req.Method())
	}

	matched := r.FindRoute(req.Path())
	if matched == nil {
		r.log.Debug("No route matched for request", logger.LogFields{"path": req.Path()})
		return nil, http1.NewNotFoundError(fmt.Sprintf("no route for %q", req.Path()))
	}

	r.log.Debug("Routing request", logger.LogFields{
		"path":        req.Path(),
		"pattern":     matched.Route.PathPattern,
		"handlerType": matched.Route.HandlerType,
	})
	return matched.Handler.Serve(req)
}
