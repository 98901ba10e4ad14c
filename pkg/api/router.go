// Package api serves the nervous system's status and control surface over
// HTTP and streams engine events over a websocket.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	nerrors "github.com/rrojashub-source/cerebro-nexus-sub001/pkg/errors"
)

// HandlerFunc is the function signature for API handlers.
type HandlerFunc func(w http.ResponseWriter, r *http.Request)

// Route is a registered route.
type Route struct {
	Method  string
	Pattern string
	Handler HandlerFunc
}

// Router is a small method-and-pattern router with :param segments.
type Router struct {
	routes []Route
	mu     sync.RWMutex

	// NotFound is called when no route matches.
	NotFound http.Handler
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{
		NotFound: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			WriteError(w, http.StatusNotFound, "not_found", "The requested resource was not found")
		}),
	}
}

// Handle registers a handler for method and pattern, e.g. /api/optimizations/:type.
func (rt *Router) Handle(method, pattern string, handler HandlerFunc) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.routes = append(rt.routes, Route{Method: method, Pattern: pattern, Handler: handler})
}

// GET registers a handler for GET requests.
func (rt *Router) GET(pattern string, handler HandlerFunc) {
	rt.Handle(http.MethodGet, pattern, handler)
}

// POST registers a handler for POST requests.
func (rt *Router) POST(pattern string, handler HandlerFunc) {
	rt.Handle(http.MethodPost, pattern, handler)
}

// Routes returns the registered routes in registration order.
func (rt *Router) Routes() []Route {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return append([]Route(nil), rt.routes...)
}

// ServeHTTP dispatches to the first route matching method and path. A path
// that matches only under another method answers 405.
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rt.mu.RLock()
	routes := rt.routes
	rt.mu.RUnlock()

	pathMatched := false
	for _, route := range routes {
		params, ok := matchPath(route.Pattern, r.URL.Path)
		if !ok {
			continue
		}
		if route.Method != r.Method {
			pathMatched = true
			continue
		}
		if len(params) > 0 {
			r = setPathParams(r, params)
		}
		route.Handler(w, r)
		return
	}

	if pathMatched {
		WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", r.Method+" is not allowed here")
		return
	}
	rt.NotFound.ServeHTTP(w, r)
}

// matchPath matches path against pattern and extracts :param segments.
func matchPath(pattern, path string) (map[string]string, bool) {
	patternParts := strings.Split(strings.Trim(pattern, "/"), "/")
	pathParts := strings.Split(strings.Trim(path, "/"), "/")
	if len(patternParts) != len(pathParts) {
		return nil, false
	}

	params := make(map[string]string)
	for i, part := range patternParts {
		if strings.HasPrefix(part, ":") {
			if pathParts[i] == "" {
				return nil, false
			}
			params[part[1:]] = pathParts[i]
		} else if part != pathParts[i] {
			return nil, false
		}
	}
	return params, true
}

type contextKey string

const pathParamsKey contextKey = "pathParams"

func setPathParams(r *http.Request, params map[string]string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), pathParamsKey, params))
}

// PathParam returns the named path parameter, or "".
func PathParam(r *http.Request, name string) string {
	params, ok := r.Context().Value(pathParamsKey).(map[string]string)
	if !ok {
		return ""
	}
	return params[name]
}

// Response is the envelope every endpoint answers with.
type Response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *ErrorBody      `json:"error,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// envelope is the write side of Response.
type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

// WriteJSON writes data in a success envelope.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: status >= 200 && status < 300, Data: data})
}

// WriteError writes an error envelope.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Error: &ErrorBody{Code: code, Message: message}})
}

// errorStatus maps error codes to HTTP statuses.
var errorStatus = map[string]int{
	nerrors.ErrUnknownOptimization:   http.StatusNotFound,
	nerrors.ErrOptimizationBusy:      http.StatusConflict,
	nerrors.ErrOptimizationCooldown:  http.StatusConflict,
	nerrors.ErrActionBudgetExhausted: http.StatusTooManyRequests,
	nerrors.ErrNotAwake:              http.StatusServiceUnavailable,
	nerrors.ErrNetworkUnreachable:    http.StatusBadGateway,
	nerrors.ErrNetworkTimeout:        http.StatusGatewayTimeout,
	nerrors.ErrBrainUnhealthy:        http.StatusBadGateway,
	nerrors.ErrBrainServerError:      http.StatusBadGateway,
}

// WriteNexusError writes err with the status its code maps to, 500 otherwise.
func WriteNexusError(w http.ResponseWriter, err error) {
	ne, ok := nerrors.As(err)
	if !ok {
		WriteError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	status, ok := errorStatus[ne.Code]
	if !ok {
		status = http.StatusInternalServerError
	}
	WriteError(w, status, ne.Code, ne.Message)
}
