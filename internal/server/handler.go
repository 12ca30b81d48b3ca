package server

import (
	"fmt"
	"sync"

	"example.com/mediaserve/internal/http1"
	"example.com/mediaserve/internal/logger"
)

// HandlerFactory defines the function signature for creating handler instances.
// mediaDir is the directory every handler serves from; it never changes after startup.
type HandlerFactory func(mediaDir string, lg *logger.Logger) (Handler, error)

// HandlerRegistry manages the registration and retrieval of HandlerFactory instances.
// It maps HandlerType strings (from the routing table) to their factory functions.
type HandlerRegistry struct {
	mu        sync.RWMutex
	factories map[string]HandlerFactory
}

// NewHandlerRegistry creates and returns a new HandlerRegistry instance.
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{
		factories: make(map[string]HandlerFactory),
	}
}

// Register associates a HandlerType string with a factory function.
// It returns an error if a HandlerType is registered more than once.
func (r *HandlerRegistry) Register(handlerType string, factory HandlerFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if factory == nil {
		return fmt.Errorf("factory for handler type '%s' cannot be nil", handlerType)
	}
	if _, exists := r.factories[handlerType]; exists {
		return fmt.Errorf("handler type '%s' already registered", handlerType)
	}
	r.factories[handlerType] = factory
	return nil
}

// GetFactory retrieves a registered HandlerFactory for the given handlerType.
func (r *HandlerRegistry) GetFactory(handlerType string) (HandlerFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	factory, ok := r.factories[handlerType]
	return factory, ok
}

// CreateHandler creates a new handler instance for the given HandlerType string
// using its registered factory.
func (r *HandlerRegistry) CreateHandler(handlerType string, mediaDir string, lg *logger.Logger) (Handler, error) {
	factory, ok := r.GetFactory(handlerType)
	if !ok {
		return nil, fmt.Errorf("no handler factory registered for type '%s'", handlerType)
	}
	if lg == nil {
		return nil, fmt.Errorf("logger cannot be nil when creating handler type '%s'", handlerType)
	}
	return factory(mediaDir, lg)
}

// Handler is the interface that processes requests for a given route.
// A handler returns either a complete response or an error; errors are turned into
// responses by the connection handler through ErrorResponse.
type Handler interface {
	Serve(req *http1.Request) (*http1.Response, error)
}

// HandlerFunc adapts an ordinary function to the Handler interface.
type HandlerFunc func(req *http1.Request) (*http1.Response, error)

// Serve calls f(req).
func (f HandlerFunc) Serve(req *http1.Request) (*http1.Response, error) {
	return f(req)
}

// RouterInterface defines the interface for request routing.
// Route must return exactly one of a response or an error.
type RouterInterface interface {
	Route(req *http1.Request) (*http1.Response, error)
}
