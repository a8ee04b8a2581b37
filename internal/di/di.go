// Package di provides a minimal, type-safe dependency injection container.
//
// Services are registered under typed Tokens and resolved lazily: a
// factory registered for a token does not run until something asks for
// that token, and the result is memoized as a singleton for the lifetime
// of the Container. This lets module registration happen in any order —
// a factory can ask the registry for a token that is registered later,
// as long as it is not resolved before registration completes.
package di

import (
	"fmt"
	"sync"
)

// Token identifies a service of type T by name. Tokens are comparable and
// are typically declared as package-level vars in a module's di package.
type Token[T any] struct {
	name string
}

// NewToken creates a new Token with the given diagnostic name. The name is
// used only for error messages; tokens are otherwise identified by type and
// registration order is not significant.
func NewToken[T any](name string) Token[T] {
	return Token[T]{name: name}
}

func (t Token[T]) String() string {
	return t.name
}

// ServiceRegistry is the read side of a Container: lookup by name.
type ServiceRegistry interface {
	// Get resolves the named service, running its factory on first access.
	// It panics if the name was never registered — a programming error,
	// not a runtime condition callers are expected to recover from.
	Get(name string) any
}

// Container is the write+read side: register values or factories, then
// resolve them (directly or via RegisterToken/GetToken).
type Container interface {
	ServiceRegistry
	// Register stores a fully constructed value under name.
	Register(name string, value any)
	// RegisterFactory stores a lazy singleton factory under name. The
	// factory runs at most once, the first time Get(name) is called.
	RegisterFactory(name string, factory func(ServiceRegistry) any)
}

type entry struct {
	value    any
	factory  func(ServiceRegistry) any
	resolved bool
}

type container struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewContainer creates an empty Container.
func NewContainer() Container {
	return &container{entries: make(map[string]*entry)}
}

func (c *container) Register(name string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[name] = &entry{value: value, resolved: true}
}

func (c *container) RegisterFactory(name string, factory func(ServiceRegistry) any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[name] = &entry{factory: factory}
}

func (c *container) Get(name string) any {
	c.mu.Lock()
	e, ok := c.entries[name]
	if !ok {
		c.mu.Unlock()
		panic(fmt.Sprintf("di: no service registered for %q", name))
	}
	if e.resolved {
		v := e.value
		c.mu.Unlock()
		return v
	}
	c.mu.Unlock()

	// Resolve outside the lock: factories are allowed to call back into
	// Get for their own dependencies.
	v := e.factory(c)

	c.mu.Lock()
	e.value = v
	e.resolved = true
	c.mu.Unlock()

	return v
}

// RegisterToken registers a typed factory under token.
func RegisterToken[T any](c Container, token Token[T], factory func(ServiceRegistry) T) {
	c.RegisterFactory(token.name, func(sr ServiceRegistry) any {
		return factory(sr)
	})
}

// RegisterTokenValue registers a fully constructed value under token.
func RegisterTokenValue[T any](c Container, token Token[T], value T) {
	c.Register(token.name, value)
}

// GetToken resolves a typed token from the registry.
func GetToken[T any](sr ServiceRegistry, token Token[T]) T {
	v := sr.Get(token.name)
	t, ok := v.(T)
	if !ok {
		panic(fmt.Sprintf("di: service %q has unexpected type %T", token.name, v))
	}
	return t
}
