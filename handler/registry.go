// Package handler resolves the configured handler name to an event.Handler
// once, at startup.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/aura-studio/lambda-runtime/dynamic"
	"github.com/aura-studio/lambda-runtime/event"
	"github.com/tidwall/gjson"
)

// Factory builds a handler on resolution.
type Factory func() (event.Handler, error)

type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	dynamic   *dynamic.Dynamic
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register binds name to a ready handler.
func (r *Registry) Register(name string, h event.Handler) {
	r.RegisterFactory(name, func() (event.Handler, error) { return h, nil })
}

// RegisterFunc binds name to a plain function.
func (r *Registry) RegisterFunc(name string, f func(ctx context.Context, ev *event.Event) (any, error)) {
	r.Register(name, event.HandlerFunc(f))
}

// RegisterFactory binds name to a handler built lazily on Resolve.
func (r *Registry) RegisterFactory(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// UseDynamic lets Resolve fall back to tunnel packages for names shaped
// "pkg/version[/route]".
func (r *Registry) UseDynamic(d *dynamic.Dynamic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dynamic = d
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the handler registered under name, or a tunnel handler when
// name is a tunnel path and dynamic packages are enabled.
func (r *Registry) Resolve(name string) (event.Handler, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	d := r.dynamic
	r.mu.RUnlock()

	if ok {
		h, err := f()
		if err != nil {
			return nil, fmt.Errorf("handler %q: %w", name, err)
		}
		if h == nil {
			return nil, fmt.Errorf("handler %q: factory returned nil", name)
		}
		return h, nil
	}

	if d != nil {
		if _, _, _, err := dynamic.SplitPath(name); err == nil {
			return Tunnel(d, name), nil
		}
	}

	return nil, fmt.Errorf("handler %q not registered (known: %v)", name, r.Names())
}

// Tunnel invokes the tunnel at path with the raw payload. JSON output is
// returned verbatim, anything else as a JSON string.
func Tunnel(d *dynamic.Dynamic, path string) event.Handler {
	return event.HandlerFunc(func(ctx context.Context, ev *event.Event) (any, error) {
		rsp, err := d.Invoke(path, ev.Payload.String())
		if err != nil {
			return nil, err
		}
		if gjson.Valid(rsp) {
			return json.RawMessage(rsp), nil
		}
		return rsp, nil
	})
}

var defaultRegistry = NewRegistry()

func Default() *Registry { return defaultRegistry }

func Register(name string, h event.Handler) { defaultRegistry.Register(name, h) }

func RegisterFunc(name string, f func(ctx context.Context, ev *event.Event) (any, error)) {
	defaultRegistry.RegisterFunc(name, f)
}
