// Package dispatch delivers runtime lifecycle events to optional listeners.
package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
)

type Listener interface {
	Handle(ctx context.Context, ev Event) error
}

type ListenerFunc func(ctx context.Context, ev Event) error

func (f ListenerFunc) Handle(ctx context.Context, ev Event) error { return f(ctx, ev) }

type Dispatcher struct {
	mu        sync.RWMutex
	listeners map[string][]Listener
	all       []Listener
}

func New() *Dispatcher {
	return &Dispatcher{listeners: make(map[string][]Listener)}
}

// Subscribe registers l for events named name.
func (d *Dispatcher) Subscribe(name string, l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[name] = append(d.listeners[name], l)
}

// SubscribeAll registers l for every event.
func (d *Dispatcher) SubscribeAll(l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.all = append(d.all, l)
}

// Dispatch calls every matching listener in registration order, named
// listeners first. A failing or panicking listener does not stop the others;
// their errors are returned together.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) error {
	d.mu.RLock()
	listeners := make([]Listener, 0, len(d.listeners[ev.Name()])+len(d.all))
	listeners = append(listeners, d.listeners[ev.Name()]...)
	listeners = append(listeners, d.all...)
	d.mu.RUnlock()

	var result *multierror.Error
	for _, l := range listeners {
		if err := call(ctx, l, ev); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func call(ctx context.Context, l Listener, ev Event) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("listener for %s: panic: %v", ev.Name(), v)
		}
	}()
	return l.Handle(ctx, ev)
}
