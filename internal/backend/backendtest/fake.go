// Package backendtest provides an in-memory backend.Caller for tests.
package backendtest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Handler answers one method call. The returned value is round-tripped through JSON
// into the caller's result, the same way a real reply would be decoded.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

// Call is a recorded invocation.
type Call struct {
	Method string
	Args   json.RawMessage
}

// Fake is a scriptable backend.
type Fake struct {
	mu       sync.Mutex
	handlers map[string]Handler
	calls    []Call
	hooks    []func(Call)
}

// New creates an empty fake. Unhandled methods fail with an error.
func New() *Fake {
	return &Fake{handlers: make(map[string]Handler)}
}

// Handle registers h for method, replacing any previous handler.
func (f *Fake) Handle(method string, h Handler) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[method] = h
	return f
}

// Reply registers a handler that always returns v.
func (f *Fake) Reply(method string, v any) *Fake {
	return f.Handle(method, func(context.Context, json.RawMessage) (any, error) { return v, nil })
}

// Fail registers a handler that always returns err.
func (f *Fake) Fail(method string, err error) *Fake {
	return f.Handle(method, func(context.Context, json.RawMessage) (any, error) { return nil, err })
}

// OnCall registers a hook invoked synchronously before each handler runs.
func (f *Fake) OnCall(hook func(Call)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hooks = append(f.hooks, hook)
}

// Call implements backend.Caller.
func (f *Fake) Call(ctx context.Context, method string, args any, out any) error {
	var rawArgs json.RawMessage
	if args != nil {
		b, err := json.Marshal(args)
		if err != nil {
			return err
		}
		rawArgs = b
	}

	f.mu.Lock()
	c := Call{Method: method, Args: rawArgs}
	f.calls = append(f.calls, c)
	h, ok := f.handlers[method]
	hooks := append([]func(Call){}, f.hooks...)
	f.mu.Unlock()

	for _, hook := range hooks {
		hook(c)
	}

	if !ok {
		return fmt.Errorf("no handler for %s", method)
	}
	v, err := h(ctx, rawArgs)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

// Calls returns the recorded invocations in order.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Count returns how many times method was called.
func (f *Fake) Count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Reset clears the recorded calls.
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}
