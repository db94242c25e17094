// Package hooks provides named hook registration and execution with priority support.
package hooks

import (
	"errors"
	"fmt"
	"log"
	"reflect"
	"runtime"
	"sort"
	"sync"
)

// Any is the event name whose hooks run for every event.
const Any = "*"

// Hook defines a generic hook function that returns an error if it fails
type Hook[T any] func(context T) error

// HookInfo stores information about a registered hook including its priority
type HookInfo[T any] struct {
	Name     string  // Name of the hook function
	Event    string  // Event the hook is bound to, or Any
	Hook     Hook[T] // The hook function itself
	Priority int64   // Lower values run first, like Unix nice
	seq      int
}

// Registry manages hooks bound to named events for a specific context type
type Registry[T any] struct {
	mu    sync.RWMutex
	hooks []HookInfo[T]
	seq   int
}

// NewRegistry creates a new hook registry for the given context type
func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{
		hooks: make([]HookInfo[T], 0),
	}
}

// Register binds hook to event with the default priority (0)
func (r *Registry[T]) Register(event string, hook Hook[T]) {
	r.RegisterWithPriority(event, hook, 0)
}

// RegisterWithPriority binds hook to event with the specified priority.
// Hooks sharing a priority run in registration order.
func (r *Registry[T]) RegisterWithPriority(event string, hook Hook[T], priority int64) {
	name := runtime.FuncForPC(reflect.ValueOf(hook).Pointer()).Name()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	r.hooks = append(r.hooks, HookInfo[T]{
		Name:     name,
		Event:    event,
		Hook:     hook,
		Priority: priority,
		seq:      r.seq,
	})
}

// Run executes the hooks bound to event and to Any in priority order.
// A failing or panicking hook does not stop the others; their errors are
// joined into the result.
func (r *Registry[T]) Run(event string, context T) error {
	r.mu.RLock()
	hooks := make([]HookInfo[T], 0, len(r.hooks))
	for _, h := range r.hooks {
		if h.Event == event || h.Event == Any {
			hooks = append(hooks, h)
		}
	}
	r.mu.RUnlock()

	sort.Slice(hooks, func(i, j int) bool {
		if hooks[i].Priority != hooks[j].Priority {
			return hooks[i].Priority < hooks[j].Priority
		}
		return hooks[i].seq < hooks[j].seq
	})

	var errs []error
	for _, info := range hooks {
		if err := runOne(info, context); err != nil {
			log.Printf("ERROR in hook %s (%s): %v", info.Name, event, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func runOne[T any](info HookInfo[T], context T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in hook %s: %v", info.Name, r)
		}
	}()
	return info.Hook(context)
}

// Clear removes all hooks from the registry
func (r *Registry[T]) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.hooks = make([]HookInfo[T], 0)
}

// Count returns the number of hooks bound to event, or all hooks when event is empty
func (r *Registry[T]) Count(event string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if event == "" {
		return len(r.hooks)
	}
	n := 0
	for _, h := range r.hooks {
		if h.Event == event {
			n++
		}
	}
	return n
}
