package provider

import "sync"

// Emitter fans events out to subscribers. The zero value is ready to use.
type Emitter struct {
	mu        sync.RWMutex
	nextID    int
	listeners map[int]func(Event)
}

// Subscribe registers fn; calling the returned func more than once is a no-op
func (e *Emitter) Subscribe(fn func(Event)) func() {
	e.mu.Lock()
	if e.listeners == nil {
		e.listeners = make(map[int]func(Event))
	}
	id := e.nextID
	e.nextID++
	e.listeners[id] = fn
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.listeners, id)
			e.mu.Unlock()
		})
	}
}

// Emit delivers ev to every subscriber registered at the time of the call
func (e *Emitter) Emit(ev Event) {
	e.mu.RLock()
	fns := make([]func(Event), 0, len(e.listeners))
	for _, fn := range e.listeners {
		fns = append(fns, fn)
	}
	e.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Subscribers returns the number of registered subscribers
func (e *Emitter) Subscribers() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners)
}
