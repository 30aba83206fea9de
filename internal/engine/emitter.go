package engine

import "sync"

// emitter delivers events in order and closes the channel after exactly one
// KindEnded event.
type emitter struct {
	ch      chan Event
	endOnce sync.Once
	mu      sync.Mutex
	ended   bool
}

func newEmitter() *emitter {
	return &emitter{ch: make(chan Event, 64)}
}

func (e *emitter) emit(ev Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ended {
		return
	}
	e.ch <- ev
}

func (e *emitter) started() { e.emit(Event{Kind: KindStarted}) }

func (e *emitter) results(index int, results ...Result) {
	e.emit(Event{Kind: KindResults, Index: index, Results: results})
}

func (e *emitter) fail(code, msg string) {
	e.emit(Event{Kind: KindError, Code: code, Message: msg})
}

func (e *emitter) end() {
	e.endOnce.Do(func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.ch <- Event{Kind: KindEnded}
		e.ended = true
		close(e.ch)
	})
}
