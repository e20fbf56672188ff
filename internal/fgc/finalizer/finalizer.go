// Package finalizer implements object finalization: cleanup callbacks
// queued for objects once they become unreachable but before their
// memory is reclaimed. Grounded on fgc/src/runtime/finalizer.rs.
//
// Finalizers carry real overhead and unpredictable timing — use them
// only for cleanup of native resources an object holds, not as a
// substitute for explicit deallocation.
package finalizer

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"
)

// entry pairs an object address with the function to run against it
// once it is finalized.
type entry struct {
	object uintptr
	run    func(uintptr)
}

// Queue holds pending finalizers and drains them either synchronously
// (RunPending, called by orchestrator.GarbageCollector's cleanup phase
// after every cycle) or continuously from a background goroutine
// (Start/Stop), matching finalizer.rs's Finalizer — which only ever
// drains via its own 100ms-interval thread. Both modes share the same
// mutex-protected list, so calling RunPending while Start's goroutine
// is also running is safe, just redundant draining.
type Queue struct {
	mu    sync.Mutex
	queue *list.List

	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	pendingCount atomic.Int64
}

// New creates an empty, stopped Queue.
func New() *Queue {
	return &Queue{queue: list.New()}
}

// Start launches the background goroutine that drains the queue every
// 100ms, the interval finalizer.rs's thread sleeps for between passes.
func (q *Queue) Start() error {
	q.running.Store(true)
	q.stopCh = make(chan struct{})
	q.wg.Add(1)
	go q.run(q.stopCh)
	return nil
}

func (q *Queue) run(stop <-chan struct{}) {
	defer q.wg.Done()
	for q.running.Load() {
		q.RunPending()
		select {
		case <-stop:
			return
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// RunPending synchronously drains and runs every finalizer currently
// queued, for orchestrator.GarbageCollector's cleanup phase to call
// once per cycle (fgc.rs's run_pending_finalizers).
func (q *Queue) RunPending() {
	for {
		e, ok := q.pop()
		if !ok {
			return
		}
		e.run(e.object)
	}
}

func (q *Queue) pop() (entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	front := q.queue.Front()
	if front == nil {
		return entry{}, false
	}
	q.queue.Remove(front)
	q.pendingCount.Add(-1)
	return front.Value.(entry), true
}

// Stop signals the background goroutine to exit and waits for it.
func (q *Queue) Stop() error {
	if !q.running.Load() {
		return nil
	}
	q.running.Store(false)
	close(q.stopCh)
	q.wg.Wait()
	return nil
}

// Register queues run to be called with object once drained. run must
// not block indefinitely — it shares the draining goroutine or caller
// with every other pending finalizer.
func (q *Queue) Register(object uintptr, run func(uintptr)) {
	q.mu.Lock()
	q.queue.PushBack(entry{object: object, run: run})
	q.mu.Unlock()
	q.pendingCount.Add(1)
}

// PendingCount returns the number of finalizers still queued.
func (q *Queue) PendingCount() int {
	return int(q.pendingCount.Load())
}

// HasPending reports whether any finalizer is still queued.
func (q *Queue) HasPending() bool {
	return q.pendingCount.Load() > 0
}

// Clear discards every queued finalizer without running it.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.queue.Init()
	q.mu.Unlock()
	q.pendingCount.Store(0)
}

// Builder assembles a finalizer registration in the builder style
// finalizer.rs uses for its FinalizerBuilder.
type Builder struct {
	object uintptr
	run    func(uintptr)
}

// NewBuilder starts a builder for object.
func NewBuilder(object uintptr) *Builder {
	return &Builder{object: object}
}

// WithFinalizer sets the cleanup function and returns the builder.
func (b *Builder) WithFinalizer(run func(uintptr)) *Builder {
	b.run = run
	return b
}

// Register finishes the builder, registering it against q if a
// cleanup function was set.
func (b *Builder) Register(q *Queue) {
	if b.run != nil {
		q.Register(b.object, b.run)
	}
}
