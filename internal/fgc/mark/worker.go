package mark

import (
	"math/rand"

	"github.com/faxlang/faxc/internal/fgc/colorptr"
)

// Worker is one GC thread's local queue over a shared Queue, ported from
// mark_queue.rs's MarkingWorker.
type Worker struct {
	local *deque
	queue *Queue

	processedLocal   int
	batchSize        int
	idleCount        int
	consecutiveEmpty int
	localBatchSize   int
	totalProcessed   int

	rng *rand.Rand
}

// Push adds an object to this worker's own local queue.
func (w *Worker) Push(p colorptr.Pointer) {
	w.local.push(p)
}

// adaptBatchSize shrinks the steal batch after repeated empty steals and
// grows it back once the worker is mostly finding local work, per
// mark_queue.rs's adapt_batch_size.
func (w *Worker) adaptBatchSize() {
	w.totalProcessed++

	total := w.totalProcessed
	if total < 1 {
		total = 1
	}
	successRate := float64(w.processedLocal) / float64(total)

	if w.consecutiveEmpty > 3 && w.localBatchSize > 4 {
		w.localBatchSize = w.localBatchSize / 2
		if w.localBatchSize < 4 {
			w.localBatchSize = 4
		}
		w.consecutiveEmpty = 0
	} else if successRate > 0.8 && w.localBatchSize < 64 {
		w.localBatchSize = w.localBatchSize * 2
		if w.localBatchSize > 64 {
			w.localBatchSize = 64
		}
	}
}

// Pop returns the next object to process: local queue first, then a
// batch steal from the global injector, falling back to stealing from
// sibling workers once idle for a few consecutive pops.
func (w *Worker) Pop() (colorptr.Pointer, bool) {
	if p, ok := w.local.pop(); ok {
		w.processedLocal++
		w.idleCount = 0
		w.consecutiveEmpty = 0
		w.queue.processedCount.Add(1)
		return p, true
	}

	w.idleCount++
	w.consecutiveEmpty++

	var p colorptr.Pointer
	var ok bool
	if w.idleCount < 3 {
		p, ok = w.stealBatchFromInjector()
	} else {
		w.adaptBatchSize()
		p, ok = w.stealFromWorkers()
	}
	if ok {
		w.queue.processedCount.Add(1)
	}
	return p, ok
}

// stealBatchFromInjector is the fast path: pull a batch from the shared
// global queue into the worker's own local deque.
func (w *Worker) stealBatchFromInjector() (colorptr.Pointer, bool) {
	n := w.queue.injector.stealBatch(w.local, w.batchSize)
	if n == 0 {
		return 0, false
	}
	w.idleCount = 0
	return w.local.pop()
}

// stealFromWorkers is the slow path: steal from a random sibling
// worker's local deque, trying every sibling once before giving up.
func (w *Worker) stealFromWorkers() (colorptr.Pointer, bool) {
	w.queue.stealersMu.RLock()
	stealers := w.queue.stealers
	w.queue.stealersMu.RUnlock()

	n := len(stealers)
	if n == 0 {
		return 0, false
	}
	if n == 1 {
		return w.tryStealFrom(stealers[0])
	}

	start := w.rng.Intn(n)
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		if stealers[idx] == w.local {
			continue
		}
		if p, ok := w.tryStealFrom(stealers[idx]); ok {
			return p, true
		}
	}
	return 0, false
}

func (w *Worker) tryStealFrom(victim *deque) (colorptr.Pointer, bool) {
	if victim.stealBatch(w.local, w.localBatchSize) == 0 {
		return 0, false
	}
	return w.local.pop()
}

// PopBatch pops up to maxCount objects for batch processing.
func (w *Worker) PopBatch(maxCount int) []colorptr.Pointer {
	batchSize := w.localBatchSize
	if maxCount < batchSize {
		batchSize = maxCount
	}
	batch := make([]colorptr.Pointer, 0, batchSize)

	for len(batch) < maxCount {
		p, ok := w.Pop()
		if !ok {
			break
		}
		batch = append(batch, p)
	}
	return batch
}

// CurrentBatchSize returns the worker's current adaptive batch size.
func (w *Worker) CurrentBatchSize() int { return w.localBatchSize }

// LocalLen returns the worker's own pending local item count.
func (w *Worker) LocalLen() int { return w.local.len() }
