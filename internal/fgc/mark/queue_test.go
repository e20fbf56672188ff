package mark_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/faxlang/faxc/internal/fgc/colorptr"
	"github.com/faxlang/faxc/internal/fgc/mark"
)

func TestQueuePushIncreasesEnqueuedStat(t *testing.T) {
	q := mark.New()
	q.Push(colorptr.New(0x1000, 0))
	q.Push(colorptr.New(0x2000, 0))

	stats := q.Stats()
	require.Equal(t, uint64(2), stats.Enqueued)
	require.Equal(t, 2, q.Len())
}

func TestQueuePushBatch(t *testing.T) {
	q := mark.New()
	q.PushBatch([]colorptr.Pointer{colorptr.New(0x1000, 0), colorptr.New(0x2000, 0), colorptr.New(0x3000, 0)})

	require.Equal(t, 3, q.Len())
	require.Equal(t, uint64(3), q.Stats().Enqueued)
}

func TestQueueCloseStopsAcceptingPushes(t *testing.T) {
	q := mark.New()
	q.Close()
	q.Push(colorptr.New(0x1000, 0))

	require.True(t, q.IsEmpty())
	require.Equal(t, uint64(0), q.Stats().Enqueued)
}

func TestQueueClearDrainsInjector(t *testing.T) {
	q := mark.New()
	q.PushBatch([]colorptr.Pointer{colorptr.New(0x1000, 0), colorptr.New(0x2000, 0)})
	q.Clear()

	require.True(t, q.IsEmpty())
}

func TestQueueWorkerRegistration(t *testing.T) {
	q := mark.New()
	q.RegisterWorker()
	q.RegisterWorker()
	require.Equal(t, 2, q.WorkerCount())

	q.UnregisterWorker()
	require.Equal(t, 1, q.WorkerCount())
}

func TestWorkerPopDrainsInjectorViaBatchSteal(t *testing.T) {
	q := mark.New()
	q.PushBatch([]colorptr.Pointer{colorptr.New(0x1000, 0), colorptr.New(0x2000, 0), colorptr.New(0x3000, 0)})

	w := q.CreateWorker()
	seen := map[uintptr]bool{}
	for i := 0; i < 3; i++ {
		p, ok := w.Pop()
		require.True(t, ok)
		seen[p.Address()] = true
	}
	require.Len(t, seen, 3)

	_, ok := w.Pop()
	require.False(t, ok)
}

func TestWorkerPopPrefersOwnLocalQueue(t *testing.T) {
	q := mark.New()
	q.PushBatch([]colorptr.Pointer{colorptr.New(0x9999, 0)})

	w := q.CreateWorker()
	w.Push(colorptr.New(0x1000, 0))

	p, ok := w.Pop()
	require.True(t, ok)
	require.Equal(t, uintptr(0x1000), p.Address(), "a worker's own local item should be popped before stealing")
}

func TestWorkerStealsFromSiblingWorkerWhenInjectorEmpty(t *testing.T) {
	q := mark.New()
	producer := q.CreateWorker()
	for i := 0; i < 10; i++ {
		producer.Push(colorptr.New(uintptr(0x1000+i*8), 0))
	}

	consumer := q.CreateWorker()
	total := 0
	for i := 0; i < 20 && total < 10; i++ {
		if _, ok := consumer.Pop(); ok {
			total++
		}
	}
	require.Equal(t, 10, total, "consumer should eventually steal all of the producer's local work")
}

func TestWorkerPopBatchRespectsMaxCount(t *testing.T) {
	q := mark.New()
	q.PushBatch([]colorptr.Pointer{colorptr.New(0x1000, 0), colorptr.New(0x2000, 0), colorptr.New(0x3000, 0)})

	w := q.CreateWorker()
	batch := w.PopBatch(2)
	require.Len(t, batch, 2)
}
