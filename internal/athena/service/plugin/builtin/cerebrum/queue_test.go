package cerebrum

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_SnapshotAndRemovePrefix(t *testing.T) {
	var q Queue[int]
	q.EnqueueTail(1)
	q.EnqueueTail(2)

	n := q.PeekLength()
	snap := q.Snapshot(n)
	q.EnqueueTail(3)

	q.RemovePrefix(n)
	assert.Equal(t, []int{1, 2}, snap)
	assert.Equal(t, []int{3}, q.Items())

	q.RemovePrefix(10)
	assert.Zero(t, q.PeekLength())
	assert.Empty(t, q.Snapshot(5))
}

func TestQueue_ConservesItemsUnderConcurrentProducers(t *testing.T) {
	const producers, perProducer = 8, 200

	var (
		q    Queue[int]
		wg   sync.WaitGroup
		done = make(chan struct{})
		seen []int
	)

	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.EnqueueTail(p*perProducer + i)
			}
		}(p)
	}
	go func() {
		wg.Wait()
		close(done)
	}()

	drain := func() {
		n := q.PeekLength()
		seen = append(seen, q.Snapshot(n)...)
		q.RemovePrefix(n)
	}
	for {
		select {
		case <-done:
			drain()
			require.Len(t, seen, producers*perProducer)
			unique := make(map[int]struct{}, len(seen))
			for _, v := range seen {
				unique[v] = struct{}{}
			}
			assert.Len(t, unique, producers*perProducer)
			assert.Zero(t, q.PeekLength())
			return
		default:
			drain()
		}
	}
}
