package snapshot

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ags/internal/world"
)

func turnJob(id string) job {
	return job{kind: jobTurn, turn: world.LogEntry{TurnID: id}}
}

func TestWriteQueue_FIFO(t *testing.T) {
	q := newWriteQueue()
	for _, id := range []string{"A", "B", "C"} {
		require.True(t, q.Enqueue(turnJob(id)))
	}
	assert.Equal(t, 3, q.Len())

	for _, want := range []string{"A", "B", "C"} {
		j, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, j.turn.TurnID)
	}
	_, ok := q.TryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
	assert.Equal(t, 0, q.Len())
}

func TestWriteQueue_WaitSignals(t *testing.T) {
	q := newWriteQueue()

	done := make(chan string)
	go func() {
		<-q.Wait()
		j, ok := q.TryDequeue()
		if ok {
			done <- j.turn.TurnID
		}
	}()

	time.Sleep(10 * time.Millisecond)
	q.Enqueue(turnJob("wake"))

	select {
	case id := <-done:
		assert.Equal(t, "wake", id)
	case <-time.After(time.Second):
		t.Fatal("waiter was not signalled")
	}
}

func TestWriteQueue_Close(t *testing.T) {
	q := newWriteQueue()
	q.Enqueue(turnJob("last"))
	q.Close()
	q.Close()

	assert.False(t, q.Enqueue(turnJob("late")), "enqueue after close should return false")
	assert.False(t, q.Drained(), "queued jobs survive close")

	select {
	case <-q.Wait():
	default:
		t.Fatal("closed queue should release waiters")
	}

	_, ok := q.TryDequeue()
	require.True(t, ok)
	assert.True(t, q.Drained())
}

func TestWriteQueue_ThreadSafe(t *testing.T) {
	q := newWriteQueue()

	const producers = 10
	const perProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Enqueue(turnJob("t"))
			}
		}()
	}
	wg.Wait()
	q.Close()

	n := 0
	for !q.Drained() {
		if _, ok := q.TryDequeue(); ok {
			n++
		}
	}
	assert.Equal(t, producers*perProducer, n)
}
