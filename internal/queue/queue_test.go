package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueue_PushPop(t *testing.T) {
	q := New[int]()

	q.Push(1, 2, 3)
	assert.Equal(t, 3, q.Len())
	assert.Equal(t, 1, q.Pop())
	assert.Equal(t, 2, q.Pop())
	assert.Equal(t, 3, q.Pop())
	assert.True(t, q.Empty())
}

func TestQueue_PopEmptyReturnsZero(t *testing.T) {
	q := New[string]()
	assert.Equal(t, "", q.Pop())
}

func TestQueue_PushFront(t *testing.T) {
	q := New[int]()

	q.Push(3, 4)
	q.PushFront(1, 2)

	assert.Equal(t, []int{1, 2, 3, 4}, q.GetAndEmpty())
	assert.True(t, q.Empty())
}

func TestQueue_GetAndEmpty(t *testing.T) {
	q := New[int]()
	q.Push(7, 8)

	got := q.GetAndEmpty()
	assert.Equal(t, []int{7, 8}, got)
	assert.Equal(t, 0, q.Len())
}

func TestQueue_Clear(t *testing.T) {
	q := New[int]()
	q.Push(1)
	q.Clear()
	assert.True(t, q.Empty())
}

func TestQueue_ConcurrentPush(t *testing.T) {
	q := New[int]()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				q.Push(n)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1000, q.Len())
}
