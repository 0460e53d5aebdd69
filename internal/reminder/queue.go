package reminder

import (
	"container/heap"
	"time"

	"github.com/kotche/notes/internal/model"
)

type item struct {
	note  model.Note
	due   time.Time
	index int
}

// queue is a min-heap of reminders ordered by due time, ties by note id.
type queue []*item

var _ heap.Interface = (*queue)(nil)

func (q queue) Len() int { return len(q) }

func (q queue) Less(i, j int) bool {
	if q[i].due.Equal(q[j].due) {
		return q[i].note.ID < q[j].note.ID
	}
	return q[i].due.Before(q[j].due)
}

func (q queue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *queue) Push(x any) {
	it := x.(*item)
	it.index = len(*q)
	*q = append(*q, it)
}

func (q *queue) Pop() any {
	old := *q
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*q = old[:n-1]
	return it
}

func (q queue) peek() *item {
	if len(q) == 0 {
		return nil
	}
	return q[0]
}
