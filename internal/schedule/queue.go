// Package schedule keeps pending dispatch jobs ordered by fire time.
package schedule

import (
	"container/heap"
	"time"

	"github.com/aniladanir/billing-reminder-service/internal/domain"
	"github.com/google/uuid"
)

type Job struct {
	ClientID uuid.UUID
	Kind     domain.DispatchKind
	DueAt    time.Time
	FireAt   time.Time
}

// Queue is a min-heap of jobs keyed by FireAt. It is not safe for
// concurrent use.
type Queue struct {
	jobs jobHeap
}

func NewQueue() *Queue {
	return &Queue{}
}

func (q *Queue) Push(j Job) {
	heap.Push(&q.jobs, j)
}

func (q *Queue) Len() int {
	return q.jobs.Len()
}

// Peek returns the earliest job without removing it.
func (q *Queue) Peek() (Job, bool) {
	if q.jobs.Len() == 0 {
		return Job{}, false
	}
	return q.jobs[0], true
}

// PopDue removes and returns, in fire order, every job whose FireAt is not
// after now.
func (q *Queue) PopDue(now time.Time) []Job {
	var due []Job
	for q.jobs.Len() > 0 && !q.jobs[0].FireAt.After(now) {
		due = append(due, heap.Pop(&q.jobs).(Job))
	}
	return due
}

// NextFire returns the fire time of the earliest job.
func (q *Queue) NextFire() (time.Time, bool) {
	j, ok := q.Peek()
	return j.FireAt, ok
}

func (q *Queue) Reset() {
	q.jobs = q.jobs[:0]
}

type jobHeap []Job

func (h jobHeap) Len() int { return len(h) }

func (h jobHeap) Less(i, j int) bool {
	if h[i].FireAt.Equal(h[j].FireAt) {
		return h[i].ClientID.String() < h[j].ClientID.String()
	}
	return h[i].FireAt.Before(h[j].FireAt)
}

func (h jobHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *jobHeap) Push(x any) { *h = append(*h, x.(Job)) }

func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	j := old[n-1]
	*h = old[:n-1]
	return j
}
