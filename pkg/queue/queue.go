package queue

import (
	"sync"
	"time"
)

// SyncJob is a deferred reservation-sync callback: the loan service could not
// be told that a document became available, so the notification is retried.
type SyncJob struct {
	DocumentUid string
	RetryAt     time.Time
	Attempts    int
	MaxAttempts int
}

type Queue struct {
	items []*SyncJob
	mu    sync.Mutex
}

func New() *Queue {
	return &Queue{
		items: make([]*SyncJob, 0),
	}
}

func (q *Queue) Enqueue(job *SyncJob) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, job)
}

// Dequeue returns the first job whose retry time has passed, or nil.
func (q *Queue) Dequeue() *SyncJob {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	for i, job := range q.items {
		if !job.RetryAt.After(now) {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return job
		}
	}
	return nil
}

func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) GetAll() []*SyncJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	result := make([]*SyncJob, len(q.items))
	copy(result, q.items)
	return result
}
