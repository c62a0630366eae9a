package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDequeueReturnsReadyJob(t *testing.T) {
	q := New()
	q.Enqueue(&SyncJob{DocumentUid: "doc-1", RetryAt: time.Now().Add(-time.Second)})

	job := q.Dequeue()
	assert.NotNil(t, job)
	assert.Equal(t, "doc-1", job.DocumentUid)
	assert.Equal(t, 0, q.Size())
}

func TestDequeueSkipsFutureJobs(t *testing.T) {
	q := New()
	q.Enqueue(&SyncJob{DocumentUid: "doc-1", RetryAt: time.Now().Add(time.Hour)})

	assert.Nil(t, q.Dequeue())
	assert.Equal(t, 1, q.Size())
}

func TestDequeuePicksFirstReady(t *testing.T) {
	q := New()
	q.Enqueue(&SyncJob{DocumentUid: "future", RetryAt: time.Now().Add(time.Hour)})
	q.Enqueue(&SyncJob{DocumentUid: "ready", RetryAt: time.Now().Add(-time.Second)})

	job := q.Dequeue()
	assert.NotNil(t, job)
	assert.Equal(t, "ready", job.DocumentUid)
	assert.Equal(t, 1, q.Size())
}

func TestGetAllCopies(t *testing.T) {
	q := New()
	q.Enqueue(&SyncJob{DocumentUid: "doc-1"})
	q.Enqueue(&SyncJob{DocumentUid: "doc-2"})

	all := q.GetAll()
	assert.Len(t, all, 2)
	assert.Equal(t, 2, q.Size())
}

func TestEmptyQueue(t *testing.T) {
	q := New()
	assert.Nil(t, q.Dequeue())
	assert.Equal(t, 0, q.Size())
	assert.Empty(t, q.GetAll())
}
