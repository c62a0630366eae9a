package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"bibliotech/pkg/queue"
)

// reservationSyncer tells the loan service that a physical document became
// available again, so its active holds can be cancelled. Notify only enqueues
// and wakes the worker, the HTTP call happens off the request path.
type reservationSyncer struct {
	loanServiceURL string
	client         *http.Client
	pending        *queue.Queue
	maxRetries     int
	interval       time.Duration
	wake           chan struct{}
}

const syncClientTimeout = 5 * time.Second

func newReservationSyncer(loanServiceURL string, interval time.Duration, maxRetries int) *reservationSyncer {
	return &reservationSyncer{
		loanServiceURL: loanServiceURL,
		client:         &http.Client{Timeout: syncClientTimeout},
		pending:        queue.New(),
		maxRetries:     maxRetries,
		interval:       interval,
		wake:           make(chan struct{}, 1),
	}
}

func (s *reservationSyncer) Notify(documentUid string) {
	s.pending.Enqueue(&queue.SyncJob{
		DocumentUid: documentUid,
		RetryAt:     time.Now(),
		MaxAttempts: s.maxRetries,
	})
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *reservationSyncer) Start() {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
			case <-s.wake:
			}
			s.drain()
		}
	}()
}

func (s *reservationSyncer) drain() {
	for {
		job := s.pending.Dequeue()
		if job == nil {
			return
		}
		err := s.post(job.DocumentUid)
		if err == nil {
			log.Printf("Reservation sync for %s succeeded (attempt %d)", job.DocumentUid, job.Attempts+1)
			continue
		}
		job.Attempts++
		if job.Attempts >= job.MaxAttempts {
			log.Printf("Reservation sync for %s dropped after %d attempts: %v", job.DocumentUid, job.Attempts, err)
			continue
		}
		log.Printf("Reservation sync for %s failed (attempt %d), will retry: %v", job.DocumentUid, job.Attempts, err)
		job.RetryAt = time.Now().Add(s.interval)
		s.pending.Enqueue(job)
	}
}

func (s *reservationSyncer) post(documentUid string) error {
	url := fmt.Sprintf("%s/api/v1/reservations/documents/%s/sync", s.loanServiceURL, documentUid)
	response, err := s.client.Post(url, "application/json", nil)
	if err != nil {
		return err
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("sync endpoint returned status %d", response.StatusCode)
	}
	return nil
}
