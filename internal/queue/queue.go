package queue

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/amoreworks/crm-agent-backend/internal/model"
	"github.com/amoreworks/crm-agent-backend/internal/repository"
)

// Queue interface
type Queue interface {
	Publish(topic string, payload any) error
	Subscribe(topic string, handler func(payload any) error) error
}

// InMemoryQueue is a single-process queue with retry, used when no broker
// is configured.
type InMemoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]func(payload any) error
}

// NewInMemoryQueue creates a new queue
func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{
		handlers: make(map[string][]func(payload any) error),
	}
}

// JobPayload wraps a message payload with retry info
type JobPayload struct {
	Payload    any
	RetryCount int
	MaxRetries int
}

// Publish sends a message to all subscribers
func (q *InMemoryQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	job := JobPayload{
		Payload:    payload,
		RetryCount: 0,
		MaxRetries: 3,
	}

	for _, handler := range handlers {
		go q.processJob(handler, job)
	}

	return nil
}

// processJob handles retries and errors
func (q *InMemoryQueue) processJob(handler func(payload any) error, job JobPayload) {
	for job.RetryCount <= job.MaxRetries {
		err := handler(job.Payload)
		if err == nil {
			log.Printf("Job processed successfully: %+v\n", job.Payload)
			return // ACK
		}

		job.RetryCount++
		log.Printf("Job failed (attempt %d/%d): %+v, error: %v\n", job.RetryCount, job.MaxRetries, job.Payload, err)

		if job.RetryCount > job.MaxRetries {
			log.Printf("Job permanently failed after %d attempts: %+v\n", job.MaxRetries, job.Payload)
			return // No requeue
		}

		// Exponential backoff before retry
		time.Sleep(time.Duration(job.RetryCount*500) * time.Millisecond)
	}
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler func(payload any) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// StartRenderedMessageSubscriber consumes executed run IDs and performs the
// actual send. The run row carries the rendered text; delivery outcome is
// written back as SENT or FAILED.
func StartRenderedMessageSubscriber(q Queue, runs repository.RunRepositoryInterface) {
	go func() {
		err := q.Subscribe("campaign_sends", func(payload any) error {
			runID, ok := payload.(string)
			if !ok {
				log.Println("⚠️ Invalid payload type, expected run ID string")
				return nil // no retry
			}

			log.Println("📩 Processing queued run:", runID)

			ctx := context.Background()
			run, err := runs.GetByID(ctx, runID)
			if err != nil {
				log.Println("⚠️ Failed to fetch run:", err)
				return err
			}
			if run.RenderedText == "" {
				log.Println("⚠️ Run has no rendered text, skipping:", runID)
				return nil // no retry
			}

			// TODO: replace MockSender with the real channel gateway client
			if err := MockSender(run.RenderedText); err != nil {
				log.Println("⚠️ Failed to send message:", err)
				status := model.RunStatusFailed
				code := "SEND_FAILED"
				msg := err.Error()
				_ = runs.Update(ctx, runID, repository.RunUpdate{
					Status: &status, ErrorCode: &code, ErrorMessage: &msg,
				})
				return err // triggers retry in queue
			}

			status := model.RunStatusSent
			now := time.Now()
			if err := runs.Update(ctx, runID, repository.RunUpdate{Status: &status, SentAt: &now}); err != nil {
				log.Println("⚠️ Failed to update run status:", err)
				return err // retry
			}

			log.Println("✅ Run delivered:", runID)
			return nil
		})

		if err != nil {
			log.Println("⚠️ Failed to start subscriber for campaign_sends:", err)
		}
	}()
}

// MockSender simulates sending messages with 90% success
func MockSender(payload any) error {
	r := rand.Float64()
	if r < 0.9 {
		return nil // success
	}
	return fmt.Errorf("mock sending failed")
}
