package queue_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/amoreworks/crm-agent-backend/internal/queue"
)

func TestPublishWithoutSubscribersErrors(t *testing.T) {
	q := queue.NewInMemoryQueue()

	if err := q.Publish("campaign_sends", "run-1"); err == nil {
		t.Error("expected error when no subscriber is registered")
	}
}

func TestPublishDeliversToSubscriber(t *testing.T) {
	q := queue.NewInMemoryQueue()

	var wg sync.WaitGroup
	wg.Add(1)
	var got any
	q.Subscribe("campaign_sends", func(payload any) error {
		got = payload
		wg.Done()
		return nil
	})

	if err := q.Publish("campaign_sends", "run-1"); err != nil {
		t.Fatal(err)
	}
	wg.Wait()

	if got != "run-1" {
		t.Errorf("expected run-1, got %v", got)
	}
}

func TestPublishRetriesFailedHandler(t *testing.T) {
	q := queue.NewInMemoryQueue()

	var mu sync.Mutex
	attempts := 0
	done := make(chan struct{})
	q.Subscribe("campaign_sends", func(payload any) error {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()
		if n < 2 {
			return errors.New("transient")
		}
		close(done)
		return nil
	})

	if err := q.Publish("campaign_sends", "run-1"); err != nil {
		t.Fatal(err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("handler was not retried")
	}

	mu.Lock()
	defer mu.Unlock()
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}

func TestTopicsAreIsolated(t *testing.T) {
	q := queue.NewInMemoryQueue()

	q.Subscribe("other_topic", func(payload any) error { return nil })

	if err := q.Publish("campaign_sends", "run-1"); err == nil {
		t.Error("subscriber on another topic must not satisfy publish")
	}
}
