// cmd/worker/main.go
//
// Standalone delivery worker. Consumes executed run IDs from RabbitMQ and
// performs the send; the HTTP process uses the in-memory subscriber for the
// same job, so this binary is only needed for multi-process deployments.
package main

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/streadway/amqp"

	"github.com/amoreworks/crm-agent-backend/internal/config"
	"github.com/amoreworks/crm-agent-backend/internal/db"
	"github.com/amoreworks/crm-agent-backend/internal/model"
	"github.com/amoreworks/crm-agent-backend/internal/queue"
	"github.com/amoreworks/crm-agent-backend/internal/repository"
)

type queueJob struct {
	RunID string `json:"run_id"`
}

func main() {
	cfg := config.Load()

	conn, err := db.Open(cfg)
	if err != nil {
		log.Fatal("failed to connect to DB:", err)
	}
	defer conn.Close()

	runRepo := &repository.RunRepository{DB: conn}

	// Connect to RabbitMQ
	mq, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		log.Fatal("Failed to connect to RabbitMQ:", err)
	}
	defer mq.Close()

	ch, err := mq.Channel()
	if err != nil {
		log.Fatal("Failed to open a channel:", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(
		"campaign_sends", // name
		true,             // durable
		false,            // delete when unused
		false,            // exclusive
		false,            // no-wait
		nil,              // arguments
	)
	if err != nil {
		log.Fatal("Failed to declare queue:", err)
	}

	msgs, err := ch.Consume(
		q.Name,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		log.Fatal("Failed to register consumer:", err)
	}

	forever := make(chan bool)

	go func() {
		for d := range msgs {
			var job queueJob
			if err := json.Unmarshal(d.Body, &job); err != nil {
				log.Println("Invalid job:", err)
				d.Ack(false)
				continue
			}

			err := deliverRun(job.RunID, runRepo)
			if err != nil {
				log.Println("Failed to deliver run:", err)
				// Retry logic: requeue up to 3 times
				var retryCount int
				if d.Headers["x-retry-count"] != nil {
					retryCount, _ = d.Headers["x-retry-count"].(int)
				}
				if retryCount < 3 {
					d.Nack(false, true) // requeue
					continue
				}
			}

			d.Ack(false)
		}
	}()

	log.Println("Worker running, waiting for messages...")
	<-forever
}

// deliverRun sends the rendered text stored on the run and writes the
// outcome back as SENT or FAILED.
func deliverRun(runID string, runs repository.RunRepositoryInterface) error {
	ctx := context.Background()

	run, err := runs.GetByID(ctx, runID)
	if err != nil {
		return err
	}
	if run.RenderedText == "" {
		log.Println("Run has no rendered text, skipping:", runID)
		return nil
	}

	if err := queue.MockSender(run.RenderedText); err != nil {
		status := model.RunStatusFailed
		code := "SEND_FAILED"
		msg := err.Error()
		_ = runs.Update(ctx, runID, repository.RunUpdate{
			Status: &status, ErrorCode: &code, ErrorMessage: &msg,
		})
		return err
	}

	status := model.RunStatusSent
	now := time.Now()
	return runs.Update(ctx, runID, repository.RunUpdate{Status: &status, SentAt: &now})
}
