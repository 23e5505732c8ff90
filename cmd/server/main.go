// cmd/server/main.go
package main

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/amoreworks/crm-agent-backend/internal/config"
	"github.com/amoreworks/crm-agent-backend/internal/controller"
	"github.com/amoreworks/crm-agent-backend/internal/db"
	"github.com/amoreworks/crm-agent-backend/internal/generator"
	"github.com/amoreworks/crm-agent-backend/internal/llm"
	"github.com/amoreworks/crm-agent-backend/internal/orchestrator"
	"github.com/amoreworks/crm-agent-backend/internal/queue"
	"github.com/amoreworks/crm-agent-backend/internal/repository"
	"github.com/amoreworks/crm-agent-backend/internal/retrieval"
)

func main() {
	cfg := config.Load()

	conn, err := db.Open(cfg)
	if err != nil {
		log.Fatal("❌ DB connection failed: ", err)
	}
	defer conn.Close()

	runRepo := &repository.RunRepository{DB: conn}
	handoffStore := &repository.HandoffStore{DB: conn}
	audienceRepo := &repository.AudienceRepository{DB: conn}

	// Without an API key the generator falls back to canned templates and
	// retrieval yields zero evidence; the pipeline itself stays runnable.
	var completer llm.Completer
	var searcher retrieval.Searcher = retrieval.NullSearcher{}
	client, err := llm.NewOpenAIClient(cfg.OpenAIKey, cfg.ChatModel, cfg.EmbedModel, cfg.LLMTimeout)
	if err != nil {
		log.Println("⚠️ LLM collaborator disabled:", err)
	} else {
		completer = client
		searcher = &retrieval.PGVectorSearcher{DB: conn, Embedder: client}
	}

	q := queue.NewInMemoryQueue()
	queue.StartRenderedMessageSubscriber(q, runRepo)

	orch := &orchestrator.Orchestrator{
		Runs:                 runRepo,
		Handoffs:             handoffStore,
		Introspector:         audienceRepo,
		Searcher:             searcher,
		Generator:            &generator.Generator{Completer: completer},
		Queue:                q,
		BlockFailedSelection: cfg.BlockFailedSelection,
	}

	runController := &controller.RunController{
		Pipeline: orch,
		Runs:     runRepo,
		Handoffs: handoffStore,
		Audience: audienceRepo,
		AMQPURL:  cfg.AMQPURL,
	}

	r := chi.NewRouter()

	// Run routes
	r.Post("/runs", runController.CreateRun)
	r.Get("/runs/{id}", runController.GetRun)
	r.Post("/runs/{id}/advance", runController.AdvanceRun)
	r.Get("/runs/{id}/handoffs", runController.ListHandoffs)
	r.Post("/runs/{id}/select", runController.SelectTemplate)

	// Targeting routes
	r.Post("/target/preview", runController.PreviewTarget)
	r.Get("/target/options", runController.TargetOptions)

	log.Println("🚀 Server running on", cfg.HTTPAddr)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
