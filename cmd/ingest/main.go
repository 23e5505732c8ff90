// cmd/ingest/main.go
//
// Corpus ingestion: chunks the brand guide markdown files, embeds each
// chunk and upserts it into brand_corpus. Re-running is safe; chunk IDs are
// deterministic per (source, section, index).
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"

	pgvector "github.com/pgvector/pgvector-go"

	"github.com/amoreworks/crm-agent-backend/internal/config"
	"github.com/amoreworks/crm-agent-backend/internal/db"
	"github.com/amoreworks/crm-agent-backend/internal/llm"
	"github.com/amoreworks/crm-agent-backend/internal/retrieval"
)

func main() {
	corpusDir := flag.String("dir", "internal/tone/corpus", "directory of markdown guides to ingest")
	flag.Parse()

	cfg := config.Load()

	conn, err := db.Open(cfg)
	if err != nil {
		log.Fatal("❌ DB connection failed: ", err)
	}
	defer conn.Close()

	client, err := llm.NewOpenAIClient(cfg.OpenAIKey, cfg.ChatModel, cfg.EmbedModel, cfg.LLMTimeout)
	if err != nil {
		log.Fatal("❌ Embedding collaborator unavailable: ", err)
	}

	entries, err := os.ReadDir(*corpusDir)
	if err != nil {
		log.Fatalf("failed to read %s: %v", *corpusDir, err)
	}

	ctx := context.Background()
	total := 0

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}

		path := filepath.Join(*corpusDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("failed to read %s: %v", path, err)
		}

		source := strings.TrimSuffix(entry.Name(), ".md")
		chunks := retrieval.ChunkDocument(source, string(data))

		for _, chunk := range chunks {
			emb, err := client.Embed(ctx, chunk.Text)
			if err != nil {
				log.Fatalf("embedding failed for %s: %v", chunk.ChunkID, err)
			}

			_, err = conn.ExecContext(ctx, `
                INSERT INTO brand_corpus (chunk_id, source, section, text, embedding)
                VALUES ($1, $2, $3, $4, $5)
                ON CONFLICT (chunk_id) DO UPDATE
                SET source=EXCLUDED.source, section=EXCLUDED.section,
                    text=EXCLUDED.text, embedding=EXCLUDED.embedding
            `, chunk.ChunkID, chunk.Source, chunk.Section, chunk.Text, pgvector.NewVector(emb))
			if err != nil {
				log.Fatalf("upsert failed for %s: %v", chunk.ChunkID, err)
			}
			total++
		}

		log.Printf("📚 Ingested %s: %d chunks\n", source, len(chunks))
	}

	log.Printf("✅ Corpus ingestion complete: %d chunks\n", total)
}
