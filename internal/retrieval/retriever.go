// Package retrieval talks to the similarity-search store and curates what
// comes back: a bounded, source-balanced set of evidence chunks for the RAG
// handoff plus a compact context block for prompting.
package retrieval

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	pgvector "github.com/pgvector/pgvector-go"

	"github.com/amoreworks/crm-agent-backend/internal/llm"
	"github.com/amoreworks/crm-agent-backend/internal/model"
)

// Curation bounds keep the RAG handoff payload small.
const (
	MaxChunksPerSource = 3
	MaxEvidenceChars   = 800
)

// Searcher is the similarity-search collaborator.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]model.Match, error)
}

// PGVectorSearcher embeds the query and runs a cosine-distance scan over the
// brand_corpus table.
type PGVectorSearcher struct {
	DB       *sql.DB
	Embedder llm.Embedder
}

func (s *PGVectorSearcher) Search(ctx context.Context, query string, topK int) ([]model.Match, error) {
	if topK < 1 {
		topK = 10
	}

	emb, err := s.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query embedding failed: %w", err)
	}

	sqlQuery := `
        SELECT chunk_id, source, section, text, 1 - (embedding <=> $1::vector) AS score
        FROM brand_corpus
        ORDER BY embedding <=> $1::vector
        LIMIT $2
    `
	rows, err := s.DB.QueryContext(ctx, sqlQuery, pgvector.NewVector(emb), topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := []model.Match{}
	for rows.Next() {
		var chunkID, source, section, text string
		var score float64
		if err := rows.Scan(&chunkID, &source, &section, &text, &score); err != nil {
			return nil, err
		}
		matches = append(matches, model.Match{
			ID:    chunkID,
			Score: score,
			Metadata: map[string]string{
				"source":   source,
				"section":  section,
				"chunk_id": chunkID,
				"text":     text,
			},
		})
	}
	return matches, rows.Err()
}

// NullSearcher serves deployments without an embedding collaborator: the
// pipeline proceeds with zero evidence instead of failing at retrieval.
type NullSearcher struct{}

func (NullSearcher) Search(ctx context.Context, query string, topK int) ([]model.Match, error) {
	return []model.Match{}, nil
}

// CurateEvidence keeps at most maxEachSource chunks per source and caps each
// text at maxTextChars runes, so the handoff stays a bounded audit record.
func CurateEvidence(matches []model.Match, maxEachSource, maxTextChars int) []model.Evidence {
	perSource := map[string]int{}
	evidence := []model.Evidence{}

	for _, m := range matches {
		source := metadataOr(m, "source", "UNKNOWN")
		text := strings.TrimSpace(m.Metadata["text"])
		if text == "" {
			continue
		}
		if perSource[source] >= maxEachSource {
			continue
		}
		perSource[source]++

		if runes := []rune(text); len(runes) > maxTextChars {
			text = string(runes[:maxTextChars]) + "…"
		}

		evidence = append(evidence, model.Evidence{
			ID:      m.ID,
			Score:   m.Score,
			Source:  source,
			Section: m.Metadata["section"],
			ChunkID: m.Metadata["chunk_id"],
			Text:    text,
		})
	}
	return evidence
}

// BuildContextText formats matches for the generation prompt, same
// per-source cap as the evidence but untruncated text.
func BuildContextText(matches []model.Match, maxEach int) string {
	perSource := map[string]int{}
	blocks := []string{}

	for _, m := range matches {
		source := metadataOr(m, "source", "UNKNOWN")
		text := strings.TrimSpace(m.Metadata["text"])
		if text == "" {
			continue
		}
		if perSource[source] >= maxEach {
			continue
		}
		perSource[source]++

		header := fmt.Sprintf("[%s | %s | chunk=%s | score=%.3f]",
			source, m.Metadata["section"], m.Metadata["chunk_id"], m.Score)
		blocks = append(blocks, header+"\n"+text)
	}
	return strings.Join(blocks, "\n\n")
}

// BuildQuery composes the retrieval query from campaign intent. The query
// steers retrieval toward brand/channel/compliance guidance and away from
// deciding concrete products or offers.
func BuildQuery(goal, channel, tone, targetSummary string, tq model.TargetQuery) string {
	var b strings.Builder
	b.WriteString("너는 CRM 마케터/카피라이팅 어시스턴트다.\n")
	b.WriteString("아래 조건에 맞는 메시지 템플릿을 만들 때 참고할 근거를 찾아라.\n\n")
	fmt.Fprintf(&b, "[캠페인 목적]\n- %s\n\n", goal)
	fmt.Fprintf(&b, "[채널/톤]\n- channel=%s\n- tone=%s\n\n", channel, tone)
	fmt.Fprintf(&b, "[타겟 조건]\n- gender_in=%v / birth_year_ranges=%d개 / skin=%v,%v\n- target_summary=%s\n\n",
		tq.GenderIn, len(tq.BirthYearRanges), tq.SkinTypeIn, tq.SkinConcernIn, targetSummary)
	b.WriteString("[요청]\n")
	b.WriteString("- 브랜드 가이드(톤/문장 규칙)\n")
	b.WriteString("- 채널 정책(길이/구성/CTA 규칙)\n")
	b.WriteString("- 컴플라이언스(금지 표현/완곡 표현)\n")
	b.WriteString("- 유사 캠페인 포맷/베스트 프랙티스\n")
	b.WriteString("위 항목에 대한 근거 문장을 찾아 요약해줘.\n")
	b.WriteString("주의: 상품/혜택/가격은 확정하지 말고 슬롯으로 남기는 방향의 가이드만 찾아라.")
	return b.String()
}

func metadataOr(m model.Match, key, fallback string) string {
	if v := m.Metadata[key]; v != "" {
		return v
	}
	return fallback
}
