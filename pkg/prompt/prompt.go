// Package prompt turns ranked chunks into a grounding prompt for the
// generator, and generation output back into a structured answer with
// provenance.
package prompt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ragstack/docrag/pkg/store"
)

// NoContextAnswer is returned instead of invoking the generator when
// retrieval produced no sufficiently relevant chunks.
const NoContextAnswer = "I could not find any sufficiently relevant content in the document to answer this question."

// previewLen bounds chunk previews in assembled responses.
const previewLen = 100

const instructions = `You are a precise document assistant. Your job is to answer questions using ONLY the excerpts provided below.

INSTRUCTIONS:
- Read all excerpts carefully before answering.
- Extract specific facts, numbers, and values directly from the text — do not paraphrase vaguely.
- If an excerpt contains a partial answer, use it and note which page it came from.
- If the excerpts genuinely do not contain relevant information, say: "The document does not cover this."
- Do NOT say information is missing if it appears anywhere in the excerpts, even partially.
- Cite page numbers inline, e.g. (Page 3).`

// ChunkPreview is the truncated view of one retrieved chunk included
// in a response.
type ChunkPreview struct {
	Page    int     `json:"page"`
	Score   float64 `json:"similarity_score"`
	Preview string  `json:"preview"`
}

// Response is the final structured answer with provenance.
type Response struct {
	Answer  string         `json:"answer"`
	Sources []int          `json:"sources"`
	Chunks  []ChunkPreview `json:"retrieved_chunks"`
}

// Build assembles the grounding prompt: each ranked chunk annotated
// with its source page and similarity score, the instruction header
// constraining the generator to the supplied excerpts, and the
// question.
func Build(question string, results []store.ScoredChunk) string {
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = fmt.Sprintf("[Excerpt %d | Page %d | Relevance: %.2f]:\n%s",
			i+1, r.Chunk.Page, r.Score, strings.TrimSpace(r.Chunk.Text))
	}
	excerpts := strings.Join(parts, "\n\n---\n\n")

	var b strings.Builder
	b.WriteString(instructions)
	b.WriteString("\n\nEXCERPTS FROM DOCUMENT:\n")
	b.WriteString(excerpts)
	b.WriteString("\n\nQUESTION: ")
	b.WriteString(question)
	b.WriteString("\n\nANSWER:")
	return b.String()
}

// Assemble pairs the generated answer with the distinct source pages
// and truncated previews of the chunks it was grounded on.
func Assemble(answer string, results []store.ScoredChunk) Response {
	pageSet := make(map[int]struct{}, len(results))
	previews := make([]ChunkPreview, len(results))
	for i, r := range results {
		pageSet[r.Chunk.Page] = struct{}{}
		previews[i] = ChunkPreview{
			Page:    r.Chunk.Page,
			Score:   r.Score,
			Preview: Preview(r.Chunk.Text, previewLen),
		}
	}

	sources := make([]int, 0, len(pageSet))
	for page := range pageSet {
		sources = append(sources, page)
	}
	sort.Ints(sources)

	return Response{Answer: answer, Sources: sources, Chunks: previews}
}

// Preview truncates text to at most n runes, appending an ellipsis
// when anything was cut.
func Preview(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
