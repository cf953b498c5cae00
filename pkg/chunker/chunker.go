// Package chunker turns cleaned page text into overlapping, bounded-size
// chunks with page and source provenance, ready for embedding.
package chunker

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Page is one page of extracted document text. Extraction itself (PDF,
// DOCX, scraping) happens upstream; the chunker only sees plain text.
type Page struct {
	Number int
	Text   string
}

// Chunk is an immutable span of document text with provenance metadata.
// Chunks are created during ingestion and never mutated afterwards.
type Chunk struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Page     int    `json:"page"`
	Source   string `json:"source"`
	Position int    `json:"position"`
}

// separators in priority order: paragraph break, line break, sentence
// enders, clause boundaries, word boundary, character boundary.
var separators = []string{"\n\n", "\n", ". ", "! ", "? ", "; ", ", ", " ", ""}

var (
	multiNewline = regexp.MustCompile(`\n{3,}`)
	multiSpace   = regexp.MustCompile(` {2,}`)
	symbolLine   = regexp.MustCompile(`(?m)^[^\w\n]{0,5}$`)
)

// Splitter recursively splits cleaned text into chunks of at most
// chunkSize characters with chunkOverlap characters shared between
// consecutive chunks.
type Splitter struct {
	chunkSize    int
	chunkOverlap int
}

// NewSplitter creates a Splitter. chunkOverlap must be smaller than
// chunkSize.
func NewSplitter(chunkSize, chunkOverlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap %d must be non-negative and smaller than chunk size %d", chunkOverlap, chunkSize)
	}
	return &Splitter{chunkSize: chunkSize, chunkOverlap: chunkOverlap}, nil
}

// CleanText normalizes raw page text before chunking: collapses runs of
// blank lines and spaces, blanks out lines carrying only punctuation or
// symbols, and drops consecutive duplicate lines (repeated headers,
// footers and navigation boilerplate).
func CleanText(text string) string {
	text = multiNewline.ReplaceAllString(text, "\n\n")
	text = multiSpace.ReplaceAllString(text, " ")
	text = symbolLine.ReplaceAllString(text, "")

	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	prev := "\x00"
	for _, line := range lines {
		stripped := strings.TrimSpace(line)
		if stripped != prev {
			cleaned = append(cleaned, line)
		}
		prev = stripped
	}
	return strings.TrimSpace(strings.Join(cleaned, "\n"))
}

// Split cleans every page and splits the surviving text into chunks
// tagged with their source identifier, page number and position index.
// Pages that become empty after cleaning are dropped. An all-empty
// input yields no chunks and no error.
func (s *Splitter) Split(source string, pages []Page) []Chunk {
	var chunks []Chunk
	pos := 0
	for _, page := range pages {
		text := CleanText(page.Text)
		if text == "" {
			continue
		}
		for _, piece := range s.splitText(text, separators) {
			chunks = append(chunks, Chunk{
				ID:       uuid.NewString(),
				Text:     piece,
				Page:     page.Number,
				Source:   source,
				Position: pos,
			})
			pos++
		}
	}
	return chunks
}

// splitText splits text with the highest-priority separator present,
// recursing with lower-priority separators on any piece that is still
// too large. A piece that cannot be split further is emitted whole even
// when it exceeds the size bound.
func (s *Splitter) splitText(text string, seps []string) []string {
	sep := seps[len(seps)-1]
	var next []string
	for i, candidate := range seps {
		if candidate == "" || strings.Contains(text, candidate) {
			sep = candidate
			next = seps[i+1:]
			break
		}
	}

	var splits []string
	if sep == "" {
		splits = strings.Split(text, "")
	} else {
		splits = strings.Split(text, sep)
	}

	var final []string
	var good []string
	for _, piece := range splits {
		if piece == "" {
			continue
		}
		if len(piece) < s.chunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			final = append(final, s.merge(good, sep)...)
			good = nil
		}
		if len(next) == 0 {
			final = append(final, piece)
		} else {
			final = append(final, s.splitText(piece, next)...)
		}
	}
	if len(good) > 0 {
		final = append(final, s.merge(good, sep)...)
	}
	return final
}

// merge joins small splits back together into chunks no larger than
// chunkSize, carrying chunkOverlap trailing characters into the start
// of the next chunk.
func (s *Splitter) merge(splits []string, sep string) []string {
	sepLen := len(sep)
	var docs []string
	var current []string
	total := 0

	join := func() {
		doc := strings.TrimSpace(strings.Join(current, sep))
		if doc != "" {
			docs = append(docs, doc)
		}
	}

	for _, piece := range splits {
		l := len(piece)
		extra := 0
		if len(current) > 0 {
			extra = sepLen
		}
		if total+l+extra > s.chunkSize && len(current) > 0 {
			join()
			// Slide the window forward, keeping at most chunkOverlap
			// characters of tail for the next chunk.
			for total > s.chunkOverlap || (total+l+extra > s.chunkSize && total > 0) {
				drop := len(current[0])
				if len(current) > 1 {
					drop += sepLen
				}
				total -= drop
				current = current[1:]
				if len(current) == 0 {
					extra = 0
				}
			}
		}
		if len(current) > 0 {
			total += sepLen
		}
		current = append(current, piece)
		total += l
	}
	join()
	return docs
}
