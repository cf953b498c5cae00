package reply

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragstack/docrag/pkg/chunker"
	"github.com/ragstack/docrag/pkg/pipeline"
	"github.com/ragstack/docrag/pkg/provider"
	"github.com/ragstack/docrag/pkg/store"
)

type stubEmbedder struct {
	fail bool
}

func (s *stubEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	if s.fail {
		return nil, provider.ErrEmbeddingUnavailable
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (s *stubEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	if s.fail {
		return nil, provider.ErrEmbeddingUnavailable
	}
	return []float32{1, 0}, nil
}

func (s *stubEmbedder) Dimension(context.Context) (int, error) { return 2, nil }

type stubGenerator struct {
	reply   string
	fail    bool
	prompts []string
}

func (s *stubGenerator) Generate(_ context.Context, p string, _ provider.Options) (string, error) {
	s.prompts = append(s.prompts, p)
	if s.fail {
		return "", provider.ErrGenerationUnavailable
	}
	return s.reply, nil
}

func newFAQPipeline(t *testing.T, emb *stubEmbedder, seed bool) *pipeline.Pipeline {
	t.Helper()
	dir := t.TempDir()

	s, err := store.New(2, dir)
	require.NoError(t, err)
	ledger, err := pipeline.OpenLedger(filepath.Join(dir, "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { ledger.Close() })

	p := pipeline.New(s, emb, ledger, "faq")
	if seed {
		chunks := []chunker.Chunk{
			{ID: "1", Text: "Shipping takes 3-5 business days.", Page: 1, Source: "faq.pdf", Position: 0},
		}
		_, err = p.Ingest(context.Background(), "faq.pdf", chunks)
		require.NoError(t, err)
	}
	return p
}

func comment(id, name, message string) Comment {
	return Comment{ID: id, Message: message, From: Commenter{Name: name, ID: "u_" + id}, CreatedTime: "2025-06-01T10:00:00+0000"}
}

func TestClassifyHeuristics(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		expected Intent
	}{
		{"complaint keyword", "I still have not received my refund!", IntentComplaint},
		{"question mark", "Do you ship internationally?", IntentQuestion},
		{"question start word", "how long does delivery take", IntentQuestion},
		{"request keyword", "Please share the brochure with me", IntentRequest},
		{"short praise", "Amazing work team", IntentPositive},
		{"complaint beats question mark", "Why is my order broken?", IntentComplaint},
	}

	gen := &stubGenerator{reply: "generic"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(context.Background(), gen, tt.message)
			assert.Equal(t, tt.expected, got)
			assert.Empty(t, gen.prompts, "heuristic classification must not call the generator")
		})
	}
}

func TestClassifyFallsBackToGenerator(t *testing.T) {
	gen := &stubGenerator{reply: "Request"}
	got := Classify(context.Background(), gen, "following up on my earlier note")
	assert.Equal(t, IntentRequest, got)
	assert.Len(t, gen.prompts, 1)
}

func TestClassifyGeneratorFailureDefaultsGeneric(t *testing.T) {
	gen := &stubGenerator{fail: true}
	got := Classify(context.Background(), gen, "following up on my earlier note")
	assert.Equal(t, IntentGeneric, got)
}

func TestProcessGeneratesReplies(t *testing.T) {
	gen := &stubGenerator{reply: "Hi Maria! Shipping takes 3-5 business days."}
	p := New(newFAQPipeline(t, &stubEmbedder{}, true), gen, Config{
		TopK: 3, MinScore: 0.3, Model: "llama3:latest",
	})

	results, summary, err := p.Process(context.Background(), []Comment{
		comment("c1", "Maria Lopez", "How long does shipping take?"),
	}, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, "pending", r.Status)
	assert.Equal(t, IntentQuestion, r.Intent)
	assert.Equal(t, "Hi Maria! Shipping takes 3-5 business days.", r.ReplyMessage)
	assert.Equal(t, "llama3:latest", r.Model)
	require.Len(t, r.FAQChunksUsed, 1)
	assert.Equal(t, 1, r.FAQChunksUsed[0].Page)
	assert.Equal(t, 1, summary.Replied)
	assert.Equal(t, 0, summary.Skipped)

	// The reply prompt must greet by first name and carry FAQ context.
	require.NotEmpty(t, gen.prompts)
	last := gen.prompts[len(gen.prompts)-1]
	assert.Contains(t, last, `"Hi Maria!"`)
	assert.Contains(t, last, "Shipping takes 3-5 business days.")
}

func TestProcessSkipsNonActionable(t *testing.T) {
	gen := &stubGenerator{reply: "unused"}
	p := New(newFAQPipeline(t, &stubEmbedder{}, true), gen, Config{TopK: 3, MinScore: 0.3})

	results, summary, err := p.Process(context.Background(), []Comment{
		comment("c1", "Sam Ortiz", "Amazing work team"),
		comment("c2", "Lee Park", ""),
	}, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "skipped", results[0].Status)
	assert.Equal(t, "positive", results[0].Reason)
	assert.Equal(t, "skipped", results[1].Status)
	assert.Equal(t, "empty_message", results[1].Reason)
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, 0, summary.Replied)
}

func TestProcessDegradesWhenRetrievalFails(t *testing.T) {
	emb := &stubEmbedder{fail: true}
	gen := &stubGenerator{reply: "Hi Maria! Please check our FAQ page."}
	p := New(newFAQPipeline(t, emb, false), gen, Config{TopK: 3, MinScore: 0.3})

	results, summary, err := p.Process(context.Background(), []Comment{
		comment("c1", "Maria Lopez", "How long does shipping take?"),
	}, nil)
	require.NoError(t, err, "batch must not abort on retrieval failure")
	require.Len(t, results, 1)

	assert.Equal(t, "pending", results[0].Status)
	assert.Empty(t, results[0].FAQChunksUsed)
	assert.Equal(t, 1, summary.Replied)

	last := gen.prompts[len(gen.prompts)-1]
	assert.Contains(t, last, noFAQContext)
}

func TestProcessFallbackReplyOnGenerationFailure(t *testing.T) {
	gen := &stubGenerator{fail: true}
	p := New(newFAQPipeline(t, &stubEmbedder{}, true), gen, Config{TopK: 3, MinScore: 0.3})

	results, _, err := p.Process(context.Background(), []Comment{
		comment("c1", "Maria Lopez", "How long does shipping take?"),
	}, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, "pending", results[0].Status)
	assert.True(t, strings.HasPrefix(results[0].ReplyMessage, "Hi Maria!"),
		"fallback reply should greet by first name: %q", results[0].ReplyMessage)
	assert.Contains(t, results[0].ReplyMessage, "support")
}

func TestProcessReportsProgress(t *testing.T) {
	gen := &stubGenerator{reply: "Hi there! Thanks."}
	p := New(newFAQPipeline(t, &stubEmbedder{}, true), gen, Config{TopK: 3, MinScore: 0.3})

	var seen []int
	_, _, err := p.Process(context.Background(), []Comment{
		comment("c1", "A B", "How long does shipping take?"),
		comment("c2", "C D", "Do you ship internationally?"),
	}, func(done, total int) {
		assert.Equal(t, 2, total)
		seen = append(seen, done)
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, seen)
}
