// Package reply generates short answers to incoming comments, grounded
// on a dedicated FAQ knowledge base. This is the unattended batch
// path: retrieval and generation failures degrade per comment instead
// of aborting the run.
package reply

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ragstack/docrag/pkg/pipeline"
	"github.com/ragstack/docrag/pkg/prompt"
	"github.com/ragstack/docrag/pkg/provider"
	"github.com/ragstack/docrag/pkg/store"
)

// noFAQContext stands in for retrieved excerpts when the FAQ base has
// nothing relevant (or retrieval failed).
const noFAQContext = "No specific FAQ information found for this topic."

// faqPreviewLen bounds FAQ chunk previews attached to results.
const faqPreviewLen = 120

// skipIntents are comment intents that need no reply.
var skipIntents = map[Intent]struct{}{
	IntentPositive: {},
	IntentGeneric:  {},
}

// toneMap holds the per-intent tone instruction for the reply prompt.
var toneMap = map[Intent]string{
	IntentComplaint: "Start with empathy — acknowledge their concern warmly. " +
		"Then offer a helpful resolution or next step.",
	IntentRequest: "Acknowledge their request. Provide the relevant information " +
		"or direct them to where they can find it.",
	IntentQuestion: "Answer their question clearly and concisely using the FAQ information.",
}

// Commenter identifies the author of a comment.
type Commenter struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// Comment is one incoming comment in Graph-API shape. Fetching from
// and posting back to the platform happen elsewhere; this package only
// sees the parsed payload.
type Comment struct {
	ID          string    `json:"id"`
	Message     string    `json:"message"`
	From        Commenter `json:"from"`
	CreatedTime string    `json:"created_time"`
}

// Result is the outcome for one comment.
type Result struct {
	CommentID       string                `json:"comment_id"`
	CommenterName   string                `json:"commenter_name"`
	CommenterID     string                `json:"commenter_id,omitempty"`
	OriginalMessage string                `json:"original_message"`
	CreatedTime     string                `json:"created_time,omitempty"`
	Intent          Intent                `json:"intent,omitempty"`
	Status          string                `json:"status"`
	Reason          string                `json:"reason,omitempty"`
	ReplyMessage    string                `json:"reply_message,omitempty"`
	FAQChunksUsed   []prompt.ChunkPreview `json:"faq_chunks_used,omitempty"`
	Model           string                `json:"generation_model,omitempty"`
}

// Summary totals one batch run.
type Summary struct {
	TotalComments int    `json:"total_comments"`
	Replied       int    `json:"replied"`
	Skipped       int    `json:"skipped"`
	GeneratedAt   string `json:"generated_at"`
}

// Config tunes the batch pipeline.
type Config struct {
	TopK     int
	MinScore float64
	GenOpts  provider.Options
	Model    string
	// RatePerSecond caps embedding/generation calls against the
	// provider. Zero disables pacing.
	RatePerSecond float64
}

// Pipeline processes comment batches against an FAQ knowledge base.
type Pipeline struct {
	faq     *pipeline.Pipeline
	gen     provider.Generator
	cfg     Config
	limiter *rate.Limiter
}

// New builds a batch reply pipeline over the FAQ base.
func New(faq *pipeline.Pipeline, gen provider.Generator, cfg Config) *Pipeline {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}
	return &Pipeline{faq: faq, gen: gen, cfg: cfg, limiter: limiter}
}

// Process classifies each comment, retrieves FAQ context, and
// generates a reply. No single comment can abort the batch: failures
// degrade to the canned fallback reply. progress, when non-nil, is
// called after every comment with (done, total).
func (p *Pipeline) Process(ctx context.Context, comments []Comment, progress func(done, total int)) ([]Result, Summary, error) {
	results := make([]Result, 0, len(comments))
	summary := Summary{TotalComments: len(comments)}

	for i, c := range comments {
		if err := ctx.Err(); err != nil {
			return results, summary, err
		}

		result := p.processOne(ctx, c)
		if result.Status == "skipped" {
			summary.Skipped++
		} else {
			summary.Replied++
		}
		results = append(results, result)

		if progress != nil {
			progress(i+1, len(comments))
		}
	}

	summary.GeneratedAt = time.Now().UTC().Format(time.RFC3339)
	return results, summary, nil
}

func (p *Pipeline) processOne(ctx context.Context, c Comment) Result {
	result := Result{
		CommentID:       c.ID,
		CommenterName:   c.From.Name,
		CommenterID:     c.From.ID,
		OriginalMessage: strings.TrimSpace(c.Message),
		CreatedTime:     c.CreatedTime,
	}

	if result.OriginalMessage == "" {
		result.Status = "skipped"
		result.Reason = "empty_message"
		return result
	}

	intent := Classify(ctx, p.gen, result.OriginalMessage)
	result.Intent = intent
	if _, skip := skipIntents[intent]; skip {
		result.Status = "skipped"
		result.Reason = string(intent)
		return result
	}

	firstName := firstName(c.From.Name)
	faqContext, chunksUsed := p.retrieveFAQContext(ctx, result.OriginalMessage)
	result.FAQChunksUsed = chunksUsed
	result.Model = p.cfg.Model

	fallback := fmt.Sprintf("Hi %s! Thanks for reaching out. "+
		"Please DM us or contact our support team and we'll be happy to help.", firstName)

	replyPrompt := buildReplyPrompt(result.OriginalMessage, firstName, intent, faqContext)
	reply, err := p.gen.Generate(ctx, replyPrompt, p.cfg.GenOpts)
	if err != nil || strings.TrimSpace(reply) == "" {
		reply = fallback
	}

	result.ReplyMessage = reply
	result.Status = "pending"
	return result
}

// retrieveFAQContext fetches relevant FAQ chunks for a comment,
// degrading to a placeholder context when nothing is found or the
// provider is down.
func (p *Pipeline) retrieveFAQContext(ctx context.Context, message string) (string, []prompt.ChunkPreview) {
	if err := p.limiter.Wait(ctx); err != nil {
		return noFAQContext, nil
	}

	results := p.faq.RetrieveOrEmpty(ctx, message, p.cfg.TopK, p.cfg.MinScore)
	if len(results) == 0 {
		return noFAQContext, nil
	}

	parts := make([]string, len(results))
	previews := make([]prompt.ChunkPreview, len(results))
	for i, r := range results {
		parts[i] = strings.TrimSpace(r.Chunk.Text)
		previews[i] = preview(r)
	}
	return strings.Join(parts, "\n\n---\n\n"), previews
}

func preview(r store.ScoredChunk) prompt.ChunkPreview {
	return prompt.ChunkPreview{
		Page:    r.Chunk.Page,
		Score:   r.Score,
		Preview: strings.TrimSpace(prompt.Preview(r.Chunk.Text, faqPreviewLen)),
	}
}

func buildReplyPrompt(message, firstName string, intent Intent, faqContext string) string {
	tone, ok := toneMap[intent]
	if !ok {
		tone = toneMap[IntentQuestion]
	}

	var b strings.Builder
	b.WriteString("You are a friendly social media manager for a brand. ")
	b.WriteString("Write a short, warm reply to a comment.\n\n")
	b.WriteString("INSTRUCTIONS:\n")
	fmt.Fprintf(&b, "- Start your reply with \"Hi %s!\"\n", firstName)
	fmt.Fprintf(&b, "- %s\n", tone)
	b.WriteString("- Use information from the FAQ context below where relevant.\n")
	b.WriteString("- Keep the reply under 80 words.\n")
	b.WriteString("- Do NOT include emojis unless the FAQ mentions them.\n")
	b.WriteString("- Do NOT cite page numbers or document references.\n")
	b.WriteString("- Sound natural and friendly, not robotic.\n")
	b.WriteString("- If the FAQ has no relevant answer, politely ask them to DM or contact support.\n\n")
	fmt.Fprintf(&b, "FAQ CONTEXT:\n%s\n\n", faqContext)
	fmt.Fprintf(&b, "COMMENT: %q\n\nREPLY:", message)
	return b.String()
}

func firstName(full string) string {
	fields := strings.Fields(full)
	if len(fields) == 0 {
		return "there"
	}
	return fields[0]
}
