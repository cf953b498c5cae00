package reply

import (
	"context"
	"fmt"
	"strings"

	"github.com/ragstack/docrag/pkg/provider"
)

// Intent is the classified purpose of an incoming comment.
type Intent string

const (
	IntentQuestion  Intent = "question"
	IntentComplaint Intent = "complaint"
	IntentRequest   Intent = "request"
	IntentPositive  Intent = "positive"
	IntentGeneric   Intent = "generic"
)

// Words that typically start a question.
var questionStartWords = map[string]struct{}{
	"how": {}, "what": {}, "when": {}, "where": {}, "why": {}, "which": {}, "who": {},
	"is": {}, "are": {}, "can": {}, "could": {}, "do": {}, "does": {}, "did": {},
	"will": {}, "would": {}, "should": {}, "has": {}, "have": {},
}

// Keywords that strongly signal a complaint.
var complaintKeywords = []string{
	"complaint", "complain", "issue", "problem", "not received",
	"didn't receive", "didnt receive", "havent received", "haven't received",
	"wrong", "poor", "disappointed", "frustrat", "refund",
	"overpriced", "too expensive", "scam", "fake", "not working",
	"broken", "damaged", "delay", "late delivery", "bad experience",
}

// Keywords that strongly signal a request for action or information.
var requestKeywords = []string{
	"please share", "please send", "please call", "please provide",
	"please clarify", "please check", "can you send", "can you share",
	"can you call", "send me", "check dm", "check dms",
	"brochure", "contact me", "support number", "more info",
	"pricing details", "customer support", "whatsapp", "phone number",
	"interested in bulk", "bulk order", "partnership",
}

// Keywords that signal clear praise needing no follow-up.
var positiveKeywords = []string{
	"amazing", "great", "fantastic", "brilliant", "excellent",
	"wonderful", "awesome", "loved it", "loved", "helpful",
	"super excited", "excited", "looks promising", "fantastic offer",
	"brilliant campaign", "great initiative", "amazing work",
	"thanks for clarifying",
}

// Classify determines a comment's intent. Fast keyword heuristics run
// first; ambiguous comments fall back to a single-word generator
// classification, defaulting to generic when that fails.
func Classify(ctx context.Context, gen provider.Generator, message string) Intent {
	lower := strings.ToLower(strings.TrimSpace(message))

	for _, kw := range complaintKeywords {
		if strings.Contains(lower, kw) {
			return IntentComplaint
		}
	}

	if strings.Contains(message, "?") {
		return IntentQuestion
	}
	if words := strings.Fields(lower); len(words) > 0 {
		if _, ok := questionStartWords[words[0]]; ok {
			return IntentQuestion
		}
	}

	for _, kw := range requestKeywords {
		if strings.Contains(lower, kw) {
			return IntentRequest
		}
	}

	// Only brief, clearly positive comments count as praise.
	if len(message) <= 80 {
		for _, kw := range positiveKeywords {
			if strings.Contains(lower, kw) {
				return IntentPositive
			}
		}
	}

	return llmClassify(ctx, gen, message)
}

func llmClassify(ctx context.Context, gen provider.Generator, message string) Intent {
	p := fmt.Sprintf("Classify this comment into exactly one category.\n"+
		"Reply with ONLY ONE WORD. Choose from: question, complaint, request, positive, generic\n\n"+
		"Comment: %q\n\nCategory:", message)

	raw, err := gen.Generate(ctx, p, provider.Options{Temperature: 0, MaxTokens: 5})
	if err != nil {
		return IntentGeneric
	}

	fields := strings.Fields(strings.ToLower(raw))
	if len(fields) == 0 {
		return IntentGeneric
	}
	switch Intent(fields[0]) {
	case IntentQuestion, IntentComplaint, IntentRequest, IntentPositive, IntentGeneric:
		return Intent(fields[0])
	}
	return IntentGeneric
}
