package llm

import (
	"context"
	"strings"
)

// MockProvider is a deterministic offline oracle for local development and
// tests. It grades its own replies the way the real providers do: grounded
// FAQ matches score high, sensitive topics score low.
type MockProvider struct{}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

var mockResponses = []string{
	"Thank you for reaching out. I understand your concern and I'm here to help.",
	"Based on our FAQs, I can assist you with this issue.",
	"I've reviewed your request. Let me provide you with the information you need.",
	"I appreciate your patience. Here's what I found regarding your inquiry.",
	"Thank you for contacting support. I'll do my best to resolve this for you.",
}

var mockLowConfidenceKeywords = []string{"urgent", "critical", "legal", "refund", "complaint"}

func (p *MockProvider) Generate(_ context.Context, messages []Message, knowledge []Knowledge) (Reply, error) {
	lastUser := lastUserMessage(messages)
	if lastUser == "" {
		return Reply{
			Text:       "I'm here to help. Please let me know what you need assistance with.",
			Confidence: confidence(0.8),
		}, nil
	}

	userText := strings.ToLower(lastUser)
	text := mockResponses[len(lastUser)%len(mockResponses)]
	conf := 0.6

	for _, faq := range knowledge {
		question := strings.ToLower(faq.Question)
		if overlapsPrefix(userText, question) || overlapsPrefix(question, userText) {
			text = "Based on our FAQs: " + faq.Answer
			conf = 0.85
			break
		}
	}

	for _, keyword := range mockLowConfidenceKeywords {
		if strings.Contains(userText, keyword) {
			conf = 0.35
			text = "This seems like an important issue that may require human assistance. " + text
			break
		}
	}

	return Reply{Text: text, Confidence: confidence(conf)}, nil
}

func overlapsPrefix(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	if len(needle) > 20 {
		needle = needle[:20]
	}
	return strings.Contains(haystack, needle)
}
