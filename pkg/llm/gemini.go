package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type GeminiProvider struct {
	client    *http.Client
	apiKey    string
	apiURL    string
	model     string
	maxTokens int
}

func NewGeminiProvider(cfg Config) *GeminiProvider {
	apiURL := strings.TrimRight(cfg.APIURL, "/")
	if apiURL == "" {
		apiURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 500
	}
	return &GeminiProvider{
		client:    &http.Client{Timeout: 60 * time.Second},
		apiKey:    cfg.APIKey,
		apiURL:    apiURL,
		model:     model,
		maxTokens: maxTokens,
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

func (p *GeminiProvider) Generate(ctx context.Context, messages []Message, knowledge []Knowledge) (Reply, error) {
	lastUser := lastUserMessage(messages)
	if lastUser == "" {
		return Reply{}, errors.New("gemini: no user message found")
	}

	reqBody := geminiRequest{
		SystemInstruction: &geminiContent{
			Parts: []geminiPart{{Text: supportSystemPrompt(knowledge)}},
		},
		Contents: geminiContents(messages),
		GenerationConfig: geminiGenerationConfig{
			Temperature:     0.7,
			TopK:            1,
			TopP:            1,
			MaxOutputTokens: p.maxTokens,
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return Reply{}, fmt.Errorf("gemini: marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", p.apiURL, p.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return Reply{}, fmt.Errorf("gemini: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("x-goog-api-key", p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return Reply{}, fmt.Errorf("gemini: request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return Reply{}, fmt.Errorf("gemini: unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var decoded geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Reply{}, fmt.Errorf("gemini: decode response: %w", err)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return Reply{}, errors.New("gemini: empty response")
	}

	var text strings.Builder
	for _, part := range decoded.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	reply := strings.TrimSpace(text.String())

	return Reply{
		Text:       reply,
		Confidence: confidence(estimateGeminiConfidence(lastUser, reply, knowledge)),
		TokenUsage: decoded.UsageMetadata.PromptTokenCount + decoded.UsageMetadata.CandidatesTokenCount,
	}, nil
}

func supportSystemPrompt(knowledge []Knowledge) string {
	faqText := "(no FAQs available)"
	if len(knowledge) > 0 {
		var b strings.Builder
		for i, k := range knowledge {
			if i > 0 {
				b.WriteString("\n\n")
			}
			fmt.Fprintf(&b, "Q: %s\nA: %s", k.Question, k.Answer)
		}
		faqText = b.String()
	}

	return strings.Join([]string{
		"You are Orion, a calm, confident, and experienced customer support assistant.",
		"You speak with natural warmth and professionalism, not like a robot.",
		"Speak to the customer directly, using 'you' and 'your'.",
		"Maintain a cool, conversational tone that feels human and assured.",
		"",
		"Behavioral rules:",
		"- Never repeat yourself or reuse identical phrasing from earlier turns.",
		"- Acknowledge what the customer just said before replying.",
		"- Keep replies concise but complete; 3-5 sentences is ideal.",
		"- If an answer is uncertain, respond gracefully (e.g. 'I can double-check that for you').",
		"- Always ground facts in the company's FAQs below, when relevant.",
		"",
		"Avoid corporate cliches or filler lines.",
		"",
		"=== Company FAQs ===",
		faqText,
		"=== End of FAQs ===",
	}, "\n")
}

func geminiContents(messages []Message) []geminiContent {
	contents := make([]geminiContent, 0, len(messages))
	for _, msg := range messages {
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		role := "model"
		if msg.Role == RoleUser {
			role = "user"
		}
		contents = append(contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: msg.Content}},
		})
	}
	return contents
}

// estimateGeminiConfidence derives a confidence score from response
// characteristics. The Gemini API does not report one, so this mirrors the
// heuristics used for reply grading: FAQ-grounded answers score high,
// explicit hedging scores low.
func estimateGeminiConfidence(userText, reply string, knowledge []Knowledge) float64 {
	lowerReply := strings.ToLower(reply)
	lowerUser := strings.ToLower(userText)

	likelyCompanyIntro := strings.Contains(lowerUser, "what does this") ||
		strings.Contains(lowerUser, "what does the company") ||
		strings.Contains(lowerUser, "about") ||
		strings.Contains(lowerUser, "specialize")

	faqOverlap := false
	for _, k := range knowledge {
		if k.Answer == "" {
			continue
		}
		answer := strings.NewReplacer(".", "", ",", "").Replace(strings.ToLower(k.Answer))
		words := strings.Fields(answer)
		if len(words) > 10 {
			words = words[:10]
		}
		if len(words) > 0 && strings.Contains(lowerReply, strings.Join(words, " ")) {
			faqOverlap = true
			break
		}
	}

	switch {
	case likelyCompanyIntro && faqOverlap:
		return 0.95
	case faqOverlap:
		return 0.9
	case strings.Contains(lowerReply, "i'm not sure"),
		strings.Contains(lowerReply, "i don't know"),
		strings.Contains(lowerReply, "unclear"):
		return 0.3
	case strings.Contains(lowerReply, "based on"),
		strings.Contains(lowerReply, "according to"):
		return 0.8
	default:
		return 0.85
	}
}

func lastUserMessage(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return messages[i].Content
		}
	}
	return ""
}
