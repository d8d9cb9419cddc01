package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atharvwasthere/Orion/internal/engine"
	"github.com/atharvwasthere/Orion/internal/session"
	"github.com/atharvwasthere/Orion/pkg/llm"
)

const summarizePrompt = `You are a professional support analyst.
You are summarizing an ongoing customer support conversation.

Generate a concise 2-3 sentence summary of this customer support conversation.

Focus on:
- Main issue/question raised by customer
- Key actions taken or solutions provided
- Current status (resolved, pending, escalated)

Conversation:
%s

Summary:`

const emptySummary = "No conversation history available."

// Summarizer condenses a session transcript into a short operator-facing
// summary via the oracle and stores it on the session.
type Summarizer struct {
	sessions *session.Store
	provider llm.Provider
}

func NewSummarizer(sessions *session.Store, provider llm.Provider) (*Summarizer, error) {
	if sessions == nil {
		return nil, errors.New("session store is required")
	}
	if provider == nil {
		return nil, errors.New("provider is required")
	}
	return &Summarizer{sessions: sessions, provider: provider}, nil
}

// Summarize generates a summary without persisting it.
func (s *Summarizer) Summarize(ctx context.Context, sessionID string) (string, error) {
	if _, err := s.sessions.GetSession(ctx, sessionID); err != nil {
		return "", err
	}

	// System notices are bookkeeping, not conversation.
	messages, err := s.sessions.Messages(ctx, sessionID, "")
	if err != nil {
		return "", err
	}
	var transcript strings.Builder
	for _, msg := range messages {
		switch msg.Sender {
		case session.SenderUser:
			fmt.Fprintf(&transcript, "Customer: %s\n", msg.Text)
		case session.SenderBot:
			fmt.Fprintf(&transcript, "Support: %s\n", msg.Text)
		}
	}
	if transcript.Len() == 0 {
		return emptySummary, nil
	}

	start := time.Now()
	reply, err := s.provider.Generate(ctx, []llm.Message{
		{Role: llm.RoleUser, Content: fmt.Sprintf(summarizePrompt, transcript.String())},
	}, nil)
	summaryDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		summaryRunsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("generate summary: %w", err)
	}
	summaryRunsTotal.WithLabelValues("ok").Inc()

	summary := strings.Join(strings.Fields(reply.Text), " ")
	return engine.TruncateSummary(summary), nil
}

// Refresh generates a summary and stores it on the session.
func (s *Summarizer) Refresh(ctx context.Context, sessionID string) (string, error) {
	summary, err := s.Summarize(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if err := s.sessions.SetSummary(ctx, sessionID, summary); err != nil {
		return "", err
	}
	return summary, nil
}
