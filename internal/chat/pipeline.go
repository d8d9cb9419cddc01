package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atharvwasthere/Orion/internal/engine"
	"github.com/atharvwasthere/Orion/internal/knowledge"
	"github.com/atharvwasthere/Orion/internal/session"
	"github.com/atharvwasthere/Orion/internal/tasks"
	"github.com/atharvwasthere/Orion/pkg/llm"
	"github.com/atharvwasthere/Orion/pkg/logging"
)

// promptHistoryMessages is how many recent transcript messages are replayed
// to the oracle as conversational context.
const promptHistoryMessages = 6

// fallbackReply is sent when the answer oracle fails outright. The low
// confidence attached to it feeds the trust tracker like any other turn.
const fallbackReply = "I'm sorry, I'm having trouble answering right now. Please try again in a moment."

const fallbackConfidence = 0.2

// neutralOracleConfidence stands in for the oracle's self-assessment in the
// tone calculation when the oracle did not provide one.
const neutralOracleConfidence = 0.5

// Pipeline runs one conversation turn end to end: context assembly, oracle
// generation, scoring, escalation, persistence, and summary scheduling.
type Pipeline struct {
	sessions   *session.Store
	assembler  *knowledge.Assembler
	provider   llm.Provider
	summarizer *Summarizer
	runner     *tasks.Runner
	cfg        engine.Config
	logger     logging.Logger
}

// TurnResult is everything a turn produced, for the HTTP response.
type TurnResult struct {
	UserMessage       session.Message
	BotMessage        session.Message
	SystemNotice      *session.Message
	SessionConfidence float64
	RetrievalScore    float64
	OracleConfidence  *float64
	ToneMode          engine.ToneMode
	Status            string
	Escalated         bool
	EscalationReason  engine.EscalationReason
}

// ErrSessionClosed rejects turns against a closed session.
var ErrSessionClosed = errors.New("session is closed")

func NewPipeline(
	sessions *session.Store,
	assembler *knowledge.Assembler,
	provider llm.Provider,
	summarizer *Summarizer,
	runner *tasks.Runner,
	cfg engine.Config,
	logger logging.Logger,
) (*Pipeline, error) {
	if sessions == nil {
		return nil, errors.New("session store is required")
	}
	if assembler == nil {
		return nil, errors.New("assembler is required")
	}
	if provider == nil {
		return nil, errors.New("provider is required")
	}
	if summarizer == nil {
		return nil, errors.New("summarizer is required")
	}
	if runner == nil {
		return nil, errors.New("task runner is required")
	}
	return &Pipeline{
		sessions:   sessions,
		assembler:  assembler,
		provider:   provider,
		summarizer: summarizer,
		runner:     runner,
		cfg:        cfg,
		logger:     logger,
	}, nil
}

// ProcessTurn handles one user message. Storage failures and unknown
// sessions are returned to the caller; oracle failures degrade into a
// low-confidence fallback reply instead of failing the turn.
func (p *Pipeline) ProcessTurn(ctx context.Context, sessionID, text string) (TurnResult, error) {
	sess, err := p.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return TurnResult{}, err
	}
	if sess.Status == session.StatusClosed {
		return TurnResult{}, ErrSessionClosed
	}

	// History is loaded before the new message lands so repeat detection
	// compares against prior questions only.
	history, err := p.sessions.RecentMessages(ctx, sessionID, promptHistoryMessages)
	if err != nil {
		return TurnResult{}, err
	}

	userMsg, err := p.sessions.AppendMessage(ctx, session.Message{
		SessionID: sessionID,
		Sender:    session.SenderUser,
		Text:      text,
	})
	if err != nil {
		return TurnResult{}, err
	}

	kctx, err := p.assembler.Assemble(ctx, sess.CompanyID, text)
	if err != nil {
		return TurnResult{}, err
	}

	reply, oracleConf := p.generate(ctx, kctx, history, text)

	retrieval := engine.LexicalScore(text, kctx.Items)

	var oosProb *float64
	if prob, ok := engine.ClassifyOutOfScope(text); ok {
		oosProb = &prob
	}
	streak := engine.NextOOSStreak(sess.OOSStreak, retrieval, p.cfg)
	tripped := engine.OOSTripped(streak, oosProb, p.cfg)

	decision := engine.Decide(tripped, oracleConf, p.cfg)

	// Tone rides its own confidence signal, blended per session.
	toneOracleConf := neutralOracleConfidence
	if oracleConf != nil {
		toneOracleConf = *oracleConf
	}
	toneTurn := engine.TurnToneConfidence(retrieval, toneOracleConf, text, kctx.CompanyName)
	toneMode := engine.ClassifyToneMode(toneTurn, p.cfg)
	if !decision.Escalate {
		reply = engine.ApplyTone(reply, toneMode, kctx.CompanyName)
	}
	newTone := engine.BlendToneConfidence(sess.ToneConfidence, toneTurn, p.cfg)

	botMsg, err := p.sessions.AppendMessage(ctx, session.Message{
		SessionID:  sessionID,
		Sender:     session.SenderBot,
		Text:       reply,
		Confidence: oracleConf,
	})
	if err != nil {
		return TurnResult{}, err
	}

	update := engine.UpdateSessionConfidence(sess.Confidence, engine.TurnSignals{
		OracleConfidence: oracleConf,
		RetrievalScore:   retrieval,
		Feedback:         engine.DeriveFeedback(text),
		RepeatQuestion:   engine.DetectRepeatQuestion(text, userTexts(history)),
	}, p.cfg)

	status, reason := p.nextStatus(sess, decision)

	storedStreak := streak
	if tripped {
		storedStreak = 0
	}
	if err := p.sessions.ApplyTurnUpdate(ctx, sessionID, session.TurnUpdate{
		Confidence:       update.Next,
		ToneConfidence:   newTone,
		Status:           status,
		EscalationReason: reason,
		OOSStreak:        storedStreak,
		BadTurn:          engine.IsBadTurn(update),
		GoodTurn:         engine.IsGoodTurn(update),
	}); err != nil {
		return TurnResult{}, err
	}

	result := TurnResult{
		UserMessage:       userMsg,
		BotMessage:        botMsg,
		SessionConfidence: update.Next,
		RetrievalScore:    retrieval,
		OracleConfidence:  oracleConf,
		ToneMode:          toneMode,
		Status:            status,
		Escalated:         decision.Escalate,
		EscalationReason:  reason,
	}

	if decision.Escalate {
		notice, err := p.sessions.AppendMessage(ctx, session.Message{
			SessionID: sessionID,
			Sender:    session.SenderSystem,
			Text:      engine.EscalationNotice(decision.Reason),
		})
		if err != nil {
			return TurnResult{}, err
		}
		result.SystemNotice = &notice
		escalationsTotal.WithLabelValues(string(decision.Reason)).Inc()
	}

	p.scheduleSummary(ctx, sessionID)

	turnsTotal.WithLabelValues(turnDecisionLabel(decision)).Inc()
	sessionConfidenceObserved.Observe(update.Next)

	p.logger.WithFields(logging.Fields{
		"session_id":         sessionID,
		"oracle_confidence":  formatConfidence(oracleConf),
		"session_confidence": update.Next,
		"retrieval_score":    retrieval,
		"penalty":            update.Penalty,
		"boost":              update.Boost,
		"oos_streak":         storedStreak,
		"tone_mode":          string(toneMode),
		"status":             status,
		"escalated":          decision.Escalate,
		"escalation_reason":  string(reason),
	}).Info("Processed turn")

	return result, nil
}

// generate asks the oracle for a reply. On failure the turn degrades to a
// canned apology with low confidence; the error never escapes.
func (p *Pipeline) generate(ctx context.Context, kctx knowledge.Context, history []session.Message, text string) (string, *float64) {
	messages := promptMessages(kctx, history, text)

	start := time.Now()
	reply, err := p.provider.Generate(ctx, messages, kctx.Knowledge())
	oracleDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		oracleCallsTotal.WithLabelValues("error").Inc()
		p.logger.WithError(err).Warn("Oracle generation failed, using fallback reply")
		conf := fallbackConfidence
		return fallbackReply, &conf
	}
	oracleCallsTotal.WithLabelValues("ok").Inc()
	return reply.Text, reply.Confidence
}

// nextStatus folds the turn decision into the session status. In sticky
// mode an escalated session stays escalated until an operator intervenes;
// in reactive mode a clean turn reactivates it.
func (p *Pipeline) nextStatus(sess session.Session, decision engine.Decision) (string, engine.EscalationReason) {
	if decision.Escalate {
		return session.StatusEscalated, decision.Reason
	}
	if p.cfg.EscalationMode == engine.EscalationSticky && sess.Status == session.StatusEscalated {
		return session.StatusEscalated, sess.EscalationReason
	}
	return session.StatusActive, engine.ReasonNone
}

func (p *Pipeline) scheduleSummary(ctx context.Context, sessionID string) {
	count, err := p.sessions.ConversationMessageCount(ctx, sessionID)
	if err != nil {
		p.logger.WithError(err).Warn("Failed to count conversation messages")
		return
	}
	if !engine.ShouldSummarize(count, p.cfg) {
		return
	}
	p.runner.Submit("summary:"+sessionID, func(ctx context.Context) error {
		_, err := p.summarizer.Refresh(ctx, sessionID)
		return err
	})
}

// promptMessages assembles the oracle prompt: company context first, then
// recent history, then the new user message.
func promptMessages(kctx knowledge.Context, history []session.Message, text string) []llm.Message {
	messages := make([]llm.Message, 0, len(history)+2)
	if kctx.Profile != "" {
		messages = append(messages, llm.Message{
			Role:    llm.RoleSystem,
			Content: fmt.Sprintf("Company Context: %s", kctx.Profile),
		})
	}
	for _, msg := range history {
		messages = append(messages, llm.Message{Role: promptRole(msg.Sender), Content: msg.Text})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: text})
	return messages
}

func promptRole(sender string) string {
	switch sender {
	case session.SenderUser:
		return llm.RoleUser
	case session.SenderBot:
		return llm.RoleAssistant
	default:
		return llm.RoleSystem
	}
}

func userTexts(history []session.Message) []string {
	var texts []string
	for _, msg := range history {
		if msg.Sender == session.SenderUser {
			texts = append(texts, msg.Text)
		}
	}
	return texts
}

func turnDecisionLabel(decision engine.Decision) string {
	if !decision.Escalate {
		return "continue"
	}
	return string(decision.Reason)
}

func formatConfidence(conf *float64) any {
	if conf == nil {
		return nil
	}
	return *conf
}
