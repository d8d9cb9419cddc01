package chat

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/atharvwasthere/Orion/internal/session"
	"github.com/atharvwasthere/Orion/pkg/logging"
)

const maxMessageRunes = 10000

// Handler exposes the turn pipeline over HTTP.
type Handler struct {
	pipeline *Pipeline
	sessions *session.Store
	logger   logging.Logger

	// sessionLocks serializes concurrent turns against the same session.
	// For horizontal scaling, replace with pg_advisory_xact_lock.
	sessionLocks lockRegistry
}

// lockRegistry hands out one mutex per key and reclaims it when the last
// holder releases. Reference counting under the registry mutex means a
// waiter that has fetched a lock can never be orphaned by a concurrent
// cleanup.
type lockRegistry struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	mu   sync.Mutex
	refs int
}

func (r *lockRegistry) acquire(key string) *refLock {
	r.mu.Lock()
	if r.locks == nil {
		r.locks = make(map[string]*refLock)
	}
	l, ok := r.locks[key]
	if !ok {
		l = &refLock{}
		r.locks[key] = l
	}
	l.refs++
	r.mu.Unlock()

	l.mu.Lock()
	return l
}

func (r *lockRegistry) release(key string, l *refLock) {
	l.mu.Unlock()

	r.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(r.locks, key)
	}
	r.mu.Unlock()
}

type postMessageRequest struct {
	Text string `json:"text"`
}

type messageResponse struct {
	ID         string   `json:"id"`
	SessionID  string   `json:"session_id"`
	Sender     string   `json:"sender"`
	Text       string   `json:"text"`
	Confidence *float64 `json:"confidence,omitempty"`
	CreatedAt  string   `json:"created_at"`
}

type turnResponse struct {
	UserMessage       messageResponse  `json:"user_message"`
	BotMessage        messageResponse  `json:"bot_message"`
	SystemNotice      *messageResponse `json:"system_notice,omitempty"`
	SessionConfidence float64          `json:"session_confidence"`
	RetrievalScore    float64          `json:"retrieval_score"`
	OracleConfidence  *float64         `json:"oracle_confidence,omitempty"`
	ToneMode          string           `json:"tone_mode"`
	Status            string           `json:"status"`
	Escalated         bool             `json:"escalated"`
	EscalationReason  string           `json:"escalation_reason,omitempty"`
}

func NewHandler(pipeline *Pipeline, sessions *session.Store, logger logging.Logger) (*Handler, error) {
	if pipeline == nil {
		return nil, errors.New("pipeline is required")
	}
	if sessions == nil {
		return nil, errors.New("session store is required")
	}
	return &Handler{
		pipeline: pipeline,
		sessions: sessions,
		logger:   logger,
	}, nil
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/v1/sessions/:sessionId/messages")

	group.POST("", h.handlePost)
	group.GET("", h.handleList)
}

func (h *Handler) handlePost(c *gin.Context) {
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message text is required"})
		return
	}
	if len([]rune(req.Text)) > maxMessageRunes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message too long"})
		return
	}

	sessionID := c.Param("sessionId")

	lock := h.sessionLocks.acquire(sessionID)
	defer h.sessionLocks.release(sessionID, lock)

	result, err := h.pipeline.ProcessTurn(c.Request.Context(), sessionID, req.Text)
	if errors.Is(err, session.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	if errors.Is(err, ErrSessionClosed) {
		c.JSON(http.StatusConflict, gin.H{"error": "session is closed"})
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("session_id", sessionID).Warn("Failed to process turn")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process message"})
		return
	}

	response := turnResponse{
		UserMessage:       toMessageResponse(result.UserMessage),
		BotMessage:        toMessageResponse(result.BotMessage),
		SessionConfidence: result.SessionConfidence,
		RetrievalScore:    result.RetrievalScore,
		OracleConfidence:  result.OracleConfidence,
		ToneMode:          string(result.ToneMode),
		Status:            result.Status,
		Escalated:         result.Escalated,
		EscalationReason:  string(result.EscalationReason),
	}
	if result.SystemNotice != nil {
		notice := toMessageResponse(*result.SystemNotice)
		response.SystemNotice = &notice
	}
	c.JSON(http.StatusCreated, response)
}

func (h *Handler) handleList(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if _, err := h.sessions.GetSession(c.Request.Context(), sessionID); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		h.logger.WithError(err).Warn("Failed to fetch session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch session"})
		return
	}

	sender := c.Query("sender")
	if sender != "" && !validSender(sender) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sender filter"})
		return
	}
	messages, err := h.sessions.Messages(c.Request.Context(), sessionID, sender)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to list messages")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list messages"})
		return
	}
	response := make([]messageResponse, 0, len(messages))
	for _, msg := range messages {
		response = append(response, toMessageResponse(msg))
	}
	c.JSON(http.StatusOK, response)
}

func validSender(sender string) bool {
	switch sender {
	case session.SenderUser, session.SenderBot, session.SenderSystem:
		return true
	default:
		return false
	}
}

func toMessageResponse(msg session.Message) messageResponse {
	return messageResponse{
		ID:         msg.ID,
		SessionID:  msg.SessionID,
		Sender:     msg.Sender,
		Text:       msg.Text,
		Confidence: msg.Confidence,
		CreatedAt:  msg.CreatedAt.UTC().Format(time.RFC3339),
	}
}
