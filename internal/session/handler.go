package session

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/atharvwasthere/Orion/internal/engine"
	"github.com/atharvwasthere/Orion/internal/knowledge"
	"github.com/atharvwasthere/Orion/pkg/logging"
)

// CompanyChecker confirms a company exists before session operations touch
// it. Satisfied by the knowledge store.
type CompanyChecker interface {
	GetCompany(ctx context.Context, companyID string) (knowledge.Company, error)
}

// Summarizer regenerates a session's transcript summary on demand.
type Summarizer interface {
	Summarize(ctx context.Context, sessionID string) (string, error)
}

// Handler exposes company-scoped session management over HTTP.
type Handler struct {
	store      *Store
	companies  CompanyChecker
	summarizer Summarizer
	logger     logging.Logger
}

type createSessionRequest struct {
	User string `json:"user"`
}

type updateSessionRequest struct {
	Status           string  `json:"status"`
	EscalationReason string  `json:"escalation_reason"`
	Summary          *string `json:"summary"`
}

type sessionResponse struct {
	ID               string            `json:"id"`
	CompanyID        string            `json:"company_id"`
	User             string            `json:"user"`
	Status           string            `json:"status"`
	EscalationReason string            `json:"escalation_reason,omitempty"`
	Confidence       float64           `json:"confidence"`
	ToneConfidence   float64           `json:"tone_confidence"`
	OOSStreak        int               `json:"oos_streak"`
	BadTurns         int               `json:"bad_turns"`
	GoodTurns        int               `json:"good_turns"`
	Summary          *string           `json:"summary,omitempty"`
	MessageCount     int               `json:"message_count"`
	Messages         []messageResponse `json:"messages,omitempty"`
	CreatedAt        string            `json:"created_at"`
	UpdatedAt        string            `json:"updated_at"`
}

type messageResponse struct {
	ID         string   `json:"id"`
	SessionID  string   `json:"session_id"`
	Sender     string   `json:"sender"`
	Text       string   `json:"text"`
	Confidence *float64 `json:"confidence,omitempty"`
	CreatedAt  string   `json:"created_at"`
}

func NewHandler(store *Store, companies CompanyChecker, summarizer Summarizer, logger logging.Logger) (*Handler, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if companies == nil {
		return nil, errors.New("company checker is required")
	}
	if summarizer == nil {
		return nil, errors.New("summarizer is required")
	}
	return &Handler{
		store:      store,
		companies:  companies,
		summarizer: summarizer,
		logger:     logger,
	}, nil
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/v1/companies/:companyId/sessions")

	group.POST("", h.handleCreate)
	group.GET("", h.handleList)
	group.GET("/:sessionId", h.handleGet)
	group.PATCH("/:sessionId", h.handleUpdate)
	group.PUT("/:sessionId", h.handleUpdate)
	group.GET("/:sessionId/summary", h.handleSummary)
	group.DELETE("/:sessionId", h.handleDelete)
}

func (h *Handler) handleCreate(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.User) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user identifier is required"})
		return
	}
	companyID := c.Param("companyId")
	if _, err := h.companies.GetCompany(c.Request.Context(), companyID); err != nil {
		h.companyError(c, err)
		return
	}

	session, err := h.store.CreateSession(c.Request.Context(), companyID, strings.TrimSpace(req.User))
	if err != nil {
		h.logger.WithError(err).Warn("Failed to create session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}
	c.JSON(http.StatusCreated, toSessionResponse(session, nil))
}

func (h *Handler) handleList(c *gin.Context) {
	companyID := c.Param("companyId")
	if _, err := h.companies.GetCompany(c.Request.Context(), companyID); err != nil {
		h.companyError(c, err)
		return
	}

	status := c.Query("status")
	if status != "" && !validStatus(status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status filter"})
		return
	}
	sessions, err := h.store.ListSessions(c.Request.Context(), companyID, status, c.Query("user"))
	if err != nil {
		h.logger.WithError(err).Warn("Failed to list sessions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list sessions"})
		return
	}
	response := make([]sessionResponse, 0, len(sessions))
	for _, session := range sessions {
		response = append(response, toSessionResponse(session, nil))
	}
	c.JSON(http.StatusOK, response)
}

func (h *Handler) handleGet(c *gin.Context) {
	session, err := h.store.GetCompanySession(c.Request.Context(), c.Param("companyId"), c.Param("sessionId"))
	if errors.Is(err, ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	if err != nil {
		h.logger.WithError(err).Warn("Failed to fetch session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch session"})
		return
	}
	messages, err := h.store.Messages(c.Request.Context(), session.ID, "")
	if err != nil {
		h.logger.WithError(err).Warn("Failed to fetch session messages")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch session"})
		return
	}
	c.JSON(http.StatusOK, toSessionResponse(session, messages))
}

func (h *Handler) handleUpdate(c *gin.Context) {
	var req updateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Status != "" && !validStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status. must be 'active', 'escalated', or 'closed'"})
		return
	}
	companyID := c.Param("companyId")
	sessionID := c.Param("sessionId")

	if _, err := h.store.GetCompanySession(c.Request.Context(), companyID, sessionID); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		h.logger.WithError(err).Warn("Failed to fetch session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch session"})
		return
	}

	if req.Status == StatusEscalated && strings.TrimSpace(req.EscalationReason) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "escalation reason is required when escalating a session"})
		return
	}

	if req.Status != "" {
		reason := engine.EscalationReason(strings.TrimSpace(req.EscalationReason))
		if err := h.store.UpdateStatus(c.Request.Context(), companyID, sessionID, req.Status, reason); err != nil {
			h.logger.WithError(err).Warn("Failed to update session status")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update session"})
			return
		}
	}
	if req.Summary != nil {
		if err := h.store.SetSummary(c.Request.Context(), sessionID, *req.Summary); err != nil {
			h.logger.WithError(err).Warn("Failed to update session summary")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update session"})
			return
		}
	}

	session, err := h.store.GetCompanySession(c.Request.Context(), companyID, sessionID)
	if err != nil {
		h.logger.WithError(err).Warn("Failed to fetch updated session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch session"})
		return
	}
	c.JSON(http.StatusOK, toSessionResponse(session, nil))
}

func (h *Handler) handleSummary(c *gin.Context) {
	sessionID := c.Param("sessionId")
	if _, err := h.store.GetCompanySession(c.Request.Context(), c.Param("companyId"), sessionID); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		h.logger.WithError(err).Warn("Failed to fetch session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch session"})
		return
	}

	summary, err := h.summarizer.Summarize(c.Request.Context(), sessionID)
	if err != nil {
		h.logger.WithError(err).WithField("session_id", sessionID).Warn("Failed to generate session summary")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate summary"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session_id": sessionID,
		"summary":    summary,
		"updated_at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) handleDelete(c *gin.Context) {
	err := h.store.DeleteSession(c.Request.Context(), c.Param("companyId"), c.Param("sessionId"))
	if errors.Is(err, ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	if err != nil {
		h.logger.WithError(err).Warn("Failed to delete session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *Handler) companyError(c *gin.Context, err error) {
	if errors.Is(err, knowledge.ErrCompanyNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "company not found"})
		return
	}
	h.logger.WithError(err).Warn("Failed to fetch company")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch company"})
}

func validStatus(status string) bool {
	switch status {
	case StatusActive, StatusEscalated, StatusClosed:
		return true
	default:
		return false
	}
}

func toSessionResponse(session Session, messages []Message) sessionResponse {
	response := sessionResponse{
		ID:               session.ID,
		CompanyID:        session.CompanyID,
		User:             session.User,
		Status:           session.Status,
		EscalationReason: string(session.EscalationReason),
		Confidence:       session.Confidence,
		ToneConfidence:   session.ToneConfidence,
		OOSStreak:        session.OOSStreak,
		BadTurns:         session.BadTurns,
		GoodTurns:        session.GoodTurns,
		Summary:          session.Summary,
		MessageCount:     session.MessageCount,
		CreatedAt:        session.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:        session.UpdatedAt.UTC().Format(time.RFC3339),
	}
	for _, msg := range messages {
		response.Messages = append(response.Messages, toMessageResponse(msg))
	}
	return response
}

func toMessageResponse(msg Message) messageResponse {
	return messageResponse{
		ID:         msg.ID,
		SessionID:  msg.SessionID,
		Sender:     msg.Sender,
		Text:       msg.Text,
		Confidence: msg.Confidence,
		CreatedAt:  msg.CreatedAt.UTC().Format(time.RFC3339),
	}
}
