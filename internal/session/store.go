package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/atharvwasthere/Orion/internal/engine"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrMessageNotFound = errors.New("message not found")
)

// Session status values. Escalated sessions belong to a human; closed
// sessions are terminal.
const (
	StatusActive    = "active"
	StatusEscalated = "escalated"
	StatusClosed    = "closed"
)

// Message sender values.
const (
	SenderUser   = "user"
	SenderBot    = "bot"
	SenderSystem = "system"
)

// initialConfidence is the trust a brand-new session starts with.
const initialConfidence = 1.0

// initialToneConfidence seeds the tone pipeline at its neutral midpoint.
const initialToneConfidence = 0.5

type Session struct {
	ID               string
	CompanyID        string
	User             string
	Status           string
	EscalationReason engine.EscalationReason
	Confidence       float64
	ToneConfidence   float64
	OOSStreak        int
	BadTurns         int
	GoodTurns        int
	Summary          *string
	MessageCount     int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Message struct {
	ID         string
	SessionID  string
	Sender     string
	Text       string
	Confidence *float64
	CreatedAt  time.Time
}

// TurnUpdate carries every session field the chat pipeline recomputes for a
// turn, applied in a single UPDATE so a turn's effects land atomically.
type TurnUpdate struct {
	Confidence       float64
	ToneConfidence   float64
	Status           string
	EscalationReason engine.EscalationReason
	OOSStreak        int
	BadTurn          bool
	GoodTurn         bool
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateSession(ctx context.Context, companyID, user string) (Session, error) {
	if companyID == "" {
		return Session{}, errors.New("company id is required")
	}
	if user == "" {
		return Session{}, errors.New("user identifier is required")
	}
	session := Session{
		ID:             uuid.NewString(),
		CompanyID:      companyID,
		User:           user,
		Status:         StatusActive,
		Confidence:     initialConfidence,
		ToneConfidence: initialToneConfidence,
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO orion.orion_sessions (id, company_id, user_ref, status, confidence, tone_confidence)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, session.ID, session.CompanyID, session.User, session.Status,
		session.Confidence, session.ToneConfidence).Scan(&session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

const sessionColumns = `
	id, company_id, user_ref, status, escalation_reason,
	confidence, tone_confidence, oos_streak, bad_turns, good_turns,
	summary, created_at, updated_at`

func (s *Store) GetSession(ctx context.Context, sessionID string) (Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT`+sessionColumns+`
		FROM orion.orion_sessions
		WHERE id = $1
	`, sessionID)
	return scanSession(row)
}

func (s *Store) GetCompanySession(ctx context.Context, companyID, sessionID string) (Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT`+sessionColumns+`
		FROM orion.orion_sessions
		WHERE id = $1 AND company_id = $2
	`, sessionID, companyID)
	return scanSession(row)
}

// ListSessions returns a company's sessions newest first, with message
// counts. Empty status or user filters match everything.
func (s *Store) ListSessions(ctx context.Context, companyID, status, user string) ([]Session, error) {
	if companyID == "" {
		return nil, errors.New("company id is required")
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.company_id, s.user_ref, s.status, s.escalation_reason,
			s.confidence, s.tone_confidence, s.oos_streak, s.bad_turns, s.good_turns,
			s.summary, s.created_at, s.updated_at,
			COUNT(m.id) AS message_count
		FROM orion.orion_sessions s
		LEFT JOIN orion.orion_messages m ON m.session_id = s.id
		WHERE s.company_id = $1
		  AND ($2 = '' OR s.status = $2)
		  AND ($3 = '' OR s.user_ref = $3)
		GROUP BY s.id
		ORDER BY s.created_at DESC
	`, companyID, status, user)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var session Session
		var reason, summary sql.NullString
		if err := rows.Scan(
			&session.ID, &session.CompanyID, &session.User, &session.Status, &reason,
			&session.Confidence, &session.ToneConfidence, &session.OOSStreak,
			&session.BadTurns, &session.GoodTurns, &summary,
			&session.CreatedAt, &session.UpdatedAt, &session.MessageCount,
		); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if reason.Valid {
			session.EscalationReason = engine.EscalationReason(reason.String)
		}
		if summary.Valid {
			session.Summary = &summary.String
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// UpdateStatus applies an operator-driven status change. Escalating requires
// a reason; moving back to active clears it.
func (s *Store) UpdateStatus(ctx context.Context, companyID, sessionID, status string, reason engine.EscalationReason) error {
	if status == StatusEscalated && reason == engine.ReasonNone {
		return errors.New("escalation reason is required when escalating a session")
	}
	var reasonParam any
	if status == StatusEscalated {
		reasonParam = string(reason)
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE orion.orion_sessions
		SET status = $3, escalation_reason = $4, updated_at = now()
		WHERE id = $1 AND company_id = $2
	`, sessionID, companyID, status, reasonParam)
	if err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	return requireRow(result, ErrSessionNotFound)
}

func (s *Store) DeleteSession(ctx context.Context, companyID, sessionID string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM orion.orion_sessions WHERE id = $1 AND company_id = $2
	`, sessionID, companyID)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return requireRow(result, ErrSessionNotFound)
}

// ApplyTurnUpdate lands one completed turn's session effects atomically.
func (s *Store) ApplyTurnUpdate(ctx context.Context, sessionID string, update TurnUpdate) error {
	var reasonParam any
	if update.EscalationReason != engine.ReasonNone {
		reasonParam = string(update.EscalationReason)
	}
	badInc, goodInc := 0, 0
	if update.BadTurn {
		badInc = 1
	}
	if update.GoodTurn {
		goodInc = 1
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE orion.orion_sessions
		SET confidence = $2,
			tone_confidence = $3,
			status = $4,
			escalation_reason = $5,
			oos_streak = $6,
			bad_turns = bad_turns + $7,
			good_turns = good_turns + $8,
			updated_at = now()
		WHERE id = $1
	`, sessionID, update.Confidence, update.ToneConfidence, update.Status,
		reasonParam, update.OOSStreak, badInc, goodInc)
	if err != nil {
		return fmt.Errorf("apply turn update: %w", err)
	}
	return requireRow(result, ErrSessionNotFound)
}

func (s *Store) SetSummary(ctx context.Context, sessionID, summary string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE orion.orion_sessions SET summary = $2, updated_at = now() WHERE id = $1
	`, sessionID, summary)
	if err != nil {
		return fmt.Errorf("set session summary: %w", err)
	}
	return requireRow(result, ErrSessionNotFound)
}

func (s *Store) AppendMessage(ctx context.Context, msg Message) (Message, error) {
	if msg.SessionID == "" {
		return Message{}, errors.New("session id is required")
	}
	if msg.Sender == "" || msg.Text == "" {
		return Message{}, errors.New("sender and text are required")
	}
	msg.ID = uuid.NewString()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO orion.orion_messages (id, session_id, sender, text, confidence)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, msg.ID, msg.SessionID, msg.Sender, msg.Text, msg.Confidence).Scan(&msg.CreatedAt)
	if err != nil {
		return Message{}, fmt.Errorf("append message: %w", err)
	}
	return msg, nil
}

// Messages returns a session's transcript oldest first. An empty sender
// filter matches all senders.
func (s *Store) Messages(ctx context.Context, sessionID, sender string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, sender, text, confidence, created_at
		FROM orion.orion_messages
		WHERE session_id = $1
		  AND ($2 = '' OR sender = $2)
		ORDER BY created_at ASC
	`, sessionID, sender)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// RecentMessages returns the last limit messages, oldest first.
func (s *Store) RecentMessages(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, sender, text, confidence, created_at
		FROM (
			SELECT id, session_id, sender, text, confidence, created_at
			FROM orion.orion_messages
			WHERE session_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC
	`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// ConversationMessageCount counts user and bot messages only; system
// notices do not advance the summary schedule.
func (s *Store) ConversationMessageCount(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM orion.orion_messages
		WHERE session_id = $1 AND sender IN ($2, $3)
	`, sessionID, SenderUser, SenderBot).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count conversation messages: %w", err)
	}
	return count, nil
}

func scanSession(row *sql.Row) (Session, error) {
	var session Session
	var reason, summary sql.NullString
	err := row.Scan(
		&session.ID, &session.CompanyID, &session.User, &session.Status, &reason,
		&session.Confidence, &session.ToneConfidence, &session.OOSStreak,
		&session.BadTurns, &session.GoodTurns, &summary,
		&session.CreatedAt, &session.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	if reason.Valid {
		session.EscalationReason = engine.EscalationReason(reason.String)
	}
	if summary.Valid {
		session.Summary = &summary.String
	}
	return session, nil
}

func scanMessages(rows *sql.Rows) ([]Message, error) {
	var messages []Message
	for rows.Next() {
		var msg Message
		var confidence sql.NullFloat64
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Sender, &msg.Text, &confidence, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if confidence.Valid {
			msg.Confidence = &confidence.Float64
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}

func requireRow(result sql.Result, notFound error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return notFound
	}
	return nil
}
