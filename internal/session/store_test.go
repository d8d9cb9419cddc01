package session

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/atharvwasthere/Orion/internal/engine"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db), mock
}

func sessionRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "company_id", "user_ref", "status", "escalation_reason",
		"confidence", "tone_confidence", "oos_streak", "bad_turns", "good_turns",
		"summary", "created_at", "updated_at",
	})
}

func TestStoreCreateSession(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery("INSERT INTO orion\\.orion_sessions").
		WithArgs(sqlmock.AnyArg(), "company", "alice", StatusActive, 1.0, 0.5).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	session, err := store.CreateSession(context.Background(), "company", "alice")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if session.Status != StatusActive {
		t.Fatalf("unexpected status: %s", session.Status)
	}
	if session.Confidence != 1.0 {
		t.Fatalf("new session should start fully trusted, got %v", session.Confidence)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestStoreGetSessionNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT").WithArgs("missing").WillReturnRows(sessionRows())

	if _, err := store.GetSession(context.Background(), "missing"); err != ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestStoreGetSessionEscalated(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT").WithArgs("s1").WillReturnRows(
		sessionRows().AddRow("s1", "company", "alice", StatusEscalated, "out_of_scope",
			0.42, 0.3, 2, 3, 1, "Customer asked about refunds.", now, now))

	session, err := store.GetSession(context.Background(), "s1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if session.EscalationReason != engine.ReasonOutOfScope {
		t.Fatalf("unexpected reason: %s", session.EscalationReason)
	}
	if session.Summary == nil || *session.Summary != "Customer asked about refunds." {
		t.Fatalf("unexpected summary: %v", session.Summary)
	}
}

func TestStoreUpdateStatusRequiresReason(t *testing.T) {
	store, _ := newMockStore(t)

	err := store.UpdateStatus(context.Background(), "company", "s1", StatusEscalated, engine.ReasonNone)
	if err == nil {
		t.Fatal("expected error for missing escalation reason")
	}
}

func TestStoreUpdateStatusClearsReasonOnReopen(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE orion\\.orion_sessions").
		WithArgs("s1", "company", StatusActive, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.UpdateStatus(context.Background(), "company", "s1", StatusActive, engine.ReasonNone)
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestStoreApplyTurnUpdate(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE orion\\.orion_sessions").
		WithArgs("s1", 0.74, 0.6, StatusEscalated, "low_confidence", 0, 1, 0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.ApplyTurnUpdate(context.Background(), "s1", TurnUpdate{
		Confidence:       0.74,
		ToneConfidence:   0.6,
		Status:           StatusEscalated,
		EscalationReason: engine.ReasonLowConfidence,
		OOSStreak:        0,
		BadTurn:          true,
	})
	if err != nil {
		t.Fatalf("apply turn update: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestStoreApplyTurnUpdateMissingSession(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE orion\\.orion_sessions").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.ApplyTurnUpdate(context.Background(), "missing", TurnUpdate{Status: StatusActive})
	if err != ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestStoreAppendMessage(t *testing.T) {
	store, mock := newMockStore(t)

	conf := 0.85
	mock.ExpectQuery("INSERT INTO orion\\.orion_messages").
		WithArgs(sqlmock.AnyArg(), "s1", SenderBot, "An answer.", 0.85).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now().UTC()))

	msg, err := store.AppendMessage(context.Background(), Message{
		SessionID:  "s1",
		Sender:     SenderBot,
		Text:       "An answer.",
		Confidence: &conf,
	})
	if err != nil {
		t.Fatalf("append message: %v", err)
	}
	if msg.ID == "" {
		t.Fatal("expected generated id")
	}
}

func TestStoreConversationMessageCount(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("s1", SenderUser, SenderBot).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := store.ConversationMessageCount(context.Background(), "s1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 4 {
		t.Fatalf("expected 4, got %d", count)
	}
}

func TestStoreRecentMessagesZeroLimit(t *testing.T) {
	store, _ := newMockStore(t)

	messages, err := store.RecentMessages(context.Background(), "s1", 0)
	if err != nil {
		t.Fatalf("recent messages: %v", err)
	}
	if messages != nil {
		t.Fatalf("expected nil, got %v", messages)
	}
}
