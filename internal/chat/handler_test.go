package chat

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"

	"github.com/atharvwasthere/Orion/internal/engine"
	"github.com/atharvwasthere/Orion/internal/session"
	"github.com/atharvwasthere/Orion/pkg/llm"
	"github.com/atharvwasthere/Orion/pkg/logging"
)

func setupHandler(t *testing.T, provider *fakeProvider) (*gin.Engine, *Handler, sqlmock.Sqlmock) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	pipeline, mock, _ := newTestPipeline(t, provider, engine.DefaultConfig())
	handler, err := NewHandler(pipeline, pipeline.sessions, logging.NewLogger())
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	router := gin.New()
	handler.RegisterRoutes(router)
	return router, handler, mock
}

func TestHandlerPostMessageValidation(t *testing.T) {
	router, _, _ := setupHandler(t, &fakeProvider{})

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/v1/sessions/s1/messages", strings.NewReader(`{"text":"   "}`))
	request.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(recorder, request)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank text, got %d", recorder.Code)
	}

	recorder = httptest.NewRecorder()
	long := strings.Repeat("a", maxMessageRunes+1)
	request = httptest.NewRequest(http.MethodPost, "/v1/sessions/s1/messages", strings.NewReader(`{"text":"`+long+`"}`))
	request.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(recorder, request)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized text, got %d", recorder.Code)
	}
}

func TestHandlerPostMessageUnknownSession(t *testing.T) {
	router, _, mock := setupHandler(t, &fakeProvider{})

	mock.ExpectQuery("FROM orion\\.orion_sessions").WithArgs("missing").WillReturnRows(pipelineSessionRows())

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/v1/sessions/missing/messages", strings.NewReader(`{"text":"hello"}`))
	request.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(recorder, request)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", recorder.Code)
	}
}

func TestHandlerPostMessageClosedSession(t *testing.T) {
	router, _, mock := setupHandler(t, &fakeProvider{})

	now := time.Now().UTC()
	mock.ExpectQuery("FROM orion\\.orion_sessions").WithArgs("s1").WillReturnRows(
		pipelineSessionRows().AddRow("s1", "c1", "alice", session.StatusClosed, nil, 1.0, 0.5, 0, 0, 0, nil, now, now))

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/v1/sessions/s1/messages", strings.NewReader(`{"text":"hello"}`))
	request.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(recorder, request)
	if recorder.Code != http.StatusConflict {
		t.Fatalf("expected 409 for closed session, got %d", recorder.Code)
	}
}

func TestHandlerPostMessageProcessesTurn(t *testing.T) {
	provider := &fakeProvider{reply: llm.Reply{Text: "Click the forgot password link.", Confidence: fptr(0.9)}}
	router, _, mock := setupHandler(t, provider)

	now := time.Now().UTC()
	expectTurnPreamble(mock, session.StatusActive, "How do I reset my password")
	mock.ExpectQuery("INSERT INTO orion\\.orion_messages").
		WithArgs(sqlmock.AnyArg(), "s1", session.SenderBot, "Click the forgot password link.", 0.9).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))
	mock.ExpectExec("UPDATE orion\\.orion_sessions").
		WithArgs("s1", sqlmock.AnyArg(), sqlmock.AnyArg(), session.StatusActive, nil, 0, 0, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT COUNT").WithArgs("s1", session.SenderUser, session.SenderBot).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodPost, "/v1/sessions/s1/messages",
		strings.NewReader(`{"text":"How do I reset my password"}`))
	request.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(recorder, request)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", recorder.Code, recorder.Body.String())
	}

	var response turnResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if response.BotMessage.Text != "Click the forgot password link." {
		t.Fatalf("unexpected bot message: %q", response.BotMessage.Text)
	}
	if response.Escalated {
		t.Fatal("turn should not escalate")
	}
	if response.Status != session.StatusActive {
		t.Fatalf("unexpected status: %s", response.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestHandlerListMessages(t *testing.T) {
	router, _, mock := setupHandler(t, &fakeProvider{})

	now := time.Now().UTC()
	mock.ExpectQuery("FROM orion\\.orion_sessions").WithArgs("s1").WillReturnRows(
		pipelineSessionRows().AddRow("s1", "c1", "alice", session.StatusActive, nil, 1.0, 0.5, 0, 0, 0, nil, now, now))
	mock.ExpectQuery("FROM orion\\.orion_messages").WithArgs("s1", session.SenderBot).WillReturnRows(
		pipelineMessageRows().AddRow("m2", "s1", session.SenderBot, "Click the forgot password link.", 0.9, now))

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/v1/sessions/s1/messages?sender=bot", nil)
	router.ServeHTTP(recorder, request)
	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}

	var response []messageResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(response) != 1 || response[0].Sender != session.SenderBot {
		t.Fatalf("unexpected messages: %+v", response)
	}
}

func TestHandlerListMessagesRejectsBadSender(t *testing.T) {
	router, _, _ := setupHandler(t, &fakeProvider{})

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/v1/sessions/s1/messages?sender=alien", nil)
	router.ServeHTTP(recorder, request)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad sender filter, got %d", recorder.Code)
	}
}

func TestLockRegistrySerializesSameKey(t *testing.T) {
	var registry lockRegistry
	var inside atomic.Int32
	var overlaps atomic.Int32
	var wg sync.WaitGroup

	// Staggered acquire/release cycles exercise handoff between a holder,
	// a waiter that already fetched the lock, and fresh arrivals.
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lock := registry.acquire("s1")
			if inside.Add(1) > 1 {
				overlaps.Add(1)
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			registry.release("s1", lock)
		}()
	}
	wg.Wait()

	if got := overlaps.Load(); got != 0 {
		t.Fatalf("critical section overlapped %d times", got)
	}

	registry.mu.Lock()
	remaining := len(registry.locks)
	registry.mu.Unlock()
	if remaining != 0 {
		t.Fatalf("expected lock map reclaimed after last release, %d entries left", remaining)
	}
}

func TestLockRegistryDistinctKeysIndependent(t *testing.T) {
	var registry lockRegistry

	a := registry.acquire("a")
	done := make(chan struct{})
	go func() {
		b := registry.acquire("b")
		registry.release("b", b)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("acquiring a different key blocked behind an unrelated holder")
	}
	registry.release("a", a)
}
