package knowledge

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
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

func TestStoreCreateCompany(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery("INSERT INTO orion\\.orion_companies").
		WithArgs(sqlmock.AnyArg(), "Acme").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	company, err := store.CreateCompany(context.Background(), "Acme")
	if err != nil {
		t.Fatalf("create company: %v", err)
	}
	if company.Name != "Acme" {
		t.Fatalf("unexpected name: %s", company.Name)
	}
	if company.ID == "" {
		t.Fatal("expected generated id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestStoreGetCompanyNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, name, profile").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "profile", "created_at", "updated_at"}))

	_, err := store.GetCompany(context.Background(), "missing")
	if err != ErrCompanyNotFound {
		t.Fatalf("expected ErrCompanyNotFound, got %v", err)
	}
}

func TestStoreCreateFAQ(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("INSERT INTO orion\\.orion_faqs").
		WithArgs(sqlmock.AnyArg(), "company", "Q", "A", pq.Array([]string{"billing"}), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now().UTC()))

	faq, err := store.CreateFAQ(context.Background(), FAQ{
		CompanyID: "company",
		Question:  "Q",
		Answer:    "A",
		Tags:      []string{"billing"},
		Embedding: []float32{0.1, 0.2},
	})
	if err != nil {
		t.Fatalf("create faq: %v", err)
	}
	if faq.ID == "" {
		t.Fatal("expected generated id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestStoreCreateFAQValidation(t *testing.T) {
	store, _ := newMockStore(t)

	if _, err := store.CreateFAQ(context.Background(), FAQ{CompanyID: "c", Question: "Q"}); err == nil {
		t.Fatal("expected error for missing answer")
	}
	if _, err := store.CreateFAQ(context.Background(), FAQ{Question: "Q", Answer: "A"}); err == nil {
		t.Fatal("expected error for missing company id")
	}
}

func TestStoreCreateFAQsTransaction(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectPrepare("INSERT INTO orion\\.orion_faqs")
	mock.ExpectExec("INSERT INTO orion\\.orion_faqs").
		WithArgs(sqlmock.AnyArg(), "company", "Q1", "A1", pq.Array([]string{}), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO orion\\.orion_faqs").
		WithArgs(sqlmock.AnyArg(), "company", "Q2", "A2", pq.Array([]string{}), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	created, err := store.CreateFAQs(context.Background(), []FAQ{
		{CompanyID: "company", Question: "Q1", Answer: "A1"},
		{CompanyID: "company", Question: "Q2", Answer: "A2"},
	})
	if err != nil {
		t.Fatalf("create faqs: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("expected 2 created, got %d", len(created))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestStoreListFAQsNullEmbedding(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"id", "company_id", "question", "answer", "tags", "embedding", "created_at"}).
		AddRow("f1", "company", "Q", "A", pq.Array([]string{"billing"}), nil, time.Now().UTC())
	mock.ExpectQuery("SELECT id, company_id, question").
		WithArgs("company").
		WillReturnRows(rows)

	faqs, err := store.ListFAQs(context.Background(), "company")
	if err != nil {
		t.Fatalf("list faqs: %v", err)
	}
	if len(faqs) != 1 {
		t.Fatalf("expected 1 faq, got %d", len(faqs))
	}
	if faqs[0].Embedding != nil {
		t.Fatalf("expected nil embedding for NULL column, got %v", faqs[0].Embedding)
	}
}

func TestStoreDeleteFAQNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM orion\\.orion_faqs").
		WithArgs("missing", "company").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.DeleteFAQ(context.Background(), "company", "missing"); err != ErrFAQNotFound {
		t.Fatalf("expected ErrFAQNotFound, got %v", err)
	}
}

func TestStoreSetProfile(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE orion\\.orion_companies SET profile").
		WithArgs("company", "A short profile").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.SetProfile(context.Background(), "company", "A short profile"); err != nil {
		t.Fatalf("set profile: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
