package knowledge

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/atharvwasthere/Orion/internal/engine"
)

var (
	ErrCompanyNotFound = errors.New("company not found")
	ErrFAQNotFound     = errors.New("faq not found")
)

type Company struct {
	ID        string
	Name      string
	Profile   *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type FAQ struct {
	ID        string
	CompanyID string
	Question  string
	Answer    string
	Tags      []string
	Embedding []float32
	CreatedAt time.Time
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateCompany(ctx context.Context, name string) (Company, error) {
	if name == "" {
		return Company{}, errors.New("company name is required")
	}
	company := Company{ID: uuid.NewString(), Name: name}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO orion.orion_companies (id, name)
		VALUES ($1, $2)
		RETURNING created_at, updated_at
	`, company.ID, company.Name).Scan(&company.CreatedAt, &company.UpdatedAt)
	if err != nil {
		return Company{}, fmt.Errorf("create company: %w", err)
	}
	return company, nil
}

func (s *Store) GetCompany(ctx context.Context, id string) (Company, error) {
	var company Company
	var profile sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, profile, created_at, updated_at
		FROM orion.orion_companies
		WHERE id = $1
	`, id).Scan(&company.ID, &company.Name, &profile, &company.CreatedAt, &company.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Company{}, ErrCompanyNotFound
	}
	if err != nil {
		return Company{}, fmt.Errorf("get company: %w", err)
	}
	if profile.Valid {
		company.Profile = &profile.String
	}
	return company, nil
}

func (s *Store) ListCompanies(ctx context.Context) ([]Company, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, profile, created_at, updated_at
		FROM orion.orion_companies
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	var companies []Company
	for rows.Next() {
		var company Company
		var profile sql.NullString
		if err := rows.Scan(&company.ID, &company.Name, &profile, &company.CreatedAt, &company.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		if profile.Valid {
			company.Profile = &profile.String
		}
		companies = append(companies, company)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate companies: %w", err)
	}
	return companies, nil
}

func (s *Store) RenameCompany(ctx context.Context, id, name string) error {
	if name == "" {
		return errors.New("company name is required")
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE orion.orion_companies SET name = $2, updated_at = now() WHERE id = $1
	`, id, name)
	if err != nil {
		return fmt.Errorf("rename company: %w", err)
	}
	return requireRow(result, ErrCompanyNotFound)
}

func (s *Store) DeleteCompany(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM orion.orion_companies WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("delete company: %w", err)
	}
	return requireRow(result, ErrCompanyNotFound)
}

// SetProfile stores a freshly generated company profile.
func (s *Store) SetProfile(ctx context.Context, companyID, profile string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE orion.orion_companies SET profile = $2, updated_at = now() WHERE id = $1
	`, companyID, profile)
	if err != nil {
		return fmt.Errorf("set company profile: %w", err)
	}
	return requireRow(result, ErrCompanyNotFound)
}

func (s *Store) CreateFAQ(ctx context.Context, faq FAQ) (FAQ, error) {
	if faq.CompanyID == "" {
		return FAQ{}, errors.New("company id is required")
	}
	if faq.Question == "" || faq.Answer == "" {
		return FAQ{}, errors.New("question and answer are required")
	}
	faq.ID = uuid.NewString()
	if faq.Tags == nil {
		faq.Tags = []string{}
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO orion.orion_faqs (id, company_id, question, answer, tags, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, faq.ID, faq.CompanyID, faq.Question, faq.Answer, pq.Array(faq.Tags), vectorParam(faq.Embedding)).Scan(&faq.CreatedAt)
	if err != nil {
		return FAQ{}, fmt.Errorf("create faq: %w", err)
	}
	return faq, nil
}

// CreateFAQs inserts a batch of FAQs in a single transaction. Either all
// rows land or none do.
func (s *Store) CreateFAQs(ctx context.Context, faqs []FAQ) ([]FAQ, error) {
	if len(faqs) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO orion.orion_faqs (id, company_id, question, answer, tags, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
	`)
	if err != nil {
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	created := make([]FAQ, 0, len(faqs))
	for _, faq := range faqs {
		if faq.CompanyID == "" {
			return nil, errors.New("company id is required")
		}
		if faq.Question == "" || faq.Answer == "" {
			return nil, errors.New("question and answer are required")
		}
		faq.ID = uuid.NewString()
		if faq.Tags == nil {
			faq.Tags = []string{}
		}
		if _, err := stmt.ExecContext(ctx, faq.ID, faq.CompanyID, faq.Question, faq.Answer,
			pq.Array(faq.Tags), vectorParam(faq.Embedding)); err != nil {
			return nil, fmt.Errorf("insert faq: %w", err)
		}
		created = append(created, faq)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return created, nil
}

func (s *Store) GetFAQ(ctx context.Context, companyID, faqID string) (FAQ, error) {
	var faq FAQ
	var tags pq.StringArray
	var embedding nullableVector
	err := s.db.QueryRowContext(ctx, `
		SELECT id, company_id, question, answer, tags, embedding, created_at
		FROM orion.orion_faqs
		WHERE id = $1 AND company_id = $2
	`, faqID, companyID).Scan(&faq.ID, &faq.CompanyID, &faq.Question, &faq.Answer, &tags, &embedding, &faq.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return FAQ{}, ErrFAQNotFound
	}
	if err != nil {
		return FAQ{}, fmt.Errorf("get faq: %w", err)
	}
	faq.Tags = tags
	faq.Embedding = embedding.slice()
	return faq, nil
}

func (s *Store) ListFAQs(ctx context.Context, companyID string) ([]FAQ, error) {
	if companyID == "" {
		return nil, errors.New("company id is required")
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, company_id, question, answer, tags, embedding, created_at
		FROM orion.orion_faqs
		WHERE company_id = $1
		ORDER BY created_at DESC
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("list faqs: %w", err)
	}
	defer rows.Close()

	var faqs []FAQ
	for rows.Next() {
		var faq FAQ
		var tags pq.StringArray
		var embedding nullableVector
		if err := rows.Scan(&faq.ID, &faq.CompanyID, &faq.Question, &faq.Answer, &tags, &embedding, &faq.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan faq: %w", err)
		}
		faq.Tags = tags
		faq.Embedding = embedding.slice()
		faqs = append(faqs, faq)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate faqs: %w", err)
	}
	return faqs, nil
}

func (s *Store) UpdateFAQ(ctx context.Context, faq FAQ) error {
	if faq.Question == "" || faq.Answer == "" {
		return errors.New("question and answer are required")
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE orion.orion_faqs
		SET question = $3, answer = $4, tags = $5, embedding = $6
		WHERE id = $1 AND company_id = $2
	`, faq.ID, faq.CompanyID, faq.Question, faq.Answer, pq.Array(faq.Tags), vectorParam(faq.Embedding))
	if err != nil {
		return fmt.Errorf("update faq: %w", err)
	}
	return requireRow(result, ErrFAQNotFound)
}

func (s *Store) DeleteFAQ(ctx context.Context, companyID, faqID string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM orion.orion_faqs WHERE id = $1 AND company_id = $2
	`, faqID, companyID)
	if err != nil {
		return fmt.Errorf("delete faq: %w", err)
	}
	return requireRow(result, ErrFAQNotFound)
}

// KnowledgeItems loads a company's FAQs in the shape the matching engine
// consumes.
func (s *Store) KnowledgeItems(ctx context.Context, companyID string) ([]engine.KnowledgeItem, error) {
	faqs, err := s.ListFAQs(ctx, companyID)
	if err != nil {
		return nil, err
	}
	items := make([]engine.KnowledgeItem, 0, len(faqs))
	for _, faq := range faqs {
		items = append(items, engine.KnowledgeItem{
			ID:        faq.ID,
			Question:  faq.Question,
			Answer:    faq.Answer,
			Tags:      faq.Tags,
			Embedding: faq.Embedding,
		})
	}
	return items, nil
}

// vectorParam maps an empty embedding to SQL NULL so rows written while the
// embedding oracle was unavailable still land.
func vectorParam(v []float32) any {
	if len(v) == 0 {
		return nil
	}
	return pgvector.NewVector(v)
}

// nullableVector scans a vector column that may be NULL.
type nullableVector struct {
	vec   pgvector.Vector
	valid bool
}

func (n *nullableVector) Scan(src any) error {
	if src == nil {
		n.valid = false
		return nil
	}
	n.valid = true
	return n.vec.Scan(src)
}

func (n *nullableVector) slice() []float32 {
	if !n.valid {
		return nil
	}
	return n.vec.Slice()
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
