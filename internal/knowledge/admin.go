package knowledge

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/atharvwasthere/Orion/internal/tasks"
	"github.com/atharvwasthere/Orion/pkg/logging"
)

// AdminAPI exposes company and FAQ management over HTTP. FAQ writes embed
// the new text inline and queue a background profile regeneration so the
// condensed company context keeps up with the knowledge base.
type AdminAPI struct {
	store    *Store
	embedder *Embedder
	profiles *ProfileGenerator
	runner   *tasks.Runner
	logger   logging.Logger
}

type companyRequest struct {
	Name string `json:"name"`
}

type companyResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Profile   *string `json:"profile,omitempty"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

type faqRequest struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Tags     []string `json:"tags"`
}

type bulkFAQRequest struct {
	FAQs []faqRequest `json:"faqs"`
}

type faqResponse struct {
	ID        string   `json:"id"`
	CompanyID string   `json:"company_id"`
	Question  string   `json:"question"`
	Answer    string   `json:"answer"`
	Tags      []string `json:"tags"`
	Embedded  bool     `json:"embedded"`
	CreatedAt string   `json:"created_at"`
}

func NewAdminAPI(store *Store, embedder *Embedder, profiles *ProfileGenerator, runner *tasks.Runner, logger logging.Logger) (*AdminAPI, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if profiles == nil {
		return nil, errors.New("profile generator is required")
	}
	if runner == nil {
		return nil, errors.New("task runner is required")
	}
	return &AdminAPI{
		store:    store,
		embedder: embedder,
		profiles: profiles,
		runner:   runner,
		logger:   logger,
	}, nil
}

func (a *AdminAPI) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/v1/companies")

	group.POST("", a.handleCreateCompany)
	group.GET("", a.handleListCompanies)
	group.GET("/:companyId", a.handleGetCompany)
	group.PUT("/:companyId", a.handleRenameCompany)
	group.DELETE("/:companyId", a.handleDeleteCompany)
	group.POST("/:companyId/profile", a.handleRegenerateProfile)

	group.POST("/:companyId/faqs", a.handleCreateFAQ)
	group.POST("/:companyId/faqs/bulk", a.handleBulkCreateFAQs)
	group.GET("/:companyId/faqs", a.handleListFAQs)
	group.GET("/:companyId/faqs/:faqId", a.handleGetFAQ)
	group.PUT("/:companyId/faqs/:faqId", a.handleUpdateFAQ)
	group.DELETE("/:companyId/faqs/:faqId", a.handleDeleteFAQ)
}

func (a *AdminAPI) handleCreateCompany(c *gin.Context) {
	var req companyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	company, err := a.store.CreateCompany(c.Request.Context(), strings.TrimSpace(req.Name))
	if err != nil {
		a.logger.WithError(err).Warn("Failed to create company")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create company"})
		return
	}
	c.JSON(http.StatusCreated, toCompanyResponse(company))
}

func (a *AdminAPI) handleListCompanies(c *gin.Context) {
	companies, err := a.store.ListCompanies(c.Request.Context())
	if err != nil {
		a.logger.WithError(err).Warn("Failed to list companies")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list companies"})
		return
	}
	response := make([]companyResponse, 0, len(companies))
	for _, company := range companies {
		response = append(response, toCompanyResponse(company))
	}
	c.JSON(http.StatusOK, response)
}

func (a *AdminAPI) handleGetCompany(c *gin.Context) {
	company, err := a.store.GetCompany(c.Request.Context(), c.Param("companyId"))
	if errors.Is(err, ErrCompanyNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "company not found"})
		return
	}
	if err != nil {
		a.logger.WithError(err).Warn("Failed to fetch company")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch company"})
		return
	}
	c.JSON(http.StatusOK, toCompanyResponse(company))
}

func (a *AdminAPI) handleRenameCompany(c *gin.Context) {
	var req companyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	companyID := c.Param("companyId")
	err := a.store.RenameCompany(c.Request.Context(), companyID, strings.TrimSpace(req.Name))
	if errors.Is(err, ErrCompanyNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "company not found"})
		return
	}
	if err != nil {
		a.logger.WithError(err).Warn("Failed to rename company")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to rename company"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (a *AdminAPI) handleDeleteCompany(c *gin.Context) {
	err := a.store.DeleteCompany(c.Request.Context(), c.Param("companyId"))
	if errors.Is(err, ErrCompanyNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "company not found"})
		return
	}
	if err != nil {
		a.logger.WithError(err).Warn("Failed to delete company")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete company"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (a *AdminAPI) handleRegenerateProfile(c *gin.Context) {
	companyID := c.Param("companyId")
	if _, err := a.store.GetCompany(c.Request.Context(), companyID); err != nil {
		if errors.Is(err, ErrCompanyNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "company not found"})
			return
		}
		a.logger.WithError(err).Warn("Failed to fetch company")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch company"})
		return
	}

	profile, err := a.profiles.Regenerate(c.Request.Context(), companyID)
	if err != nil {
		a.logger.WithError(err).WithField("company_id", companyID).Warn("Failed to regenerate company profile")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to regenerate profile"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

func (a *AdminAPI) handleCreateFAQ(c *gin.Context) {
	var req faqRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Question) == "" || strings.TrimSpace(req.Answer) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question and answer are required"})
		return
	}
	companyID := c.Param("companyId")
	if !a.requireCompany(c, companyID) {
		return
	}

	embedding, err := a.embedder.EmbedFAQ(c.Request.Context(), req.Question, req.Answer)
	if err != nil {
		// Store the FAQ anyway; vector search skips it until re-embedded.
		a.logger.WithError(err).Warn("Failed to embed FAQ")
		embedding = nil
	}

	faq, err := a.store.CreateFAQ(c.Request.Context(), FAQ{
		CompanyID: companyID,
		Question:  req.Question,
		Answer:    req.Answer,
		Tags:      req.Tags,
		Embedding: embedding,
	})
	if err != nil {
		a.logger.WithError(err).Warn("Failed to create FAQ")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create faq"})
		return
	}

	a.queueProfileRegen(companyID)
	c.JSON(http.StatusCreated, toFAQResponse(faq))
}

func (a *AdminAPI) handleBulkCreateFAQs(c *gin.Context) {
	var req bulkFAQRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if len(req.FAQs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "faqs array is required and must not be empty"})
		return
	}
	for _, faq := range req.FAQs {
		if strings.TrimSpace(faq.Question) == "" || strings.TrimSpace(faq.Answer) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "every faq needs a question and an answer"})
			return
		}
	}
	companyID := c.Param("companyId")
	if !a.requireCompany(c, companyID) {
		return
	}

	faqs := make([]FAQ, 0, len(req.FAQs))
	for _, r := range req.FAQs {
		faqs = append(faqs, FAQ{
			CompanyID: companyID,
			Question:  r.Question,
			Answer:    r.Answer,
			Tags:      r.Tags,
		})
	}

	// One batched oracle call for the whole upload.
	embeddings, err := a.embedder.EmbedFAQBatch(c.Request.Context(), faqs)
	if err != nil {
		a.logger.WithError(err).Warn("Failed to embed FAQ batch")
	} else {
		for i := range faqs {
			faqs[i].Embedding = embeddings[i]
		}
	}

	created, err := a.store.CreateFAQs(c.Request.Context(), faqs)
	if err != nil {
		a.logger.WithError(err).Warn("Failed to store FAQ batch")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store faqs"})
		return
	}

	a.queueProfileRegen(companyID)

	response := make([]faqResponse, 0, len(created))
	for _, faq := range created {
		response = append(response, toFAQResponse(faq))
	}
	c.JSON(http.StatusCreated, gin.H{"created": len(created), "faqs": response})
}

func (a *AdminAPI) handleListFAQs(c *gin.Context) {
	companyID := c.Param("companyId")
	if !a.requireCompany(c, companyID) {
		return
	}
	faqs, err := a.store.ListFAQs(c.Request.Context(), companyID)
	if err != nil {
		a.logger.WithError(err).Warn("Failed to list FAQs")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list faqs"})
		return
	}
	response := make([]faqResponse, 0, len(faqs))
	for _, faq := range faqs {
		response = append(response, toFAQResponse(faq))
	}
	c.JSON(http.StatusOK, response)
}

func (a *AdminAPI) handleGetFAQ(c *gin.Context) {
	faq, err := a.store.GetFAQ(c.Request.Context(), c.Param("companyId"), c.Param("faqId"))
	if errors.Is(err, ErrFAQNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "faq not found"})
		return
	}
	if err != nil {
		a.logger.WithError(err).Warn("Failed to fetch FAQ")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch faq"})
		return
	}
	c.JSON(http.StatusOK, toFAQResponse(faq))
}

func (a *AdminAPI) handleUpdateFAQ(c *gin.Context) {
	var req faqRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	companyID := c.Param("companyId")
	faqID := c.Param("faqId")

	existing, err := a.store.GetFAQ(c.Request.Context(), companyID, faqID)
	if errors.Is(err, ErrFAQNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "faq not found"})
		return
	}
	if err != nil {
		a.logger.WithError(err).Warn("Failed to fetch FAQ")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch faq"})
		return
	}

	contentChanged := false
	if strings.TrimSpace(req.Question) != "" && req.Question != existing.Question {
		existing.Question = req.Question
		contentChanged = true
	}
	if strings.TrimSpace(req.Answer) != "" && req.Answer != existing.Answer {
		existing.Answer = req.Answer
		contentChanged = true
	}
	if req.Tags != nil {
		existing.Tags = req.Tags
	}

	if contentChanged {
		embedding, err := a.embedder.EmbedFAQ(c.Request.Context(), existing.Question, existing.Answer)
		if err != nil {
			a.logger.WithError(err).Warn("Failed to re-embed FAQ")
			embedding = nil
		}
		existing.Embedding = embedding
	}

	if err := a.store.UpdateFAQ(c.Request.Context(), existing); err != nil {
		a.logger.WithError(err).Warn("Failed to update FAQ")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update faq"})
		return
	}

	if contentChanged {
		a.queueProfileRegen(companyID)
	}
	c.JSON(http.StatusOK, toFAQResponse(existing))
}

func (a *AdminAPI) handleDeleteFAQ(c *gin.Context) {
	companyID := c.Param("companyId")
	err := a.store.DeleteFAQ(c.Request.Context(), companyID, c.Param("faqId"))
	if errors.Is(err, ErrFAQNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "faq not found"})
		return
	}
	if err != nil {
		a.logger.WithError(err).Warn("Failed to delete FAQ")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete faq"})
		return
	}
	a.queueProfileRegen(companyID)
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (a *AdminAPI) requireCompany(c *gin.Context, companyID string) bool {
	_, err := a.store.GetCompany(c.Request.Context(), companyID)
	if errors.Is(err, ErrCompanyNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "company not found"})
		return false
	}
	if err != nil {
		a.logger.WithError(err).Warn("Failed to fetch company")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch company"})
		return false
	}
	return true
}

func (a *AdminAPI) queueProfileRegen(companyID string) {
	a.runner.Submit("profile:"+companyID, func(ctx context.Context) error {
		_, err := a.profiles.Regenerate(ctx, companyID)
		return err
	})
}

func toCompanyResponse(company Company) companyResponse {
	return companyResponse{
		ID:        company.ID,
		Name:      company.Name,
		Profile:   company.Profile,
		CreatedAt: company.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: company.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toFAQResponse(faq FAQ) faqResponse {
	tags := faq.Tags
	if tags == nil {
		tags = []string{}
	}
	return faqResponse{
		ID:        faq.ID,
		CompanyID: faq.CompanyID,
		Question:  faq.Question,
		Answer:    faq.Answer,
		Tags:      tags,
		Embedded:  len(faq.Embedding) > 0,
		CreatedAt: faq.CreatedAt.UTC().Format(time.RFC3339),
	}
}
