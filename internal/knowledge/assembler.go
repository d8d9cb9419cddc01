package knowledge

import (
	"context"
	"errors"
	"time"

	"github.com/atharvwasthere/Orion/internal/engine"
	"github.com/atharvwasthere/Orion/pkg/llm"
)

// Context is the prompt-side view of everything the bot knows that is
// relevant to one query: the condensed company profile plus the closest
// FAQ matches.
type Context struct {
	CompanyID   string
	CompanyName string
	Profile     string
	TopFAQs     []engine.ScoredItem
	Items       []engine.KnowledgeItem
}

// Assembler builds hybrid context by combining the stored company profile
// with top-k FAQ retrieval over embeddings.
type Assembler struct {
	store   *Store
	matcher *engine.Matcher
	topK    int
}

func NewAssembler(store *Store, embedder *Embedder, topK int) (*Assembler, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if topK <= 0 {
		return nil, errors.New("top-k must be positive")
	}
	return &Assembler{
		store:   store,
		matcher: engine.NewMatcher(embedder),
		topK:    topK,
	}, nil
}

// Assemble loads the company and its knowledge base and ranks the FAQs
// against the query. Storage failures and unknown companies are returned to
// the caller; a degraded embedding oracle only empties the top-k list.
func (a *Assembler) Assemble(ctx context.Context, companyID, query string) (Context, error) {
	start := time.Now()
	defer func() {
		contextAssemblyDuration.Observe(time.Since(start).Seconds())
	}()

	company, err := a.store.GetCompany(ctx, companyID)
	if err != nil {
		return Context{}, err
	}
	items, err := a.store.KnowledgeItems(ctx, companyID)
	if err != nil {
		return Context{}, err
	}

	result := Context{
		CompanyID:   company.ID,
		CompanyName: company.Name,
		Items:       items,
	}
	if company.Profile != nil {
		result.Profile = *company.Profile
	}
	if len(items) > 0 {
		result.TopFAQs = a.matcher.TopK(ctx, query, items, a.topK)
	}
	return result, nil
}

// Knowledge converts the top FAQ matches into the oracle's knowledge shape.
func (c Context) Knowledge() []llm.Knowledge {
	knowledge := make([]llm.Knowledge, 0, len(c.TopFAQs))
	for _, scored := range c.TopFAQs {
		knowledge = append(knowledge, llm.Knowledge{
			Question: scored.Item.Question,
			Answer:   scored.Item.Answer,
		})
	}
	return knowledge
}
