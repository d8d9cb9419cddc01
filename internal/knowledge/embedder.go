package knowledge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atharvwasthere/Orion/pkg/llm"
)

// Embedder turns FAQ text and user queries into normalized vectors for
// similarity search.
type Embedder struct {
	client llm.EmbeddingClient
}

func NewEmbedder(client llm.EmbeddingClient) (*Embedder, error) {
	if client == nil {
		return nil, errors.New("embedding client is required")
	}
	return &Embedder{client: client}, nil
}

// EmbedFAQ embeds a question/answer pair as a single document. Question and
// answer are concatenated so the vector carries both phrasings.
func (e *Embedder) EmbedFAQ(ctx context.Context, question, answer string) ([]float32, error) {
	vecs, err := e.embed(ctx, []string{question + " " + answer})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedFAQBatch embeds many question/answer pairs in one oracle call.
func (e *Embedder) EmbedFAQBatch(ctx context.Context, faqs []FAQ) ([][]float32, error) {
	if len(faqs) == 0 {
		return nil, nil
	}
	inputs := make([]string, 0, len(faqs))
	for _, faq := range faqs {
		inputs = append(inputs, faq.Question+" "+faq.Answer)
	}
	return e.embed(ctx, inputs)
}

// EmbedQuery embeds a user query for retrieval.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *Embedder) embed(ctx context.Context, inputs []string) ([][]float32, error) {
	start := time.Now()
	vecs, err := e.client.Embed(ctx, inputs)
	embedDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		embedCallsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("embed: %w", err)
	}
	embedCallsTotal.WithLabelValues("ok").Inc()
	if len(vecs) != len(inputs) {
		return nil, fmt.Errorf("embed: expected %d vectors, got %d", len(inputs), len(vecs))
	}
	for i := range vecs {
		vecs[i] = llm.NormalizeVector(vecs[i])
	}
	return vecs, nil
}
