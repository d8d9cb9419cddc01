package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"net/http"
	"strings"
	"time"
)

// DefaultEmbeddingDimensions is the fixed output size requested from the
// embedding oracle. Stored FAQ vectors must match it.
const DefaultEmbeddingDimensions = 768

// EmbeddingClient maps text to fixed-length, L2-normalized vectors.
type EmbeddingClient interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

func NewEmbeddingClient(cfg Config) (EmbeddingClient, error) {
	switch strings.ToLower(cfg.Provider) {
	case "gemini":
		return newGeminiEmbeddingClient(cfg), nil
	case "mock", "":
		return &mockEmbeddingClient{dimensions: DefaultEmbeddingDimensions}, nil
	default:
		return nil, fmt.Errorf("embedding provider %q is not supported", cfg.Provider)
	}
}

type geminiEmbeddingClient struct {
	client     *http.Client
	apiKey     string
	apiURL     string
	model      string
	dimensions int
}

func newGeminiEmbeddingClient(cfg Config) *geminiEmbeddingClient {
	apiURL := strings.TrimRight(cfg.APIURL, "/")
	if apiURL == "" {
		apiURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-embedding-001"
	}
	return &geminiEmbeddingClient{
		client:     &http.Client{Timeout: 120 * time.Second},
		apiKey:     cfg.APIKey,
		apiURL:     apiURL,
		model:      model,
		dimensions: DefaultEmbeddingDimensions,
	}
}

type geminiEmbedRequest struct {
	Requests []geminiEmbedSingle `json:"requests"`
}

type geminiEmbedSingle struct {
	Model                string        `json:"model"`
	Content              geminiContent `json:"content"`
	OutputDimensionality int           `json:"outputDimensionality"`
}

type geminiEmbedResponse struct {
	Embeddings []struct {
		Values []float32 `json:"values"`
	} `json:"embeddings"`
}

func (c *geminiEmbeddingClient) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, errors.New("inputs are required")
	}

	reqBody := geminiEmbedRequest{Requests: make([]geminiEmbedSingle, 0, len(inputs))}
	for _, input := range inputs {
		reqBody.Requests = append(reqBody.Requests, geminiEmbedSingle{
			Model:                "models/" + c.model,
			Content:              geminiContent{Parts: []geminiPart{{Text: input}}},
			OutputDimensionality: c.dimensions,
		})
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("gemini embed: marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:batchEmbedContents", c.apiURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("gemini embed: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-goog-api-key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini embed: request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("gemini embed: unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var decoded geminiEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("gemini embed: decode response: %w", err)
	}
	if len(decoded.Embeddings) != len(inputs) {
		return nil, fmt.Errorf("gemini embed: expected %d embeddings, got %d", len(inputs), len(decoded.Embeddings))
	}

	vectors := make([][]float32, len(decoded.Embeddings))
	for i, emb := range decoded.Embeddings {
		vectors[i] = NormalizeVector(emb.Values)
	}
	return vectors, nil
}

// mockEmbeddingClient produces deterministic pseudo-embeddings from a token
// hash. Texts sharing tokens share vector mass, so cosine similarity behaves
// directionally like a real model. Offline use only.
type mockEmbeddingClient struct {
	dimensions int
}

func (c *mockEmbeddingClient) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, errors.New("inputs are required")
	}
	vectors := make([][]float32, len(inputs))
	for i, input := range inputs {
		vec := make([]float32, c.dimensions)
		for _, token := range strings.Fields(strings.ToLower(input)) {
			h := fnv.New32a()
			_, _ = h.Write([]byte(token))
			vec[int(h.Sum32())%c.dimensions] += 1
		}
		vectors[i] = NormalizeVector(vec)
	}
	return vectors, nil
}

// NormalizeVector scales a vector to unit L2 norm. Zero vectors are returned
// unchanged.
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
