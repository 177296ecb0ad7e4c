package ollama

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/procurex/tendersearch/internal/core/domain"
	"github.com/procurex/tendersearch/internal/infrastructure/resilience"
)

const (
	// Asymmetric task prefixes for the embedding model. Passages and
	// queries must never share a prefix.
	docPrefix   = "search_document: "
	queryPrefix = "search_query: "
)

type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
}

func New(baseURL, genModel, embedModel string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// Embedder produces unit-normalized vectors truncated to the effective
// (Matryoshka) dimension. The model's native dimension is probed once
// via Init; a native dimension below the configured one is fatal.
type Embedder struct {
	client    *Client
	dim       int
	nativeDim int
	limiter   *rate.Limiter
	exec      *resilience.Executor
}

func NewEmbedder(client *Client, effectiveDim, rps int, exec *resilience.Executor) *Embedder {
	if rps <= 0 {
		rps = 1
	}
	return &Embedder{
		client:  client,
		dim:     effectiveDim,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		exec:    exec,
	}
}

// Init probes the embedding model's native dimension with a throwaway
// call and validates it against the configured effective dimension.
func (e *Embedder) Init(ctx context.Context) error {
	vectors, err := e.embedRaw(ctx, []string{docPrefix + "dimension probe"})
	if err != nil {
		return fmt.Errorf("probe embedding dimension: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return domain.WrapError(domain.ErrConfiguration, "embed probe",
			fmt.Errorf("model %s returned no embedding", e.client.embedModel))
	}
	e.nativeDim = len(vectors[0])
	if e.nativeDim < e.dim {
		return domain.WrapError(domain.ErrConfiguration, "embed probe",
			fmt.Errorf("model native dim %d is below configured dim %d", e.nativeDim, e.dim))
	}
	return nil
}

// Dim reports the effective post-truncation vector dimension.
func (e *Embedder) Dim() int {
	return e.dim
}

func (e *Embedder) EmbedPassages(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	prefixed := make([]string, 0, len(texts))
	for _, t := range texts {
		prefixed = append(prefixed, docPrefix+t)
	}
	vectors, err := e.embedRaw(ctx, prefixed)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embed returned %d vectors for %d texts", len(vectors), len(texts))
	}
	out := make([][]float32, 0, len(vectors))
	for _, v := range vectors {
		out = append(out, normalizeTruncate(v, e.dim))
	}
	return out, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embedRaw(ctx, []string{queryPrefix + text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return normalizeTruncate(vectors[0], e.dim), nil
}

func (e *Embedder) embedRaw(ctx context.Context, inputs []string) ([][]float32, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": inputs,
	}
	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	call := func(ctx context.Context) error {
		return e.client.postJSON(ctx, "/api/embed", request, &response, "embed")
	}

	var err error
	if e.exec != nil {
		err = e.exec.Execute(ctx, "ollama_embed", call, classifyOllamaError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, wrapTemporaryIfNeeded("embed", err)
	}
	return response.Embeddings, nil
}

// normalizeTruncate scales the vector to unit length and keeps the
// first dim components. The truncated prefix is intentionally NOT
// renormalized: Matryoshka-trained prefixes approximate cosine
// similarity as-is, and renormalizing would change stored geometry.
func normalizeTruncate(vec []float32, dim int) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum > 0 {
		norm := math.Sqrt(sum)
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	if dim > 0 && len(vec) > dim {
		vec = vec[:dim]
	}
	return vec
}

// Translator rewrites queries into the corpus language through the
// generate endpoint. Callers treat failures as soft: the untranslated
// query is still searchable.
type Translator struct {
	client *Client
	exec   *resilience.Executor
}

func NewTranslator(client *Client, exec *resilience.Executor) *Translator {
	return &Translator{client: client, exec: exec}
}

func (t *Translator) Translate(ctx context.Context, text string) (string, error) {
	reqBody := map[string]any{
		"model":  t.client.genModel,
		"prompt": buildTranslationPrompt(text),
		"stream": false,
	}
	var response struct {
		Response string `json:"response"`
	}
	call := func(ctx context.Context) error {
		return t.client.postJSON(ctx, "/api/generate", reqBody, &response, "translate")
	}

	var err error
	if t.exec != nil {
		err = t.exec.Execute(ctx, "ollama_translate", call, classifyOllamaError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", wrapTemporaryIfNeeded("translate", err)
	}

	translated := strings.TrimSpace(response.Response)
	if translated == "" {
		return "", fmt.Errorf("empty translation result")
	}
	return translated, nil
}
