package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/procurex/tendersearch/internal/core/domain"
)

// Client talks to qdrant over its REST API. The REST surface keeps the
// dependency footprint small and is sufficient for the handful of
// collection and point operations this service needs.
type Client struct {
	baseURL      string
	collection   string
	hnswEfSearch int
	httpClient   *http.Client
}

func New(baseURL, collection string, hnswEfSearch int) *Client {
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		collection:   collection,
		hnswEfSearch: hnswEfSearch,
		httpClient:   &http.Client{Timeout: 60 * time.Second},
	}
}

// Create provisions the collection with cosine distance at the given
// dimension. Creating an already existing collection is not an error.
func (c *Client) Create(ctx context.Context, dim int) error {
	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     dim,
			"distance": "Cosine",
		},
	}
	url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection)
	resp, err := c.doJSON(ctx, http.MethodPut, url, reqBody)
	if err != nil {
		return fmt.Errorf("qdrant create collection: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return nil
	}
	return c.checkStatus(resp, "create collection")
}

// Drop deletes the collection. A missing collection is not an error so
// that fresh builds work against an empty server.
func (c *Client) Drop(ctx context.Context) error {
	url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("create drop request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant drop collection: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	return c.checkStatus(resp, "drop collection")
}

// CollectionDim reads the live collection's configured vector size.
func (c *Client) CollectionDim(ctx context.Context) (int, error) {
	url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("create collection info request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("qdrant collection info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, domain.WrapError(domain.ErrNotFound, "collection info",
			fmt.Errorf("collection %s does not exist", c.collection))
	}
	if err := c.checkStatus(resp, "collection info"); err != nil {
		return 0, err
	}

	var infoResp struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&infoResp); err != nil {
		return 0, fmt.Errorf("decode collection info: %w", err)
	}
	return infoResp.Result.Config.Params.Vectors.Size, nil
}

// Upsert writes a point batch without waiting for qdrant to finish
// applying it. Point ids are deterministic, so re-applying a batch is
// an overwrite, never a duplicate.
func (c *Client) Upsert(ctx context.Context, points []domain.Point) error {
	if len(points) == 0 {
		return nil
	}

	type point struct {
		ID      string         `json:"id"`
		Vector  []float32      `json:"vector"`
		Payload domain.Payload `json:"payload"`
	}
	batch := make([]point, 0, len(points))
	for _, p := range points {
		batch = append(batch, point{ID: p.ID, Vector: p.Vector, Payload: p.Payload})
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=false", c.baseURL, c.collection)
	resp, err := c.doJSON(ctx, http.MethodPut, url, map[string]any{"points": batch})
	if err != nil {
		return fmt.Errorf("qdrant upsert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.WrapError(domain.ErrNotFound, "upsert",
			fmt.Errorf("collection %s does not exist", c.collection))
	}
	return c.checkStatus(resp, "upsert")
}

// Search runs a dense query with explicit HNSW breadth. minScore maps
// to qdrant's score_threshold, so thresholding happens server-side
// before any fusion.
func (c *Client) Search(ctx context.Context, vector []float32, limit int, minScore float64) ([]domain.Hit, error) {
	reqBody := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
		"params": map[string]any{
			"hnsw_ef": c.hnswEfSearch,
		},
	}
	if minScore > 0 {
		reqBody["score_threshold"] = minScore
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	resp, err := c.doJSON(ctx, http.MethodPost, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp, "search"); err != nil {
		return nil, err
	}

	var searchResp struct {
		Result []struct {
			ID      string         `json:"id"`
			Score   float64        `json:"score"`
			Payload domain.Payload `json:"payload"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]domain.Hit, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		out = append(out, domain.Hit{
			ID:      r.ID,
			Text:    r.Payload.Text,
			Score:   r.Score,
			Payload: r.Payload,
		})
	}
	return out, nil
}

const scrollPageSize = 512

// Scroll pages through every point's id and payload. Vectors are not
// fetched; the lexical index rebuild only needs payload text.
func (c *Client) Scroll(ctx context.Context, fn func(id string, payload domain.Payload) error) error {
	url := fmt.Sprintf("%s/collections/%s/points/scroll", c.baseURL, c.collection)

	var offset any
	for {
		reqBody := map[string]any{
			"limit":        scrollPageSize,
			"with_payload": true,
			"with_vector":  false,
		}
		if offset != nil {
			reqBody["offset"] = offset
		}

		resp, err := c.doJSON(ctx, http.MethodPost, url, reqBody)
		if err != nil {
			return fmt.Errorf("qdrant scroll: %w", err)
		}

		var scrollResp struct {
			Result struct {
				Points []struct {
					ID      string         `json:"id"`
					Payload domain.Payload `json:"payload"`
				} `json:"points"`
				NextPageOffset any `json:"next_page_offset"`
			} `json:"result"`
		}
		if err := c.checkStatus(resp, "scroll"); err != nil {
			resp.Body.Close()
			return err
		}
		if err := json.NewDecoder(resp.Body).Decode(&scrollResp); err != nil {
			resp.Body.Close()
			return fmt.Errorf("decode scroll response: %w", err)
		}
		resp.Body.Close()

		for _, p := range scrollResp.Result.Points {
			if err := fn(p.ID, p.Payload); err != nil {
				return err
			}
		}
		if scrollResp.Result.NextPageOffset == nil {
			return nil
		}
		offset = scrollResp.Result.NextPageOffset
	}
}

// Count reports the exact number of stored points.
func (c *Client) Count(ctx context.Context) (int, error) {
	url := fmt.Sprintf("%s/collections/%s/points/count", c.baseURL, c.collection)
	resp, err := c.doJSON(ctx, http.MethodPost, url, map[string]any{"exact": true})
	if err != nil {
		return 0, fmt.Errorf("qdrant count: %w", err)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp, "count"); err != nil {
		return 0, err
	}

	var countResp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&countResp); err != nil {
		return 0, fmt.Errorf("decode count response: %w", err)
	}
	return countResp.Result.Count, nil
}

func (c *Client) doJSON(ctx context.Context, method, url string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.httpClient.Do(req)
}

func (c *Client) checkStatus(resp *http.Response, operation string) error {
	if resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return fmt.Errorf("qdrant %s status: %s: %s", operation, resp.Status, msg)
	}
	return fmt.Errorf("qdrant %s status: %s", operation, resp.Status)
}
