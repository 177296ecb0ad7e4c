package ocr

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

// Client sends scanned documents to an external OCR service and maps
// the response back onto per-page text. It implements the same page
// loader port as the PDF text extractor.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Minute},
	}
}

func (c *Client) LoadPages(ctx context.Context, path string) ([]domain.Page, error) {
	reqBody, err := json.Marshal(map[string]any{"path": path})
	if err != nil {
		return nil, fmt.Errorf("marshal ocr request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ocr", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create ocr request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "ocr", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if msg := strings.TrimSpace(string(body)); msg != "" {
			return nil, fmt.Errorf("ocr status: %s: %s", resp.Status, msg)
		}
		return nil, fmt.Errorf("ocr status: %s", resp.Status)
	}

	var ocrResp struct {
		Pages []struct {
			Page int    `json:"page"`
			Text string `json:"text"`
		} `json:"pages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ocrResp); err != nil {
		return nil, fmt.Errorf("decode ocr response: %w", err)
	}

	pages := make([]domain.Page, 0, len(ocrResp.Pages))
	for _, p := range ocrResp.Pages {
		pages = append(pages, domain.Page{Number: p.Page, Text: p.Text, SourcePath: path})
	}
	return pages, nil
}
