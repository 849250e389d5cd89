package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"law_process_app_go/services/process"
)

const (
	maxResultsPerSource   = 10
	metaSearchUnavailable = "El servicio de metabuscador no está disponible en este momento."
)

// MetaSearch proxies searches to the external metabuscador service, which
// queries university repositories and the judiciary sites
type MetaSearch struct {
	baseURL string
	client  *http.Client
}

func NewMetaSearch(baseURL string, timeout time.Duration) *MetaSearch {
	return &MetaSearch{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type metaSearchRequest struct {
	Term string `json:"term"`
}

// MetaSearch implements process.MetaSearchGateway
func (m *MetaSearch) MetaSearch(ctx context.Context, term string) (*process.MetaSearchResult, error) {
	term = strings.TrimSpace(term)
	body, err := json.Marshal(metaSearchRequest{Term: term})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, &process.GatewayError{Tool: process.ToolMetabuscador, Message: metaSearchUnavailable, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &process.GatewayError{
			Tool:    process.ToolMetabuscador,
			Message: metaSearchUnavailable,
			Err:     fmt.Errorf("metabuscador returned %s: %s", resp.Status, strings.TrimSpace(string(detail))),
		}
	}

	var result process.MetaSearchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &process.GatewayError{Tool: process.ToolMetabuscador, Message: metaSearchUnavailable, Err: fmt.Errorf("failed to decode metabuscador response: %w", err)}
	}
	if result.Term == "" {
		result.Term = term
	}
	result.Results = capPerSource(result.Results, maxResultsPerSource)
	return &result, nil
}

// capPerSource keeps at most max hits from each source, preserving order
func capPerSource(hits []process.SearchHit, max int) []process.SearchHit {
	out := make([]process.SearchHit, 0, len(hits))
	seen := make(map[string]int)
	for _, h := range hits {
		if seen[h.Source] >= max {
			continue
		}
		seen[h.Source]++
		out = append(out, h)
	}
	return out
}
