package ontology

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"osraclinic.com/workbench/internal/metrics"
)

// MinQueryLength is the shortest query the search endpoint accepts. Shorter
// input returns an empty result without a network call.
const MinQueryLength = 2

// Xref is a cross-reference from a disease entry to an external vocabulary.
type Xref struct {
	ID string `json:"id"`
}

// Disease is one candidate entry from the disease ontology.
type Disease struct {
	DOID       string   `json:"doid"`
	Label      string   `json:"lbl"`
	Definition string   `json:"def"`
	Synonyms   []string `json:"synonyms"`
	Xrefs      []Xref   `json:"xrefs"`
}

// Client queries the disease-ontology search endpoint. Results are never
// cached; every query goes to the backend.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a new disease search client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Search returns candidate disease entries matching the query by name.
func (c *Client) Search(ctx context.Context, query string) ([]Disease, error) {
	query = strings.TrimSpace(query)
	if len(query) < MinQueryLength {
		return nil, nil
	}

	endpoint := c.baseURL + "/process/disease-search/?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordUpstreamRequest("ontology", "/process/disease-search/", startTime, 0)
		return nil, fmt.Errorf("disease search failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("Failed to close response body")
		}
	}()

	metrics.RecordUpstreamRequest("ontology", "/process/disease-search/", startTime, resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("disease search returned status %d", resp.StatusCode)
	}

	var diseases []Disease
	if err := json.NewDecoder(resp.Body).Decode(&diseases); err != nil {
		return nil, fmt.Errorf("failed to decode disease search response: %w", err)
	}

	log.Debug().
		Str("query", query).
		Int("results", len(diseases)).
		Msg("Disease search completed")

	return diseases, nil
}
