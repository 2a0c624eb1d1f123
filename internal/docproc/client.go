package docproc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"osraclinic.com/workbench/internal/metrics"
)

// Client calls the three document-processing endpoints. Each call is a
// single fire-and-forget HTTP request: no retry, no idempotency guarantee.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// File is an attached document to run through OCR or ACR.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// OCRResult is the OCR endpoint's response.
type OCRResult struct {
	Text string `json:"text"`
}

// Medication is one drug/dosage pair extracted by ACR.
type Medication struct {
	Medication string `json:"medication"`
	Dosage     string `json:"dosage"`
}

// ACRResult is the ACR endpoint's response.
type ACRResult struct {
	Found []Medication `json:"found"`
}

// Extraction holds the optional structured fields the NLP endpoint pulls out
// of free text. Absent fields decode as empty strings.
type Extraction struct {
	Diagnosis string `json:"diagnosis"`
	History   string `json:"history"`
	Notes     string `json:"notes"`
}

// Empty reports whether no field was extracted.
func (e Extraction) Empty() bool {
	return e.Diagnosis == "" && e.History == "" && e.Notes == ""
}

// NLPResult is the NLP endpoint's response.
type NLPResult struct {
	Extracted Extraction `json:"extracted"`
}

// NewClient creates a new document-processing client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// OCR uploads a file and returns the recognized text.
func (c *Client) OCR(ctx context.Context, file File) (*OCRResult, error) {
	var result OCRResult
	if err := c.uploadFile(ctx, "/api/process/ocr/", file, &result); err != nil {
		metrics.RecordExtraction("ocr", "error")
		return nil, err
	}

	metrics.RecordExtraction("ocr", "success")
	log.Info().
		Str("file", file.Name).
		Int("text_length", len(result.Text)).
		Msg("OCR extraction completed")

	return &result, nil
}

// ACR uploads a file and returns the extracted medication list.
func (c *Client) ACR(ctx context.Context, file File) (*ACRResult, error) {
	var result ACRResult
	if err := c.uploadFile(ctx, "/api/process/acr/", file, &result); err != nil {
		metrics.RecordExtraction("acr", "error")
		return nil, err
	}

	if len(result.Found) == 0 {
		metrics.RecordExtraction("acr", "empty")
	} else {
		metrics.RecordExtraction("acr", "success")
	}

	log.Info().
		Str("file", file.Name).
		Int("medications", len(result.Found)).
		Msg("ACR extraction completed")

	return &result, nil
}

// ACRText runs medication extraction over raw text instead of a document.
func (c *Client) ACRText(ctx context.Context, text string) (*ACRResult, error) {
	var result ACRResult
	if err := c.postJSON(ctx, "/api/process/acr/", map[string]string{"text": text}, &result); err != nil {
		metrics.RecordExtraction("acr", "error")
		return nil, err
	}

	if len(result.Found) == 0 {
		metrics.RecordExtraction("acr", "empty")
	} else {
		metrics.RecordExtraction("acr", "success")
	}

	return &result, nil
}

// NLP submits free text and returns the extracted structured fields.
func (c *Client) NLP(ctx context.Context, text string) (*NLPResult, error) {
	var result NLPResult
	if err := c.postJSON(ctx, "/api/process/nlp/", map[string]string{"text": text}, &result); err != nil {
		metrics.RecordExtraction("nlp", "error")
		return nil, err
	}

	if result.Extracted.Empty() {
		metrics.RecordExtraction("nlp", "empty")
	} else {
		metrics.RecordExtraction("nlp", "success")
	}

	log.Info().
		Int("text_length", len(text)).
		Bool("entities_found", !result.Extracted.Empty()).
		Msg("NLP extraction completed")

	return &result, nil
}

// uploadFile POSTs a file as multipart form data and decodes the JSON response.
func (c *Client) uploadFile(ctx context.Context, endpoint string, file File, out interface{}) error {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", file.Name)
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return fmt.Errorf("failed to write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	return c.send(req, endpoint, out)
}

// postJSON POSTs a JSON payload and decodes the JSON response.
func (c *Client) postJSON(ctx context.Context, endpoint string, payload, out interface{}) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return c.send(req, endpoint, out)
}

func (c *Client) send(req *http.Request, endpoint string, out interface{}) error {
	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordUpstreamRequest("docproc", endpoint, startTime, 0)
		return fmt.Errorf("processing request failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("Failed to close response body")
		}
	}()

	metrics.RecordUpstreamRequest("docproc", endpoint, startTime, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read processing response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s", extractMessage(raw, resp.StatusCode))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode processing response: %w", err)
	}
	return nil
}

// extractMessage pulls the server's message out of an error body so it can be
// shown to the user verbatim.
func extractMessage(raw []byte, statusCode int) string {
	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err == nil {
		for _, key := range []string{"message", "error", "detail"} {
			if msg, ok := payload[key].(string); ok && msg != "" {
				return msg
			}
		}
	}
	return fmt.Sprintf("processing service returned status %d", statusCode)
}
