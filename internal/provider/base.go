package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// baseHTTPClient performs raw JSON requests against a vendor API root.
// It is used where the typed client drops vendor-specific fields.
type baseHTTPClient struct {
	client  *http.Client
	apiKey  string
	baseURL string
	headers map[string]string
}

func newBaseHTTPClient(apiKey, baseURL string, client *http.Client) *baseHTTPClient {
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}
	return &baseHTTPClient{
		client:  client,
		apiKey:  apiKey,
		baseURL: baseURL,
		headers: make(map[string]string),
	}
}

// doRequest performs an HTTP request and returns the body and status code.
// Status codes of 400 and above are returned as errors along with the body.
func (b *baseHTTPClient) doRequest(ctx context.Context, method, path string, body any) ([]byte, int, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, bodyReader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
	}
	for key, value := range b.headers {
		req.Header.Set(key, value)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return respBody, resp.StatusCode, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}
	return respBody, resp.StatusCode, nil
}
