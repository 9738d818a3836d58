package profileapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tripwell/tripauth"
)

type httpClient struct {
	baseURL    string
	tokens     tripauth.TokenSource
	httpClient *http.Client
}

func newHTTPClient(baseURL string, tokens tripauth.TokenSource, hc *http.Client) *httpClient {
	return &httpClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		httpClient: hc,
	}
}

func (c *httpClient) doRequest(ctx context.Context, method, path string, body io.Reader) (json.RawMessage, error) {
	u := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, &TransportError{Message: fmt.Sprintf("failed to create request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Message: fmt.Sprintf("failed to read response: %v", err)}
	}

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if len(respBody) == 0 {
			return nil, nil
		}
		return json.RawMessage(respBody), nil
	}

	apiErr := &APIError{StatusCode: resp.StatusCode}
	var errBody struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(respBody, &errBody) == nil && errBody.Error != "" {
		apiErr.Reason = errBody.Error
		apiErr.Message = errBody.Message
	} else {
		apiErr.Message = string(respBody)
	}
	return nil, apiErr
}

func (c *httpClient) get(ctx context.Context, path string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, path, nil)
}

func (c *httpClient) post(ctx context.Context, path string, payload any) (json.RawMessage, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, &TransportError{Message: fmt.Sprintf("failed to marshal request: %v", err)}
		}
		body = bytes.NewReader(b)
	}
	return c.doRequest(ctx, http.MethodPost, path, body)
}

func (c *httpClient) put(ctx context.Context, path string, payload any) (json.RawMessage, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, &TransportError{Message: fmt.Sprintf("failed to marshal request: %v", err)}
	}
	return c.doRequest(ctx, http.MethodPut, path, bytes.NewReader(b))
}
