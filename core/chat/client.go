package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/codes"
)

const defaultTimeout = 15 * time.Second

// Client submits finalized utterances to the remote chat endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

type request struct {
	Message  string `json:"message"`
	Language string `json:"language"`
}

type response struct {
	Response string `json:"response"`
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	client := &Client{
		httpClient: &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL: strings.TrimRight(baseURL, "/"),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client, for timeouts or
// custom transports.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// Submit sends one utterance and returns the reply text. A successful empty
// reply is returned as-is; transport faults, non-2xx statuses and unparsable
// bodies are reported through the package error taxonomy.
func (c *Client) Submit(ctx context.Context, message string, language string) (string, error) {
	ctx, span := tracer.Start(ctx, "chat submit")
	defer span.End()

	body, err := json.Marshal(request{Message: message, Language: language})
	if err != nil {
		return "", fmt.Errorf("failed to encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		recordedErr := fmt.Errorf("%w: %w", ErrNetwork, err)
		span.RecordError(recordedErr)
		span.SetStatus(codes.Error, recordedErr.Error())
		return "", recordedErr
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		recordedErr := fmt.Errorf("%w: %s", ErrStatus, resp.Status)
		span.RecordError(recordedErr)
		span.SetStatus(codes.Error, recordedErr.Error())
		return "", recordedErr
	}

	var parsed response
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		recordedErr := fmt.Errorf("%w: %w", ErrMalformedResponse, err)
		span.RecordError(recordedErr)
		span.SetStatus(codes.Error, recordedErr.Error())
		return "", recordedErr
	}

	return parsed.Response, nil
}
