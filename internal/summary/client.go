package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrMissingAPIKey indicates no credential was configured for the generative
// service. This is surfaced as a descriptive failure, never papered over.
var ErrMissingAPIKey = errors.New("summary: GEMINI_API_KEY is not set")

// ErrNoReviews indicates there was nothing to summarize.
var ErrNoReviews = errors.New("summary: no review text to summarize")

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.0-flash"

	// Joins review texts in the prompt; not expected to occur in review text.
	reviewSeparator = "@"
)

// Client defines the contract for requesting a one-sentence review summary.
type Client interface {
	Summarize(ctx context.Context, reviewTexts []string) (string, error)
}

// GeminiClient implements Client against the Gemini generateContent REST API.
type GeminiClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	logger  *log.Logger
}

// NewGeminiClient constructs a Gemini-backed summary client. baseURL and
// model fall back to the production endpoint and default model when empty;
// an empty apiKey is allowed at construction and rejected per call so the
// rest of the application can run without the credential.
func NewGeminiClient(baseURL, apiKey, model string, timeout time.Duration, logger *log.Logger) (*GeminiClient, error) {
	if logger == nil {
		logger = log.Default()
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = defaultModel
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parse summary url: %w", err)
	}
	return &GeminiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		logger: logger,
	}, nil
}

// Summarize asks the model for a one-sentence summary of the given reviews.
func (c *GeminiClient) Summarize(ctx context.Context, reviewTexts []string) (string, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return "", ErrMissingAPIKey
	}
	if len(reviewTexts) == 0 {
		return "", ErrNoReviews
	}

	prompt := fmt.Sprintf(
		"Based on the following reviews, where each review is separated by a %q character, "+
			"create a one-sentence summary of what people think of it. Here are the reviews: %s",
		reviewSeparator, strings.Join(reviewTexts, reviewSeparator),
	)

	payload := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal summary request: %w", err)
	}

	endpoint, err := url.Parse(fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model))
	if err != nil {
		return "", fmt.Errorf("build summary url: %w", err)
	}
	q := endpoint.Query()
	q.Set("key", c.apiKey)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("summary request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		c.logger.Printf("summary: upstream returned %d: %s", resp.StatusCode, string(data))
		return "", fmt.Errorf("summary: upstream returned %d", resp.StatusCode)
	}

	var parsed generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode summary response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("summary: empty response from model")
	}
	return strings.TrimSpace(parsed.Candidates[0].Content.Parts[0].Text), nil
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}
