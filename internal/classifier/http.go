package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Jaikumar96/fincategorizer/internal/common"
	"github.com/Jaikumar96/fincategorizer/internal/model"
)

// HTTPClient calls the remote inference service.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewHTTPClient creates a client for the inference service at baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration) (*HTTPClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("classifier URL is required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

type categorizeRequest struct {
	MerchantNormalized string  `json:"merchant_normalized"`
	Currency           string  `json:"currency"`
	TransactionDate    string  `json:"transaction_date,omitempty"`
	Amount             float64 `json:"amount"`
	UserID             int64   `json:"user_id,omitempty"`
}

type wireAlternative struct {
	CategoryName string  `json:"category_name"`
	CategoryID   int     `json:"category_id"`
	Score        float64 `json:"score"`
}

type categorizeResponse struct {
	CategoryName    string            `json:"category_name"`
	Model           string            `json:"model"`
	Alternatives    []wireAlternative `json:"alternatives"`
	CategoryID      int               `json:"category_id"`
	ConfidenceScore float64           `json:"confidence_score"`
	InferenceTime   int               `json:"inference_time"`
}

// Categorize sends one transaction to POST {baseURL}/categorize.
//
// Rate limiting (429) and server errors are retryable; other non-200
// statuses are permanent.
func (c *HTTPClient) Categorize(ctx context.Context, req Request) (Response, error) {
	merchant := req.MerchantNormalized
	if merchant == "" {
		merchant = req.MerchantName
	}

	body := categorizeRequest{
		MerchantNormalized: merchant,
		Amount:             req.Amount.InexactFloat64(),
		Currency:           req.Currency,
		UserID:             req.UserID,
	}
	if !req.TransactionDate.IsZero() {
		body.TransactionDate = req.TransactionDate.String()
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return Response{}, common.Permanent(fmt.Errorf("failed to marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/categorize", bytes.NewReader(jsonBody))
	if err != nil {
		return Response{}, common.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Response{}, &common.RetryableError{Err: fmt.Errorf("request failed: %w", err), Retryable: true}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, &common.RetryableError{Err: fmt.Errorf("failed to read response: %w", err), Retryable: true}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return Response{}, common.RateLimited(retryAfter(resp.Header.Get("Retry-After")))
	case resp.StatusCode >= http.StatusInternalServerError:
		return Response{}, &common.RetryableError{
			Err:       fmt.Errorf("classifier error (status %d): %s", resp.StatusCode, string(respBody)),
			Retryable: true,
		}
	case resp.StatusCode != http.StatusOK:
		return Response{}, common.Permanent(fmt.Errorf("classifier error (status %d): %s", resp.StatusCode, string(respBody)))
	}

	var wire categorizeResponse
	if err := json.Unmarshal(respBody, &wire); err != nil {
		return Response{}, common.Permanent(fmt.Errorf("failed to parse response: %w", err))
	}

	out := Response{
		CategoryID:      wire.CategoryID,
		CategoryName:    wire.CategoryName,
		ConfidenceScore: wire.ConfidenceScore,
		Alternatives:    make(model.Alternatives, 0, len(wire.Alternatives)),
	}
	for _, alt := range wire.Alternatives {
		out.Alternatives = append(out.Alternatives, model.AlternativeCategory{
			CategoryID:   alt.CategoryID,
			CategoryName: alt.CategoryName,
			Score:        alt.Score,
		})
	}

	return out, nil
}

// Health checks GET {baseURL}/health.
func (c *HTTPClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("classifier unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("classifier unhealthy (status %d)", resp.StatusCode)
	}
	return nil
}

// retryAfter parses a Retry-After header given in seconds. HTTP dates and
// malformed values yield zero.
func retryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
