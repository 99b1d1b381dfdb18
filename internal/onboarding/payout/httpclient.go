// internal/onboarding/payout/httpclient.go
package payout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	commonhttp "carrier-onboarding/internal/common/http"
)

// HTTPAccountLinker talks to the banking provider's link API.
type HTTPAccountLinker struct {
	client  *commonhttp.Client
	baseURL string
	apiKey  string
}

func NewHTTPAccountLinker(baseURL, apiKey string, timeout time.Duration) *HTTPAccountLinker {
	return &HTTPAccountLinker{
		client:  commonhttp.NewClient(timeout),
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

type linkRequest struct {
	CarrierID   string `json:"carrierId"`
	PublicToken string `json:"publicToken"`
}

type linkResponse struct {
	AccountRef string `json:"accountRef"`
}

func (c *HTTPAccountLinker) Link(ctx context.Context, carrierID, publicToken string) (string, error) {
	payload, err := json.Marshal(linkRequest{CarrierID: carrierID, PublicToken: publicToken})
	if err != nil {
		return "", fmt.Errorf("encode link request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/v1/accounts/link", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build link request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.client.DoWithContext(ctx, req)
	if err != nil {
		return "", fmt.Errorf("call bank link API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("bank link API returned %d: %s", resp.StatusCode, string(body))
	}

	var result linkResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode link response: %w", err)
	}
	if result.AccountRef == "" {
		return "", fmt.Errorf("bank link API returned no account reference")
	}
	return result.AccountRef, nil
}
