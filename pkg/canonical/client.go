// Package canonical holds the canonicalization service adapter and the text
// fallback matcher that runs when no hard identifier resolves.
package canonical

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/vine/pkg/httpclient"
	"github.com/Ramsey-B/vine/pkg/tracing"
)

// Result is the canonicalization service's answer for a free-text wine name
type Result struct {
	CanonicalName string      `json:"canonical_name"`
	Producer      string      `json:"producer,omitempty"`
	Region        string      `json:"region,omitempty"`
	MatchScore    float64     `json:"match_score"`
	Candidates    []Candidate `json:"candidates,omitempty"`
}

// Candidate is a canonical-side suggestion that may not exist in our catalog
type Candidate struct {
	Name     string  `json:"name"`
	Producer string  `json:"producer,omitempty"`
	Region   string  `json:"region,omitempty"`
	Score    float64 `json:"score"`
}

// Canonicalizer is what the matcher consumes
type Canonicalizer interface {
	Canonicalize(ctx context.Context, name string, vintage *int) (*Result, error)
}

// Client is the HTTP adapter for the external canonicalization service. It is
// stateless; every transport or payload problem is reported as an error and
// the matcher fails open to human review.
type Client struct {
	http    *httpclient.Client
	baseURL string
	logger  ectologger.Logger
}

// NewClient creates a canonicalization client with a short timeout
func NewClient(baseURL string, timeout time.Duration, logger ectologger.Logger) *Client {
	cfg := httpclient.DefaultConfig()
	cfg.Timeout = timeout
	return &Client{
		http:    httpclient.NewClient(cfg, logger),
		baseURL: baseURL,
		logger:  logger,
	}
}

type canonicalizeRequest struct {
	Name    string `json:"name"`
	Vintage *int   `json:"vintage,omitempty"`
}

// Canonicalize resolves a free-text name to a canonical identity. Returns
// (nil, nil) when the service reports no match.
func (c *Client) Canonicalize(ctx context.Context, name string, vintage *int) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "canonical.Client.Canonicalize")
	defer span.End()

	resp, err := c.http.PostJSON(ctx, c.baseURL+"/v1/canonicalize", canonicalizeRequest{Name: name, Vintage: vintage}, nil)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("canonicalization service returned status %d", resp.StatusCode)
	}

	var result Result
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, fmt.Errorf("malformed canonicalization response: %w", err)
	}
	if result.CanonicalName == "" {
		return nil, nil
	}

	return &result, nil
}
