package webex

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// License is one entry of the Webex licenses API.
type License struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	TotalUnits     *int64 `json:"totalUnits"`
	ConsumedUnits  *int64 `json:"consumedUnits"`
	SubscriptionID string `json:"subscriptionId"`
}

type licensesResponse struct {
	Items []License `json:"items"`
}

// Client is a minimal Webex REST API client.
type Client struct {
	client *resty.Client
	tokens TokenSource
}

// NewClient creates an API client authenticated by tokens.
func NewClient(apiBase string, timeout time.Duration, tokens TokenSource) *Client {
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		client: resty.New().
			SetBaseURL(strings.TrimRight(apiBase, "/")).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
		tokens: tokens,
	}
}

// ListLicenses returns the licenses of orgID. An empty orgID lists the
// organization that owns the token.
func (c *Client) ListLicenses(ctx context.Context, orgID string) ([]License, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("get access token: %w", err)
	}

	var out licensesResponse
	req := c.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&out)
	if orgID = strings.TrimSpace(orgID); orgID != "" {
		req.SetQueryParam("orgId", orgID)
	}

	resp, err := req.Get("/licenses")
	if err != nil {
		return nil, fmt.Errorf("list licenses: %w", err)
	}
	if resp.StatusCode() >= 300 {
		return nil, &APIError{Endpoint: "licenses", StatusCode: resp.StatusCode(), Body: truncate(resp.String())}
	}
	return out.Items, nil
}
