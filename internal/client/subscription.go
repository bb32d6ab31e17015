package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"boardstack.app/workspace-service/internal/cache"
)

const (
	subscriptionKeyPrefix = "subscription:"
	subscriptionCacheTTL  = 300 * time.Second
)

// SubscriptionDetails are the entitlement facts the subscription service
// reports for one subscription. A nil UserLimit means unlimited seats.
type SubscriptionDetails struct {
	Status    string   `json:"status"`
	UserIDs   []string `json:"user_ids"`
	UserLimit *int     `json:"user_limit"`
	UserCount int      `json:"user_count"`
}

type subscriptionEnvelope struct {
	SubscriptionRequest SubscriptionDetails `json:"subscription_request"`
}

// SubscriptionClient answers entitlement questions against the subscription
// service. Responses are cached per subscription; the boolean helpers degrade
// to false on any upstream failure.
type SubscriptionClient struct {
	baseURL string
	http    *http.Client
	cache   cache.Store
	ttl     time.Duration
}

func NewSubscriptionClient(baseURL string, timeout time.Duration, cacheStore cache.Store) *SubscriptionClient {
	return &SubscriptionClient{
		baseURL: baseURL,
		http:    newHTTPClient(timeout),
		cache:   cacheStore,
		ttl:     subscriptionCacheTTL,
	}
}

// GetDetails fetches subscription entitlement facts, serving from cache
// within the TTL window. Cache failures fall through to the upstream call.
func (c *SubscriptionClient) GetDetails(ctx context.Context, subscriptionID, token string) (*SubscriptionDetails, error) {
	key := subscriptionKeyPrefix + subscriptionID

	if data, err := c.cache.Get(ctx, key); err == nil {
		var details SubscriptionDetails
		if err := json.Unmarshal(data, &details); err == nil {
			return &details, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		joinURL(c.baseURL, "/api/user/subscription/"+subscriptionID), nil)
	if err != nil {
		return nil, fmt.Errorf("building subscription request: %w", err)
	}
	req.Header.Set("Token", token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching subscription %s: %w", subscriptionID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return nil, fmt.Errorf("fetching subscription %s: unexpected status %d", subscriptionID, resp.StatusCode)
	}

	var envelope subscriptionEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decoding subscription %s: %w", subscriptionID, err)
	}
	details := envelope.SubscriptionRequest

	if data, err := json.Marshal(details); err == nil {
		if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
			slog.WarnContext(ctx, "subscription cache write failed", "subscription_id", subscriptionID, "error", err)
		}
	}

	return &details, nil
}

// IsApproved reports whether the subscription is in approved status.
func (c *SubscriptionClient) IsApproved(ctx context.Context, subscriptionID, token string) bool {
	details, err := c.GetDetails(ctx, subscriptionID, token)
	if err != nil {
		slog.WarnContext(ctx, "subscription status check failed", "subscription_id", subscriptionID, "error", err)
		return false
	}
	return details.Status == "approved"
}

// HasUser reports whether userID belongs to the subscription.
func (c *SubscriptionClient) HasUser(ctx context.Context, subscriptionID, userID, token string) bool {
	details, err := c.GetDetails(ctx, subscriptionID, token)
	if err != nil {
		slog.WarnContext(ctx, "subscription membership check failed", "subscription_id", subscriptionID, "user_id", userID, "error", err)
		return false
	}
	for _, id := range details.UserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// WithinUserLimit reports whether adding n users would stay within the
// subscription's seat limit. A nil limit means unlimited.
func (c *SubscriptionClient) WithinUserLimit(ctx context.Context, subscriptionID, token string, n int) bool {
	details, err := c.GetDetails(ctx, subscriptionID, token)
	if err != nil {
		slog.WarnContext(ctx, "subscription user limit check failed", "subscription_id", subscriptionID, "error", err)
		return false
	}
	if details.UserLimit == nil {
		return true
	}
	return details.UserCount+n <= *details.UserLimit
}
