package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"boardstack.app/workspace-service/internal/cache"
)

const (
	profileKeyPrefix = "userprofile:"
	profileCacheTTL  = 300 * time.Second
	serviceName      = "workspace-service"
)

// ErrProfileNotFound is returned when the profile service has no record for
// the given auth subject.
var ErrProfileNotFound = errors.New("user profile not found")

// Profile is the slice of the user-profile document this service needs: the
// internal user identifier the auth subject maps to.
type Profile struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type profileEnvelope struct {
	Data *Profile `json:"data"`
}

// UserProfileClient resolves authenticated subjects to internal user IDs via
// the profile service, caching lookups per subject.
type UserProfileClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	cache   cache.Store
	ttl     time.Duration
}

func NewUserProfileClient(baseURL, apiKey string, timeout time.Duration, cacheStore cache.Store) *UserProfileClient {
	return &UserProfileClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    newHTTPClient(timeout),
		cache:   cacheStore,
		ttl:     profileCacheTTL,
	}
}

// GetProfile resolves the profile for an auth subject, serving from cache
// within the TTL window.
func (c *UserProfileClient) GetProfile(ctx context.Context, authID string) (*Profile, error) {
	key := profileKeyPrefix + authID

	if data, err := c.cache.Get(ctx, key); err == nil {
		var profile Profile
		if err := json.Unmarshal(data, &profile); err == nil {
			return &profile, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, joinURL(c.baseURL, "/profiles/"+authID), nil)
	if err != nil {
		return nil, fmt.Errorf("building profile request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("X-Service-Name", serviceName)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching profile %s: %w", authID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return nil, ErrProfileNotFound
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return nil, fmt.Errorf("fetching profile %s: unexpected status %d", authID, resp.StatusCode)
	}

	var envelope profileEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decoding profile %s: %w", authID, err)
	}
	if envelope.Data == nil || envelope.Data.ID == "" {
		return nil, ErrProfileNotFound
	}

	if data, err := json.Marshal(envelope.Data); err == nil {
		if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
			slog.WarnContext(ctx, "profile cache write failed", "auth_id", authID, "error", err)
		}
	}

	return envelope.Data, nil
}

// InvalidateProfile drops the cached profile for an auth subject, e.g. after
// an upstream user mutation event.
func (c *UserProfileClient) InvalidateProfile(ctx context.Context, authID string) {
	if err := c.cache.Delete(ctx, profileKeyPrefix+authID); err != nil {
		slog.WarnContext(ctx, "profile cache invalidation failed", "auth_id", authID, "error", err)
	}
}
