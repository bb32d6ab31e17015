package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrAuthUnavailable is returned when the auth service cannot be reached or
// does not answer with a parseable validation result.
var ErrAuthUnavailable = errors.New("auth service unavailable")

// TokenValidation is the auth service's verdict on a bearer token.
type TokenValidation struct {
	IsValid bool   `json:"isValid"`
	Message string `json:"message"`
}

// AuthClient validates bearer tokens against the external auth service.
type AuthClient struct {
	baseURL string
	http    *http.Client
}

func NewAuthClient(baseURL string, timeout time.Duration) *AuthClient {
	return &AuthClient{
		baseURL: baseURL,
		http:    newHTTPClient(timeout),
	}
}

// ValidateToken asks the auth service whether the token is valid. A definite
// "no" comes back as an invalid TokenValidation, not an error; only
// transport-level failures surface as ErrAuthUnavailable.
func (c *AuthClient) ValidateToken(ctx context.Context, token string) (*TokenValidation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, joinURL(c.baseURL, "/api/Auth/validate-token"), nil)
	if err != nil {
		return nil, fmt.Errorf("building token validation request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthUnavailable, err)
	}
	defer resp.Body.Close()

	var result TokenValidation
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return &TokenValidation{IsValid: false, Message: resp.Status}, nil
		}
		return nil, fmt.Errorf("%w: decoding response: %v", ErrAuthUnavailable, err)
	}
	return &result, nil
}
