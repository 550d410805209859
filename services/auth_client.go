// monster-league-system/services/auth_client.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"monster-league-system/logger"
	"monster-league-system/utils"
)

// AuthClient validates user tokens against the auth service. Normal requests
// arrive with gateway-injected identity headers; this client only backs the
// SSE endpoint, where EventSource cannot set headers and sends a token query
// parameter instead.
type AuthClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

type TokenIdentity struct {
	UserID string   `json:"user_id"`
	Roles  []string `json:"roles"`
}

func NewAuthClient(baseURL, token string) *AuthClient {
	return &AuthClient{
		BaseURL: baseURL,
		Token:   token,
		Client:  utils.HTTPClient,
	}
}

// ValidateToken calls /auth/validate on the auth service.
func (c *AuthClient) ValidateToken(ctx context.Context, accessToken string) (*TokenIdentity, error) {
	url := fmt.Sprintf("%s/auth/validate", c.BaseURL)

	reqBody, _ := json.Marshal(map[string]string{
		"access_token": accessToken,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token) // service-to-service token

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		logger.WithComponent("auth").Warnf("auth service /validate returned %d: %s", resp.StatusCode, string(body))
		return nil, fmt.Errorf("auth validation failed: %d", resp.StatusCode)
	}

	var out TokenIdentity
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
