package sendlix

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// tokenBuffer is how close to expiry a cached token is still trusted.
	tokenBuffer = time.Second

	// requiredScope must be present on the issued token; without it every
	// group insert would fail, so the key is rejected up front.
	requiredScope = "group.insert"
)

// TokenManager exchanges the "secret.keyId" API key for a short-lived access
// token and caches it until shortly before expiry. It is safe for concurrent
// use; refreshes are serialized under the mutex.
type TokenManager struct {
	baseURL string
	secret  string
	keyID   int64
	http    *http.Client

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewTokenManager parses the API key and prepares a manager. No network call
// is made until Token is first requested.
func NewTokenManager(baseURL, apiKey string, client *http.Client) (*TokenManager, error) {
	secret, keyID, err := parseAPIKey(apiKey)
	if err != nil {
		return nil, err
	}
	return &TokenManager{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		keyID:   keyID,
		http:    client,
	}, nil
}

// parseAPIKey splits an API key of the form "secret.keyId".
func parseAPIKey(apiKey string) (string, int64, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return "", 0, fmt.Errorf("api key must not be empty")
	}
	parts := strings.Split(apiKey, ".")
	if len(parts) != 2 || parts[0] == "" {
		return "", 0, fmt.Errorf("invalid api key format, expected secret.keyId")
	}
	keyID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || keyID < 0 {
		return "", 0, fmt.Errorf("invalid api key id %q", parts[1])
	}
	return parts[0], keyID, nil
}

// Token returns a valid access token, fetching a fresh one when the cached
// token is missing or within the refresh buffer of its expiry.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token != "" && time.Until(m.expires) > tokenBuffer {
		return m.token, nil
	}
	if err := m.fetch(ctx); err != nil {
		return "", fmt.Errorf("retrieve access token: %w", err)
	}
	return m.token, nil
}

type authRequest struct {
	APIKey struct {
		Secret string `json:"secret"`
		KeyID  int64  `json:"keyId"`
	} `json:"apiKey"`
}

type authResponse struct {
	Token   string `json:"token"`
	Expires int64  `json:"expires"` // Unix seconds
}

func (m *TokenManager) fetch(ctx context.Context) error {
	var body authRequest
	body.APIKey.Secret = m.secret
	body.APIKey.KeyID = m.keyID

	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/v1/auth/jwt", bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := m.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("auth endpoint returned %s", res.Status)
	}

	var ar authResponse
	if err := json.NewDecoder(res.Body).Decode(&ar); err != nil {
		return err
	}
	if ar.Token == "" {
		return fmt.Errorf("auth endpoint returned an empty token")
	}
	if err := checkScope(ar.Token); err != nil {
		return err
	}

	m.token = ar.Token
	m.expires = time.Unix(ar.Expires, 0)
	return nil
}

// checkScope inspects the token payload (without verifying the signature;
// the remote service signed it) and rejects keys missing the insert scope.
func checkScope(token string) error {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return fmt.Errorf("parse access token: %w", err)
	}
	switch scope := claims["scope"].(type) {
	case string:
		if strings.Contains(scope, requiredScope) {
			return nil
		}
	case []any:
		for _, s := range scope {
			if str, ok := s.(string); ok && str == requiredScope {
				return nil
			}
		}
	}
	return fmt.Errorf("api key does not have the required scope %q", requiredScope)
}
