package sendlix

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mintToken issues a signed JWT carrying the given scope claim. The manager
// never verifies the signature, only the payload shape matters.
func mintToken(t *testing.T, scope any) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"scope": scope,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func authServer(t *testing.T, token string, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/auth/jwt", r.URL.Path)
		if calls != nil {
			calls.Add(1)
		}

		var body authRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "secret", body.APIKey.Secret)
		assert.Equal(t, int64(42), body.APIKey.KeyID)

		json.NewEncoder(w).Encode(authResponse{
			Token:   token,
			Expires: time.Now().Add(time.Hour).Unix(),
		})
	}))
}

func TestParseAPIKey(t *testing.T) {
	secret, keyID, err := parseAPIKey("s3cr3t.7")
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", secret)
	assert.Equal(t, int64(7), keyID)

	for _, bad := range []string{"", "noseparator", "secret.notanumber", ".7", "secret.-1", "a.b.c"} {
		_, _, err := parseAPIKey(bad)
		assert.Error(t, err, bad)
	}
}

func TestToken_FetchAndCache(t *testing.T) {
	var calls atomic.Int32
	srv := authServer(t, mintToken(t, "group.insert email.send"), &calls)
	defer srv.Close()

	tm, err := NewTokenManager(srv.URL, "secret.42", srv.Client())
	require.NoError(t, err)

	first, err := tm.Token(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, first)

	second, err := tm.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), calls.Load(), "cached token must not refetch")
}

func TestToken_RefreshesNearExpiry(t *testing.T) {
	var calls atomic.Int32
	token := mintToken(t, "group.insert")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		// Expires immediately, so every call lands inside the buffer.
		json.NewEncoder(w).Encode(authResponse{Token: token, Expires: time.Now().Unix()})
	}))
	defer srv.Close()

	tm, err := NewTokenManager(srv.URL, "secret.42", srv.Client())
	require.NoError(t, err)

	_, err = tm.Token(context.Background())
	require.NoError(t, err)
	_, err = tm.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestToken_ScopeAsList(t *testing.T) {
	srv := authServer(t, mintToken(t, []string{"email.send", "group.insert"}), nil)
	defer srv.Close()

	tm, err := NewTokenManager(srv.URL, "secret.42", srv.Client())
	require.NoError(t, err)
	_, err = tm.Token(context.Background())
	assert.NoError(t, err)
}

func TestToken_MissingScopeRejected(t *testing.T) {
	srv := authServer(t, mintToken(t, "email.send"), nil)
	defer srv.Close()

	tm, err := NewTokenManager(srv.URL, "secret.42", srv.Client())
	require.NoError(t, err)

	_, err = tm.Token(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "group.insert")
}

func TestToken_AuthEndpointFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad credentials", http.StatusUnauthorized)
	}))
	defer srv.Close()

	tm, err := NewTokenManager(srv.URL, "secret.42", srv.Client())
	require.NoError(t, err)

	_, err = tm.Token(context.Background())
	assert.Error(t, err)
}
