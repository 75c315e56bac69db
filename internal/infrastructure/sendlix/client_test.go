package sendlix

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsletter-gateway/internal/domain"
)

// apiServer serves the auth endpoint plus a caller-provided handler for
// everything else.
func apiServer(t *testing.T, rest http.HandlerFunc) *httptest.Server {
	t.Helper()
	token := mintToken(t, "group.insert email.send")
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/auth/jwt", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(authResponse{
			Token:   token,
			Expires: time.Now().Add(time.Hour).Unix(),
		})
	})
	mux.HandleFunc("/", rest)
	return httptest.NewServer(mux)
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(srv.URL, "secret.42", slog.Default())
	require.NoError(t, err)
	c.http = srv.Client()
	c.tokens.http = srv.Client()
	return c
}

func TestInsertEmailToGroup_Added(t *testing.T) {
	var gotAuth string
	var gotBody insertRequest
	srv := apiServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/groups/grp-1/emails", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(insertResponse{Success: true, AffectedRows: 1})
	})
	defer srv.Close()
	c := newTestClient(t, srv)
	defer c.Close()

	outcome := c.InsertEmailToGroup(context.Background(), "grp-1", "user@example.com",
		map[string]string{"{{mc_username}}": "Steve"})

	assert.Equal(t, domain.OutcomeAdded, outcome)
	assert.Contains(t, gotAuth, "Bearer ")
	require.Len(t, gotBody.Emails, 1)
	assert.Equal(t, "user@example.com", gotBody.Emails[0].Email)
	assert.Equal(t, "Steve", gotBody.Substitutions["{{mc_username}}"])
}

func TestInsertEmailToGroup_ConflictStatus(t *testing.T) {
	srv := apiServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})
	defer srv.Close()
	c := newTestClient(t, srv)
	defer c.Close()

	outcome := c.InsertEmailToGroup(context.Background(), "grp-1", "user@example.com", nil)
	assert.Equal(t, domain.OutcomeConflict, outcome)
}

func TestInsertEmailToGroup_ConflictCode(t *testing.T) {
	srv := apiServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(insertResponse{Success: false, Code: "already_exists"})
	})
	defer srv.Close()
	c := newTestClient(t, srv)
	defer c.Close()

	outcome := c.InsertEmailToGroup(context.Background(), "grp-1", "user@example.com", nil)
	assert.Equal(t, domain.OutcomeConflict, outcome)
}

func TestInsertEmailToGroup_RemoteError(t *testing.T) {
	srv := apiServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"success":false,"message":"internal"}`, http.StatusInternalServerError)
	})
	defer srv.Close()
	c := newTestClient(t, srv)
	defer c.Close()

	outcome := c.InsertEmailToGroup(context.Background(), "grp-1", "user@example.com", nil)
	assert.Equal(t, domain.OutcomeFailure, outcome)
}

func TestInsertEmailToGroup_BadCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()
	c := newTestClient(t, srv)
	defer c.Close()

	outcome := c.InsertEmailToGroup(context.Background(), "grp-1", "user@example.com", nil)
	assert.Equal(t, domain.OutcomeFailure, outcome)
}

func TestSendEmail_Accepted(t *testing.T) {
	var gotBody sendMailRequest
	srv := apiServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/emails", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusAccepted)
	})
	defer srv.Close()
	c := newTestClient(t, srv)
	defer c.Close()

	err := c.SendEmail(context.Background(), "noreply@example.com",
		[]string{"user@example.com"}, "Newsletter Verification", "text body", "<p>html</p>")
	require.NoError(t, err)

	assert.Equal(t, "noreply@example.com", gotBody.From.Email)
	require.Len(t, gotBody.To, 1)
	assert.Equal(t, "user@example.com", gotBody.To[0].Email)
	assert.Equal(t, "Newsletter Verification", gotBody.Subject)
	assert.Equal(t, "MC Email Verification", gotBody.Category)
	assert.Equal(t, "text body", gotBody.Content.Text)
	assert.True(t, gotBody.Content.Tracking)
}

func TestSendEmail_Rejected(t *testing.T) {
	srv := apiServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})
	defer srv.Close()
	c := newTestClient(t, srv)
	defer c.Close()

	err := c.SendEmail(context.Background(), "noreply@example.com",
		[]string{"user@example.com"}, "s", "t", "h")
	assert.Error(t, err)
}

func TestProbe_InvalidKeyFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad credentials", http.StatusUnauthorized)
	}))
	defer srv.Close()
	c := newTestClient(t, srv)
	defer c.Close()

	assert.Error(t, c.Probe(context.Background()))
}

func TestProbe_ValidKey(t *testing.T) {
	srv := apiServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	defer srv.Close()
	c := newTestClient(t, srv)
	defer c.Close()

	assert.NoError(t, c.Probe(context.Background()))
}
