package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/newsletter-gateway/internal/domain"
)

// Dispatcher routes a tokenized newsletter command into the subscription
// flow on behalf of a user.
type Dispatcher interface {
	Dispatch(userID, username string, args []string) error
}

// NewsletterHandler exposes the local command source: a backend posts the
// raw command line on behalf of a connected player.
type NewsletterHandler struct {
	svc Dispatcher
}

func NewNewsletterHandler(svc Dispatcher) *NewsletterHandler {
	return &NewsletterHandler{svc: svc}
}

// Command accepts {"user_id","username","args"} where args is the
// space-separated command line, e.g. "user@example.com --agree-privacy".
// A 202 means the request passed the local gates and the remote call is in
// flight; the final outcome arrives over the wire channel.
func (h *NewsletterHandler) Command(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID   string `json:"user_id"`
		Username string `json:"username"`
		Args     string `json:"args"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if body.Username == "" {
		body.Username = body.UserID
	}

	err := h.svc.Dispatch(body.UserID, body.Username, strings.Fields(body.Args))
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, MessageEnvelope{Message: "request accepted"})
	case errors.Is(err, domain.ErrUsage), errors.Is(err, domain.ErrInvalidEmail):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrPrivacyNotAccepted):
		writeError(w, http.StatusForbidden, "privacy agreement required")
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, domain.ErrCodeNotFound),
		errors.Is(err, domain.ErrCodeMismatch),
		errors.Is(err, domain.ErrCodeExpired):
		writeError(w, http.StatusUnauthorized, "verification failed")
	default:
		writeError(w, http.StatusServiceUnavailable, "temporarily unavailable, try again later")
	}
}
