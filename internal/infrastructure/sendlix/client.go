package sendlix

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/newsletter-gateway/internal/domain"
)

// emailCategory tags verification mails in the remote dashboard.
const emailCategory = "MC Email Verification"

// GroupAPI is the two-operation remote collaborator the orchestrator needs.
type GroupAPI interface {
	InsertEmailToGroup(ctx context.Context, groupID, email string, substitutions map[string]string) domain.Outcome
	SendEmail(ctx context.Context, from string, to []string, subject, textBody, htmlBody string) error
}

// Client talks to the Sendlix HTTP API. All methods are synchronous; callers
// run them on the worker pool. One Client is shared process-wide and torn
// down exactly once via Close.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  *TokenManager
	log     *slog.Logger

	closeOnce sync.Once
}

// NewClient builds the shared API client for the given base URL and
// "secret.keyId" API key.
func NewClient(baseURL, apiKey string, log *slog.Logger) (*Client, error) {
	hc := &http.Client{Timeout: 15 * time.Second}
	tm, err := NewTokenManager(baseURL, apiKey, hc)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: tm.baseURL,
		http:    hc,
		tokens:  tm,
		log:     log,
	}, nil
}

// Probe fetches one access token so an invalid API key fails at startup
// instead of on the first subscription.
func (c *Client) Probe(ctx context.Context) error {
	_, err := c.tokens.Token(ctx)
	return err
}

// Close releases pooled connections. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() { c.http.CloseIdleConnections() })
}

type emailData struct {
	Email string `json:"email"`
}

type insertRequest struct {
	Emails        []emailData       `json:"emails"`
	Substitutions map[string]string `json:"substitutions,omitempty"`
}

type insertResponse struct {
	Success      bool   `json:"success"`
	Code         string `json:"code"`
	Message      string `json:"message"`
	AffectedRows int64  `json:"affectedRows"`
}

// InsertEmailToGroup adds the address to the group. Transport errors and
// application failures fold into the closed outcome vocabulary: the
// distinguished "already exists" answer becomes OutcomeConflict, anything
// else that is not a success becomes OutcomeFailure. Nothing escapes.
func (c *Client) InsertEmailToGroup(ctx context.Context, groupID, email string, substitutions map[string]string) domain.Outcome {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		c.log.Error("group insert failed before the call was issued", "group_id", groupID, "err", err)
		return domain.OutcomeFailure
	}

	body := insertRequest{
		Emails:        []emailData{{Email: email}},
		Substitutions: substitutions,
	}
	raw, err := json.Marshal(body)
	if err != nil {
		c.log.Error("group insert request could not be encoded", "group_id", groupID, "err", err)
		return domain.OutcomeFailure
	}

	endpoint := fmt.Sprintf("%s/v1/groups/%s/emails", c.baseURL, url.PathEscape(groupID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		c.log.Error("group insert request could not be built", "group_id", groupID, "err", err)
		return domain.OutcomeFailure
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := c.http.Do(req)
	if err != nil {
		c.log.Error("group insert transport error", "group_id", groupID, "err", err)
		return domain.OutcomeFailure
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusConflict {
		return domain.OutcomeConflict
	}
	var ir insertResponse
	if err := json.NewDecoder(res.Body).Decode(&ir); err != nil {
		c.log.Error("group insert response could not be decoded", "group_id", groupID, "status", res.Status, "err", err)
		return domain.OutcomeFailure
	}
	if ir.Code == "already_exists" {
		return domain.OutcomeConflict
	}
	if res.StatusCode != http.StatusOK || !ir.Success {
		c.log.Error("group insert rejected", "group_id", groupID, "status", res.Status, "message", ir.Message)
		return domain.OutcomeFailure
	}
	return domain.OutcomeAdded
}

type mailContent struct {
	Text     string `json:"text"`
	HTML     string `json:"html"`
	Tracking bool   `json:"tracking"`
}

type sendMailRequest struct {
	From     emailData   `json:"from"`
	To       []emailData `json:"to"`
	Subject  string      `json:"subject"`
	Content  mailContent `json:"content"`
	Category string      `json:"category"`
}

// SendEmail sends one transactional message and returns the delivery error,
// if any. Callers decide how a failed send maps onto the status vocabulary.
func (c *Client) SendEmail(ctx context.Context, from string, to []string, subject, textBody, htmlBody string) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	recipients := make([]emailData, len(to))
	for i, addr := range to {
		recipients[i] = emailData{Email: addr}
	}
	body := sendMailRequest{
		From:     emailData{Email: from},
		To:       recipients,
		Subject:  subject,
		Content:  mailContent{Text: textBody, HTML: htmlBody, Tracking: true},
		Category: emailCategory,
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/emails", bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusAccepted {
		return fmt.Errorf("send email: endpoint returned %s", res.Status)
	}
	return nil
}
