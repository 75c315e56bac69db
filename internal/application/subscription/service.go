package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/newsletter-gateway/internal/config"
	"github.com/newsletter-gateway/internal/domain"
	"github.com/newsletter-gateway/internal/pkg/async"
	"github.com/newsletter-gateway/internal/pkg/id"
)

// usernameSubstitution is the fixed substitution key carrying the invoking
// user's display name on every insert call.
const usernameSubstitution = "{{mc_username}}"

// verificationSubject is the subject line of the challenge email.
const verificationSubject = "Newsletter Verification"

// taskTimeout bounds a single remote call issued from the worker pool.
const taskTimeout = 30 * time.Second

// Fixed user-facing messages. Raw remote errors never reach the user.
const (
	msgUsage              = "Invalid usage. Please use: /newsletter <email> [--agree-privacy] [--silent] or /newsletter -c <code>"
	msgInvalidEmail       = "Invalid email - please provide a valid email address (e.g., user@example.com)."
	msgProcessing         = "Newsletter subscription - processing your request..."
	msgAdded              = "You have successfully subscribed to our newsletter."
	msgAlreadyExists      = "You're already subscribed to our newsletter!"
	msgFailed             = "Unable to subscribe to the newsletter. Please try again later."
	msgVerificationSent   = "A verification email has been sent to your address. Please check your inbox."
	msgVerificationFailed = "Verification failed - the code is wrong, expired, or was never requested."
)

// GroupAPI is the two-operation remote collaborator.
type GroupAPI interface {
	InsertEmailToGroup(ctx context.Context, groupID, email string, substitutions map[string]string) domain.Outcome
	SendEmail(ctx context.Context, from string, to []string, subject, textBody, htmlBody string) error
}

// RateLimiter gates remote calls per user.
type RateLimiter interface {
	CanProceed(userID string) bool
	Record(userID string)
	Remaining(userID string) int
}

// Registry manages pending verification codes.
type Registry interface {
	Issue(userID, email string, silent bool) (string, error)
	Validate(userID, code string) (email string, silent bool, err error)
}

// Templates renders the verification email bodies.
type Templates interface {
	Verification(code, username string) (html, text string)
}

// Notifier delivers a status token to the downstream destination currently
// associated with the user. Best-effort: no destination means no-op.
type Notifier interface {
	EmitStatus(userID string, status domain.Status)
}

// Messenger delivers human-readable feedback to the user. The service
// decides which messages the --silent flag suppresses.
type Messenger interface {
	Send(userID, text string)
}

// Deps wires the orchestrator's collaborators.
type Deps struct {
	API       GroupAPI
	Limiter   RateLimiter
	Registry  Registry
	Templates Templates
	Notifier  Notifier
	Messenger Messenger
	Pool      *async.Pool
	Config    *config.Config
	Log       *slog.Logger
}

// Service orchestrates the end-to-end subscription flow. It holds no
// per-request state: every command or inbound message is a fresh pass
// through the gates.
type Service struct {
	api       GroupAPI
	limiter   RateLimiter
	registry  Registry
	templates Templates
	notifier  Notifier
	messenger Messenger
	pool      *async.Pool
	cfg       *config.Config
	log       *slog.Logger
}

func NewService(d Deps) *Service {
	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	if d.Notifier == nil {
		d.Notifier = noopNotifier{}
	}
	return &Service{
		api:       d.API,
		limiter:   d.Limiter,
		registry:  d.Registry,
		templates: d.Templates,
		notifier:  d.Notifier,
		messenger: d.Messenger,
		pool:      d.Pool,
		cfg:       d.Config,
		log:       log,
	}
}

// SetNotifier swaps the status destination after construction. The wire
// channel hub needs the service to dispatch inbound commands, so the two
// are wired in two steps. Call before serving traffic.
func (s *Service) SetNotifier(n Notifier) {
	if n == nil {
		n = noopNotifier{}
	}
	s.notifier = n
}

type noopNotifier struct{}

func (noopNotifier) EmitStatus(string, domain.Status) {}

// Dispatch parses raw command tokens from either source (local command or
// wire channel) and routes them. The returned error reflects only the
// synchronous phase; async completions report via Messenger and Notifier.
func (s *Service) Dispatch(userID, username string, args []string) error {
	req, vreq, err := domain.ParseArgs(args)
	if err != nil {
		s.messenger.Send(userID, msgUsage)
		return err
	}
	if vreq != nil {
		return s.Verify(userID, username, vreq)
	}
	return s.Subscribe(userID, username, req)
}

// Subscribe runs the synchronous gates (privacy, email syntax, cooldown)
// and, when they all pass, records the cooldown and hands the remote work
// to the pool. The caller's goroutine never blocks on network I/O.
func (s *Service) Subscribe(userID, username string, req *domain.Request) error {
	log := s.log.With("invocation", id.New(), "user_id", userID)

	if s.cfg.PrivacyPolicyURL != "" && !req.AgreePrivacy {
		// Always shown, even in silent mode: consent cannot be implied.
		s.messenger.Send(userID, fmt.Sprintf(
			"Privacy agreement required - to subscribe you must agree to our privacy policy (%s). Re-run the command with --agree-privacy.",
			s.cfg.PrivacyPolicyURL))
		return domain.ErrPrivacyNotAccepted
	}

	if !domain.ValidEmail(req.Email) {
		// No cooldown charge for requests that never leave the process.
		s.say(userID, req.Silent, msgInvalidEmail)
		s.notifier.EmitStatus(userID, domain.StatusEmailNotAdded)
		return domain.ErrInvalidEmail
	}

	if !s.limiter.CanProceed(userID) {
		wait := s.limiter.Remaining(userID)
		s.say(userID, req.Silent, fmt.Sprintf(
			"Please wait - you're subscribing too quickly. Try again in %d seconds.", wait))
		return fmt.Errorf("wait %d seconds: %w", wait, domain.ErrRateLimited)
	}

	s.say(userID, req.Silent, msgProcessing)

	if s.cfg.EmailValidationEnabled {
		return s.beginVerification(log, userID, username, req)
	}
	return s.submitInsert(log, userID, username, req.Email, req.Silent)
}

// Verify consumes the pending code and, on success, proceeds exactly like a
// verified subscription: record the cooldown and submit the insert with the
// stored email and silent flag.
func (s *Service) Verify(userID, username string, req *domain.VerifyRequest) error {
	log := s.log.With("invocation", id.New(), "user_id", userID)

	email, silent, err := s.registry.Validate(userID, req.Code)
	if err != nil {
		log.Info("verification rejected", "reason", err)
		s.messenger.Send(userID, msgVerificationFailed)
		s.notifier.EmitStatus(userID, domain.StatusEmailVerificationFailed)
		return err
	}
	return s.submitInsert(log, userID, username, email, silent)
}

// beginVerification issues a code and sends the challenge email from the
// pool. The flow suspends here until the user echoes the code back.
func (s *Service) beginVerification(log *slog.Logger, userID, username string, req *domain.Request) error {
	s.limiter.Record(userID)

	code, err := s.registry.Issue(userID, req.Email, req.Silent)
	if err != nil {
		log.Error("verification code could not be issued", "err", err)
		s.messenger.Send(userID, msgFailed)
		s.notifier.EmitStatus(userID, domain.StatusEmailVerificationFailed)
		return fmt.Errorf("issue verification code: %w", domain.ErrRemote)
	}

	email, silent := req.Email, req.Silent
	submitted := s.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
		defer cancel()

		html, text := s.templates.Verification(code, username)
		if err := s.api.SendEmail(ctx, s.cfg.EmailFrom, []string{email}, verificationSubject, text, html); err != nil {
			// The sent status is only reported on a genuine acknowledgment.
			log.Error("verification email send failed", "err", err)
			s.messenger.Send(userID, msgFailed)
			s.notifier.EmitStatus(userID, domain.StatusEmailVerificationFailed)
			return
		}
		s.say(userID, silent, msgVerificationSent)
		s.notifier.EmitStatus(userID, domain.StatusEmailVerificationSent)
	})
	if !submitted {
		log.Error("worker pool rejected verification email send")
		s.messenger.Send(userID, msgFailed)
		s.notifier.EmitStatus(userID, domain.StatusEmailVerificationFailed)
		return domain.ErrRemote
	}
	return nil
}

// submitInsert charges the cooldown and runs the remote insert on the pool.
// Record happens before the submit to narrow the double-submit window.
func (s *Service) submitInsert(log *slog.Logger, userID, username, email string, silent bool) error {
	s.limiter.Record(userID)

	submitted := s.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
		defer cancel()

		outcome := s.api.InsertEmailToGroup(ctx, s.cfg.GroupID, email, map[string]string{
			usernameSubstitution: username,
		})
		s.finishInsert(log, userID, silent, outcome)
	})
	if !submitted {
		log.Error("worker pool rejected group insert")
		s.messenger.Send(userID, msgFailed)
		s.notifier.EmitStatus(userID, domain.StatusEmailNotAdded)
		return domain.ErrRemote
	}
	return nil
}

// finishInsert maps the outcome onto the status vocabulary and reports it.
// Runs on a pool goroutine.
func (s *Service) finishInsert(log *slog.Logger, userID string, silent bool, outcome domain.Outcome) {
	status := domain.StatusForOutcome(outcome)
	s.notifier.EmitStatus(userID, status)

	switch outcome {
	case domain.OutcomeAdded:
		s.say(userID, silent, msgAdded)
	case domain.OutcomeConflict:
		// A conflict is a user-level answer, not an operator failure.
		s.say(userID, silent, msgAlreadyExists)
	default:
		log.Warn("subscription failed", "status", status)
		s.messenger.Send(userID, msgFailed)
	}
}

// say delivers suppressible feedback; errors always go through Messenger
// directly.
func (s *Service) say(userID string, silent bool, text string) {
	if silent {
		return
	}
	s.messenger.Send(userID, text)
}
