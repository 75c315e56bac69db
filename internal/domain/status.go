package domain

// Status is the closed outcome vocabulary reported to the downstream server
// after a subscription attempt. Each value has a fixed lowercase wire token;
// the token bytes are the entire outbound channel payload.
type Status int

const (
	StatusEmailAdded Status = iota
	StatusEmailNotAdded
	StatusEmailAlreadyExists
	StatusEmailVerificationSent
	StatusEmailVerificationFailed
)

var statusTokens = [...]string{
	StatusEmailAdded:              "email_added",
	StatusEmailNotAdded:           "email_not_added",
	StatusEmailAlreadyExists:      "email_already_exists",
	StatusEmailVerificationSent:   "email_verification_sent",
	StatusEmailVerificationFailed: "email_verification_failed",
}

// Token returns the fixed wire token for the status.
func (s Status) Token() string {
	if s < 0 || int(s) >= len(statusTokens) {
		return "email_not_added"
	}
	return statusTokens[s]
}

// Bytes returns the raw UTF-8 payload sent on the wire channel.
func (s Status) Bytes() []byte { return []byte(s.Token()) }

func (s Status) String() string { return s.Token() }

// Outcome is the result of a remote group-insert call.
type Outcome int

const (
	OutcomeAdded Outcome = iota
	OutcomeConflict
	OutcomeFailure
)

// StatusForOutcome maps an insert outcome onto the status vocabulary.
// It performs no I/O.
func StatusForOutcome(o Outcome) Status {
	switch o {
	case OutcomeAdded:
		return StatusEmailAdded
	case OutcomeConflict:
		return StatusEmailAlreadyExists
	default:
		return StatusEmailNotAdded
	}
}
