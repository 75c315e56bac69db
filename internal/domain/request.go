package domain

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	flagSilent   = "--silent"
	flagPrivacy  = "--agree-privacy"
	verifyMarker = "-c"
)

// Request is a canonical subscription request, regardless of whether it
// arrived as a local command or over the wire channel.
type Request struct {
	Email        string
	AgreePrivacy bool
	Silent       bool
}

// VerifyRequest carries the code echoed back by the user to confirm a
// pending email verification.
type VerifyRequest struct {
	Code string
}

// v is the package-level singleton validator. It is initialised once at
// package load time.
var v = validator.New()

// ValidEmail reports whether the address is syntactically acceptable.
func ValidEmail(email string) bool {
	return v.Var(strings.TrimSpace(email), "required,email") == nil
}

// ParseArgs turns a command token sequence into a Request or a VerifyRequest.
// The first token is the email address unless it is the verification marker.
// Flags are recognised case-insensitively and in any order.
func ParseArgs(args []string) (*Request, *VerifyRequest, error) {
	if len(args) == 0 || args[0] == "" {
		return nil, nil, ErrUsage
	}

	if strings.EqualFold(args[0], verifyMarker) {
		if len(args) < 2 || args[1] == "" {
			return nil, nil, ErrUsage
		}
		return nil, &VerifyRequest{Code: args[1]}, nil
	}

	req := &Request{Email: args[0]}
	for _, arg := range args[1:] {
		switch {
		case strings.EqualFold(arg, flagSilent):
			req.Silent = true
		case strings.EqualFold(arg, flagPrivacy):
			req.AgreePrivacy = true
		}
	}
	return req, nil, nil
}
