package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_Tokens(t *testing.T) {
	cases := map[Status]string{
		StatusEmailAdded:              "email_added",
		StatusEmailNotAdded:           "email_not_added",
		StatusEmailAlreadyExists:      "email_already_exists",
		StatusEmailVerificationSent:   "email_verification_sent",
		StatusEmailVerificationFailed: "email_verification_failed",
	}
	for status, token := range cases {
		assert.Equal(t, token, status.Token())
		assert.Equal(t, []byte(token), status.Bytes())
	}
}

func TestStatus_OutOfRangeFallsBackToNotAdded(t *testing.T) {
	assert.Equal(t, "email_not_added", Status(99).Token())
	assert.Equal(t, "email_not_added", Status(-1).Token())
}

func TestStatusForOutcome(t *testing.T) {
	assert.Equal(t, StatusEmailAdded, StatusForOutcome(OutcomeAdded))
	assert.Equal(t, StatusEmailAlreadyExists, StatusForOutcome(OutcomeConflict))
	assert.Equal(t, StatusEmailNotAdded, StatusForOutcome(OutcomeFailure))
}
