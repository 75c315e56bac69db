package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgs_EmailOnly(t *testing.T) {
	req, vreq, err := ParseArgs([]string{"user@example.com"})
	require.NoError(t, err)
	require.Nil(t, vreq)
	assert.Equal(t, "user@example.com", req.Email)
	assert.False(t, req.AgreePrivacy)
	assert.False(t, req.Silent)
}

func TestParseArgs_FlagsAnyOrder(t *testing.T) {
	req, vreq, err := ParseArgs([]string{"user@example.com", "--silent", "--agree-privacy"})
	require.NoError(t, err)
	require.Nil(t, vreq)
	assert.True(t, req.Silent)
	assert.True(t, req.AgreePrivacy)

	req, _, err = ParseArgs([]string{"user@example.com", "--agree-privacy", "--silent"})
	require.NoError(t, err)
	assert.True(t, req.Silent)
	assert.True(t, req.AgreePrivacy)
}

func TestParseArgs_FlagsCaseInsensitive(t *testing.T) {
	req, _, err := ParseArgs([]string{"user@example.com", "--SILENT", "--Agree-Privacy"})
	require.NoError(t, err)
	assert.True(t, req.Silent)
	assert.True(t, req.AgreePrivacy)
}

func TestParseArgs_UnknownFlagIgnored(t *testing.T) {
	req, _, err := ParseArgs([]string{"user@example.com", "--verbose"})
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", req.Email)
	assert.False(t, req.Silent)
}

func TestParseArgs_VerifyForm(t *testing.T) {
	req, vreq, err := ParseArgs([]string{"-c", "12345"})
	require.NoError(t, err)
	require.Nil(t, req)
	require.NotNil(t, vreq)
	assert.Equal(t, "12345", vreq.Code)
}

func TestParseArgs_VerifyMarkerCaseInsensitive(t *testing.T) {
	_, vreq, err := ParseArgs([]string{"-C", "12345"})
	require.NoError(t, err)
	require.NotNil(t, vreq)
}

func TestParseArgs_VerifyWithoutCode(t *testing.T) {
	_, _, err := ParseArgs([]string{"-c"})
	assert.ErrorIs(t, err, ErrUsage)
}

func TestParseArgs_Empty(t *testing.T) {
	_, _, err := ParseArgs(nil)
	assert.ErrorIs(t, err, ErrUsage)

	_, _, err = ParseArgs([]string{""})
	assert.ErrorIs(t, err, ErrUsage)
}

func TestValidEmail(t *testing.T) {
	valid := []string{
		"user@example.com",
		"first.last@sub.example.co.uk",
		" padded@example.com ",
	}
	for _, e := range valid {
		assert.True(t, ValidEmail(e), e)
	}

	invalid := []string{
		"",
		"not-an-email",
		"@example.com",
		"user@",
		"user example.com",
	}
	for _, e := range invalid {
		assert.False(t, ValidEmail(e), e)
	}
}
