package templates

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_SeedsMissingFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "templates")

	repo, err := Load(dir)
	require.NoError(t, err)
	require.NotNil(t, repo)

	for _, name := range []string{"verification.html", "verification.txt"} {
		b, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Contains(t, string(b), "{{code}}")
	}
}

func TestLoad_PrefersOperatorEditedFiles(t *testing.T) {
	dir := t.TempDir()
	custom := "Hi {{username}}, code: {{code}}"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "verification.txt"), []byte(custom), 0o644))

	repo, err := Load(dir)
	require.NoError(t, err)

	_, text := repo.Verification("12345", "Steve")
	assert.Equal(t, "Hi Steve, code: 12345", text)
}

func TestVerification_SubstitutesPlaceholders(t *testing.T) {
	repo, err := Load(t.TempDir())
	require.NoError(t, err)

	html, text := repo.Verification("54321", "Alex")
	for _, body := range []string{html, text} {
		assert.Contains(t, body, "54321")
		assert.NotContains(t, body, "{{code}}")
		assert.NotContains(t, body, "{{username}}")
	}
}
