package templates

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

//go:embed defaults/verification.html defaults/verification.txt
var defaults embed.FS

// Pair holds the two renderings of one email.
type Pair struct {
	HTML string
	Text string
}

// Repository serves the verification email templates. Templates live as
// plain files under a directory so operators can edit them; a missing file
// is seeded from the embedded default on first load.
type Repository struct {
	verification Pair
}

// Load reads the templates from dir, creating the directory and seeding
// missing files first.
func Load(dir string) (*Repository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create templates dir: %w", err)
	}
	html, err := loadOrSeed(dir, "verification.html")
	if err != nil {
		return nil, err
	}
	text, err := loadOrSeed(dir, "verification.txt")
	if err != nil {
		return nil, err
	}
	return &Repository{verification: Pair{HTML: html, Text: text}}, nil
}

// Verification renders the verification email with the code and username
// placeholders substituted.
func (r *Repository) Verification(code, username string) (html, text string) {
	repl := strings.NewReplacer("{{code}}", code, "{{username}}", username)
	return repl.Replace(r.verification.HTML), repl.Replace(r.verification.Text)
}

func loadOrSeed(dir, name string) (string, error) {
	path := filepath.Join(dir, name)
	if b, err := os.ReadFile(path); err == nil {
		return string(b), nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("read template %s: %w", name, err)
	}

	b, err := defaults.ReadFile("defaults/" + name)
	if err != nil {
		return "", fmt.Errorf("embedded template %s: %w", name, err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", fmt.Errorf("seed template %s: %w", name, err)
	}
	return string(b), nil
}
