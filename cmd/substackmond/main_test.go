package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"
)

func writeRunConfig(t *testing.T, dataDir string) string {
	t.Helper()
	content := fmt.Sprintf(`[substack]
url = "https://demo.substack.com"

[gemini]
api_key = "test-key"

[postmark]
server_token = "test-token"
sender = "sender@example.com"
recipients = ["reader@example.com"]

[paths]
data_dir = %q
api_bind = "127.0.0.1:0"
`, dataDir)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestRunFailsOnInvalidConfig(t *testing.T) {
	t.Setenv("SUBSTACK_BLOG_URL", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("POSTMARK_API_TOKEN", "")
	t.Setenv("EMAIL_SENDER", "")
	t.Setenv("EMAIL_RECEIVERS", "")

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[substack]\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	err := run(context.Background(), path)
	if err == nil {
		t.Fatal("run must fail when required settings are missing")
	}
	if !strings.Contains(err.Error(), "substack.url") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunFailsWhenAnotherInstanceHoldsTheLock(t *testing.T) {
	dataDir := t.TempDir()
	cfgPath := writeRunConfig(t, dataDir)

	lock := flock.New(filepath.Join(dataDir, "substackmond.lock"))
	held, err := lock.TryLock()
	if err != nil || !held {
		t.Fatalf("acquire lock: held=%v err=%v", held, err)
	}
	defer lock.Unlock() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = run(ctx, cfgPath)
	if err == nil {
		t.Fatal("run must report an error when the daemon lock is held")
	}
	if !strings.Contains(err.Error(), "another substackmond instance") {
		t.Fatalf("unexpected error: %v", err)
	}
}
