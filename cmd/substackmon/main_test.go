package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCLI(t *testing.T, args []string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

func TestConfigInit(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCLI(t, []string{"config", "init", "--path", target})
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, err := runCLI(t, []string{"config", "init", "--path", target}); err == nil {
		t.Fatal("expected error when config file already exists")
	}
	if _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigShowPrintsSample(t *testing.T) {
	out, err := runCLI(t, []string{"config", "show"})
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "[substack]")
	requireContains(t, out, "[postmark]")
}

func TestStatusCommandRendersDaemonState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"running","worker_active":true,"ping_active":true,"cycle_count":3,"last_outcome":"delivered","last_processed":"https://demo.substack.com/p/post-3"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	out, err := runCLI(t, []string{"status", "--addr", srv.URL})
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Worker:")
	requireContains(t, out, "running")
	requireContains(t, out, "delivered")
	requireContains(t, out, "https://demo.substack.com/p/post-3")
}

func TestStartAndStopCommands(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/start":
			w.Write([]byte(`{"status":"worker started"}`)) //nolint:errcheck
		case "/stop":
			w.Write([]byte(`{"status":"worker stopping..."}`)) //nolint:errcheck
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	}))
	defer srv.Close()

	out, err := runCLI(t, []string{"start", "--addr", srv.URL})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	requireContains(t, out, "worker started")

	out, err = runCLI(t, []string{"stop", "--addr", srv.URL})
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "worker stopping...")
}
