package substack

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

const homepageHTML = `<!DOCTYPE html>
<html><body>
<nav><a href="/about">About</a></nav>
<a class="sitemap-link" href="/p/first-post">First post</a>
<a class="sitemap-link" href="/p/older-post">Older post</a>
</body></html>`

const postHTML = `<!DOCTYPE html>
<html><body>
<div class="header"><p>Not the article</p></div>
<div class="body markup">
  <p>First paragraph.</p>
  <ul><li>skipped list</li></ul>
  <p>Second <em>paragraph</em>.</p>
  <p>   </p>
</div>
</body></html>`

func TestLatestPostURLResolvesRelativeHref(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(homepageHTML))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	got, err := client.LatestPostURL(context.Background())
	if err != nil {
		t.Fatalf("LatestPostURL returned error: %v", err)
	}
	if want := server.URL + "/p/first-post"; got != want {
		t.Fatalf("unexpected post url: got %q want %q", got, want)
	}
}

func TestLatestPostURLNoLink(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><a href="/about">About</a></body></html>`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	if _, err := client.LatestPostURL(context.Background()); !errors.Is(err, ErrNoPost) {
		t.Fatalf("expected ErrNoPost, got %v", err)
	}
}

func TestLatestPostURLServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	if _, err := client.LatestPostURL(context.Background()); err == nil {
		t.Fatal("expected error for HTTP 502")
	}
}

func TestPostTextJoinsParagraphs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(postHTML))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	got, err := client.PostText(context.Background(), server.URL+"/p/first-post")
	if err != nil {
		t.Fatalf("PostText returned error: %v", err)
	}
	if want := "First paragraph.\nSecond paragraph."; got != want {
		t.Fatalf("unexpected text: got %q want %q", got, want)
	}
}

func TestPostTextMissingBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><div class="header"><p>nope</p></div></body></html>`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	if _, err := client.PostText(context.Background(), server.URL+"/p/x"); !errors.Is(err, ErrNoContent) {
		t.Fatalf("expected ErrNoContent, got %v", err)
	}
}
