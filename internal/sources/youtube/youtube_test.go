package youtube

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtractVideoID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{
			name: "watch url",
			url:  "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			want: "dQw4w9WgXcQ",
		},
		{
			name: "watch url with extra params",
			url:  "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42s",
			want: "dQw4w9WgXcQ",
		},
		{
			name: "short link",
			url:  "https://youtu.be/dQw4w9WgXcQ",
			want: "dQw4w9WgXcQ",
		},
		{
			name: "short link with share param",
			url:  "https://youtu.be/dQw4w9WgXcQ?feature=share",
			want: "dQw4w9WgXcQ",
		},
		{
			name: "embed url",
			url:  "https://www.youtube.com/embed/dQw4w9WgXcQ",
			want: "dQw4w9WgXcQ",
		},
		{
			name: "bare token in path",
			url:  "https://www.youtube.com/v/dQw4w9WgXcQ",
			want: "dQw4w9WgXcQ",
		},
		{
			name:    "no id present",
			url:     "https://www.youtube.com/feed/library",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ExtractVideoID(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ExtractVideoID(%q) = %q, want error", tt.url, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractVideoID(%q): %v", tt.url, err)
			}
			if got != tt.want {
				t.Errorf("ExtractVideoID(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestTranscript(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("v") {
		case "hasCaption1":
			w.Write([]byte(`<?xml version="1.0" encoding="utf-8"?>` +
				`<transcript><text start="0" dur="2">Hello &amp; welcome</text>` +
				`<text start="2" dur="3">to the lesson</text></transcript>`))
		case "noCaption11":
			// Empty body, 200: the endpoint's "no transcript" shape.
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	c := NewClient(WithBaseURLs(srv.URL+"/watch", srv.URL+"/timedtext"), WithHTTPClient(srv.Client()))
	ctx := context.Background()

	got, err := c.Transcript(ctx, "hasCaption1")
	if err != nil {
		t.Fatalf("Transcript: %v", err)
	}
	want := "Hello & welcome\nto the lesson"
	if got != want {
		t.Errorf("Transcript = %q, want %q", got, want)
	}

	got, err = c.Transcript(ctx, "noCaption11")
	if err != nil {
		t.Fatalf("Transcript (missing): %v", err)
	}
	if got != "" {
		t.Errorf("Transcript for captionless video = %q, want empty", got)
	}

	got, err = c.Transcript(ctx, "gone4044444")
	if err != nil {
		t.Fatalf("Transcript (404): %v", err)
	}
	if got != "" {
		t.Errorf("Transcript for unavailable video = %q, want empty", got)
	}
}

func TestTitle(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>Fractions for Beginners - YouTube</title></head></html>`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(WithBaseURLs(srv.URL+"/watch", srv.URL+"/timedtext"), WithHTTPClient(srv.Client()))

	got, err := c.Title(context.Background(), "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Title: %v", err)
	}
	if got != "Fractions for Beginners" {
		t.Errorf("Title = %q, want %q", got, "Fractions for Beginners")
	}
}
