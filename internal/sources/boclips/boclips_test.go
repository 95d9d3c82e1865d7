package boclips

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtractID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ref  string
		want string
	}{
		{
			name: "plain video url",
			ref:  "https://www.boclips.com/videos/6080431a52688a3fcaf2ed26",
			want: "6080431a52688a3fcaf2ed26",
		},
		{
			name: "shared url with query",
			ref:  "https://classroom.boclips.com/videos/shared/6080431a52688a3fcaf2ed26?segmentStart=0",
			want: "6080431a52688a3fcaf2ed26",
		},
		{
			name: "bare id",
			ref:  "6080431a52688a3fcaf2ed26",
			want: "6080431a52688a3fcaf2ed26",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ExtractID(tt.ref); got != tt.want {
				t.Errorf("ExtractID(%q) = %q, want %q", tt.ref, got, tt.want)
			}
		})
	}
}

// newTestServer serves a token endpoint plus the handlers given per path.
func newTestServer(t *testing.T, handlers map[string]http.HandlerFunc) *Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/token", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if r.FormValue("grant_type") != "client_credentials" {
			http.Error(w, "bad grant", http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"access_token":"test-token"}`))
	})
	for path, h := range handlers {
		mux.HandleFunc(path, h)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return NewClient(Config{
		ClientID:     "id",
		ClientSecret: "secret",
		BaseURL:      srv.URL,
	})
}

func requireBearer(t *testing.T, r *http.Request) {
	t.Helper()
	if r.Header.Get("Authorization") != "Bearer test-token" {
		t.Errorf("missing bearer token on %s", r.URL.Path)
	}
}

func TestVideoMetadata(t *testing.T) {
	t.Parallel()

	c := newTestServer(t, map[string]http.HandlerFunc{
		"/v1/videos/known": func(w http.ResponseWriter, r *http.Request) {
			requireBearer(t, r)
			w.Write([]byte(`{"id":"known","title":"Cells","description":"Biology intro",
				"_links":{"transcript":{"href":"http://example.invalid/t"}}}`))
		},
		"/v1/videos/forbidden": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "forbidden", http.StatusForbidden)
		},
		"/v1/videos/broken": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		},
	})
	ctx := context.Background()

	meta, err := c.VideoMetadata(ctx, "known")
	if err != nil {
		t.Fatalf("VideoMetadata: %v", err)
	}
	if meta == nil || meta.Title != "Cells" {
		t.Fatalf("meta = %+v, want title Cells", meta)
	}
	if meta.Links.Transcript.Href != "http://example.invalid/t" {
		t.Errorf("transcript link = %q", meta.Links.Transcript.Href)
	}

	meta, err = c.VideoMetadata(ctx, "forbidden")
	if err != nil {
		t.Fatalf("VideoMetadata (403): %v", err)
	}
	if meta != nil {
		t.Errorf("403 should yield nil metadata, got %+v", meta)
	}

	if _, err := c.VideoMetadata(ctx, "broken"); err == nil {
		t.Error("500 should be an error")
	}
}

func TestTranscript(t *testing.T) {
	t.Parallel()

	c := newTestServer(t, map[string]http.HandlerFunc{
		"/v1/videos/plain/transcript": func(w http.ResponseWriter, r *http.Request) {
			requireBearer(t, r)
			w.Write([]byte("  spoken words here  "))
		},
		"/v1/videos/segmented/transcript": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"transcript":[{"text":"first"},{"text":"second"}]}`))
		},
		"/v1/videos/missing/transcript": func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		},
		"/v1/videos/empty/transcript": func(w http.ResponseWriter, r *http.Request) {},
	})
	ctx := context.Background()

	got, err := c.Transcript(ctx, "plain", nil)
	if err != nil {
		t.Fatalf("Transcript: %v", err)
	}
	if got != "spoken words here" {
		t.Errorf("Transcript = %q", got)
	}

	got, err = c.Transcript(ctx, "segmented", nil)
	if err != nil {
		t.Fatalf("Transcript (segmented): %v", err)
	}
	if got != "first second" {
		t.Errorf("segmented transcript = %q, want %q", got, "first second")
	}

	for _, id := range []string{"missing", "empty"} {
		got, err = c.Transcript(ctx, id, nil)
		if err != nil {
			t.Fatalf("Transcript (%s): %v", id, err)
		}
		if got != "" {
			t.Errorf("Transcript (%s) = %q, want empty", id, got)
		}
	}
}
