package tool

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeWikipedia struct {
	mu          sync.Mutex
	searchBody  string
	summaries   map[string]string
	requested   []string
	userAgents  []string
	searchCalls int
}

func (f *fakeWikipedia) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/w/api.php", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.searchCalls++
		f.userAgents = append(f.userAgents, r.UserAgent())
		f.mu.Unlock()
		q := r.URL.Query()
		if q.Get("list") != "search" || q.Get("srlimit") != "1" || q.Get("format") != "json" {
			http.Error(w, "bad search params", http.StatusBadRequest)
			return
		}
		w.Write([]byte(f.searchBody))
	})
	mux.HandleFunc("/api/rest_v1/page/summary/", func(w http.ResponseWriter, r *http.Request) {
		title := strings.TrimPrefix(r.URL.Path, "/api/rest_v1/page/summary/")
		f.mu.Lock()
		f.requested = append(f.requested, title)
		f.userAgents = append(f.userAgents, r.UserAgent())
		f.mu.Unlock()
		body, ok := f.summaries[title]
		if !ok {
			http.Error(w, `{"title":"Not found."}`, http.StatusNotFound)
			return
		}
		w.Write([]byte(body))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func (f *fakeWikipedia) tool(srv *httptest.Server) *WikipediaTool {
	return NewWikipediaTool(srv.URL+"/w/api.php", srv.URL+"/api/rest_v1/page/summary/", "test-agent/1.0", srv.Client())
}

func TestWikipediaTool_Success(t *testing.T) {
	f := &fakeWikipedia{
		searchBody: `{"query":{"search":[{"title":"Go (programming language)","snippet":"<span class=\"searchmatch\">Go</span> is a language"}]}}`,
		summaries: map[string]string{
			"Go (programming language)": `{
				"title": "Go (programming language)",
				"extract": "Go is a statically typed, compiled high-level programming language.",
				"content_urls": {"desktop": {"page": "https://en.wikipedia.org/wiki/Go_(programming_language)"}},
				"thumbnail": {"source": "https://upload.wikimedia.org/go.png"}
			}`,
		},
	}
	srv := f.server(t)

	payload, err := f.tool(srv).Execute(context.Background(), map[string]any{"query": "golang"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg, soft := payload.SoftError(); soft {
		t.Fatalf("unexpected soft error: %s", msg)
	}
	if payload["title"] != "Go (programming language)" {
		t.Errorf("unexpected title %v", payload["title"])
	}
	if !strings.HasPrefix(payload["extract"].(string), "Go is a statically typed") {
		t.Errorf("unexpected extract %v", payload["extract"])
	}
	if payload["url"] != "https://en.wikipedia.org/wiki/Go_(programming_language)" {
		t.Errorf("unexpected url %v", payload["url"])
	}
	if payload["thumbnail"] != "https://upload.wikimedia.org/go.png" {
		t.Errorf("unexpected thumbnail %v", payload["thumbnail"])
	}
	if _, err := time.Parse(TimestampLayout, payload["timestamp"].(string)); err != nil {
		t.Errorf("bad timestamp: %v", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ua := range f.userAgents {
		if ua != "test-agent/1.0" {
			t.Fatalf("expected configured user agent, got %q", ua)
		}
	}
}

func TestWikipediaTool_NoHitFallsBackToUnderscoredQuery(t *testing.T) {
	f := &fakeWikipedia{
		searchBody: `{"query":{"search":[]}}`,
		summaries: map[string]string{
			"Ada_Lovelace": `{"title": "Ada Lovelace", "extract": "English mathematician."}`,
		},
	}
	srv := f.server(t)

	payload, err := f.tool(srv).Execute(context.Background(), map[string]any{"query": "Ada Lovelace"})
	if err != nil {
		t.Fatal(err)
	}
	if payload["title"] != "Ada Lovelace" {
		t.Fatalf("unexpected payload %v", payload)
	}
	if payload["thumbnail"] != "" {
		t.Fatalf("expected empty thumbnail, got %v", payload["thumbnail"])
	}
	if payload["url"] != "" {
		t.Fatalf("expected empty url, got %v", payload["url"])
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requested) != 1 || f.requested[0] != "Ada_Lovelace" {
		t.Fatalf("expected summary lookup for Ada_Lovelace, got %v", f.requested)
	}
}

func TestWikipediaTool_MissingExtractUsesSnippet(t *testing.T) {
	f := &fakeWikipedia{
		searchBody: `{"query":{"search":[{"title":"Gopher","snippet":"The <span class=\"searchmatch\">gopher</span> &amp; friends"}]}}`,
		summaries:  map[string]string{"Gopher": `{"title": "Gopher"}`},
	}
	srv := f.server(t)

	payload, _ := f.tool(srv).Execute(context.Background(), map[string]any{"query": "gopher"})
	if payload["extract"] != "The gopher & friends" {
		t.Fatalf("expected snippet text, got %q", payload["extract"])
	}
}

func TestWikipediaTool_MissingEverythingUsesDefaults(t *testing.T) {
	f := &fakeWikipedia{
		searchBody: `{}`,
		summaries:  map[string]string{"zzz": `{}`},
	}
	srv := f.server(t)

	payload, _ := f.tool(srv).Execute(context.Background(), map[string]any{"query": "zzz"})
	if payload["title"] != "zzz" {
		t.Fatalf("expected title fallback to query, got %v", payload["title"])
	}
	if payload["extract"] != "No summary available" {
		t.Fatalf("expected default extract, got %v", payload["extract"])
	}
}

func TestWikipediaTool_SummaryNotFoundIsSoftFailure(t *testing.T) {
	f := &fakeWikipedia{searchBody: `{"query":{"search":[]}}`, summaries: map[string]string{}}
	srv := f.server(t)

	payload, err := f.tool(srv).Execute(context.Background(), map[string]any{"query": "no such page"})
	if err != nil {
		t.Fatalf("handler must not fail hard, got %v", err)
	}
	msg, ok := payload.SoftError()
	if !ok || !strings.HasPrefix(msg, "Failed to get Wikipedia info: ") {
		t.Fatalf("unexpected error payload %v", payload)
	}
	if !strings.Contains(msg, "404") {
		t.Fatalf("expected upstream status in %q", msg)
	}
	if payload["suggestion"] != "Try searching for 'no such page' directly on Wikipedia" {
		t.Fatalf("unexpected suggestion %v", payload["suggestion"])
	}
}

func TestWikipediaTool_UnreachableIsSoftFailure(t *testing.T) {
	tool := NewWikipediaTool("http://127.0.0.1:1/w/api.php", "http://127.0.0.1:1/summary/", "ua", NewHTTPClient(time.Second))

	payload, err := tool.Execute(context.Background(), map[string]any{"query": "x"})
	if err != nil {
		t.Fatalf("handler must not fail hard, got %v", err)
	}
	if _, ok := payload.SoftError(); !ok {
		t.Fatalf("expected soft error, got %v", payload)
	}
	if _, ok := payload["suggestion"]; !ok {
		t.Fatal("expected suggestion")
	}
}

func TestSnippetText(t *testing.T) {
	got := snippetText(`<span class="searchmatch">Alan</span>  Turing was   an &quot;English&quot; mathematician`)
	if got != `Alan Turing was an "English" mathematician` {
		t.Fatalf("unexpected text %q", got)
	}
}
