package tool

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// WikipediaTool finds the best-matching article and returns its summary.
type WikipediaTool struct {
	BaseTool
	searchURL  string
	summaryURL string
	userAgent  string
	client     *http.Client
	now        func() time.Time
}

// NewWikipediaTool creates the wikipedia_search tool. summaryURL is the
// REST summary prefix; the page title is appended to it.
func NewWikipediaTool(searchURL, summaryURL, userAgent string, client *http.Client) *WikipediaTool {
	if client == nil {
		client = NewHTTPClient(DefaultTimeout)
	}
	return &WikipediaTool{
		BaseTool: BaseTool{
			ToolName:        "wikipedia_search",
			ToolDescription: "Search Wikipedia and get article summary",
			ToolSchema:      stringSchema("query", "Search query"),
		},
		searchURL:  searchURL,
		summaryURL: summaryURL,
		userAgent:  userAgent,
		client:     client,
		now:        time.Now,
	}
}

type wikiSearchResponse struct {
	Query struct {
		Search []wikiSearchHit `json:"search"`
	} `json:"query"`
}

type wikiSearchHit struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

type wikiSummaryResponse struct {
	Title       string `json:"title"`
	Extract     string `json:"extract"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
	Thumbnail *struct {
		Source string `json:"source"`
	} `json:"thumbnail"`
}

// Execute never returns an error: lookup failures are reported in the
// payload together with a suggestion.
func (t *WikipediaTool) Execute(ctx context.Context, args map[string]any) (Payload, error) {
	query := stringArg(args, "query")

	payload, err := t.lookup(ctx, query)
	if err != nil {
		return Payload{
			"error":      fmt.Sprintf("Failed to get Wikipedia info: %v", err),
			"suggestion": fmt.Sprintf("Try searching for '%s' directly on Wikipedia", query),
		}, nil
	}
	return payload, nil
}

func (t *WikipediaTool) lookup(ctx context.Context, query string) (Payload, error) {
	headers := map[string]string{"User-Agent": t.userAgent}

	hit, err := t.search(ctx, query, headers)
	if err != nil {
		return nil, err
	}

	// Without a search hit the query itself is tried as a page title.
	title := strings.ReplaceAll(query, " ", "_")
	if hit != nil {
		title = hit.Title
	}

	var summary wikiSummaryResponse
	if err := getJSON(ctx, t.client, "wikipedia summary", t.summaryURL+url.PathEscape(title), headers, true, &summary); err != nil {
		return nil, err
	}

	extract := summary.Extract
	if extract == "" && hit != nil {
		extract = snippetText(hit.Snippet)
	}

	thumbnail := ""
	if summary.Thumbnail != nil {
		thumbnail = summary.Thumbnail.Source
	}

	return Payload{
		"title":     fallback(summary.Title, query),
		"extract":   fallback(extract, "No summary available"),
		"url":       summary.ContentURLs.Desktop.Page,
		"thumbnail": thumbnail,
		"timestamp": timestamp(t.now()),
	}, nil
}

// search returns the top-ranked hit, or nil when there is none.
func (t *WikipediaTool) search(ctx context.Context, query string, headers map[string]string) (*wikiSearchHit, error) {
	u, err := url.Parse(t.searchURL)
	if err != nil {
		return nil, fmt.Errorf("invalid wikipedia search URL: %w", err)
	}
	q := u.Query()
	q.Set("action", "query")
	q.Set("list", "search")
	q.Set("srsearch", query)
	q.Set("format", "json")
	q.Set("srlimit", "1")
	u.RawQuery = q.Encode()

	var data wikiSearchResponse
	if err := getJSON(ctx, t.client, "wikipedia search", u.String(), headers, false, &data); err != nil {
		return nil, err
	}
	if len(data.Query.Search) == 0 {
		return nil, nil
	}
	return &data.Query.Search[0], nil
}

// snippetText strips the highlight markup MediaWiki puts in search snippets.
func snippetText(snippet string) string {
	z := html.NewTokenizer(strings.NewReader(snippet))
	var sb strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(sb.String()), " ")
		case html.TextToken:
			sb.Write(z.Text())
		}
	}
}
