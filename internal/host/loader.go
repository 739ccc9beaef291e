package host

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/autofill/internal/buildinfo"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
)

// Page is a fetched document before parsing.
type Page struct {
	URL         string
	Body        []byte
	ContentType string
}

// Loader fetches pages over HTTP or from the local filesystem.
type Loader struct {
	client *resty.Client
}

// NewLoader builds a resty client over a retrying transport. retries is the
// number of extra attempts on connection errors and 5xx answers.
func NewLoader(timeout time.Duration, retries int) *Loader {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = retries
	retryClient.RetryWaitMin = 50 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.Logger = nil

	client := resty.NewWithClient(retryClient.StandardClient()).
		SetTimeout(timeout).
		SetHeader("User-Agent", "autofill/"+buildinfo.Version()).
		SetHeader("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	return &Loader{client: client}
}

// Load reads rawURL. http and https go over the network, file URLs and bare
// paths are read from disk.
func (l *Loader) Load(ctx context.Context, rawURL string) (*Page, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url %q: %w", rawURL, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return l.fetch(ctx, rawURL)
	case "file":
		return readFile(u.Path)
	case "":
		return readFile(rawURL)
	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
}

func (l *Loader) fetch(ctx context.Context, rawURL string) (*Page, error) {
	resp, err := l.client.R().SetContext(ctx).Get(rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch %s: %s", rawURL, resp.Status())
	}

	final := rawURL
	if resp.RawResponse != nil && resp.RawResponse.Request != nil {
		final = resp.RawResponse.Request.URL.String()
	}
	return &Page{
		URL:         final,
		Body:        resp.Body(),
		ContentType: resp.Header().Get("Content-Type"),
	}, nil
}

func readFile(path string) (*Page, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read page: %w", err)
	}
	return &Page{URL: (&url.URL{Scheme: "file", Path: path}).String(), Body: b}, nil
}
