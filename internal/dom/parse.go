package dom

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// Parse reads an HTML page from r, converting it to UTF-8 first. baseURL is
// the page address used to resolve iframe sources and contentType the
// Content-Type header it was served with; both may be empty.
func Parse(r io.Reader, baseURL, contentType string) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read page: %w", err)
	}

	var u *url.URL
	if baseURL != "" {
		if u, err = url.Parse(baseURL); err != nil {
			return nil, fmt.Errorf("parse base url: %w", err)
		}
	}

	utf8Reader, err := charset.NewReaderLabel(DetectCharset(data, contentType), bytes.NewReader(data))
	if err != nil {
		utf8Reader = bytes.NewReader(data)
	}

	root, err := html.Parse(utf8Reader)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return newDocument(root, u), nil
}

// ParseString parses an in-memory UTF-8 page.
func ParseString(s, baseURL string) (*Document, error) {
	return Parse(strings.NewReader(s), baseURL, "text/html; charset=utf-8")
}

// DetectCharset picks the encoding label of an HTML page: a BOM or a
// Content-Type charset first, then valid UTF-8, then a meta declaration,
// then statistical detection.
func DetectCharset(data []byte, contentType string) string {
	_, name, certain := charset.DetermineEncoding(data, contentType)
	if certain {
		return name
	}
	if utf8.Valid(data) {
		return "utf-8"
	}
	if hasMetaCharset(data) {
		return name
	}

	detector := chardet.NewTextDetector()
	result, err := detector.DetectBest(data)
	if err != nil || result == nil {
		return "utf-8"
	}
	return strings.ToLower(result.Charset)
}

func hasMetaCharset(data []byte) bool {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	return bytes.Contains(bytes.ToLower(head), []byte("charset"))
}
