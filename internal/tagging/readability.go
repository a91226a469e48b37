package tagging

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

// Extractor finds the main article text of a document
type Extractor interface {
	Extract(doc string, baseURL string) (string, error)
}

// ReadabilityExtractor runs Mozilla's Readability algorithm, the one browser reader modes use.
type ReadabilityExtractor struct{}

// NewReadabilityExtractor creates a readability extractor
func NewReadabilityExtractor() *ReadabilityExtractor {
	return &ReadabilityExtractor{}
}

// Extract returns the article text of doc, or the body text when readability finds no
// article. baseURL resolves relative links; an unparseable one is ignored.
// No remaining text yields ("", nil).
func (e *ReadabilityExtractor) Extract(doc string, baseURL string) (string, error) {
	root, err := html.Parse(strings.NewReader(doc))
	if err != nil {
		return "", fmt.Errorf("failed to parse document: %w", err)
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		base = &url.URL{}
	}

	// Readability rewrites the tree it is given.
	if article, err := readability.FromReader(strings.NewReader(doc), base); err == nil {
		if text := CleanWhitespace(article.TextContent); text != "" {
			return text, nil
		}
	}

	d := goquery.NewDocumentFromNode(root)
	d.Find("script, style, noscript, template").Remove()
	return CleanWhitespace(d.Find("body").Text()), nil
}
