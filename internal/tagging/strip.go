package tagging

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const boilerplateSelector = "script, style, nav, footer"

// StripBoilerplate removes script, style, nav and footer elements and returns
// the body text with whitespace collapsed. Unparseable input yields "".
func StripBoilerplate(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find(boilerplateSelector).Remove()
	return CleanWhitespace(doc.Find("body").Text())
}

// CleanWhitespace collapses runs of Unicode whitespace to a single space and trims
func CleanWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
