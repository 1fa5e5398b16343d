package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PlainText strips markup from an HTML fragment and collapses the
// remaining whitespace. Descriptions pass through here before scoring
// so keyword matching sees prose, not tags.
func PlainText(fragment string) string {
	if fragment == "" {
		return ""
	}
	if !strings.ContainsAny(fragment, "<&") {
		return collapse(fragment)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return collapse(fragment)
	}
	return collapse(doc.Text())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
