// Package parser turns raw feed payloads into normalized jobs. One
// variant exists per feed format; HTML feeds additionally dispatch to a
// site-specific extractor named by the feed's parser setting.
package parser

import (
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/jobradar/jobradar/internal/radar"
)

// Registry hands out the parser variant matching a feed's declared
// format. The variant set is closed: new sources pick rss, json, or
// html plus site extraction rules, never a new dispatch mechanism.
type Registry struct {
	rss  *RSS
	json *JSON
	html *HTML
}

// NewRegistry builds a Registry with all variants wired.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		rss:  NewRSS(logger),
		json: NewJSON(logger),
		html: NewHTML(logger),
	}
}

// For returns the parser for the feed's format.
func (r *Registry) For(feed radar.Feed) (radar.Parser, error) {
	switch feed.Format {
	case radar.FormatRSS:
		return r.rss, nil
	case radar.FormatJSON:
		return r.json, nil
	case radar.FormatHTML:
		return r.html, nil
	default:
		return nil, fmt.Errorf("no parser for format %q", feed.Format)
	}
}

// resolveURL turns a possibly relative href into an absolute URL using
// the feed URL as base. Unresolvable hrefs come back unchanged.
func resolveURL(base, href string) string {
	if href == "" || strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(ref).String()
}

var remoteMarkers = []string{"remote", "anywhere", "work from home", "distributed", "wfh"}

// inferRemote fills IsRemote from text heuristics when the source did
// not state it explicitly.
func inferRemote(job *radar.Job) {
	if job.IsRemote {
		return
	}
	haystack := strings.ToLower(job.Location + " " + job.Title + " " + job.JobType)
	for _, marker := range remoteMarkers {
		if strings.Contains(haystack, marker) {
			job.IsRemote = true
			return
		}
	}
}
