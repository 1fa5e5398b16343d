package parser

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/jobradar/jobradar/internal/radar"
)

// JSON parses job-board API payloads. Sources disagree on key names,
// so each field tries a documented fallback chain. A record missing
// title or url is skipped with a warning; only a payload that is not
// JSON at all is a ParseError.
type JSON struct {
	logger *zap.Logger
}

// NewJSON builds the JSON parser variant.
func NewJSON(logger *zap.Logger) *JSON {
	return &JSON{logger: logger}
}

// Wrapper keys tried, in order, when the payload is an object rather
// than a bare list.
var listKeys = []string{"jobs", "results", "items", "data", "listings"}

func (p *JSON) Parse(payload []byte, feed radar.Feed) ([]radar.Job, error) {
	entries, err := p.decodeEntries(payload, feed)
	if err != nil {
		return nil, &radar.ParseError{Feed: feed.Name, Msg: "payload is not valid JSON", Err: err}
	}

	jobs := make([]radar.Job, 0, len(entries))
	for _, entry := range entries {
		job, ok := p.mapEntry(entry, feed)
		if !ok {
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (p *JSON) decodeEntries(payload []byte, feed radar.Feed) ([]map[string]any, error) {
	var list []map[string]any
	if err := json.Unmarshal(payload, &list); err == nil {
		return list, nil
	}

	var wrapped map[string]any
	if err := json.Unmarshal(payload, &wrapped); err != nil {
		return nil, err
	}
	for _, key := range listKeys {
		raw, present := wrapped[key]
		if !present {
			continue
		}
		items, ok := raw.([]any)
		if !ok {
			continue
		}
		entries := make([]map[string]any, 0, len(items))
		for _, item := range items {
			if entry, ok := item.(map[string]any); ok {
				entries = append(entries, entry)
			}
		}
		return entries, nil
	}

	// Valid JSON, but nothing under any known list key. Empty is a
	// legal result; the warning makes schema drift visible in the logs.
	p.logger.Warn("no job entries found in payload",
		zap.String("feed", feed.Name))
	return nil, nil
}

func (p *JSON) mapEntry(entry map[string]any, feed radar.Feed) (radar.Job, bool) {
	title := firstString(entry, "title", "name", "position")
	jobURL := firstString(entry, "url", "link", "apply_url")
	if title == "" || jobURL == "" {
		p.logger.Warn("skipping record missing title or url",
			zap.String("feed", feed.Name))
		return radar.Job{}, false
	}

	job := radar.Job{
		Title:           collapse(title),
		Company:         firstString(entry, "company", "company_name", "employer"),
		URL:             resolveURL(feed.URL, jobURL),
		Source:          feed.Name,
		Location:        firstString(entry, "location", "candidate_required_location"),
		Salary:          firstString(entry, "salary", "salary_range", "compensation"),
		JobType:         firstString(entry, "job_type", "type", "employment_type"),
		ExperienceLevel: firstString(entry, "experience_level", "seniority"),
		Description:     PlainText(firstString(entry, "description", "text", "summary")),
	}
	if remote, ok := entry["remote"].(bool); ok {
		job.IsRemote = remote
	}
	if raw := firstString(entry, "date", "published_at", "created_at", "epoch"); raw != "" {
		if t, ok := parseTime(raw); ok {
			job.PostedAt = &t
		}
	}
	inferRemote(&job)
	return job, true
}

func firstString(entry map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := entry[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

func parseTime(raw string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
