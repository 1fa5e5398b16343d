package parser

import (
	"bytes"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/jobradar/jobradar/internal/radar"
)

// RSS parses RSS and Atom payloads via gofeed.
type RSS struct {
	logger *zap.Logger
}

// NewRSS builds the RSS parser variant.
func NewRSS(logger *zap.Logger) *RSS {
	return &RSS{logger: logger}
}

// Parse maps feed items onto jobs. Title and link map directly; the
// company is taken from the item author when present, falling back to
// Dublin Core creator. Items without a title are skipped.
func (p *RSS) Parse(payload []byte, feed radar.Feed) ([]radar.Job, error) {
	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(payload))
	if err != nil {
		return nil, &radar.ParseError{Feed: feed.Name, Msg: "unrecognized feed payload", Err: err}
	}

	jobs := make([]radar.Job, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil || item.Title == "" {
			p.logger.Warn("skipping feed item without title", zap.String("feed", feed.Name))
			continue
		}
		job := radar.Job{
			Title:       collapse(item.Title),
			URL:         item.Link,
			Source:      feed.Name,
			Description: PlainText(item.Description),
		}
		if job.Description == "" && item.Content != "" {
			job.Description = PlainText(item.Content)
		}
		if item.Author != nil && item.Author.Name != "" {
			job.Company = item.Author.Name
		} else if item.DublinCoreExt != nil && len(item.DublinCoreExt.Creator) > 0 {
			job.Company = item.DublinCoreExt.Creator[0]
		}
		if item.PublishedParsed != nil {
			t := item.PublishedParsed.UTC()
			job.PostedAt = &t
		} else if item.UpdatedParsed != nil {
			t := item.UpdatedParsed.UTC()
			job.PostedAt = &t
		}
		inferRemote(&job)
		jobs = append(jobs, job)
	}
	return jobs, nil
}
