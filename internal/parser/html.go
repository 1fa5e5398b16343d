package parser

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/jobradar/jobradar/internal/radar"
)

// HTML extracts jobs from rendered pages using site-specific goquery
// selectors. The feed's parser name picks the extractor; a feed that
// names none gets one inferred from its URL, falling through to a
// generic structural heuristic. A layout the chosen extractor no
// longer recognizes is a ParseError for that feed only.
type HTML struct {
	logger *zap.Logger
}

// NewHTML builds the HTML parser variant.
func NewHTML(logger *zap.Logger) *HTML {
	return &HTML{logger: logger}
}

// Site extractor names accepted in feed configuration.
const (
	SiteRemoteOK       = "remoteok"
	SiteWeWorkRemotely = "weworkremotely"
	SiteWorkingNomads  = "workingnomads"
	SiteGeneric        = "generic"
)

func (p *HTML) Parse(payload []byte, feed radar.Feed) ([]radar.Job, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(payload))
	if err != nil {
		return nil, &radar.ParseError{Feed: feed.Name, Msg: "unparseable html", Err: err}
	}

	switch feed.Parser {
	case SiteRemoteOK:
		return p.parseRemoteOK(doc, feed)
	case SiteWeWorkRemotely:
		return p.parseWeWorkRemotely(doc, feed)
	case SiteWorkingNomads:
		return p.parseWorkingNomads(doc, feed)
	case SiteGeneric:
		return p.parseGeneric(doc, feed)
	default:
		return p.parseInferred(doc, feed)
	}
}

// parseInferred guesses the extractor from the feed URL. Only feeds
// that configure no explicit parser name end up here.
func (p *HTML) parseInferred(doc *goquery.Document, feed radar.Feed) ([]radar.Job, error) {
	host := strings.ToLower(feed.URL)
	switch {
	case strings.Contains(host, SiteRemoteOK):
		return p.parseRemoteOK(doc, feed)
	case strings.Contains(host, SiteWeWorkRemotely):
		return p.parseWeWorkRemotely(doc, feed)
	case strings.Contains(host, SiteWorkingNomads):
		return p.parseWorkingNomads(doc, feed)
	default:
		p.logger.Warn("no site extractor for feed, using generic",
			zap.String("feed", feed.Name))
		return p.parseGeneric(doc, feed)
	}
}

// parseRemoteOK reads the job table: one tr.job per posting with the
// title and company stacked inside td.company.
func (p *HTML) parseRemoteOK(doc *goquery.Document, feed radar.Feed) ([]radar.Job, error) {
	rows := doc.Find("tr.job")
	if rows.Length() == 0 {
		return nil, &radar.ParseError{Feed: feed.Name, Msg: "no tr.job rows, layout changed"}
	}

	var jobs []radar.Job
	rows.Each(func(_ int, row *goquery.Selection) {
		title := collapse(row.Find("td.company h2").First().Text())
		if title == "" {
			return
		}
		href, _ := row.Find("td.company a").First().Attr("href")
		job := radar.Job{
			Title:    title,
			Company:  collapse(row.Find("td.company h3").First().Text()),
			URL:      resolveURL(feed.URL, href),
			Source:   feed.Name,
			Location: collapse(row.Find(".location").First().Text()),
			IsRemote: true,
		}
		var tags []string
		row.Find(".tags .tag").Each(func(_ int, tag *goquery.Selection) {
			if t := collapse(tag.Text()); t != "" {
				tags = append(tags, t)
			}
		})
		job.Description = strings.Join(tags, ", ")
		jobs = append(jobs, job)
	})
	return jobs, nil
}

// parseWeWorkRemotely reads the category listing: section.jobs holds
// li elements whose anchor wraps span.title and span.company.
func (p *HTML) parseWeWorkRemotely(doc *goquery.Document, feed radar.Feed) ([]radar.Job, error) {
	items := doc.Find("section.jobs li")
	if items.Length() == 0 {
		return nil, &radar.ParseError{Feed: feed.Name, Msg: "no section.jobs items, layout changed"}
	}

	var jobs []radar.Job
	items.Each(func(_ int, item *goquery.Selection) {
		link := item.Find("a").First()
		title := collapse(item.Find("span.title").First().Text())
		if title == "" {
			return
		}
		href, _ := link.Attr("href")
		job := radar.Job{
			Title:    title,
			Company:  collapse(item.Find("span.company").First().Text()),
			URL:      resolveURL(feed.URL, href),
			Source:   feed.Name,
			Location: collapse(item.Find("span.region").First().Text()),
			IsRemote: true,
		}
		jobs = append(jobs, job)
	})
	return jobs, nil
}

// parseWorkingNomads scans loosely structured job cards, keeping only
// elements that look like a posting.
func (p *HTML) parseWorkingNomads(doc *goquery.Document, feed radar.Feed) ([]radar.Job, error) {
	cards := doc.Find(".job-item, .job, article")
	if cards.Length() == 0 {
		return nil, &radar.ParseError{Feed: feed.Name, Msg: "no job cards, layout changed"}
	}

	var jobs []radar.Job
	cards.Each(func(_ int, card *goquery.Selection) {
		if !looksLikeJobCard(card) {
			return
		}
		title := collapse(card.Find("h2, h3, .job-title, .title").First().Text())
		if title == "" {
			return
		}
		href, _ := card.Find("a").First().Attr("href")
		job := radar.Job{
			Title:    title,
			Company:  collapse(card.Find(".company, .employer").First().Text()),
			URL:      resolveURL(feed.URL, href),
			Source:   feed.Name,
			Location: collapse(card.Find(".location").First().Text()),
		}
		inferRemote(&job)
		jobs = append(jobs, job)
	})
	return jobs, nil
}

// Container selectors tried by the generic extractor, most specific
// first.
var genericSelectors = []string{
	".job", ".job-item", ".job-listing", ".job-card",
	".position", ".vacancy", ".listing",
	"article", ".post", ".entry",
}

const genericCardLimit = 20

func (p *HTML) parseGeneric(doc *goquery.Document, feed radar.Feed) ([]radar.Job, error) {
	for _, selector := range genericSelectors {
		cards := doc.Find(selector)
		if cards.Length() == 0 {
			continue
		}
		var jobs []radar.Job
		cards.EachWithBreak(func(i int, card *goquery.Selection) bool {
			if i >= genericCardLimit {
				return false
			}
			title := genericTitle(card)
			if title == "" {
				return true
			}
			href, _ := card.Find("a").First().Attr("href")
			job := radar.Job{
				Title:  title,
				URL:    resolveURL(feed.URL, href),
				Source: feed.Name,
			}
			inferRemote(&job)
			jobs = append(jobs, job)
			return true
		})
		if len(jobs) > 0 {
			return jobs, nil
		}
	}
	return nil, &radar.ParseError{Feed: feed.Name, Msg: "no recognizable job structure"}
}

func genericTitle(card *goquery.Selection) string {
	for _, sel := range []string{"h1", "h2", "h3", ".title", ".job-title", "a"} {
		title := collapse(card.Find(sel).First().Text())
		if len(title) > 10 {
			return title
		}
	}
	return ""
}

var jobCardIndicators = []string{"remote", "job", "position", "developer", "engineer", "manager", "apply", "support", "analyst"}

// looksLikeJobCard is a cheap text heuristic that filters navigation
// and footer elements out of broad selector matches.
func looksLikeJobCard(card *goquery.Selection) bool {
	text := strings.ToLower(card.Text())
	if len(text) < 50 {
		return false
	}
	for _, indicator := range jobCardIndicators {
		if strings.Contains(text, indicator) {
			return true
		}
	}
	return false
}
