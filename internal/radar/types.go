// Package radar defines the core types and interfaces for the job
// aggregation pipeline: normalized job records, feed configuration,
// per-feed fetch outcomes, and the collaborator contracts the
// orchestrator is wired with.
package radar

import "time"

// FeedFormat identifies the payload format a feed produces.
type FeedFormat string

// Supported feed formats. The set is closed: new sources pick one of
// these plus a parser variant, never a new dispatch mechanism.
const (
	FormatRSS  FeedFormat = "rss"
	FormatJSON FeedFormat = "json"
	FormatHTML FeedFormat = "html"
)

// IdentityMode selects how a feed's identity keys are derived.
type IdentityMode string

// Identity modes. URL identity is the default; title identity exists
// for feeds whose posting URLs carry session or tracking state and
// change between fetches.
const (
	IdentityURL   IdentityMode = "url"
	IdentityTitle IdentityMode = "title"
)

// Feed describes one configured job source. Loaded once per run and
// immutable during a fetch cycle.
type Feed struct {
	Name              string            `mapstructure:"name" json:"name"`
	URL               string            `mapstructure:"url" json:"url"`
	Format            FeedFormat        `mapstructure:"format" json:"format"`
	Parser            string            `mapstructure:"parser" json:"parser"`
	Render            bool              `mapstructure:"render" json:"render"`
	Headers           map[string]string `mapstructure:"headers" json:"headers,omitempty"`
	RequestsPerMinute int               `mapstructure:"requests_per_minute" json:"requests_per_minute"`
	RetryAfterSeconds int               `mapstructure:"retry_after_seconds" json:"retry_after_seconds"`
	Identity          IdentityMode      `mapstructure:"identity" json:"identity"`
}

// RetryAfter returns the feed's configured retry delay.
func (f Feed) RetryAfter() time.Duration {
	return time.Duration(f.RetryAfterSeconds) * time.Second
}

// Job is the canonical record every parser variant produces. Title,
// URL and Source are required; everything else is best effort.
type Job struct {
	Title           string     `json:"title"`
	Company         string     `json:"company,omitempty"`
	URL             string     `json:"url"`
	Source          string     `json:"source"`
	PostedAt        *time.Time `json:"posted_at,omitempty"`
	Location        string     `json:"location,omitempty"`
	Salary          string     `json:"salary,omitempty"`
	JobType         string     `json:"job_type,omitempty"`
	ExperienceLevel string     `json:"experience_level,omitempty"`
	IsRemote        bool       `json:"is_remote"`
	Description     string     `json:"description,omitempty"`
	Score           int        `json:"relevance_score"`
	Categories      []string   `json:"matched_categories,omitempty"`
}

// Record is the durable row kept per identity key.
type Record struct {
	Key       string    `json:"id"`
	Job       Job       `json:"job"`
	FirstSeen time.Time `json:"first_seen_at"`
	LastSeen  time.Time `json:"last_seen_at"`
}

// Outcome reports what an upsert did.
type Outcome string

// Upsert outcomes. Only inserted records are eligible for downstream
// new-job notification.
const (
	OutcomeInserted  Outcome = "inserted"
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
)

// FetchStatus is the per-feed outcome of one cycle.
type FetchStatus string

// Fetch statuses. Partial means persistence failed after some records
// may already have been stored.
const (
	StatusOK      FetchStatus = "ok"
	StatusPartial FetchStatus = "partial"
	StatusFailed  FetchStatus = "failed"
)

// FetchResult summarizes one feed's outcome within a cycle. Never
// persisted; used for reporting and logging only.
type FetchResult struct {
	Feed      string      `json:"feed"`
	Status    FetchStatus `json:"status"`
	Fetched   int         `json:"records_fetched"`
	Kept      int         `json:"records_kept"`
	Persisted int         `json:"records_persisted"`
	Inserted  int         `json:"records_inserted"`
	Error     string      `json:"error,omitempty"`
}

// CycleSummary aggregates a whole fetch cycle: one FetchResult per
// configured feed plus the newly inserted jobs, in the order their
// upserts completed.
type CycleSummary struct {
	Results  []FetchResult `json:"results"`
	Inserted []Job         `json:"inserted,omitempty"`
	Started  time.Time     `json:"started_at"`
	Duration time.Duration `json:"duration"`
}

// Query filters a paginated read over persisted records. Zero values
// mean "no constraint" except Remote, where nil means unconstrained.
// Categories and MinScore drive smart search: Categories keeps records
// whose matched categories intersect the list.
type Query struct {
	Title           string
	Company         string
	Source          string
	Location        string
	JobType         string
	ExperienceLevel string
	Remote          *bool
	SalaryMin       int
	SalaryMax       int
	Categories      []string
	MinScore        int
	Offset          int
	Limit           int
}

// Smart reports whether the query uses the relevance dimensions.
func (q Query) Smart() bool {
	return q.MinScore > 0 || len(q.Categories) > 0
}

// SearchPage is one page of query results plus the unpaginated total.
// Breakdown carries per-category match counts for smart queries.
type SearchPage struct {
	Records   []Record       `json:"records"`
	Total     int            `json:"total"`
	Breakdown map[string]int `json:"category_breakdown,omitempty"`
}

// FilterOptions lists the distinct values of the filterable fields.
type FilterOptions struct {
	Sources          []string `json:"sources"`
	JobTypes         []string `json:"job_types"`
	ExperienceLevels []string `json:"experience_levels"`
}
