package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobradar/jobradar/internal/radar"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestStore() *Store {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	return New(clock, map[string]radar.IdentityMode{"unstable": radar.IdentityTitle})
}

func TestUpsertInsertedThenUnchanged(t *testing.T) {
	t.Parallel()

	s := newTestStore()
	ctx := context.Background()
	job := radar.Job{Title: "Support Engineer", URL: "https://example.com/1", Source: "example"}

	outcome, err := s.Upsert(ctx, job)
	require.NoError(t, err)
	assert.Equal(t, radar.OutcomeInserted, outcome)

	outcome, err = s.Upsert(ctx, job)
	require.NoError(t, err)
	assert.Equal(t, radar.OutcomeUnchanged, outcome)

	page, err := s.Search(ctx, radar.Query{})
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	rec := page.Records[0]
	assert.True(t, rec.LastSeen.After(rec.FirstSeen), "last_seen must bump on re-upsert")
}

func TestUpsertUpdatedOnFieldChange(t *testing.T) {
	t.Parallel()

	s := newTestStore()
	ctx := context.Background()
	job := radar.Job{Title: "Support Engineer", URL: "https://example.com/1", Source: "example", Salary: "$90k"}

	_, err := s.Upsert(ctx, job)
	require.NoError(t, err)

	job.Salary = "$95k"
	outcome, err := s.Upsert(ctx, job)
	require.NoError(t, err)
	assert.Equal(t, radar.OutcomeUpdated, outcome)

	page, _ := s.Search(ctx, radar.Query{})
	assert.Equal(t, "$95k", page.Records[0].Job.Salary)
}

func TestUpsertTitleIdentityFeed(t *testing.T) {
	t.Parallel()

	s := newTestStore()
	ctx := context.Background()

	a := radar.Job{Title: "Ops Analyst", Company: "Acme", URL: "https://x.example.com/jobs?sid=1", Source: "unstable"}
	b := radar.Job{Title: "Ops Analyst", Company: "Acme", URL: "https://x.example.com/jobs?sid=2", Source: "unstable"}

	first, _ := s.Upsert(ctx, a)
	second, _ := s.Upsert(ctx, b)
	assert.Equal(t, radar.OutcomeInserted, first)
	assert.Equal(t, radar.OutcomeUpdated, second, "session-variant urls collapse to one record")
}

func TestSearchFilters(t *testing.T) {
	t.Parallel()

	s := newTestStore()
	ctx := context.Background()
	jobs := []radar.Job{
		{Title: "Customer Support Specialist", Company: "Acme", URL: "https://a.example.com/1", Source: "remoteok", JobType: "Full-time", IsRemote: true, Salary: "$80k", Score: 6, Categories: []string{"customer_support"}},
		{Title: "Compliance Analyst", Company: "Globex", URL: "https://a.example.com/2", Source: "weworkremotely", JobType: "Contract", ExperienceLevel: "Senior", Salary: "$120k", Score: 4, Categories: []string{"compliance_analysis"}},
		{Title: "Backend Engineer", Company: "Initech", URL: "https://a.example.com/3", Source: "remoteok", IsRemote: false},
	}
	for _, j := range jobs {
		_, err := s.Upsert(ctx, j)
		require.NoError(t, err)
	}

	page, err := s.Search(ctx, radar.Query{Source: "remoteok"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	page, _ = s.Search(ctx, radar.Query{Title: "support"})
	assert.Equal(t, 1, page.Total)

	remote := true
	page, _ = s.Search(ctx, radar.Query{Remote: &remote})
	assert.Equal(t, 1, page.Total)

	page, _ = s.Search(ctx, radar.Query{SalaryMin: 100000})
	require.Equal(t, 1, page.Total)
	assert.Equal(t, "Compliance Analyst", page.Records[0].Job.Title)
}

func TestSearchSmartBreakdown(t *testing.T) {
	t.Parallel()

	s := newTestStore()
	ctx := context.Background()
	jobs := []radar.Job{
		{Title: "Support Specialist", URL: "https://a.example.com/1", Source: "x", Score: 5, Categories: []string{"customer_support", "support_roles"}},
		{Title: "Care Agent", URL: "https://a.example.com/2", Source: "x", Score: 3, Categories: []string{"customer_support"}},
		{Title: "KYC Analyst", URL: "https://a.example.com/3", Source: "x", Score: 2, Categories: []string{"compliance_analysis"}},
	}
	for _, j := range jobs {
		_, err := s.Upsert(ctx, j)
		require.NoError(t, err)
	}

	page, err := s.Search(ctx, radar.Query{MinScore: 3})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 2, page.Breakdown["customer_support"])

	page, _ = s.Search(ctx, radar.Query{Categories: []string{"compliance_analysis"}})
	require.Equal(t, 1, page.Total)
	assert.Equal(t, map[string]int{"compliance_analysis": 1}, page.Breakdown)
}

func TestSearchPagination(t *testing.T) {
	t.Parallel()

	s := newTestStore()
	ctx := context.Background()
	for _, u := range []string{"1", "2", "3", "4", "5"} {
		_, err := s.Upsert(ctx, radar.Job{Title: "Job " + u, URL: "https://a.example.com/" + u, Source: "x"})
		require.NoError(t, err)
	}

	page, err := s.Search(ctx, radar.Query{Offset: 0, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Len(t, page.Records, 2)

	last, _ := s.Search(ctx, radar.Query{Offset: 4, Limit: 2})
	assert.Len(t, last.Records, 1)

	beyond, _ := s.Search(ctx, radar.Query{Offset: 10, Limit: 2})
	assert.Empty(t, beyond.Records)

	// Newest first.
	assert.Equal(t, "Job 5", page.Records[0].Job.Title)
}

func TestFilterOptions(t *testing.T) {
	t.Parallel()

	s := newTestStore()
	ctx := context.Background()
	_, _ = s.Upsert(ctx, radar.Job{Title: "A", URL: "https://e.com/1", Source: "remoteok", JobType: "Full-time", ExperienceLevel: "Senior"})
	_, _ = s.Upsert(ctx, radar.Job{Title: "B", URL: "https://e.com/2", Source: "weworkremotely", JobType: "Contract"})

	opts, err := s.FilterOptions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"remoteok", "weworkremotely"}, opts.Sources)
	assert.Equal(t, []string{"Contract", "Full-time"}, opts.JobTypes)
	assert.Equal(t, []string{"Senior"}, opts.ExperienceLevels)
}

func TestConcurrentUpsertsSameKey(t *testing.T) {
	t.Parallel()

	s := newTestStore()
	ctx := context.Background()
	job := radar.Job{Title: "Support Engineer", URL: "https://example.com/1", Source: "example"}

	var wg sync.WaitGroup
	inserted := make(chan radar.Outcome, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := s.Upsert(ctx, job)
			if err == nil {
				inserted <- outcome
			}
		}()
	}
	wg.Wait()
	close(inserted)

	insertCount := 0
	for outcome := range inserted {
		if outcome == radar.OutcomeInserted {
			insertCount++
		}
	}
	assert.Equal(t, 1, insertCount, "exactly one concurrent upsert may insert")
}
