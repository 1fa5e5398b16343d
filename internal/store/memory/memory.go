// Package memory provides an in-memory Store, used by tests and by
// one-shot fetches that do not need durability.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/jobradar/jobradar/internal/radar"
	"github.com/jobradar/jobradar/internal/store"
)

// Store keeps records in a map guarded by one mutex. The map is the
// single shared resource, so the global lock also gives per-key upsert
// serialization.
type Store struct {
	mu         sync.RWMutex
	records    map[string]radar.Record
	clock      radar.Clock
	identities map[string]radar.IdentityMode
}

// New creates an empty Store. identities maps feed names to their
// identity mode; absent feeds default to URL identity.
func New(clock radar.Clock, identities map[string]radar.IdentityMode) *Store {
	return &Store{
		records:    make(map[string]radar.Record),
		clock:      clock,
		identities: identities,
	}
}

func (s *Store) mode(source string) radar.IdentityMode {
	if m, ok := s.identities[source]; ok {
		return m
	}
	return radar.IdentityURL
}

// Upsert reconciles one job against the map.
func (s *Store) Upsert(_ context.Context, job radar.Job) (radar.Outcome, error) {
	key := radar.IdentityKey(job, s.mode(job.Source))

	s.mu.Lock()
	defer s.mu.Unlock()

	var existing *radar.Record
	if rec, ok := s.records[key]; ok {
		existing = &rec
	}
	outcome, record := store.Reconcile(existing, key, job, s.clock.Now())
	s.records[key] = record
	return outcome, nil
}

// Search returns the matching records ordered by last_seen descending.
func (s *Store) Search(_ context.Context, q radar.Query) (radar.SearchPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []radar.Record
	for _, rec := range s.records {
		if matches(rec, q) {
			matched = append(matched, rec)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].LastSeen.Equal(matched[j].LastSeen) {
			return matched[i].LastSeen.After(matched[j].LastSeen)
		}
		return matched[i].Key < matched[j].Key
	})

	page := radar.SearchPage{Total: len(matched)}
	if q.Smart() {
		page.Breakdown = breakdown(matched, q.Categories)
	}

	start := q.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if q.Limit > 0 && start+q.Limit < end {
		end = start + q.Limit
	}
	page.Records = matched[start:end]
	return page, nil
}

// FilterOptions lists distinct values of the filterable fields.
func (s *Store) FilterOptions(_ context.Context) (radar.FilterOptions, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sources := make(map[string]struct{})
	jobTypes := make(map[string]struct{})
	levels := make(map[string]struct{})
	for _, rec := range s.records {
		if rec.Job.Source != "" {
			sources[rec.Job.Source] = struct{}{}
		}
		if rec.Job.JobType != "" {
			jobTypes[rec.Job.JobType] = struct{}{}
		}
		if rec.Job.ExperienceLevel != "" {
			levels[rec.Job.ExperienceLevel] = struct{}{}
		}
	}
	return radar.FilterOptions{
		Sources:          sortedKeys(sources),
		JobTypes:         sortedKeys(jobTypes),
		ExperienceLevels: sortedKeys(levels),
	}, nil
}

// Close is a no-op for the in-memory backend.
func (s *Store) Close() error { return nil }

func matches(rec radar.Record, q radar.Query) bool {
	job := rec.Job
	switch {
	case q.Title != "" && !containsFold(job.Title, q.Title),
		q.Company != "" && !containsFold(job.Company, q.Company),
		q.Location != "" && !containsFold(job.Location, q.Location),
		q.Source != "" && !strings.EqualFold(job.Source, q.Source),
		q.JobType != "" && !strings.EqualFold(job.JobType, q.JobType),
		q.ExperienceLevel != "" && !strings.EqualFold(job.ExperienceLevel, q.ExperienceLevel):
		return false
	}
	if q.Remote != nil && job.IsRemote != *q.Remote {
		return false
	}
	if !store.MatchesSalaryRange(store.SalaryNumeric(job.Salary), q.SalaryMin, q.SalaryMax) {
		return false
	}
	if q.MinScore > 0 && job.Score < q.MinScore {
		return false
	}
	return store.CategoriesIntersect(job.Categories, q.Categories)
}

func breakdown(records []radar.Record, want []string) map[string]int {
	counts := make(map[string]int)
	for _, rec := range records {
		for _, cat := range rec.Job.Categories {
			if len(want) == 0 || store.CategoriesIntersect([]string{cat}, want) {
				counts[cat]++
			}
		}
	}
	return counts
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
