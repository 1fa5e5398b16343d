package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jobradar/jobradar/internal/radar"
)

func TestReconcileInsert(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	job := radar.Job{Title: "Support Engineer", URL: "https://example.com/1", Source: "x"}

	outcome, record := Reconcile(nil, "key1", job, now)
	assert.Equal(t, radar.OutcomeInserted, outcome)
	assert.Equal(t, now, record.FirstSeen)
	assert.Equal(t, now, record.LastSeen)
}

func TestReconcileUpdateAndUnchanged(t *testing.T) {
	t.Parallel()

	first := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	later := first.Add(time.Hour)
	job := radar.Job{Title: "Support Engineer", URL: "https://example.com/1", Source: "x", Salary: "$90k"}
	_, existing := Reconcile(nil, "key1", job, first)

	// Identical payload: last_seen bumps, nothing else changes.
	outcome, record := Reconcile(&existing, "key1", job, later)
	assert.Equal(t, radar.OutcomeUnchanged, outcome)
	assert.Equal(t, first, record.FirstSeen)
	assert.Equal(t, later, record.LastSeen)
	assert.Equal(t, "$90k", record.Job.Salary)

	// Mutated salary: update.
	raised := job
	raised.Salary = "$95k"
	outcome, record = Reconcile(&existing, "key1", raised, later)
	assert.Equal(t, radar.OutcomeUpdated, outcome)
	assert.Equal(t, first, record.FirstSeen, "first_seen never changes")
	assert.Equal(t, "$95k", record.Job.Salary)
}

func TestSalaryNumeric(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want int
	}{
		{"$100k - $150k", 100000},
		{"$100,000", 100000},
		{"€50.000", 50000},
		{"85000 USD", 85000},
		{"92.5k", 92000},
		{"competitive", 0},
		{"", 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, SalaryNumeric(tc.in), "input %q", tc.in)
	}
}

func TestMatchesSalaryRange(t *testing.T) {
	t.Parallel()

	assert.True(t, MatchesSalaryRange(0, 0, 0), "no bounds matches unknown salary")
	assert.False(t, MatchesSalaryRange(0, 50000, 0), "unknown salary excluded once bounded")
	assert.True(t, MatchesSalaryRange(90000, 50000, 100000))
	assert.False(t, MatchesSalaryRange(40000, 50000, 0))
	assert.False(t, MatchesSalaryRange(120000, 0, 100000))
}

func TestCategoriesIntersect(t *testing.T) {
	t.Parallel()

	assert.True(t, CategoriesIntersect(nil, nil))
	assert.True(t, CategoriesIntersect([]string{"operations"}, nil))
	assert.True(t, CategoriesIntersect([]string{"operations", "support_roles"}, []string{"support_roles"}))
	assert.False(t, CategoriesIntersect([]string{"operations"}, []string{"compliance_analysis"}))
	assert.False(t, CategoriesIntersect(nil, []string{"operations"}))
}
