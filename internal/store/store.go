// Package store holds reconciliation logic shared by every storage
// backend: the insert/update/unchanged decision and salary
// normalization for range filtering.
package store

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jobradar/jobradar/internal/radar"
)

// Reconcile applies the upsert decision. existing is nil on first
// encounter of the key. The returned record carries the refreshed
// fields; first_seen never changes after creation, last_seen always
// bumps.
func Reconcile(existing *radar.Record, key string, job radar.Job, now time.Time) (radar.Outcome, radar.Record) {
	if existing == nil {
		return radar.OutcomeInserted, radar.Record{
			Key:       key,
			Job:       job,
			FirstSeen: now,
			LastSeen:  now,
		}
	}

	record := radar.Record{
		Key:       key,
		Job:       job,
		FirstSeen: existing.FirstSeen,
		LastSeen:  now,
	}
	if radar.Changed(existing.Job, job) {
		return radar.OutcomeUpdated, record
	}
	record.Job = existing.Job
	return radar.OutcomeUnchanged, record
}

var salaryNumber = regexp.MustCompile(`(\d+(?:[.,]\d{3})*(?:\.\d+)?)\s*([kK])?`)

// SalaryNumeric extracts the leading amount from a free-text salary
// ("$100k - $150k", "€50.000", "85000 USD") as an annual integer.
// Unparseable text maps to 0, which range filters treat as unknown.
func SalaryNumeric(salary string) int {
	match := salaryNumber.FindStringSubmatch(salary)
	if match == nil {
		return 0
	}
	raw := strings.ReplaceAll(match[1], ",", "")
	if dot := strings.LastIndex(raw, "."); dot >= 0 {
		if len(raw)-dot-1 == 3 {
			// Dot followed by three digits is a thousands separator.
			raw = strings.ReplaceAll(raw, ".", "")
		} else {
			raw = raw[:dot]
		}
	}
	amount, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	if match[2] != "" {
		amount *= 1000
	}
	return amount
}

// MatchesSalaryRange applies the query's salary window to a stored
// amount. Records with unknown salary are excluded once a bound is set.
func MatchesSalaryRange(amount, min, max int) bool {
	if min <= 0 && max <= 0 {
		return true
	}
	if amount <= 0 {
		return false
	}
	if min > 0 && amount < min {
		return false
	}
	if max > 0 && amount > max {
		return false
	}
	return true
}

// CategoriesIntersect reports whether a record's matched categories
// overlap the query's list. An empty query list matches everything.
func CategoriesIntersect(have, want []string) bool {
	if len(want) == 0 {
		return true
	}
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}
