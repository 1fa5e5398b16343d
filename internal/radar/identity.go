package radar

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// IdentityKey derives the stable deduplication key for a job. URL
// identity hashes the source name with the normalized URL; feeds
// configured for title identity, or jobs without a URL, fall back to
// source + normalized title + company. The key must not change across
// repeated fetches of the same posting.
func IdentityKey(job Job, mode IdentityMode) string {
	if mode != IdentityTitle && job.URL != "" {
		return digest(job.Source, normalize(job.URL))
	}
	return digest(job.Source, normalize(job.Title), normalize(job.Company))
}

func digest(parts ...string) string {
	h := sha256.New()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// normalize lowercases, trims, and collapses inner whitespace so
// trivial variations map to the same key.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Changed reports whether any mutable field differs between the stored
// job and a freshly fetched one. Identity fields (source, and whichever
// of url/title/company the key was derived from) are compared too:
// they can only be equal-or-colliding under the same key, and a
// collision should surface as an update rather than be silently kept.
func Changed(old, new Job) bool {
	switch {
	case old.Company != new.Company,
		old.Location != new.Location,
		old.Salary != new.Salary,
		old.JobType != new.JobType,
		old.ExperienceLevel != new.ExperienceLevel,
		old.IsRemote != new.IsRemote,
		old.Description != new.Description,
		old.Score != new.Score:
		return true
	}
	if len(old.Categories) != len(new.Categories) {
		return true
	}
	for i := range old.Categories {
		if old.Categories[i] != new.Categories[i] {
			return true
		}
	}
	if (old.PostedAt == nil) != (new.PostedAt == nil) {
		return true
	}
	if old.PostedAt != nil && !old.PostedAt.Equal(*new.PostedAt) {
		return true
	}
	return false
}
