package parser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jobradar/jobradar/internal/radar"
)

func TestJSONParseBareList(t *testing.T) {
	t.Parallel()

	payload := `[
	  {"title": "Support Specialist", "company": "Acme", "url": "https://remoteok.com/jobs/1", "location": "Worldwide", "remote": true},
	  {"position": "Operations Analyst", "employer": "Globex", "link": "/jobs/2", "date": "2025-05-01"}
	]`
	feed := radar.Feed{Name: "remoteok", URL: "https://remoteok.com/api", Format: radar.FormatJSON}

	jobs, err := NewJSON(zap.NewNop()).Parse([]byte(payload), feed)
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	assert.Equal(t, "Support Specialist", jobs[0].Title)
	assert.Equal(t, "Acme", jobs[0].Company)
	assert.True(t, jobs[0].IsRemote)

	assert.Equal(t, "Operations Analyst", jobs[1].Title, "fallback keys should map")
	assert.Equal(t, "Globex", jobs[1].Company)
	assert.Equal(t, "https://remoteok.com/jobs/2", jobs[1].URL, "relative urls resolve against the feed")
	require.NotNil(t, jobs[1].PostedAt)
}

func TestJSONParseWrappedList(t *testing.T) {
	t.Parallel()

	payload := `{"jobs": [{"title": "Customer Success Manager", "url": "https://example.com/j/9"}]}`
	feed := radar.Feed{Name: "api", URL: "https://example.com/api", Format: radar.FormatJSON}

	jobs, err := NewJSON(zap.NewNop()).Parse([]byte(payload), feed)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "Customer Success Manager", jobs[0].Title)
}

func TestJSONParseSkipsRecordMissingTitle(t *testing.T) {
	t.Parallel()

	payload := `{"results": [
	  {"url": "https://example.com/j/1"},
	  {"title": "Compliance Analyst", "url": "https://example.com/j/2"}
	]}`
	feed := radar.Feed{Name: "api", URL: "https://example.com/api", Format: radar.FormatJSON}

	jobs, err := NewJSON(zap.NewNop()).Parse([]byte(payload), feed)
	require.NoError(t, err, "a single bad record must not fail the parse")
	require.Len(t, jobs, 1)
	assert.Equal(t, "Compliance Analyst", jobs[0].Title)
}

func TestJSONParseInvalidPayload(t *testing.T) {
	t.Parallel()

	feed := radar.Feed{Name: "api", Format: radar.FormatJSON}
	_, err := NewJSON(zap.NewNop()).Parse([]byte("<html>not json</html>"), feed)
	require.Error(t, err)

	var pe *radar.ParseError
	assert.True(t, errors.As(err, &pe))
}

func TestJSONParseUnknownWrapperKey(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	feed := radar.Feed{Name: "api", Format: radar.FormatJSON}

	jobs, err := NewJSON(zap.New(core)).Parse([]byte(`{"postings": []}`), feed)
	require.NoError(t, err)
	assert.Empty(t, jobs)

	require.Equal(t, 1, logs.FilterMessage("no job entries found in payload").Len(),
		"schema drift must be visible in the logs")
}
