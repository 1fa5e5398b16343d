package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/jobradar/jobradar/internal/radar"
)

func TestPlainText(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "  already   plain ", "already plain"},
		{"markup", "<p>Help our <b>customers</b></p>\n<p>every day</p>", "Help our customers every day"},
		{"entities", "Support &amp; Operations", "Support & Operations"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, PlainText(tc.in))
		})
	}
}

func TestInferRemote(t *testing.T) {
	t.Parallel()

	job := radar.Job{Title: "Support Engineer", Location: "Anywhere"}
	inferRemote(&job)
	assert.True(t, job.IsRemote)

	onsite := radar.Job{Title: "Support Engineer", Location: "Riga, Latvia"}
	inferRemote(&onsite)
	assert.False(t, onsite.IsRemote)
}

func TestRegistryDispatch(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(zap.NewNop())

	for _, format := range []radar.FeedFormat{radar.FormatRSS, radar.FormatJSON, radar.FormatHTML} {
		p, err := reg.For(radar.Feed{Name: "x", Format: format})
		assert.NoError(t, err)
		assert.NotNil(t, p)
	}

	_, err := reg.For(radar.Feed{Name: "x", Format: "csv"})
	assert.Error(t, err)
}
