package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jobradar/jobradar/internal/radar"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jobradar.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
feeds:
  - name: remoteok
    url: https://remoteok.com/api
    format: json
    requests_per_minute: 30
    headers:
      Accept: application/json
  - name: weworkremotely
    url: https://weworkremotely.com/categories/remote-customer-support-jobs.rss
    format: rss
    identity: title
fetch:
  concurrency: 6
  timeout_seconds: 45
  max_retries: 2
smart_filter:
  enabled: true
  min_score: 5
  categories: [customer_support, operations]
storage:
  driver: sqlite
  path: /tmp/jobs.db
server:
  port: 9090
  api_key: secret
logging:
  development: false
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got, want := len(cfg.Feeds), 2; got != want {
		t.Fatalf("len(Feeds) = %d, want %d", got, want)
	}
	if cfg.Feeds[0].Headers["Accept"] != "application/json" {
		t.Errorf("Feeds[0].Headers = %v", cfg.Feeds[0].Headers)
	}
	if cfg.Feeds[0].RequestsPerMinute != 30 {
		t.Errorf("Feeds[0].RequestsPerMinute = %d, want 30", cfg.Feeds[0].RequestsPerMinute)
	}
	if cfg.Feeds[1].Identity != radar.IdentityTitle {
		t.Errorf("Feeds[1].Identity = %q, want title", cfg.Feeds[1].Identity)
	}
	if cfg.Fetch.Concurrency != 6 {
		t.Errorf("Fetch.Concurrency = %d, want 6", cfg.Fetch.Concurrency)
	}
	if cfg.SmartFilter.MinScore != 5 {
		t.Errorf("SmartFilter.MinScore = %d, want 5", cfg.SmartFilter.MinScore)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if got, want := cfg.RequestTimeout(), 45*time.Second; got != want {
		t.Errorf("RequestTimeout() = %v, want %v", got, want)
	}
}

func TestLoadAppliesFeedDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
feeds:
  - name: workingnomads
    url: https://www.workingnomads.com/jobs
    format: html
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	feed := cfg.Feeds[0]
	if feed.Parser != "html" {
		t.Errorf("Parser default = %q, want html", feed.Parser)
	}
	if feed.Identity != radar.IdentityURL {
		t.Errorf("Identity default = %q, want url", feed.Identity)
	}
	if feed.RetryAfterSeconds != 30 {
		t.Errorf("RetryAfterSeconds default = %d, want 30", feed.RetryAfterSeconds)
	}
	if cfg.Fetch.Concurrency != 4 {
		t.Errorf("Fetch.Concurrency default = %d, want 4", cfg.Fetch.Concurrency)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("Storage.Driver default = %q, want sqlite", cfg.Storage.Driver)
	}
}

func TestLoadAcceptsNamedHTMLParser(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
feeds:
  - name: wwr-mirror
    url: https://mirror.example.net/support-jobs
    format: html
    parser: weworkremotely
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Feeds[0].Parser != "weworkremotely" {
		t.Errorf("Parser = %q, want weworkremotely", cfg.Feeds[0].Parser)
	}
}

func TestValidateRejectsBadConfigs(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body string
	}{
		{
			name: "no feeds",
			body: `
storage:
  driver: memory
`,
		},
		{
			name: "duplicate feed names",
			body: `
feeds:
  - {name: a, url: "https://a.example.com", format: rss}
  - {name: a, url: "https://b.example.com", format: rss}
`,
		},
		{
			name: "unknown format",
			body: `
feeds:
  - {name: a, url: "https://a.example.com", format: csv}
`,
		},
		{
			name: "render on non-html feed",
			body: `
feeds:
  - {name: a, url: "https://a.example.com", format: rss, render: true}
`,
		},
		{
			name: "unknown html parser",
			body: `
feeds:
  - {name: a, url: "https://a.example.com", format: html, parser: linkedin}
`,
		},
		{
			name: "parser format mismatch",
			body: `
feeds:
  - {name: a, url: "https://a.example.com", format: rss, parser: json}
`,
		},
		{
			name: "unknown identity",
			body: `
feeds:
  - {name: a, url: "https://a.example.com", format: rss, identity: fingerprint}
`,
		},
		{
			name: "min score out of range",
			body: `
feeds:
  - {name: a, url: "https://a.example.com", format: rss}
smart_filter:
  min_score: 11
`,
		},
		{
			name: "postgres without dsn",
			body: `
feeds:
  - {name: a, url: "https://a.example.com", format: rss}
storage:
  driver: postgres
`,
		},
		{
			name: "telegram without token",
			body: `
feeds:
  - {name: a, url: "https://a.example.com", format: rss}
notify:
  telegram:
    enabled: true
    chat_id: "42"
`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Load(writeConfig(t, tc.body)); err == nil {
				t.Fatal("Load() succeeded, want validation error")
			}
		})
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Load() succeeded for missing explicit config file")
	}
}
