package render

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestLooksBlocked(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		html string
		want bool
	}{
		{"real listing", "<html><body><tr class='job'><h2>Support Engineer</h2></tr></body></html>", false},
		{"cloudflare challenge", "<html><title>Just a moment...</title><div id='cf-challenge'></div></html>", true},
		{"browser check", "<html><body>Checking your browser before accessing</body></html>", true},
		{"captcha wall", "<html><body><div class='g-recaptcha'>Please solve this CAPTCHA</div></body></html>", true},
		{"empty", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := LooksBlocked(tc.html); got != tc.want {
				t.Errorf("LooksBlocked() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestNewRejectsNegativeParallel(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{MaxParallel: -1}, zap.NewNop()); err == nil {
		t.Fatal("expected error for negative MaxParallel")
	}
}

func TestNewAppliesTimeoutDefault(t *testing.T) {
	t.Parallel()

	r, err := New(Config{MaxParallel: 1}, zap.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer r.Close()

	if r.cfg.NavigationTimeout != 25*time.Second {
		t.Errorf("NavigationTimeout default = %v, want 25s", r.cfg.NavigationTimeout)
	}
}

func TestResponseMetaDefaultsTo200(t *testing.T) {
	t.Parallel()

	m := newResponseMeta()
	if got := m.status(); got != 200 {
		t.Errorf("status() = %d, want 200 fallback", got)
	}
}
