// Package render retrieves pages through headless Chrome for feeds
// whose listings only exist after JavaScript runs.
package render

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// ErrBlocked reports that the target served a bot challenge instead of
// content. Permanent for the cycle: retrying immediately only digs the
// hole deeper.
var ErrBlocked = errors.New("render blocked by challenge page")

// Config controls the renderer.
type Config struct {
	MaxParallel       int
	UserAgent         string
	NavigationTimeout time.Duration
}

// Renderer implements radar.Renderer using chromedp and headless
// Chrome. One exec allocator is shared; per-render tabs are bounded by
// a slot channel.
type Renderer struct {
	cfg         Config
	logger      *zap.Logger
	limiter     chan struct{}
	allocator   context.Context
	allocCancel context.CancelFunc
}

// New creates a Renderer backed by chromedp.
func New(cfg Config, logger *zap.Logger) (*Renderer, error) {
	if cfg.MaxParallel < 0 {
		return nil, fmt.Errorf("max parallel must be >= 0")
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 25 * time.Second
	}
	var limiter chan struct{}
	if cfg.MaxParallel > 0 {
		limiter = make(chan struct{}, cfg.MaxParallel)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Renderer{
		cfg:         cfg,
		logger:      logger,
		limiter:     limiter,
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}, nil
}

// Close cancels the allocator context.
func (r *Renderer) Close() {
	r.allocCancel()
}

// Render navigates to the URL and returns the fully rendered DOM. A
// recognized challenge page fails with ErrBlocked.
func (r *Renderer) Render(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	if err := r.acquire(ctx); err != nil {
		return nil, err
	}
	defer r.release()

	taskCtx, taskCancel := chromedp.NewContext(r.allocator)
	defer taskCancel()

	taskCtx, cancel := context.WithTimeout(taskCtx, r.cfg.NavigationTimeout)
	defer cancel()

	meta := newResponseMeta()
	chromedp.ListenTarget(taskCtx, meta.captureEvent)

	start := time.Now()
	html, err := r.runHeadless(taskCtx, url, headers)
	if err != nil {
		return nil, err
	}

	status := meta.status()
	r.logger.Debug("rendered page",
		zap.String("url", url),
		zap.Int("status", status),
		zap.Duration("took", time.Since(start)))

	if status == http.StatusForbidden || status == http.StatusTooManyRequests || LooksBlocked(html) {
		return nil, fmt.Errorf("render %s: %w", url, ErrBlocked)
	}
	return []byte(html), nil
}

func (r *Renderer) runHeadless(ctx context.Context, url string, headers map[string]string) (string, error) {
	var html string
	actions := []chromedp.Action{
		r.networkSetupAction(headers),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(500 * time.Millisecond),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(ctx, actions...); err != nil {
		return "", fmt.Errorf("chromedp run: %w", err)
	}
	return html, nil
}

func (r *Renderer) networkSetupAction(headers map[string]string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if r.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(r.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		if len(headers) > 0 {
			extra := network.Headers{}
			for key, value := range headers {
				extra[key] = value
			}
			if err := network.SetExtraHTTPHeaders(extra).Do(ctx); err != nil {
				return fmt.Errorf("set extra headers: %w", err)
			}
		}
		return nil
	})
}

func (r *Renderer) acquire(ctx context.Context) error {
	if r.limiter == nil {
		return nil
	}
	select {
	case r.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("render slot wait canceled: %w", ctx.Err())
	}
}

func (r *Renderer) release() {
	if r.limiter == nil {
		return
	}
	select {
	case <-r.limiter:
	default:
	}
}

type responseMeta struct {
	mu         sync.RWMutex
	statusCode int
}

func newResponseMeta() *responseMeta {
	return &responseMeta{}
}

func (m *responseMeta) captureEvent(ev any) {
	resp, ok := ev.(*network.EventResponseReceived)
	if !ok || resp.Type != network.ResourceTypeDocument || resp.Response == nil {
		return
	}
	m.mu.Lock()
	m.statusCode = int(resp.Response.Status)
	m.mu.Unlock()
}

func (m *responseMeta) status() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.statusCode == 0 {
		return http.StatusOK
	}
	return m.statusCode
}

// Markers commonly present on interstitial challenge pages.
var challengeMarkers = []string{
	"cf-challenge",
	"cf-browser-verification",
	"just a moment...",
	"checking your browser",
	"verify you are human",
	"attention required! | cloudflare",
	"access denied",
	"captcha",
}

// LooksBlocked reports whether the rendered DOM is a bot challenge
// rather than real content.
func LooksBlocked(html string) bool {
	lower := strings.ToLower(html)
	for _, marker := range challengeMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
