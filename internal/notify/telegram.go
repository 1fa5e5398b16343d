package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jobradar/jobradar/internal/radar"
)

const (
	telegramAPIBase = "https://api.telegram.org"

	// Telegram rejects messages over 4096 characters; batching at a
	// fixed job count keeps us well under that.
	telegramBatchSize = 10
)

// Telegram posts new-job digests to a chat via the Bot API.
type Telegram struct {
	baseURL string
	token   string
	chatID  string
	client  *http.Client
}

// NewTelegram builds a Telegram notifier for the given bot token and
// chat.
func NewTelegram(token, chatID string) *Telegram {
	return &Telegram{
		baseURL: telegramAPIBase,
		token:   token,
		chatID:  chatID,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Notify sends the jobs in digest batches. The first delivery failure
// aborts the remaining batches.
func (t *Telegram) Notify(ctx context.Context, jobs []radar.Job) error {
	for start := 0; start < len(jobs); start += telegramBatchSize {
		end := start + telegramBatchSize
		if end > len(jobs) {
			end = len(jobs)
		}
		if err := t.send(ctx, formatDigest(jobs[start:end])); err != nil {
			return err
		}
	}
	return nil
}

func (t *Telegram) send(ctx context.Context, text string) error {
	form := url.Values{
		"chat_id":    {t.chatID},
		"text":       {text},
		"parse_mode": {"HTML"},
	}
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

func formatDigest(jobs []radar.Job) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔔 %d new job(s) found\n\n", len(jobs))
	for _, job := range jobs {
		fmt.Fprintf(&b, "<b>%s</b>", escapeHTML(job.Title))
		if job.Company != "" {
			fmt.Fprintf(&b, " at %s", escapeHTML(job.Company))
		}
		b.WriteByte('\n')
		if job.Score > 0 {
			fmt.Fprintf(&b, "Score: %d", job.Score)
			if len(job.Categories) > 0 {
				fmt.Fprintf(&b, " (%s)", strings.Join(job.Categories, ", "))
			}
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s\n\n", job.URL)
	}
	return strings.TrimRight(b.String(), "\n")
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}
