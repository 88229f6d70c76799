package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"smartcut/internal/config"
)

const userAgent = "SmartCut/0.1.0"

// Notifier is the notification surface used by the workflow.
type Notifier interface {
	VideoCompleted(ctx context.Context, name string, outputs, failed int) error
	VideoFailed(ctx context.Context, name, stage string, cause error) error
	Test(ctx context.Context) error
}

// NewService returns an ntfy-backed Notifier, or a noop when no topic is set.
func NewService(cfg config.Notifications) Notifier {
	topic := strings.TrimSpace(cfg.NtfyTopic)
	if topic == "" {
		return noop{}
	}
	timeout := time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfy{endpoint: topic, client: &http.Client{Timeout: timeout}}
}

// Enabled reports whether n actually delivers messages.
func Enabled(n Notifier) bool {
	_, off := n.(noop)
	return n != nil && !off
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfy struct {
	endpoint string
	client   *http.Client
}

func (n *ntfy) VideoCompleted(ctx context.Context, name string, outputs, failed int) error {
	msg := message{
		title: "SmartCut - Complete",
		body:  fmt.Sprintf("%s: %d segments written", strings.TrimSpace(name), outputs),
		tags:  []string{"smartcut", "completed"},
	}
	if failed > 0 {
		msg.title = "SmartCut - Complete (with failures)"
		msg.body = fmt.Sprintf("%s: %d segments written, %d failed", strings.TrimSpace(name), outputs, failed)
		msg.tags = append(msg.tags, "warning")
	}
	return n.send(ctx, msg)
}

func (n *ntfy) VideoFailed(ctx context.Context, name, stage string, cause error) error {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(name))
	if stage = strings.TrimSpace(stage); stage != "" {
		b.WriteString(" failed during ")
		b.WriteString(stage)
	} else {
		b.WriteString(" failed")
	}
	if cause != nil {
		b.WriteString(": ")
		b.WriteString(strings.TrimSpace(cause.Error()))
	}
	return n.send(ctx, message{
		title:    "SmartCut - Error",
		body:     b.String(),
		tags:     []string{"smartcut", "error"},
		priority: "high",
	})
}

func (n *ntfy) Test(ctx context.Context) error {
	return n.send(ctx, message{
		title:    "SmartCut - Test",
		body:     "Notification test",
		tags:     []string{"smartcut", "test"},
		priority: "low",
	})
}

func (n *ntfy) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.Header.Set("Title", msg.title)
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noop struct{}

func (noop) VideoCompleted(context.Context, string, int, int) error   { return nil }
func (noop) VideoFailed(context.Context, string, string, error) error { return nil }
func (noop) Test(context.Context) error                               { return nil }
