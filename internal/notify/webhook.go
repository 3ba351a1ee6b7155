package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/isastore/backend/internal/resilience"
)

// WebhookSender posts notifications as signed JSON to a fixed URL.
type WebhookSender struct {
	URL       string
	Secret    string
	Client    *http.Client
	Replay    ReplayProtector
	ReplayTTL time.Duration
	Breaker   *resilience.Breaker
}

// Name implements Sender.
func (s *WebhookSender) Name() string { return "webhook" }

type webhookBody struct {
	EventID    string          `json:"eventId"`
	Topic      string          `json:"topic"`
	Text       string          `json:"text"`
	Link       string          `json:"link,omitempty"`
	Data       json.RawMessage `json:"data"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// Send implements Sender. Non-2xx responses are errors so the task is retried.
func (s *WebhookSender) Send(ctx context.Context, n Notification) error {
	if err := validateURL(s.URL); err != nil {
		return err
	}
	if s.Client == nil {
		s.Client = HTTPClient(5 * time.Second)
	}
	ctx, span := otel.Tracer("notify.WebhookSender").Start(ctx, "WebhookSender.Send")
	defer span.End()
	span.SetAttributes(attribute.String("notify.topic", n.Topic), attribute.String("notify.event_id", n.EventID))

	if s.Replay != nil && s.ReplayTTL > 0 {
		ok, err := s.Replay.Acquire(ctx, replayKey(n.EventID), s.ReplayTTL)
		if err != nil {
			span.RecordError(err)
			return err
		}
		if !ok {
			span.AddEvent("delivery replay prevented")
			return nil
		}
	}

	body, err := json.Marshal(webhookBody{
		EventID:    n.EventID,
		Topic:      n.Topic,
		Text:       n.Text,
		Link:       n.Link,
		Data:       n.Data,
		OccurredAt: n.OccurredAt,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	ts := time.Now().Unix()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "isa-store-notify/1.0")
	req.Header.Set("X-Event-ID", n.EventID)
	req.Header.Set("X-Timestamp", strconv.FormatInt(ts, 10))
	if s.Secret != "" {
		req.Header.Set("X-Signature", ComputeSignature(s.Secret, ts, n.EventID, body))
	}
	err = s.Breaker.Do(ctx, func(context.Context) error {
		resp, err := s.Client.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("webhook responded %d", resp.StatusCode)
		}
		return nil
	})
	if err != nil {
		s.release(ctx, n.EventID)
		span.RecordError(err)
		return err
	}
	return nil
}

func (s *WebhookSender) release(ctx context.Context, eventID string) {
	if s.Replay != nil && s.ReplayTTL > 0 {
		_ = s.Replay.Release(ctx, replayKey(eventID))
	}
}

func validateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid webhook url: %w", err)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return errors.New("webhook url must be http or https")
	}
	if parsed.Host == "" {
		return errors.New("webhook url must include host")
	}
	if parsed.Scheme == "http" {
		host := parsed.Hostname()
		if host != "localhost" && host != "127.0.0.1" {
			return errors.New("http webhook only allowed for localhost")
		}
	}
	return nil
}

// ComputeSignature is HMAC-SHA256 over "<ts>.<eventID>.<body>" keyed by secret.
func ComputeSignature(secret string, ts int64, eventID string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(strconv.FormatInt(ts, 10)))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write([]byte(eventID))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// HTTPClient returns a traced client for outbound notifications.
func HTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

func replayKey(eventID string) string {
	return "notify:sent:" + eventID
}
