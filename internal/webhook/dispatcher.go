package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/postpilot/postpilot/internal/logger"
	"github.com/postpilot/postpilot/internal/metrics"
	"github.com/postpilot/postpilot/internal/model"
	"github.com/postpilot/postpilot/internal/repository"
	"github.com/postpilot/postpilot/internal/util"
	"go.uber.org/zap"
)

// Config holds the delivery policy. Everything is injected so tests can
// run a deterministic policy.
type Config struct {
	MaxAttempts    int
	BackoffBase    time.Duration
	RequestTimeout time.Duration
	UserAgent      string
}

// Dispatcher turns one domain event into signed HTTP callbacks to every
// active subscription for that event, at-least-once, with a full
// per-attempt audit trail.
type Dispatcher struct {
	cfg    Config
	subs   repository.WebhooksRepository
	audit  repository.CHDeliveriesRepository // optional read-model sink
	client *http.Client

	// sleep is swapped out by tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewDispatcher(cfg Config, subs repository.WebhooksRepository, audit repository.CHDeliveriesRepository) *Dispatcher {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 500 * time.Millisecond
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "postpilot-webhook/1.0"
	}

	return &Dispatcher{
		cfg:    cfg,
		subs:   subs,
		audit:  audit,
		client: &http.Client{Timeout: cfg.RequestTimeout},
		sleep:  sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Sign computes the hex HMAC-SHA256 of body under secret. The signature
// travels as "X-Signature: sha256=<hex>".
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Dispatch delivers the event to every active subscription concurrently.
// One subscriber failing does not affect the others; exhausted deliveries
// are reported back joined into a single error for the caller to log.
func (d *Dispatcher) Dispatch(ctx context.Context, event string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}
	hashBytes := sha256.Sum256(body)
	payloadHash := hex.EncodeToString(hashBytes[:])

	subs, err := d.subs.ListActiveByEvent(ctx, event)
	if err != nil {
		return fmt.Errorf("load subscriptions for %s: %w", event, err)
	}
	if len(subs) == 0 {
		return nil
	}

	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)
	for _, sub := range subs {
		wg.Add(1)
		go func(sub model.WebhookSubscription) {
			defer wg.Done()
			if err := d.deliver(ctx, sub, event, body, payloadHash); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(sub)
	}
	wg.Wait()

	return errors.Join(errs...)
}

// deliver runs the bounded retry loop for a single subscription,
// recording every attempt.
func (d *Dispatcher) deliver(ctx context.Context, sub model.WebhookSubscription, event string, body []byte, payloadHash string) error {
	sig := Sign(sub.Secret, body)

	var lastErr error
	for attempt := 1; attempt <= d.cfg.MaxAttempts; attempt++ {
		start := time.Now()
		code, err := d.post(ctx, sub.URL, event, sig, body)
		duration := time.Since(start)

		status := model.DeliveryStatusDelivered
		if err != nil {
			status = model.DeliveryStatusFailed
			lastErr = err
		}

		d.record(ctx, sub, event, attempt, status, code, err, duration, payloadHash)
		metrics.WebhookDeliveriesTotal.WithLabelValues(status.String(), event).Inc()

		if err == nil {
			return nil
		}

		if attempt < d.cfg.MaxAttempts {
			backoff := d.cfg.BackoffBase << (attempt - 1)
			if serr := d.sleep(ctx, backoff); serr != nil {
				return fmt.Errorf("webhook %s: delivery aborted: %w", sub.ID, serr)
			}
		}
	}

	return fmt.Errorf("webhook %s: %d attempts to %s failed: %w", sub.ID, d.cfg.MaxAttempts, sub.URL, lastErr)
}

// post performs one signed HTTP POST. Any non-2xx response counts as a
// failure for retry purposes.
func (d *Dispatcher) post(ctx context.Context, url, event, sig string, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", d.cfg.UserAgent)
	req.Header.Set("X-Event", event)
	req.Header.Set("X-Signature", "sha256="+sig)

	res, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		return res.StatusCode, fmt.Errorf("status=%d", res.StatusCode)
	}
	return res.StatusCode, nil
}

// record appends the attempt to the MySQL audit trail and, best effort,
// to the ClickHouse read model. Audit failures are logged, never raised.
func (d *Dispatcher) record(ctx context.Context, sub model.WebhookSubscription, event string, attempt int, status model.DeliveryStatus, code int, cause error, duration time.Duration, payloadHash string) {
	row := model.WebhookDeliveryAttempt{
		ID:             util.NewID(),
		SubscriptionID: sub.ID,
		URL:            sub.URL,
		Event:          event,
		AttemptNumber:  attempt,
		Status:         status,
		DurationMs:     duration.Milliseconds(),
		PayloadHash:    payloadHash,
	}
	if code > 0 {
		row.ResponseCode = sql.NullInt64{Int64: int64(code), Valid: true}
	}
	if cause != nil {
		row.ErrorMessage = sql.NullString{String: cause.Error(), Valid: true}
	}

	if err := d.subs.InsertDeliveryAttempt(ctx, row); err != nil {
		logger.Log.Error("record delivery attempt",
			zap.String("subscription", sub.ID),
			zap.Error(err))
	}

	if d.audit != nil {
		chRow := repository.DeliveryRow{
			ID:             row.ID,
			UserID:         sub.UserID,
			SubscriptionID: sub.ID,
			URL:            sub.URL,
			Event:          event,
			AttemptNumber:  attempt,
			Status:         status.String(),
			ResponseCode:   int32(code),
			DurationMs:     row.DurationMs,
			PayloadHash:    payloadHash,
			CreatedAt:      time.Now(),
		}
		if cause != nil {
			chRow.ErrorMessage = cause.Error()
		}
		if err := d.audit.Insert(ctx, chRow); err != nil {
			logger.Log.Warn("clickhouse delivery sink",
				zap.String("subscription", sub.ID),
				zap.Error(err))
		}
	}
}
