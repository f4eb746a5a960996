// Package webhook implements the Webhook Fan-out Engine: subscription
// lookup, payload composition, per-destination delivery with retry, and
// delivery stats, generalized from a single-webhook-per-session model to
// full (user, session, event-type) subscription fan-out.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/felipe/wagateway/internal/config"
	"github.com/felipe/wagateway/internal/db/models"
	"github.com/felipe/wagateway/internal/db/repositories"
	"github.com/felipe/wagateway/internal/logger"
	"github.com/felipe/wagateway/internal/session"
)

// maxResponseBodyLog bounds how much of a destination's response body gets
// stored in the delivery log, so a misbehaving endpoint can't inflate rows.
const maxResponseBodyLog = 4096

// Event is one occurrence to fan out to every matching subscription.
type Event struct {
	UserID    string
	SessionID string
	Type      models.WebhookEventType
	Success   *bool
	Fields    map[string]interface{}
	At        time.Time
}

// Engine is the Webhook Fan-out Engine. It satisfies session.WebhookPublisher
// so the Session Supervisor can publish events without importing this
// package's concrete types.
type Engine struct {
	client     *http.Client
	webhooks   repositories.WebhookRepository
	cfg        config.WebhookConfig
	logger     *logger.ComponentLogger
	queue      chan dispatchJob
	retryQueue chan dispatchJob
	stats      Stats
}

// Stats reports throughput counters for one engine, aggregated across
// every destination it fans out to; queue depth is not tracked.
type Stats struct {
	TotalSent    int64
	TotalSuccess int64
	TotalFailed  int64
	TotalRetries int64
}

type dispatchJob struct {
	webhook     models.Webhook
	eventType   models.WebhookEventType
	payload     map[string]interface{}
	success     *bool
	attempt     int
	isRetry     bool
	nextAttempt time.Time
}

func New(webhooks repositories.WebhookRepository, cfg config.WebhookConfig) *Engine {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Engine{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     30 * time.Second,
			},
		},
		webhooks:   webhooks,
		cfg:        cfg,
		logger:     logger.ForComponent("webhook_engine"),
		queue:      make(chan dispatchJob, 10000),
		retryQueue: make(chan dispatchJob, 5000),
	}
}

// Start launches the dispatch worker pool and the retry scheduler.
func (e *Engine) Start(ctx context.Context, workers int) {
	if workers <= 0 {
		workers = 5
	}
	for i := 0; i < workers; i++ {
		go e.worker(ctx, i)
	}
	go e.retryScheduler(ctx)
	e.logger.Info().Int("workers", workers).Msg("webhook engine started")
}

// Publish implements session.WebhookPublisher: looks up every matching
// subscription and enqueues one dispatch job per destination. Fan-out is
// fire-and-forget from the caller's perspective.
func (e *Engine) Publish(evt session.WebhookEvent) {
	eventType := models.WebhookEventType(evt.Type)
	subs, err := e.webhooks.ListSubscribed(evt.UserID, evt.SessionID, eventType)
	if err != nil {
		e.logger.Error().Err(err).Str("event", evt.Type).Msg("failed to list webhook subscriptions")
		return
	}
	if len(subs) == 0 {
		return
	}

	payload := buildPayload(evt.Type, evt.Success, evt.At, evt.Fields)
	for _, wh := range subs {
		if !wh.Matches(eventType) {
			continue
		}
		e.enqueue(dispatchJob{webhook: wh, eventType: eventType, payload: payload, success: evt.Success, attempt: 1})
	}
}

// TestDispatch sends one synthetic event straight at a known webhook row,
// bypassing subscription lookup. Used by the dashboard's "send test event"
// action so an operator can verify a destination without waiting on live
// traffic.
func (e *Engine) TestDispatch(wh models.Webhook, eventType models.WebhookEventType) {
	payload := buildPayload(string(eventType), nil, time.Now(), map[string]interface{}{"test": true})
	e.enqueue(dispatchJob{webhook: wh, eventType: eventType, payload: payload, attempt: 1})
}

func buildPayload(eventType string, success *bool, at time.Time, fields map[string]interface{}) map[string]interface{} {
	out := map[string]interface{}{
		"event":     eventType,
		"timestamp": at.UTC().Format(time.RFC3339),
	}
	if success != nil {
		out["success"] = *success
	}
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func (e *Engine) enqueue(job dispatchJob) {
	select {
	case e.queue <- job:
	default:
		e.logger.Warn().Str("webhook_id", job.webhook.ID.String()).Msg("dispatch queue full, dropping webhook job")
	}
}

func (e *Engine) worker(ctx context.Context, id int) {
	for {
		select {
		case job, ok := <-e.queue:
			if !ok {
				return
			}
			e.deliver(ctx, job)
		case <-ctx.Done():
			return
		}
	}
}

func (e *Engine) deliver(ctx context.Context, job dispatchJob) {
	atomic.AddInt64(&e.stats.TotalSent, 1)

	wh := job.webhook
	overlaid := models.MergeOverlay(job.payload, wh.CustomPayload)
	body, err := json.Marshal(overlaid)
	if err != nil {
		e.logger.Error().Err(err).Msg("failed to marshal webhook payload")
		return
	}

	url := wh.SelectURL(job.success)
	status, respBody, sendErr := e.post(ctx, url, body, wh.Headers, string(job.eventType))

	success := sendErr == nil && status >= 200 && status < 300
	e.recordAttempt(wh, job, status, respBody, success, sendErr)

	if success {
		atomic.AddInt64(&e.stats.TotalSuccess, 1)
		_ = e.webhooks.UpdateStats(wh.ID, true)
		return
	}

	atomic.AddInt64(&e.stats.TotalFailed, 1)
	maxRetries := wh.MaxRetries
	if maxRetries <= 0 {
		maxRetries = e.cfg.DefaultMaxRetries
		if maxRetries <= 0 {
			maxRetries = 3
		}
	}
	if !wh.RetryOnFailure || job.attempt >= maxRetries {
		_ = e.webhooks.UpdateStats(wh.ID, false)
		return
	}

	delay := time.Duration(wh.RetryDelaySecs) * time.Second
	if delay <= 0 {
		delay = e.cfg.DefaultRetryDelay
		if delay <= 0 {
			delay = 5 * time.Second
		}
	}
	atomic.AddInt64(&e.stats.TotalRetries, 1)
	retryJob := job
	retryJob.attempt++
	retryJob.isRetry = true
	retryJob.nextAttempt = time.Now().Add(delay)
	select {
	case e.retryQueue <- retryJob:
	default:
		e.logger.Warn().Str("webhook_id", wh.ID.String()).Msg("retry queue full, dropping retry")
	}
}

// post composes headers with a plain ordered loop (default headers, then
// per-webhook custom headers may override them) and reports both the
// response status and a truncated copy of the response body for the
// delivery log.
func (e *Engine) post(ctx context.Context, url string, body []byte, headers models.JSONMap, eventType string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "wagateway-webhook/1.0")
	req.Header.Set("X-Webhook-Event", eventType)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyLog))
	return resp.StatusCode, string(raw), nil
}

func (e *Engine) recordAttempt(wh models.Webhook, job dispatchJob, status int, respBody string, success bool, sendErr error) {
	payloadJSON, _ := json.Marshal(job.payload)
	log := &models.WebhookLog{
		WebhookID:      wh.ID,
		EventType:      job.eventType,
		Payload:        string(payloadJSON),
		ResponseStatus: status,
		ResponseBody:   respBody,
		Success:        success,
		Attempt:        job.attempt,
		IsRetry:        job.isRetry,
	}
	if sendErr != nil {
		log.ErrorMessage = sendErr.Error()
	} else if !success {
		log.ErrorMessage = fmt.Sprintf("webhook returned status %d", status)
	}
	if err := e.webhooks.RecordAttempt(log); err != nil {
		e.logger.Warn().Err(err).Msg("failed to record webhook attempt")
	}
}

func (e *Engine) retryScheduler(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	var pending []dispatchJob

	for {
		select {
		case job := <-e.retryQueue:
			pending = append(pending, job)
		case <-ticker.C:
			now := time.Now()
			var stillPending []dispatchJob
			for _, job := range pending {
				if now.After(job.nextAttempt) {
					e.enqueue(job)
				} else {
					stillPending = append(stillPending, job)
				}
			}
			pending = stillPending
		case <-ctx.Done():
			return
		}
	}
}

func (e *Engine) Stats() Stats {
	return Stats{
		TotalSent:    atomic.LoadInt64(&e.stats.TotalSent),
		TotalSuccess: atomic.LoadInt64(&e.stats.TotalSuccess),
		TotalFailed:  atomic.LoadInt64(&e.stats.TotalFailed),
		TotalRetries: atomic.LoadInt64(&e.stats.TotalRetries),
	}
}
