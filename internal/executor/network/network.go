// Package network implements an executor.Executor that delivers job
// fires over HTTP to an external agent runtime endpoint.
package network

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/flemzord/cronx/internal/executor"
	"github.com/flemzord/cronx/internal/job"
)

// maxResponseBytes caps the size of a response body this executor will
// read, protecting against OOM from a malformed or oversized reply.
const maxResponseBytes = 1 << 20 // 1 MiB

// Config configures an Executor.
type Config struct {
	// TriggerURL and NotifyURL are the endpoints the executor POSTs to.
	TriggerURL string
	NotifyURL  string

	// AuthHeader, if non-empty, is sent as the Authorization header.
	AuthHeader string

	// RatePerSecond caps how many Trigger/Notify calls this executor will
	// issue per second, independent of any per-job check cadence, so a
	// misbehaving probabilistic job cannot hammer the agent runtime.
	// Zero disables limiting.
	RatePerSecond float64

	Client *http.Client
}

// Executor is an executor.Executor backed by an HTTP endpoint.
type Executor struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
}

// Compile-time interface check.
var _ executor.Executor = (*Executor)(nil)

// New constructs an Executor from cfg.
func New(cfg Config) *Executor {
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}

	return &Executor{cfg: cfg, client: client, limiter: limiter}
}

type triggerPayload struct {
	Message  string            `json:"message"`
	Priority job.Priority      `json:"priority"`
	Context  map[string]string `json:"context,omitempty"`
}

type triggerResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Trigger implements executor.Executor.
func (e *Executor) Trigger(ctx context.Context, req executor.TriggerRequest) (executor.TriggerResult, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return executor.TriggerResult{}, fmt.Errorf("network: rate limit wait: %w", err)
		}
	}

	payload := triggerPayload{Message: req.Message, Priority: req.Priority, Context: req.Context}
	var out triggerResponse
	if err := e.post(ctx, e.cfg.TriggerURL, payload, &out); err != nil {
		return executor.TriggerResult{}, err
	}

	result := executor.TriggerResult{Success: out.Success, Message: out.Message}
	if out.Error != "" {
		result.Err = fmt.Errorf("network: trigger: %s", out.Error)
	}
	return result, nil
}

type notifyPayload struct {
	Message  string       `json:"message"`
	Priority job.Priority `json:"priority"`
}

// Notify implements executor.Executor. It is best-effort: a failure is
// returned to the caller but the caller (the Runner) is expected to log
// and swallow it.
func (e *Executor) Notify(ctx context.Context, message string, priority job.Priority) error {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("network: rate limit wait: %w", err)
		}
	}

	return e.post(ctx, e.cfg.NotifyURL, notifyPayload{Message: message, Priority: priority}, nil)
}

func (e *Executor) post(ctx context.Context, url string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("network: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("network: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if e.cfg.AuthHeader != "" {
		httpReq.Header.Set("Authorization", e.cfg.AuthHeader)
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return executor.ErrTimeout
		}
		return fmt.Errorf("network: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusForbidden {
		return &executor.FatalError{Err: executor.ErrPermissionDenied}
	}
	if resp.StatusCode == http.StatusInsufficientStorage {
		return &executor.FatalError{Err: executor.ErrDiskFull}
	}

	limited := io.LimitReader(resp.Body, maxResponseBytes)
	data, err := io.ReadAll(limited)
	if err != nil {
		return fmt.Errorf("network: read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("network: unexpected status %d: %s", resp.StatusCode, data)
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("network: decode response: %w", err)
	}
	return nil
}
