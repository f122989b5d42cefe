// Package serverless connects job handlers to the dispatch platform. The
// worker long-polls the platform for jobs, runs the handler, and posts the
// result back; queueing, retries, and scaling all belong to the platform.
package serverless

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wizeapp/inference-worker/internal/config"
	"github.com/wizeapp/inference-worker/internal/job"
)

// Poller pulls jobs for one endpoint and runs them one at a time.
type Poller struct {
	client     *http.Client
	baseURL    string
	endpointID string
	apiKey     string
	workerID   string

	handler job.Handler
	log     *zap.Logger
}

// NewPoller creates a poller for the configured endpoint.
func NewPoller(cfg *config.Config, h job.Handler, log *zap.Logger) *Poller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Poller{
		client: &http.Client{
			// job-take holds the connection open until a job arrives or the
			// platform gives up; the client timeout must outlast that.
			Timeout: time.Duration(cfg.PollTimeout+30) * time.Second,
		},
		baseURL:    cfg.APIBaseURL,
		endpointID: cfg.EndpointID,
		apiKey:     cfg.APIKey,
		workerID:   uuid.NewString(),
		handler:    h,
		log:        log,
	}
}

// WorkerID returns the identity this poller registers jobs under.
func (p *Poller) WorkerID() string {
	return p.workerID
}

// Run polls for jobs until ctx is canceled. Poll failures are logged and
// retried after a short backoff; they never kill the worker.
func (p *Poller) Run(ctx context.Context) error {
	p.log.Info("worker polling for jobs",
		zap.String("endpoint_id", p.endpointID),
		zap.String("worker_id", p.workerID))

	for {
		if err := ctx.Err(); err != nil {
			p.log.Info("worker stopping")
			return nil
		}

		req, err := p.take(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.log.Warn("job take failed", zap.Error(err))
			select {
			case <-time.After(2 * time.Second):
			case <-ctx.Done():
				return nil
			}
			continue
		}
		if req == nil {
			continue
		}

		p.log.Info("job received", zap.String("job_id", req.ID))
		result := p.handler(ctx, req)

		if err := p.done(ctx, req.ID, result); err != nil {
			p.log.Error("job result delivery failed",
				zap.String("job_id", req.ID), zap.Error(err))
		}
	}
}

// take long-polls for the next job. A nil request with nil error means the
// poll expired with no work.
func (p *Poller) take(ctx context.Context) (*job.Request, error) {
	url := fmt.Sprintf("%s/%s/job-take/%s", p.baseURL, p.endpointID, p.workerID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent:
		return nil, nil
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("job take: %s: %s", resp.Status, body)
	}

	var req job.Request
	if err := json.NewDecoder(resp.Body).Decode(&req); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	return &req, nil
}

// done posts a finished job's result back to the platform.
func (p *Poller) done(ctx context.Context, jobID string, result *job.Result) error {
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	url := fmt.Sprintf("%s/%s/job-done/%s?jobId=%s", p.baseURL, p.endpointID, p.workerID, jobID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("job done: %s: %s", resp.Status, respBody)
	}
	return nil
}
