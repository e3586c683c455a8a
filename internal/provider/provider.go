package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/postpilot/postpilot/internal/model"
)

// Publisher is the single capability every social platform implements:
// push one piece of content to one provider account.
type Publisher interface {
	Name() string
	Ready() bool
	Publish(ctx context.Context, req model.PublishRequest) (model.PublishResult, error)
}

// HTTPPublisher talks to a platform connector over HTTP. A MicroBreaker
// shields the scheduler from a provider that is hard down.
type HTTPPublisher struct {
	name        string
	baseURL     string
	publishPath string
	client      *http.Client
	br          *MicroBreaker
}

func NewHTTPPublisher(
	name, baseURL, publishPath string,
	timeoutMs, failThreshold, openForMs int,
) *HTTPPublisher {
	if timeoutMs <= 0 {
		timeoutMs = 15000
	}

	if failThreshold <= 0 {
		failThreshold = 3
	}

	if openForMs <= 0 {
		openForMs = 15000
	}

	return &HTTPPublisher{
		name:        name,
		baseURL:     baseURL,
		publishPath: publishPath,
		client:      &http.Client{Timeout: time.Duration(timeoutMs) * time.Millisecond},
		br:          NewMicroBreaker(failThreshold, time.Duration(openForMs)*time.Millisecond),
	}
}

func (p *HTTPPublisher) Name() string { return p.name }
func (p *HTTPPublisher) Ready() bool  { return p.br.Ready() }

func (p *HTTPPublisher) Publish(ctx context.Context, req model.PublishRequest) (model.PublishResult, error) {
	if !p.br.TryAcquire() {
		return model.PublishResult{}, fmt.Errorf("provider %s: circuit open", p.name)
	}

	res, err := p.post(ctx, req)
	if err != nil {
		p.br.OnFailure()
		return model.PublishResult{}, err
	}

	p.br.OnSuccess()

	return res, nil
}

func (p *HTTPPublisher) post(ctx context.Context, pub model.PublishRequest) (model.PublishResult, error) {
	b, _ := json.Marshal(pub)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+p.publishPath, bytes.NewReader(b))
	if err != nil {
		return model.PublishResult{}, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+pub.AccessToken)

	res, err := p.client.Do(req)
	if err != nil {
		return model.PublishResult{}, err
	}

	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		return model.PublishResult{}, fmt.Errorf("provider=%s status=%d", p.name, res.StatusCode)
	}

	var out model.PublishResult
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return model.PublishResult{}, fmt.Errorf("provider=%s decode response: %w", p.name, err)
	}
	if out.ExternalPostID == "" {
		return model.PublishResult{}, fmt.Errorf("provider=%s response missing external post id", p.name)
	}
	if out.PublishedAt.IsZero() {
		out.PublishedAt = time.Now()
	}

	return out, nil
}
