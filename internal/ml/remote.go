package ml

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RemotePipeline calls a ModelServer over HTTP.
type RemotePipeline struct {
	base string
	rest *resty.Client
	info *ModelMetadata
}

// NewRemotePipeline connects to a model server and fetches its model info.
// An unreachable or unhealthy server is an *ArtifactLoadError.
func NewRemotePipeline(ctx context.Context, baseURL string, timeout time.Duration) (*RemotePipeline, error) {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(10 * time.Second)
	}

	p := &RemotePipeline{base: strings.TrimRight(baseURL, "/"), rest: r}

	var health HealthStatus
	resp, err := p.rest.R().
		SetContext(ctx).
		SetResult(&health).
		Get(p.base + "/health")
	if err != nil {
		return nil, &ArtifactLoadError{Path: baseURL, Err: fmt.Errorf("health check failed: %w", err)}
	}
	if resp.StatusCode() != http.StatusOK || !health.Healthy {
		return nil, &ArtifactLoadError{Path: baseURL, Err: fmt.Errorf("model server unhealthy: status %d", resp.StatusCode())}
	}

	var info ModelMetadata
	resp, err = p.rest.R().
		SetContext(ctx).
		SetResult(&info).
		Get(p.base + "/model/info")
	if err != nil {
		return nil, &ArtifactLoadError{Path: baseURL, Err: fmt.Errorf("model info request failed: %w", err)}
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &ArtifactLoadError{Path: baseURL, Err: fmt.Errorf("model info: status %d", resp.StatusCode())}
	}
	p.info = &info

	log.Info().
		Str("url", p.base).
		Str("model_version", info.Version).
		Msg("Connected to remote model server")

	return p, nil
}

// Info returns the metadata reported by the server.
func (p *RemotePipeline) Info() *ModelMetadata {
	return p.info
}

// InputColumns returns the feature names the server reported.
func (p *RemotePipeline) InputColumns() []string {
	if p.info == nil {
		return nil
	}
	return p.info.Features
}

// Predict implements Pipeline.
func (p *RemotePipeline) Predict(ctx context.Context, columns []string, rows [][]any) ([]float64, error) {
	req := PredictRequest{
		Columns:   columns,
		Rows:      sanitizeRows(rows),
		RequestID: uuid.NewString(),
	}

	var out PredictResponse
	resp, err := p.rest.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		SetError(&out).
		Post(p.base + "/predict")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if out.Error != "" {
		return nil, responseError(out.ErrorKind, out.Error)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("model server error: status %d, body: %s", resp.StatusCode(), resp.String())
	}
	if len(out.Predictions) != len(rows) {
		return nil, fmt.Errorf("expected %d predictions, got %d", len(rows), len(out.Predictions))
	}
	return out.Predictions, nil
}

// Explain implements Explainer.
func (p *RemotePipeline) Explain(ctx context.Context) (*Explanation, error) {
	var exp Explanation
	resp, err := p.rest.R().
		SetContext(ctx).
		SetResult(&exp).
		Get(p.base + "/model/coefficients")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("model server error: status %d", resp.StatusCode())
	}
	return &exp, nil
}
