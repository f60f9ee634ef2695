package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

const maxResponseBytes = 64 << 20

// HTTPGateway posts tasks as JSON to an analysis service.
type HTTPGateway struct {
	Endpoint string
	client   *http.Client
	logger   *slog.Logger
	calls    metric.Int64Counter
}

type HTTPOption func(*HTTPGateway)

func WithHTTPClient(c *http.Client) HTTPOption {
	return func(g *HTTPGateway) { g.client = c }
}

func WithLogger(l *slog.Logger) HTTPOption {
	return func(g *HTTPGateway) { g.logger = l }
}

// NewHTTPGateway builds a gateway whose transport propagates trace context.
func NewHTTPGateway(endpoint string, timeout time.Duration, opts ...HTTPOption) *HTTPGateway {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	g := &HTTPGateway{
		Endpoint: endpoint,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	calls, err := otel.Meter("netscope/analysis").Int64Counter("analysis.submissions",
		metric.WithDescription("Tasks submitted to the analysis service"))
	if err != nil {
		g.logger.Warn("analysis counter unavailable", "error", err)
	}
	g.calls = calls
	return g
}

// Submit sends task and decodes the service answer. A success 0 answer is
// returned as a Result, not as an error; callers check Result.Err.
func (g *HTTPGateway) Submit(ctx context.Context, task Task) (res *Result, err error) {
	ctx, span := otel.Tracer("netscope/analysis").Start(ctx, "HTTPGateway.Submit")
	defer span.End()
	requestID := uuid.NewString()
	span.SetAttributes(
		attribute.String("analysis.task", string(task.TaskID)),
		attribute.String("analysis.method", task.Options.Method),
		attribute.Int("analysis.edges", len(task.Network.Edges)),
		attribute.String("request.id", requestID),
	)
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else if res.Success == 0 {
			outcome = "rejected"
		}
		if g.calls != nil {
			g.calls.Add(ctx, 1, metric.WithAttributes(
				attribute.String("task", string(task.TaskID)),
				attribute.String("outcome", outcome),
			))
		}
	}()

	body, err := json.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach analysis service: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read analysis response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("analysis service returned status %d: %s", resp.StatusCode, bytes.TrimSpace(payload))
	}

	var out Result
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("failed to decode analysis response: %w", err)
	}
	g.logger.Debug("analysis task answered", "task", task.TaskID, "request_id", requestID, "success", out.Success)
	return &out, nil
}

var _ Gateway = (*HTTPGateway)(nil)
