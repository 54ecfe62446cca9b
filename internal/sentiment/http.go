package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"internflow-engine/internal/domain"
	"internflow-engine/internal/metrics"

	"github.com/sony/gobreaker"
)

// HTTPClassifier delegates to an external NLP endpoint. The endpoint takes
// {"text": "..."} and answers {"label": "Positive|Negative|Neutral"}.
// Calls go through a circuit breaker so a dead endpoint fails fast.
type HTTPClassifier struct {
	endpoint string
	hc       *http.Client
	cb       *gobreaker.CircuitBreaker
}

func NewHTTPClassifier(endpoint string, timeout time.Duration) *HTTPClassifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "sentiment-http",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed", "component", name, "from", from.String(), "to", to.String())
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})
	return &HTTPClassifier{
		endpoint: endpoint,
		hc:       &http.Client{Timeout: timeout},
		cb:       cb,
	}
}

type classifyRequest struct {
	Text string `json:"text"`
}

type classifyResponse struct {
	Label string `json:"label"`
}

func (c *HTTPClassifier) Classify(ctx context.Context, text string) (domain.Sentiment, error) {
	out, err := c.cb.Execute(func() (interface{}, error) {
		return c.call(ctx, text)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return domain.SentimentNeutral, fmt.Errorf("%w: sentiment endpoint: %w", domain.ErrUnavailable, err)
		}
		return domain.SentimentNeutral, err
	}
	return out.(domain.Sentiment), nil
}

func (c *HTTPClassifier) State() gobreaker.State { return c.cb.State() }

func (c *HTTPClassifier) call(ctx context.Context, text string) (domain.Sentiment, error) {
	body, err := json.Marshal(classifyRequest{Text: text})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("sentiment endpoint: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 256))
		return "", fmt.Errorf("sentiment endpoint status %d: %s", res.StatusCode, string(b))
	}

	var cr classifyResponse
	if err := json.NewDecoder(io.LimitReader(res.Body, 64<<10)).Decode(&cr); err != nil {
		return "", fmt.Errorf("sentiment endpoint decode: %w", err)
	}
	switch domain.Sentiment(cr.Label) {
	case domain.SentimentPositive, domain.SentimentNegative, domain.SentimentNeutral:
		return domain.Sentiment(cr.Label), nil
	default:
		return "", fmt.Errorf("sentiment endpoint: unknown label %q", cr.Label)
	}
}
