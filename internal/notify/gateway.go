package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	dErrors "healthnet/pkg/domain-errors"
	"healthnet/pkg/platform/circuit"
	"healthnet/pkg/platform/sentinel"
)

const defaultGatewayTimeout = 10 * time.Second

// GatewayConfig addresses a Vumi Go HTTP API conversation.
type GatewayConfig struct {
	BaseURL         string
	ConversationKey string
	AccountKey      string
	AccessToken     string
	Timeout         time.Duration
}

// GatewayClient sends SMS through the Vumi Go HTTP API.
type GatewayClient struct {
	endpoint    string
	accountKey  string
	accessToken string
	http        *http.Client
	breaker     *circuit.Breaker
	logger      *slog.Logger
	metrics     *Metrics
}

type GatewayOption func(*GatewayClient)

func WithHTTPClient(c *http.Client) GatewayOption {
	return func(g *GatewayClient) {
		g.http = c
	}
}

func WithBreaker(b *circuit.Breaker) GatewayOption {
	return func(g *GatewayClient) {
		g.breaker = b
	}
}

func WithLogger(logger *slog.Logger) GatewayOption {
	return func(g *GatewayClient) {
		g.logger = logger
	}
}

func WithMetrics(m *Metrics) GatewayOption {
	return func(g *GatewayClient) {
		g.metrics = m
	}
}

type outboundMessage struct {
	ToAddr  string `json:"to_addr"`
	Content string `json:"content"`
}

func NewGatewayClient(cfg GatewayConfig, opts ...GatewayOption) (*GatewayClient, error) {
	if cfg.BaseURL == "" || cfg.ConversationKey == "" {
		return nil, errors.New("sms gateway url and conversation key are required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse sms gateway url: %w", err)
	}
	endpoint := base.JoinPath(cfg.ConversationKey, "messages.json")

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultGatewayTimeout
	}
	g := &GatewayClient{
		endpoint:    endpoint.String(),
		accountKey:  cfg.AccountKey,
		accessToken: cfg.AccessToken,
		http:        &http.Client{Timeout: timeout},
		breaker:     circuit.New("sms-gateway"),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// SendSMS delivers text to the given phone number. While the circuit is open
// it fails fast with sentinel.ErrUnavailable.
func (g *GatewayClient) SendSMS(ctx context.Context, to, text string) error {
	if to == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "recipient phone number is required")
	}
	if !g.breaker.Allow() {
		g.count(OutcomeCircuitOpen)
		return fmt.Errorf("sms gateway circuit open: %w", sentinel.ErrUnavailable)
	}

	start := time.Now()
	err := g.send(ctx, to, text)
	if g.metrics != nil {
		g.metrics.DeliveryLatency.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		if _, change := g.breaker.RecordFailure(); change.Opened {
			g.logger.WarnContext(ctx, "sms gateway circuit opened", "breaker", g.breaker.Name())
			if g.metrics != nil {
				g.metrics.CircuitOpened.Inc()
			}
		}
		g.count(OutcomeFailed)
		return err
	}
	if _, change := g.breaker.RecordSuccess(); change.Closed {
		g.logger.InfoContext(ctx, "sms gateway circuit closed", "breaker", g.breaker.Name())
	}
	g.count(OutcomeSent)
	return nil
}

func (g *GatewayClient) send(ctx context.Context, to, text string) error {
	body, err := json.Marshal(outboundMessage{ToAddr: to, Content: text})
	if err != nil {
		return fmt.Errorf("encode sms: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.SetBasicAuth(g.accountKey, g.accessToken)

	resp, err := g.http.Do(req)
	if err != nil {
		return fmt.Errorf("sms gateway request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("sms gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (g *GatewayClient) count(outcome string) {
	if g.metrics != nil {
		g.metrics.IncrementDelivery(outcome)
	}
}
