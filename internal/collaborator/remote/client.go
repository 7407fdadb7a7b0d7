// Package remote talks to a text-understanding service over HTTP. Every
// collaborator role is one POST endpoint returning the same JSON payloads
// the rest of the collaborator package decodes and validates.
package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/GriffinCanCode/EnvForge/backend/internal/collaborator"
	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/blueprint"
	"github.com/GriffinCanCode/EnvForge/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/EnvForge/backend/internal/infrastructure/resilience"
	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Endpoint paths relative to the base URL.
const (
	PathIntent    = "/intent"
	PathEntities  = "/entities"
	PathQuestion  = "/question"
	PathQuestions = "/questions"
	PathAnswer    = "/answer"
	PathAnswers   = "/answers"
)

// Options configures the client.
type Options struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	// RPS paces outgoing requests. Zero or less means unlimited.
	RPS          float64
	MaxRetries   int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	Breaker      resilience.Settings
	Logger       *zap.Logger
}

// StatusError is a non-2xx reply.
type StatusError struct {
	Path string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("POST %s: status %d: %s", e.Path, e.Code, e.Body)
}

// Client implements every collaborator role against a remote service.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	logger  *zap.Logger
}

// New creates a client. Transport-level retries come from retryablehttp,
// and the breaker sits above them so one exhausted retry series counts
// as one failure.
func New(opts Options) *Client {
	logger := logging.Component(opts.Logger, "remote")
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RetryWaitMin <= 0 {
		opts.RetryWaitMin = 500 * time.Millisecond
	}
	if opts.RetryWaitMax <= 0 {
		opts.RetryWaitMax = 5 * time.Second
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = opts.MaxRetries
	retryClient.RetryWaitMin = opts.RetryWaitMin
	retryClient.RetryWaitMax = opts.RetryWaitMax
	retryClient.Logger = leveled{logger}
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	restyClient := resty.NewWithClient(retryClient.StandardClient())
	restyClient.
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", "EnvForge-Collaborator/1.0").
		SetHeader("Content-Type", "application/json").
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal)
	if opts.Token != "" {
		restyClient.SetAuthToken(opts.Token)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RPS > 0 {
		burst := int(opts.RPS)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RPS), burst)
	}

	settings := opts.Breaker
	userHook := settings.OnStateChange
	settings.OnStateChange = func(name string, from, to resilience.State) {
		logger.Warn("collaborator breaker state changed",
			zap.String("breaker", name),
			zap.Stringer("from", from),
			zap.Stringer("to", to))
		if userHook != nil {
			userHook(name, from, to)
		}
	}

	return &Client{
		http:    restyClient,
		limiter: limiter,
		breaker: resilience.New("collaborator-remote", settings),
		logger:  logger,
	}
}

// Set returns c in every collaborator role.
func (c *Client) Set() collaborator.Set {
	return collaborator.Set{Intents: c, Detector: c, Questions: c, Answers: c}
}

// Breaker exposes the client's circuit breaker.
func (c *Client) Breaker() *resilience.Breaker {
	return c.breaker
}

// post sends body and returns the raw reply body.
func (c *Client) post(ctx context.Context, path string, body any) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}
	return resilience.Do(ctx, c.breaker, func(ctx context.Context) ([]byte, error) {
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(body).
			Post(path)
		if err != nil {
			return nil, fmt.Errorf("POST %s: %w", path, err)
		}
		if resp.IsError() {
			return nil, &StatusError{Path: path, Code: resp.StatusCode(), Body: truncate(resp.String(), 200)}
		}
		c.logger.Debug("collaborator replied",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode()),
			zap.Duration("duration", resp.Time()))
		return resp.Body(), nil
	})
}

type textRequest struct {
	Text     string   `json:"text"`
	Existing []string `json:"existing,omitempty"`
}

type questionRequest struct {
	Requirement  *blueprint.MissingRequirement  `json:"requirement,omitempty"`
	Requirements []blueprint.MissingRequirement `json:"requirements,omitempty"`
	Entity       *collaborator.EntityContext    `json:"entity,omitempty"`
}

type answerRequest struct {
	Text         string                         `json:"text"`
	Requirement  *blueprint.MissingRequirement  `json:"requirement,omitempty"`
	Requirements []blueprint.MissingRequirement `json:"requirements,omitempty"`
	Entity       *collaborator.EntityContext    `json:"entity,omitempty"`
}

type questionReply struct {
	Question string `json:"question"`
}

// ExtractIntent posts text to the intent endpoint.
func (c *Client) ExtractIntent(ctx context.Context, text string) (*collaborator.Intent, error) {
	raw, err := c.post(ctx, PathIntent, textRequest{Text: text})
	if err != nil {
		return nil, err
	}
	return collaborator.DecodeIntent(raw)
}

// DetectEntities posts text and the known entity ids to the entities endpoint.
func (c *Client) DetectEntities(ctx context.Context, text string, existing []string) (*collaborator.Discovery, error) {
	raw, err := c.post(ctx, PathEntities, textRequest{Text: text, Existing: existing})
	if err != nil {
		return nil, err
	}
	return collaborator.DecodeDiscovery(raw)
}

// Formulate asks the service to phrase one requirement.
func (c *Client) Formulate(ctx context.Context, req blueprint.MissingRequirement, entity *collaborator.EntityContext) (string, error) {
	return c.question(ctx, PathQuestion, questionRequest{Requirement: &req, Entity: entity})
}

// FormulateBatch asks the service to phrase several requirements at once.
func (c *Client) FormulateBatch(ctx context.Context, reqs []blueprint.MissingRequirement, entity *collaborator.EntityContext) (string, error) {
	return c.question(ctx, PathQuestions, questionRequest{Requirements: reqs, Entity: entity})
}

func (c *Client) question(ctx context.Context, path string, body questionRequest) (string, error) {
	raw, err := c.post(ctx, path, body)
	if err != nil {
		return "", err
	}
	var reply questionReply
	if err := sonic.Unmarshal(raw, &reply); err != nil {
		return "", fmt.Errorf("decode question: %w", err)
	}
	return reply.Question, nil
}

// ParseAnswer asks the service to extract the value for req from text.
func (c *Client) ParseAnswer(ctx context.Context, text string, req blueprint.MissingRequirement, entity *collaborator.EntityContext) (*collaborator.Answer, error) {
	raw, err := c.post(ctx, PathAnswer, answerRequest{Text: text, Requirement: &req, Entity: entity})
	if err != nil {
		return nil, err
	}
	return collaborator.DecodeAnswer(raw)
}

// ParseCompound asks the service for every value text supplies for reqs.
func (c *Client) ParseCompound(ctx context.Context, text string, reqs []blueprint.MissingRequirement, entity *collaborator.EntityContext) ([]collaborator.Answer, error) {
	raw, err := c.post(ctx, PathAnswers, answerRequest{Text: text, Requirements: reqs, Entity: entity})
	if err != nil {
		return nil, err
	}
	return collaborator.DecodeAnswers(raw)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// leveled adapts zap to retryablehttp's leveled logger.
type leveled struct{ l *zap.Logger }

func (z leveled) Error(msg string, kv ...interface{}) { z.l.Sugar().Errorw(msg, kv...) }
func (z leveled) Info(msg string, kv ...interface{})  { z.l.Sugar().Debugw(msg, kv...) }
func (z leveled) Debug(msg string, kv ...interface{}) { z.l.Sugar().Debugw(msg, kv...) }
func (z leveled) Warn(msg string, kv ...interface{})  { z.l.Sugar().Warnw(msg, kv...) }

var _ retryablehttp.LeveledLogger = leveled{}

// DefaultBreaker is the breaker configuration used by the server.
func DefaultBreaker() resilience.Settings {
	return resilience.Settings{
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
}
