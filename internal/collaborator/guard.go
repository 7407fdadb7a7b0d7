package collaborator

import (
	"context"
	"errors"
	"html"
	"strings"
	"time"

	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/blueprint"
	"github.com/GriffinCanCode/EnvForge/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/EnvForge/backend/internal/infrastructure/monitoring"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

// Roles label collaborator calls in logs and metrics.
const (
	RoleIntents   = "intents"
	RoleDetector  = "detector"
	RoleQuestions = "questions"
	RoleAnswers   = "answers"
)

var errNoCollaborator = errors.New("no collaborator configured")

// Service is the collaborator boundary as the compiler sees it. None of
// its methods fail: problems are absorbed and replaced by fallbacks.
type Service interface {
	ExtractIntent(ctx context.Context, text string) *Intent
	DetectEntities(ctx context.Context, text string, existing []string) *Discovery
	Formulate(ctx context.Context, req blueprint.MissingRequirement, entity *EntityContext) string
	FormulateBatch(ctx context.Context, reqs []blueprint.MissingRequirement, entity *EntityContext) string
	ParseAnswer(ctx context.Context, text string, req blueprint.MissingRequirement, entity *EntityContext) *Answer
	ParseCompound(ctx context.Context, text string, reqs []blueprint.MissingRequirement, entity *EntityContext) []Answer
}

// GuardOptions configures a Guard.
type GuardOptions struct {
	Logger  *zap.Logger
	Metrics *monitoring.Metrics
	// Timeout bounds each call. Zero leaves the caller's deadline alone.
	Timeout time.Duration
}

// Guard wraps a Set and turns every failure into a logged fallback.
type Guard struct {
	set     Set
	logger  *zap.Logger
	metrics *monitoring.Metrics
	timeout time.Duration
	policy  *bluemonday.Policy
}

var _ Service = (*Guard)(nil)

// NewGuard guards set. Nil roles in set always fall back.
func NewGuard(set Set, opts GuardOptions) *Guard {
	return &Guard{
		set:     set,
		logger:  logging.Component(opts.Logger, "collaborator"),
		metrics: opts.Metrics,
		timeout: opts.Timeout,
		policy:  bluemonday.StrictPolicy(),
	}
}

// call runs fn with the call timeout, recording duration and outcome.
func call[T any](g *Guard, ctx context.Context, role string, fn func(context.Context) (T, error)) (T, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	timer := monitoring.NewTimer(g.metrics, role)
	out, err := fn(ctx)
	if err != nil {
		d := timer.Stop("failure")
		reason := "error"
		if errors.Is(err, context.DeadlineExceeded) {
			reason = "timeout"
		}
		g.metrics.RecordCollaboratorFailure(role, reason)
		g.logger.Warn("collaborator call failed, using fallback",
			zap.String("role", role),
			zap.Duration("duration", d),
			zap.Error(err))
		return out, err
	}
	timer.Stop("success")
	return out, nil
}

// ExtractIntent returns an empty intent when extraction fails.
func (g *Guard) ExtractIntent(ctx context.Context, text string) *Intent {
	intent, err := call(g, ctx, RoleIntents, func(ctx context.Context) (*Intent, error) {
		if g.set.Intents == nil {
			return nil, errNoCollaborator
		}
		return g.set.Intents.ExtractIntent(ctx, text)
	})
	if err != nil || intent == nil {
		return &Intent{Entities: []EntitySpec{}}
	}
	return intent
}

// DetectEntities returns an empty discovery when detection fails.
func (g *Guard) DetectEntities(ctx context.Context, text string, existing []string) *Discovery {
	d, err := call(g, ctx, RoleDetector, func(ctx context.Context) (*Discovery, error) {
		if g.set.Detector == nil {
			return nil, errNoCollaborator
		}
		return g.set.Detector.DetectEntities(ctx, text, existing)
	})
	if err != nil || d == nil {
		return &Discovery{NewEntities: []EntitySpec{}}
	}
	return d
}

// Formulate returns question text for req.
func (g *Guard) Formulate(ctx context.Context, req blueprint.MissingRequirement, entity *EntityContext) string {
	text, err := call(g, ctx, RoleQuestions, func(ctx context.Context) (string, error) {
		if g.set.Questions == nil {
			return "", errNoCollaborator
		}
		return g.set.Questions.Formulate(ctx, req, entity)
	})
	if clean := g.sanitize(text); err == nil && clean != "" {
		return clean
	}
	return FallbackQuestion(req)
}

// FormulateBatch returns one question text covering reqs.
func (g *Guard) FormulateBatch(ctx context.Context, reqs []blueprint.MissingRequirement, entity *EntityContext) string {
	if len(reqs) == 0 {
		return ""
	}
	text, err := call(g, ctx, RoleQuestions, func(ctx context.Context) (string, error) {
		if g.set.Questions == nil {
			return "", errNoCollaborator
		}
		return g.set.Questions.FormulateBatch(ctx, reqs, entity)
	})
	if clean := g.sanitize(text); err == nil && clean != "" {
		return clean
	}
	return FallbackQuestions(reqs)
}

// ParseAnswer returns the parsed answer, or a fallback parse of text when
// the parser fails. An answer carrying an error marker is passed through.
func (g *Guard) ParseAnswer(ctx context.Context, text string, req blueprint.MissingRequirement, entity *EntityContext) *Answer {
	a, err := call(g, ctx, RoleAnswers, func(ctx context.Context) (*Answer, error) {
		if g.set.Answers == nil {
			return nil, errNoCollaborator
		}
		return g.set.Answers.ParseAnswer(ctx, text, req, entity)
	})
	if err != nil || a == nil {
		return FallbackAnswer(text, req)
	}
	if a.Path == "" {
		a.Path = req.Path
	}
	return a
}

// ParseCompound returns the answers found in text, or nil when the parser
// fails. Answers without a path are dropped.
func (g *Guard) ParseCompound(ctx context.Context, text string, reqs []blueprint.MissingRequirement, entity *EntityContext) []Answer {
	if len(reqs) == 0 {
		return nil
	}
	answers, err := call(g, ctx, RoleAnswers, func(ctx context.Context) ([]Answer, error) {
		if g.set.Answers == nil {
			return nil, errNoCollaborator
		}
		return g.set.Answers.ParseCompound(ctx, text, reqs, entity)
	})
	if err != nil {
		return nil
	}
	out := answers[:0]
	for _, a := range answers {
		if a.Path != "" {
			out = append(out, a)
		}
	}
	return out
}

// sanitize strips markup from externally produced question text.
func (g *Guard) sanitize(text string) string {
	return strings.TrimSpace(html.UnescapeString(g.policy.Sanitize(text)))
}
