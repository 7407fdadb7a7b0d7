package compiler

import (
	"context"
	"fmt"

	"github.com/GriffinCanCode/EnvForge/backend/internal/collaborator"
	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/blueprint"
	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/contracts"
	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/knowledge"
	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/render"
	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/resolver"
	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/validator"
	"github.com/GriffinCanCode/EnvForge/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/EnvForge/backend/internal/infrastructure/monitoring"
	"go.uber.org/zap"
)

// Options wires the compiler's collaborators. Zero fields get defaults
// built over the built-in contracts and knowledge base.
type Options struct {
	Contracts *contracts.Registry
	Knowledge *knowledge.Base
	Validator *validator.Validator
	Resolver  *resolver.Resolver
	Renderer  *render.Renderer
	Logger    *zap.Logger
	Metrics   *monitoring.Metrics
}

// Response is what one step of the conversation hands back to the caller.
type Response struct {
	State       State                          `json:"state"`
	Message     string                         `json:"message,omitempty"`
	Question    string                         `json:"question,omitempty"`
	Findings    []blueprint.MissingRequirement `json:"findings,omitempty"`
	Document    *render.Document               `json:"document,omitempty"`
	NewEntities []string                       `json:"new_entities,omitempty"`
}

// Compiler owns one blueprint graph for the length of a session.
type Compiler struct {
	service   collaborator.Service
	registry  *contracts.Registry
	kb        *knowledge.Base
	validator *validator.Validator
	resolver  *resolver.Resolver
	renderer  *render.Renderer
	logger    *zap.Logger
	metrics   *monitoring.Metrics

	state   State
	graph   *blueprint.Graph
	counter int
	names   map[string]string

	findings []blueprint.MissingRequirement
	batch    []blueprint.MissingRequirement
	answered map[string]bool
	question string
	document *render.Document
	rounds   int
}

// WithDefaults returns o with every nil collaborator replaced by one built
// over the built-in contracts and knowledge base.
func (o Options) WithDefaults() Options {
	o.Logger = logging.OrNop(o.Logger)
	if o.Contracts == nil {
		o.Contracts = contracts.Default()
	}
	if o.Knowledge == nil {
		o.Knowledge = knowledge.Default()
	}
	if o.Validator == nil {
		o.Validator = validator.New(o.Contracts, o.Knowledge, validator.Options{})
	}
	if o.Resolver == nil {
		o.Resolver = resolver.New(o.Contracts, o.Knowledge, resolver.AutoWire, o.Logger)
	}
	if o.Renderer == nil {
		o.Renderer = render.New(o.Contracts, "")
	}
	return o
}

// New creates a compiler in the start state.
func New(service collaborator.Service, opts Options) *Compiler {
	opts = opts.WithDefaults()
	return &Compiler{
		service:   service,
		registry:  opts.Contracts,
		kb:        opts.Knowledge,
		validator: opts.Validator,
		resolver:  opts.Resolver,
		renderer:  opts.Renderer,
		logger:    logging.Component(opts.Logger, "compiler"),
		metrics:   opts.Metrics,
		state:     StateStart,
		graph:     blueprint.NewGraph(),
		names:     make(map[string]string),
		answered:  make(map[string]bool),
	}
}

// State returns the current state.
func (c *Compiler) State() State { return c.state }

// Graph returns the graph. Callers must not mutate it.
func (c *Compiler) Graph() *blueprint.Graph { return c.graph }

// Findings returns the findings of the last validation pass.
func (c *Compiler) Findings() []blueprint.MissingRequirement {
	return append([]blueprint.MissingRequirement(nil), c.findings...)
}

// Question returns the question currently awaiting an answer.
func (c *Compiler) Question() string { return c.question }

// Document returns the last rendered document, if any.
func (c *Compiler) Document() *render.Document { return c.document }

// Rounds returns the number of inputs processed.
func (c *Compiler) Rounds() int { return c.rounds }

// Pending returns the requirements of the current batch not answered yet.
func (c *Compiler) Pending() []blueprint.MissingRequirement {
	var out []blueprint.MissingRequirement
	for _, req := range c.batch {
		if !c.answered[req.Key()] {
			out = append(out, req)
		}
	}
	return out
}

// Process feeds one piece of free text to the compiler. In the start state
// the text is an intent; while input is needed it is an answer; once a
// document is rendered it may name further entities.
func (c *Compiler) Process(ctx context.Context, text string) (*Response, error) {
	if !c.state.Accepting() {
		return nil, fmt.Errorf("process in state %s: %w", c.state, ErrInvalidTransition)
	}
	c.rounds++
	c.metrics.IncRounds()

	switch c.state {
	case StateStart:
		return c.Start(ctx, c.service.ExtractIntent(ctx, text))
	case StateNeedsInput:
		return c.answer(ctx, text)
	default:
		return c.extend(ctx, text)
	}
}

// Start builds the initial graph from intent and runs the first
// validation pass. An intent naming no entities leaves the compiler in
// the start state.
func (c *Compiler) Start(ctx context.Context, intent *collaborator.Intent) (*Response, error) {
	if c.state != StateStart {
		return nil, fmt.Errorf("start in state %s: %w", c.state, ErrInvalidTransition)
	}
	if intent == nil || len(intent.Entities) == 0 {
		c.logger.Info("Intent names no entities")
		return &Response{State: c.state, Message: "No entities found in request"}, nil
	}
	if err := c.transition(StateIntentParsed); err != nil {
		return nil, err
	}
	ids := c.addEntities(intent.Entities)
	c.applyBindings(intent)
	if err := c.transition(StateGraphCreated); err != nil {
		return nil, err
	}
	resp, err := c.validate(ctx)
	if err != nil {
		return nil, err
	}
	resp.NewEntities = ids
	return resp, nil
}

// Resume adopts an existing graph and validates it. Later entities are
// numbered after the highest id suffix already present.
func (c *Compiler) Resume(ctx context.Context, g *blueprint.Graph) (*Response, error) {
	if c.state != StateStart {
		return nil, fmt.Errorf("resume in state %s: %w", c.state, ErrInvalidTransition)
	}
	if err := c.transition(StateIntentParsed); err != nil {
		return nil, err
	}
	c.adopt(g.Clone())
	if err := c.transition(StateGraphCreated); err != nil {
		return nil, err
	}
	return c.validate(ctx)
}

func (c *Compiler) transition(to State) error {
	if !CanTransition(c.state, to) {
		return fmt.Errorf("%s -> %s: %w", c.state, to, ErrInvalidTransition)
	}
	c.logger.Debug("State transition",
		zap.Stringer("from", c.state),
		zap.Stringer("to", to))
	c.metrics.RecordTransition(c.state.String(), to.String())
	c.state = to
	return nil
}

// validate auto-fills, resolves and validates the graph, then either
// renders it or asks about the first entity with findings.
func (c *Compiler) validate(ctx context.Context) (*Response, error) {
	if err := c.transition(StateValidation); err != nil {
		return nil, err
	}
	c.autofill()
	c.graph = c.resolver.Resolve(c.graph)
	c.findings = c.validator.Validate(c.graph)
	c.metrics.ObserveValidation(len(c.findings))
	c.logger.Debug("Graph validated",
		zap.Int("entities", c.graph.Len()),
		zap.Int("findings", len(c.findings)))

	if len(c.findings) == 0 {
		return c.complete()
	}

	c.batch = firstGroup(c.findings)
	c.answered = make(map[string]bool)
	c.question = c.service.FormulateBatch(ctx, c.batch, c.batchContext())
	if err := c.transition(StateNeedsInput); err != nil {
		return nil, err
	}
	return c.ask(), nil
}

func (c *Compiler) complete() (*Response, error) {
	if err := c.transition(StateGraphComplete); err != nil {
		return nil, err
	}
	c.document = c.renderer.Render(c.graph)
	c.metrics.IncRendered()
	c.batch = nil
	c.answered = make(map[string]bool)
	c.question = ""
	if err := c.transition(StateYAMLRendered); err != nil {
		return nil, err
	}
	c.logger.Info("Blueprint rendered", zap.Int("entities", c.graph.Len()))
	return &Response{State: c.state, Message: "Blueprint complete", Document: c.document}, nil
}

func (c *Compiler) ask() *Response {
	return &Response{State: c.state, Question: c.question, Findings: c.Findings()}
}

// answer applies text to the current batch. Compound answers come first;
// a single-field parse of the first pending requirement is the fallback
// when text carried no compound answers. Text that yields nothing usable
// repeats the question unless it named new entities, which send the
// machine back through validation.
func (c *Compiler) answer(ctx context.Context, text string) (*Response, error) {
	discovery := c.service.DetectEntities(ctx, text, c.graph.IDs())
	pending := c.Pending()
	entity := c.batchContext()

	applied := 0
	compound := c.service.ParseCompound(ctx, text, pending, entity)
	for _, a := range compound {
		req, ok := findPending(pending, a.Path)
		if !ok || c.answered[req.Key()] {
			continue
		}
		if a.Failed() {
			c.logger.Info("Compound answer unusable",
				zap.String("path", a.Path),
				zap.String("reason", a.Error))
			continue
		}
		if err := c.applyAnswer(req, a); err != nil {
			c.logger.Warn("Dropping compound answer", zap.String("path", a.Path), zap.Error(err))
			continue
		}
		applied++
	}

	if applied == 0 && len(pending) > 0 {
		ok := false
		if len(compound) > 0 {
			c.logger.Info("Compound answer matched no pending requirement", zap.Int("answers", len(compound)))
		} else {
			ok = c.answerSingle(ctx, text, pending, entity)
		}
		if !ok && len(discovery.NewEntities) == 0 {
			return c.reask()
		}
	}

	if len(discovery.NewEntities) > 0 {
		return c.grow(ctx, discovery.NewEntities)
	}

	next := c.Pending()
	if len(next) == 0 {
		return c.validate(ctx)
	}
	c.question = c.service.Formulate(ctx, next[0], c.batchContext())
	if err := c.transition(StateNeedsInput); err != nil {
		return nil, err
	}
	return c.ask(), nil
}

// answerSingle parses text as the value of the first pending requirement,
// or of the pending requirement the parser names instead.
func (c *Compiler) answerSingle(ctx context.Context, text string, pending []blueprint.MissingRequirement, entity *collaborator.EntityContext) bool {
	req := pending[0]
	a := c.service.ParseAnswer(ctx, text, req, entity)
	if a.Failed() {
		c.logger.Info("Answer unusable",
			zap.String("path", req.Path),
			zap.String("reason", a.Error))
		return false
	}
	if other, ok := findPending(pending, a.Path); ok {
		req = other
	}
	if err := c.applyAnswer(req, *a); err != nil {
		c.logger.Warn("Answer rejected", zap.String("path", req.Path), zap.Error(err))
		return false
	}
	return true
}

func (c *Compiler) reask() (*Response, error) {
	if err := c.transition(StateNeedsInput); err != nil {
		return nil, err
	}
	return c.ask(), nil
}

// extend looks for new entities once a document exists.
func (c *Compiler) extend(ctx context.Context, text string) (*Response, error) {
	discovery := c.service.DetectEntities(ctx, text, c.graph.IDs())
	if len(discovery.NewEntities) == 0 {
		return &Response{State: c.state, Message: "No new entities found", Document: c.document}, nil
	}
	return c.grow(ctx, discovery.NewEntities)
}

func (c *Compiler) grow(ctx context.Context, specs []collaborator.EntitySpec) (*Response, error) {
	ids := c.addEntities(specs)
	if err := c.transition(StateGraphCreated); err != nil {
		return nil, err
	}
	resp, err := c.validate(ctx)
	if err != nil {
		return nil, err
	}
	resp.NewEntities = ids
	return resp, nil
}

func (c *Compiler) applyAnswer(req blueprint.MissingRequirement, a collaborator.Answer) error {
	path := a.Path
	if path == "" {
		path = req.Path
	}
	err := c.ApplyUpdate(Update{
		EntityID:       req.EntityID,
		Path:           path,
		Value:          a.Value,
		Classification: a.Classification,
		Default:        a.Default,
	})
	if err != nil {
		return err
	}
	c.answered[req.Key()] = true
	return nil
}

func (c *Compiler) batchContext() *collaborator.EntityContext {
	if len(c.batch) == 0 {
		return nil
	}
	e, _ := c.graph.Entity(c.batch[0].EntityID)
	return collaborator.NewEntityContext(e)
}

// firstGroup returns the findings of the first entity that has any.
func firstGroup(findings []blueprint.MissingRequirement) []blueprint.MissingRequirement {
	if len(findings) == 0 {
		return nil
	}
	id := findings[0].EntityID
	var out []blueprint.MissingRequirement
	for _, f := range findings {
		if f.EntityID == id {
			out = append(out, f)
		}
	}
	return out
}

func findPending(pending []blueprint.MissingRequirement, path string) (blueprint.MissingRequirement, bool) {
	for _, req := range pending {
		if req.Path == path {
			return req, true
		}
	}
	return blueprint.MissingRequirement{}, false
}
