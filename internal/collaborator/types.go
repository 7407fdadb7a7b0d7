package collaborator

import (
	"context"
	"sort"

	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/blueprint"
)

// EntitySpec describes one entity named by an intent or a discovery.
type EntitySpec struct {
	ID              string         `json:"id,omitempty" yaml:"id,omitempty"`
	BackendType     string         `json:"backend_type" yaml:"backend_type"`
	Template        string         `json:"template,omitempty" yaml:"template,omitempty"`
	Component       string         `json:"component,omitempty" yaml:"component,omitempty"`
	Dependencies    []string       `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	DependencyNames []string       `json:"dependency_names,omitempty" yaml:"dependency_names,omitempty"`
	Inputs          map[string]any `json:"inputs,omitempty" yaml:"inputs,omitempty"`
}

// Intent is the structured form of a free-text request.
type Intent struct {
	Entities []EntitySpec `json:"entities" yaml:"entities"`
	// Bindings maps "<entity ref>.<path>" to a value the caller already knows.
	Bindings map[string]any `json:"bindings,omitempty" yaml:"bindings,omitempty"`
}

// BindingKeys returns binding keys, sorted.
func (i *Intent) BindingKeys() []string {
	keys := make([]string, 0, len(i.Bindings))
	for k := range i.Bindings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Discovery lists entities mentioned for the first time mid-session.
type Discovery struct {
	NewEntities []EntitySpec `json:"new_entities" yaml:"new_entities"`
}

// Answer is one parsed value for a requirement path. A non-empty Error
// means no value could be extracted and the question must be asked again.
type Answer struct {
	Path           string                   `json:"path,omitempty" yaml:"path,omitempty"`
	Value          any                      `json:"value" yaml:"value"`
	Classification blueprint.Classification `json:"classification" yaml:"classification"`
	Default        any                      `json:"default,omitempty" yaml:"default,omitempty"`
	Error          string                   `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed reports whether the parser gave up on the answer.
func (a *Answer) Failed() bool { return a == nil || a.Error != "" }

// EntityContext is what a question or answer collaborator knows about the
// entity a requirement belongs to.
type EntityContext struct {
	ID           string         `json:"id"`
	BackendType  string         `json:"backend_type"`
	Values       map[string]any `json:"values,omitempty"`
	Inputs       map[string]any `json:"inputs,omitempty"`
	Steps        []string       `json:"steps,omitempty"`
	Dependencies []string       `json:"dependencies,omitempty"`
}

// NewEntityContext summarises e. A nil entity yields nil.
func NewEntityContext(e *blueprint.Entity) *EntityContext {
	if e == nil {
		return nil
	}
	return &EntityContext{
		ID:           e.ID,
		BackendType:  e.BackendType,
		Values:       e.Values.Interface(),
		Inputs:       e.Inputs.Interface(),
		Steps:        e.Steps.Names(),
		Dependencies: append([]string(nil), e.Dependencies...),
	}
}

// IntentExtractor turns free text into an Intent.
type IntentExtractor interface {
	ExtractIntent(ctx context.Context, text string) (*Intent, error)
}

// EntityDetector finds entities in text that are not in existing yet.
type EntityDetector interface {
	DetectEntities(ctx context.Context, text string, existing []string) (*Discovery, error)
}

// QuestionFormulator phrases requirements for a human.
type QuestionFormulator interface {
	Formulate(ctx context.Context, req blueprint.MissingRequirement, entity *EntityContext) (string, error)
	FormulateBatch(ctx context.Context, reqs []blueprint.MissingRequirement, entity *EntityContext) (string, error)
}

// AnswerParser extracts values from a free-text answer.
type AnswerParser interface {
	ParseAnswer(ctx context.Context, text string, req blueprint.MissingRequirement, entity *EntityContext) (*Answer, error)
	ParseCompound(ctx context.Context, text string, reqs []blueprint.MissingRequirement, entity *EntityContext) ([]Answer, error)
}

// Set groups one implementation of every collaborator role.
type Set struct {
	Intents   IntentExtractor
	Detector  EntityDetector
	Questions QuestionFormulator
	Answers   AnswerParser
}
