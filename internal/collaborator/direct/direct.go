// Package direct implements the collaborator roles without a language
// model. Intents and discoveries are JSON or YAML documents, questions are
// template text and answers are either structured documents or plain
// values interpreted by simple rules.
package direct

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/GriffinCanCode/EnvForge/backend/internal/collaborator"
	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/blueprint"
	"github.com/GriffinCanCode/EnvForge/backend/internal/infrastructure/logging"
	"go.uber.org/zap"
)

// Error markers set on answers the rules cannot use.
const (
	ErrEmptyAnswer        = "Answer was empty"
	ErrUnreadableDocument = "Answer document is not a valid answer"
)

var (
	inputKeywords = []string{"user input", "configurable", "parameter", "runtime"}
	namedInput    = regexp.MustCompile(`(?i)\b(?:called|named)\s+["'` + "`" + `]?([A-Za-z][\w-]*)`)
	compoundLine  = regexp.MustCompile(`^\s*[A-Za-z_][\w.-]*\s*:\s*\S`)
	notNameChars  = regexp.MustCompile(`[^a-z0-9_]+`)

	errUnstructured = errors.New("text is not a structured document")
)

// Collaborator is the offline collaborator.
type Collaborator struct {
	logger *zap.Logger
}

// New creates a direct collaborator.
func New(logger *zap.Logger) *Collaborator {
	return &Collaborator{logger: logging.Component(logger, "direct")}
}

// Set returns c in every collaborator role.
func (c *Collaborator) Set() collaborator.Set {
	return collaborator.Set{Intents: c, Detector: c, Questions: c, Answers: c}
}

// ExtractIntent decodes a JSON or YAML intent document.
func (c *Collaborator) ExtractIntent(_ context.Context, text string) (*collaborator.Intent, error) {
	return collaborator.DecodeIntent([]byte(text))
}

// DetectEntities decodes a discovery document when text carries one.
// Anything else discovers nothing.
func (c *Collaborator) DetectEntities(_ context.Context, text string, existing []string) (*collaborator.Discovery, error) {
	doc := collaborator.ExtractJSON(text)
	if !strings.HasPrefix(doc, "{") || !strings.Contains(doc, `"new_entities"`) {
		return &collaborator.Discovery{NewEntities: []collaborator.EntitySpec{}}, nil
	}
	d, err := collaborator.DecodeDiscovery([]byte(doc))
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(existing))
	for _, id := range existing {
		known[id] = true
	}
	fresh := d.NewEntities[:0]
	for _, spec := range d.NewEntities {
		if spec.ID != "" && known[spec.ID] {
			c.logger.Debug("ignoring rediscovered entity", zap.String("entity_id", spec.ID))
			continue
		}
		fresh = append(fresh, spec)
	}
	d.NewEntities = fresh
	return d, nil
}

// Formulate phrases one requirement.
func (c *Collaborator) Formulate(_ context.Context, req blueprint.MissingRequirement, entity *collaborator.EntityContext) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s needs '%s': %s.", describe(req.EntityID, entity), req.Path, req.Reason)
	if len(req.Options) > 0 {
		fmt.Fprintf(&b, " Options: %s.", strings.Join(req.Options, ", "))
	}
	return b.String(), nil
}

// FormulateBatch phrases several requirements of one entity as a list.
func (c *Collaborator) FormulateBatch(ctx context.Context, reqs []blueprint.MissingRequirement, entity *collaborator.EntityContext) (string, error) {
	if len(reqs) == 1 {
		return c.Formulate(ctx, reqs[0], entity)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s needs %d values:", describe(reqs[0].EntityID, entity), len(reqs))
	for _, r := range reqs {
		fmt.Fprintf(&b, "\n- %s: %s", r.Path, r.Reason)
		if len(r.Options) > 0 {
			fmt.Fprintf(&b, " (options: %s)", strings.Join(r.Options, ", "))
		}
	}
	return b.String(), nil
}

func describe(id string, entity *collaborator.EntityContext) string {
	if entity == nil || entity.BackendType == "" {
		return fmt.Sprintf("Entity '%s'", id)
	}
	return fmt.Sprintf("Entity '%s' (%s)", id, entity.BackendType)
}

// ParseAnswer reads a structured answer document, or interprets text as
// the value for req. A document that is not a valid answer is marked
// failed rather than taken as a value.
func (c *Collaborator) ParseAnswer(_ context.Context, text string, req blueprint.MissingRequirement, _ *collaborator.EntityContext) (*collaborator.Answer, error) {
	trimmed := strings.TrimSpace(text)
	if document(trimmed) {
		a, err := collaborator.DecodeAnswer([]byte(trimmed))
		if err != nil {
			c.logger.Debug("unreadable answer document", zap.String("path", req.Path), zap.Error(err))
			return &collaborator.Answer{Path: req.Path, Error: ErrUnreadableDocument}, nil
		}
		if a.Path == "" {
			a.Path = req.Path
		}
		return a, nil
	}
	if !blueprint.HasExpression(trimmed) && strings.HasPrefix(collaborator.ExtractJSON(trimmed), "{") {
		if a, err := collaborator.DecodeAnswer([]byte(trimmed)); err == nil {
			if a.Path == "" {
				a.Path = req.Path
			}
			return a, nil
		}
	}
	a := Interpret(req.Path, trimmed)
	return &a, nil
}

// document reports text that opens as a JSON document or a fenced block.
// Expressions such as ${{ env.config.x }} are values, not documents.
func document(text string) bool {
	return strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[") || strings.HasPrefix(text, "```")
}

// ParseCompound reads answers keyed by requirement path from a JSON or YAML
// document. Plain text yields no answers.
func (c *Collaborator) ParseCompound(_ context.Context, text string, _ []blueprint.MissingRequirement, _ *collaborator.EntityContext) ([]collaborator.Answer, error) {
	if !structured(text) {
		return nil, nil
	}
	answers, err := collaborator.DecodeAnswers([]byte(text))
	if err != nil {
		if errors.Is(err, collaborator.ErrEmptyPayload) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", errUnstructured, err)
	}
	for i, a := range answers {
		if s, ok := a.Value.(string); ok && a.Classification == blueprint.Literal && a.Error == "" {
			answers[i] = Interpret(a.Path, s)
		}
	}
	return answers, nil
}

// structured reports whether text is a document rather than a plain value.
func structured(text string) bool {
	doc := collaborator.ExtractJSON(text)
	if strings.HasPrefix(doc, "{") || strings.HasPrefix(doc, "[") {
		return true
	}
	lines := 0
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !compoundLine.MatchString(line) || blueprint.HasExpression(line) {
			return false
		}
		lines++
	}
	return lines > 1
}

// Interpret turns a plain-text value into an answer for path:
//   - input keywords ask for a blueprint input, named after "called X"
//     or the last path segment
//   - expressions and bare scope paths are variable references
//   - identifier paths reject values containing whitespace
//   - step and variables paths are shaped into their structures
//   - integers and booleans keep their type
func Interpret(path, text string) collaborator.Answer {
	value := cleanValue(text)
	if value == "" {
		return collaborator.Answer{Path: path, Error: ErrEmptyAnswer}
	}

	if ref, ok := reference(value); ok {
		return collaborator.Answer{Path: path, Value: ref, Classification: blueprint.VariableReference}
	}

	if !collaborator.IsStepPath(path) && !collaborator.IsVariablesPath(path) && wantsInput(value) {
		return collaborator.Answer{Path: path, Value: inputName(path, value), Classification: blueprint.BlueprintInput}
	}

	if collaborator.IsIdentifierPath(path) && strings.ContainsAny(value, " \t\n") {
		return collaborator.Answer{Path: path, Error: collaborator.ErrNoIdentifier}
	}

	return collaborator.Answer{
		Path:           path,
		Value:          collaborator.ShapeValue(path, scalar(value)),
		Classification: blueprint.Literal,
	}
}

func cleanValue(text string) string {
	v := strings.TrimSpace(text)
	v = strings.TrimSuffix(v, ".")
	if len(v) >= 2 {
		first, last := v[0], v[len(v)-1]
		if (first == '"' || first == '\'' || first == '`') && first == last {
			v = v[1 : len(v)-1]
		}
	}
	return strings.TrimSpace(v)
}

func reference(value string) (string, bool) {
	if blueprint.HasExpression(value) {
		return value, true
	}
	if strings.ContainsAny(value, " \t") {
		return "", false
	}
	for _, scope := range blueprint.AllScopes {
		if strings.HasPrefix(value, string(scope)+".") {
			return blueprint.Wrap(value), true
		}
	}
	return "", false
}

func wantsInput(value string) bool {
	lower := strings.ToLower(value)
	for _, k := range inputKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

func inputName(path, value string) string {
	name := "input"
	if m := namedInput.FindStringSubmatch(value); m != nil {
		name = m[1]
	} else if parts := blueprint.SplitPath(path); len(parts) > 0 {
		name = parts[len(parts)-1]
	}
	name = notNameChars.ReplaceAllString(strings.ToLower(name), "_")
	return strings.Trim(name, "_")
}

func scalar(value string) any {
	switch value {
	case "true":
		return true
	case "false":
		return false
	}
	if i, err := strconv.ParseInt(value, 10, 64); err == nil && strconv.FormatInt(i, 10) == value {
		return i
	}
	return value
}
