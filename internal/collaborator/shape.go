package collaborator

import (
	"fmt"
	"strings"

	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/blueprint"
)

// ErrNoIdentifier marks an answer that named no usable identifier.
const ErrNoIdentifier = "Could not extract valid identifier from answer"

var identifierFields = []string{".pipeline", ".template", ".identifier", ".workspace"}

// IsStepPath reports paths naming a whole step, such as "steps.apply".
func IsStepPath(path string) bool {
	rest, ok := strings.CutPrefix(path, blueprint.RootSteps+".")
	return ok && rest != "" && !strings.Contains(rest, ".")
}

// IsVariablesPath reports paths naming a step's variable list.
func IsVariablesPath(path string) bool {
	return strings.HasSuffix(path, "."+blueprint.VariablesField)
}

// IsIdentifierPath reports paths that expect a single identifier token.
func IsIdentifierPath(path string) bool {
	for _, f := range identifierFields {
		if strings.Contains(path, f) {
			return true
		}
	}
	return false
}

// FallbackQuestion is the fixed question text used when no formulator answers.
func FallbackQuestion(req blueprint.MissingRequirement) string {
	return fmt.Sprintf("Please provide value for '%s' in entity '%s'. Reason: %s", req.Path, req.EntityID, req.Reason)
}

// FallbackQuestions joins fallback questions, one per line.
func FallbackQuestions(reqs []blueprint.MissingRequirement) string {
	lines := make([]string, len(reqs))
	for i, r := range reqs {
		lines[i] = FallbackQuestion(r)
	}
	return strings.Join(lines, "\n")
}

// ShapeValue adapts a raw answer value to what the requirement path holds:
// a variables path becomes an empty list and a step path becomes a step
// running the named pipeline.
func ShapeValue(path string, value any) any {
	switch {
	case IsVariablesPath(path):
		return []any{}
	case IsStepPath(path):
		return map[string]any{"pipeline": value, "variables": []any{}}
	default:
		return value
	}
}

// FallbackAnswer parses text without help. A leading "<field>:" label
// naming the requirement's field, or its full path, is stripped; anything
// else is kept whole and shaped for the path.
func FallbackAnswer(text string, req blueprint.MissingRequirement) *Answer {
	value := strings.TrimSpace(text)
	if label, after, ok := strings.Cut(value, ":"); ok && labels(label, req.Path) {
		value = strings.TrimSpace(after)
	}
	return &Answer{
		Path:           req.Path,
		Value:          ShapeValue(req.Path, value),
		Classification: blueprint.Literal,
	}
}

func labels(label, path string) bool {
	label = strings.TrimSpace(label)
	if label == "" {
		return false
	}
	segs := blueprint.SplitPath(path)
	return strings.EqualFold(label, path) || (len(segs) > 0 && strings.EqualFold(label, segs[len(segs)-1]))
}
