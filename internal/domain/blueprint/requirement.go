package blueprint

import "fmt"

// MissingRequirement is one validation finding. Findings are data, not errors.
type MissingRequirement struct {
	EntityID string   `json:"entity_id" yaml:"entity_id"`
	Path     string   `json:"path" yaml:"path"`
	Reason   string   `json:"reason" yaml:"reason"`
	Options  []string `json:"options,omitempty" yaml:"options,omitempty"`
}

// Key identifies the requirement within a graph.
func (r MissingRequirement) Key() string {
	return r.EntityID + "/" + r.Path
}

func (r MissingRequirement) String() string {
	return fmt.Sprintf("%s: %s (%s)", r.EntityID, r.Path, r.Reason)
}

// Classification tells the compiler how an answered value is stored.
type Classification uint8

const (
	Literal Classification = iota
	BlueprintInput
	EntityInput
	VariableReference
)

// String returns the wire name of the classification
func (c Classification) String() string {
	switch c {
	case BlueprintInput:
		return "blueprint_input"
	case EntityInput:
		return "entity_input"
	case VariableReference:
		return "variable_reference"
	default:
		return "literal"
	}
}

// ParseClassification maps a wire name to a Classification. Unknown names
// are literals.
func ParseClassification(s string) Classification {
	switch s {
	case "blueprint_input":
		return BlueprintInput
	case "entity_input":
		return EntityInput
	case "variable_reference":
		return VariableReference
	default:
		return Literal
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Classification) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Classification) UnmarshalText(b []byte) error {
	*c = ParseClassification(string(b))
	return nil
}
