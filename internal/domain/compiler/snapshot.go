package compiler

import (
	"encoding/json"
	"fmt"

	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/blueprint"
	"go.uber.org/zap"
)

// Snapshot is the serialisable state of a compiler between inputs.
type Snapshot struct {
	State    State                          `json:"state"`
	Graph    json.RawMessage                `json:"graph"`
	Counter  int                            `json:"counter"`
	Names    map[string]string              `json:"names,omitempty"`
	Batch    []blueprint.MissingRequirement `json:"batch,omitempty"`
	Answered []string                       `json:"answered,omitempty"`
	Question string                         `json:"question,omitempty"`
	Rounds   int                            `json:"rounds"`
}

// Snapshot captures the compiler. Only states waiting for input can be
// captured.
func (c *Compiler) Snapshot() (*Snapshot, error) {
	if !c.state.Accepting() {
		return nil, fmt.Errorf("snapshot in state %s: %w", c.state, ErrInvalidTransition)
	}
	graph, err := blueprint.EncodeGraph(c.graph, blueprint.FormatJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to encode graph: %w", err)
	}
	s := &Snapshot{
		State:    c.state,
		Graph:    graph,
		Counter:  c.counter,
		Names:    make(map[string]string, len(c.names)),
		Batch:    append([]blueprint.MissingRequirement(nil), c.batch...),
		Question: c.question,
		Rounds:   c.rounds,
	}
	for k, v := range c.names {
		s.Names[k] = v
	}
	for _, req := range c.batch {
		if c.answered[req.Key()] {
			s.Answered = append(s.Answered, req.Key())
		}
	}
	return s, nil
}

// Restore replaces the compiler's state with s. Findings are recomputed
// and a completed graph is rendered again.
func (c *Compiler) Restore(s *Snapshot) error {
	if s == nil || !s.State.Accepting() {
		return fmt.Errorf("restore: %w", ErrInvalidTransition)
	}
	g := blueprint.NewGraph()
	if len(s.Graph) > 0 {
		decoded, err := blueprint.DecodeGraph(s.Graph)
		if err != nil {
			return fmt.Errorf("restore: %w", err)
		}
		g = decoded
	}

	c.adopt(g)
	if s.Counter > c.counter {
		c.counter = s.Counter
	}
	for k, v := range s.Names {
		c.names[k] = v
	}
	c.state = s.State
	c.rounds = s.Rounds
	c.question = s.Question
	c.batch = append([]blueprint.MissingRequirement(nil), s.Batch...)
	c.answered = make(map[string]bool, len(s.Answered))
	for _, key := range s.Answered {
		c.answered[key] = true
	}
	c.findings = c.validator.Validate(c.graph)
	c.document = nil
	if c.state == StateYAMLRendered {
		c.document = c.renderer.Render(c.graph)
	}
	c.logger.Debug("Compiler restored",
		zap.Stringer("state", c.state),
		zap.Int("entities", c.graph.Len()))
	return nil
}
