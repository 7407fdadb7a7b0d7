package blueprint

// Variable is one {name, value} pair inside a step.
type Variable struct {
	Name  string
	Value Value
}

// Step is a lifecycle operation: backend-defined fields plus an optional
// ordered variable list. A nil Variables slice means the step carries no
// variables key at all; an empty non-nil slice is an explicit empty list.
type Step struct {
	Fields    *Map
	Variables []Variable
}

// NewStep creates a step with no fields.
func NewStep() *Step {
	return &Step{Fields: NewMap()}
}

// PipelineStep creates {pipeline: id, variables: []}.
func PipelineStep(field, pipeline string) *Step {
	s := NewStep()
	s.Fields.Set(field, String(pipeline))
	s.Variables = []Variable{}
	return s
}

// Field returns a step field.
func (s *Step) Field(name string) (Value, bool) {
	if s == nil {
		return Null(), false
	}
	return s.Fields.Get(name)
}

// HasVariables reports whether the step carries a variables key.
func (s *Step) HasVariables() bool { return s != nil && s.Variables != nil }

// Variable looks up a variable by name.
func (s *Step) Variable(name string) (Value, bool) {
	if s == nil {
		return Null(), false
	}
	for _, v := range s.Variables {
		if v.Name == name {
			return v.Value, true
		}
	}
	return Null(), false
}

// SetVariable upserts a variable by name, keeping its position.
func (s *Step) SetVariable(name string, value Value) {
	for i := range s.Variables {
		if s.Variables[i].Name == name {
			s.Variables[i].Value = value
			return
		}
	}
	s.Variables = append(s.Variables, Variable{Name: name, Value: value})
}

// Clone returns a deep copy.
func (s *Step) Clone() *Step {
	if s == nil {
		return nil
	}
	out := &Step{Fields: s.Fields.Clone()}
	if s.Variables != nil {
		out.Variables = make([]Variable, len(s.Variables))
		for i, v := range s.Variables {
			out.Variables[i] = Variable{Name: v.Name, Value: v.Value.Clone()}
		}
	}
	return out
}

// Steps is an ordered collection of named steps.
type Steps struct {
	names []string
	items map[string]*Step
}

// Len returns the number of steps.
func (s *Steps) Len() int { return len(s.names) }

// Names returns step names in insertion order.
func (s *Steps) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Get returns a step by name.
func (s *Steps) Get(name string) (*Step, bool) {
	st, ok := s.items[name]
	return st, ok
}

// Set stores a step. Existing steps keep their position.
func (s *Steps) Set(name string, step *Step) {
	if s.items == nil {
		s.items = make(map[string]*Step)
	}
	if _, ok := s.items[name]; !ok {
		s.names = append(s.names, name)
	}
	s.items[name] = step
}

// Clone returns a deep copy.
func (s *Steps) Clone() Steps {
	out := Steps{}
	for _, name := range s.names {
		out.Set(name, s.items[name].Clone())
	}
	return out
}

// Entity is one node of the blueprint graph.
type Entity struct {
	ID           string
	BackendType  string
	Inputs       *Map
	Values       *Map
	Steps        Steps
	Dependencies []string
}

// NewEntity creates an entity with empty payloads.
func NewEntity(id, backendType string) *Entity {
	return &Entity{
		ID:          id,
		BackendType: backendType,
		Inputs:      NewMap(),
		Values:      NewMap(),
	}
}

// HasDependency reports whether id is declared as a dependency.
func (e *Entity) HasDependency(id string) bool {
	for _, dep := range e.Dependencies {
		if dep == id {
			return true
		}
	}
	return false
}

// AddDependency declares id once.
func (e *Entity) AddDependency(id string) {
	if id == "" || e.HasDependency(id) {
		return
	}
	e.Dependencies = append(e.Dependencies, id)
}

// Value resolves a dotted path under values.
func (e *Entity) Value(path string) (Value, bool) {
	return e.Values.Lookup(path)
}

// Step returns a step by name.
func (e *Entity) Step(name string) (*Step, bool) {
	return e.Steps.Get(name)
}

// StepField returns a step field, reporting false when either is absent.
func (e *Entity) StepField(step, field string) (Value, bool) {
	s, ok := e.Steps.Get(step)
	if !ok {
		return Null(), false
	}
	return s.Field(field)
}

// Clone returns a deep copy.
func (e *Entity) Clone() *Entity {
	out := &Entity{
		ID:          e.ID,
		BackendType: e.BackendType,
		Inputs:      e.Inputs.Clone(),
		Values:      e.Values.Clone(),
		Steps:       e.Steps.Clone(),
	}
	if e.Dependencies != nil {
		out.Dependencies = append([]string(nil), e.Dependencies...)
	}
	return out
}
