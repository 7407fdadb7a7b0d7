package blueprint

import "strings"

// Path roots understood by entity mutation and findings.
const (
	RootValues    = "values"
	RootSteps     = "steps"
	RootConfig    = "config"
	RootEnvConfig = "env.config"
	RootInputs    = "inputs"
	RootBackend   = "backend_type"

	VariablesField = "variables"
)

// SplitPath splits a dotted path, dropping empty segments.
func SplitPath(path string) []string {
	raw := strings.Split(path, ".")
	out := raw[:0]
	for _, seg := range raw {
		if seg = strings.TrimSpace(seg); seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

// JoinPath joins segments with dots.
func JoinPath(segments ...string) string {
	return strings.Join(segments, ".")
}

// ValuesPath returns "values.<sub>".
func ValuesPath(sub string) string { return JoinPath(RootValues, sub) }

// StepPath returns "steps.<step>[.<field>]".
func StepPath(step string, field ...string) string {
	return JoinPath(append([]string{RootSteps, step}, field...)...)
}

// VariablePath returns "steps.<step>.variables.<name>".
func VariablePath(step, name string) string {
	return JoinPath(RootSteps, step, VariablesField, name)
}

// EnvConfigPath returns "env.config.<name>".
func EnvConfigPath(name string) string { return JoinPath(RootEnvConfig, name) }

// ConfigPath returns "config.<name>".
func ConfigPath(name string) string { return JoinPath(RootConfig, name) }

// ParsedPath is a path broken into its addressing parts.
type ParsedPath struct {
	Root     string
	Step     string // steps.<step>...
	Field    string // steps.<step>.<field>
	Variable string // steps.<step>.variables.<name>
	Rest     string // remainder after values., config. or env.config.
}

// ParsePath classifies a mutation target path.
func ParsePath(path string) (ParsedPath, error) {
	segs := SplitPath(path)
	if len(segs) == 0 {
		return ParsedPath{}, ErrInvalidPath
	}
	switch {
	case len(segs) >= 3 && segs[0] == "env" && segs[1] == "config":
		return ParsedPath{Root: RootEnvConfig, Rest: JoinPath(segs[2:]...)}, nil
	case segs[0] == RootConfig && len(segs) >= 2:
		return ParsedPath{Root: RootConfig, Rest: JoinPath(segs[1:]...)}, nil
	case segs[0] == RootValues && len(segs) >= 2:
		return ParsedPath{Root: RootValues, Rest: JoinPath(segs[1:]...)}, nil
	case segs[0] == RootInputs && len(segs) == 1:
		return ParsedPath{Root: RootInputs}, nil
	case segs[0] == RootBackend && len(segs) == 1:
		return ParsedPath{Root: RootBackend}, nil
	case segs[0] == RootSteps:
		switch len(segs) {
		case 2:
			return ParsedPath{Root: RootSteps, Step: segs[1]}, nil
		case 3:
			return ParsedPath{Root: RootSteps, Step: segs[1], Field: segs[2]}, nil
		case 4:
			if segs[2] == VariablesField {
				return ParsedPath{Root: RootSteps, Step: segs[1], Field: VariablesField, Variable: segs[3]}, nil
			}
		}
	}
	return ParsedPath{}, ErrInvalidPath
}
