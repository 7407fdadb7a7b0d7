package collaborator

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
)

var (
	ErrEmptyPayload = errors.New("empty payload")

	codeFence = regexp.MustCompile("(?s)```(?:json|yaml|yml)?\\s*\\n(.*?)\\n```")
	braces    = regexp.MustCompile(`(?s)(\{.*\})`)
)

// ExtractJSON pulls a JSON document out of text that may wrap it in a
// markdown code fence or surrounding prose.
func ExtractJSON(text string) string {
	text = strings.TrimSpace(text)
	if m := codeFence.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	if strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[") {
		return text
	}
	if m := braces.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return text
}

// decodeDocument parses JSON, falling back to YAML for structured text.
func decodeDocument(data []byte) (any, error) {
	text := ExtractJSON(string(data))
	if text == "" {
		return nil, ErrEmptyPayload
	}
	var out any
	if err := sonic.UnmarshalString(text, &out); err == nil {
		return out, nil
	}
	if err := yaml.Unmarshal([]byte(text), &out); err != nil {
		return nil, fmt.Errorf("payload is neither JSON nor YAML: %w", err)
	}
	return normalize(out), nil
}

// normalize turns YAML decoded maps into JSON-shaped data.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = normalize(item)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[fmt.Sprint(k)] = normalize(item)
		}
		return out
	case []any:
		for i, item := range t {
			t[i] = normalize(item)
		}
		return t
	default:
		return v
	}
}

// convert re-encodes decoded data into a typed payload.
func convert(payload any, out any) error {
	raw, err := sonic.Marshal(payload)
	if err != nil {
		return err
	}
	return sonic.Unmarshal(raw, out)
}

// DecodeIntent parses and validates an intent payload.
func DecodeIntent(data []byte) (*Intent, error) {
	payload, err := decodeDocument(data)
	if err != nil {
		return nil, err
	}
	if err := validatePayload("intent", payload); err != nil {
		return nil, err
	}
	var intent Intent
	if err := convert(payload, &intent); err != nil {
		return nil, fmt.Errorf("failed to decode intent: %w", err)
	}
	return &intent, nil
}

// DecodeDiscovery parses and validates a discovery payload.
func DecodeDiscovery(data []byte) (*Discovery, error) {
	payload, err := decodeDocument(data)
	if err != nil {
		return nil, err
	}
	if err := validatePayload("discovery", payload); err != nil {
		return nil, err
	}
	var d Discovery
	if err := convert(payload, &d); err != nil {
		return nil, fmt.Errorf("failed to decode discovery: %w", err)
	}
	return &d, nil
}

// DecodeAnswer parses and validates a single answer payload.
func DecodeAnswer(data []byte) (*Answer, error) {
	payload, err := decodeDocument(data)
	if err != nil {
		return nil, err
	}
	return answerFrom(payload)
}

func answerFrom(payload any) (*Answer, error) {
	if err := validatePayload("answer", payload); err != nil {
		return nil, err
	}
	var a Answer
	if err := convert(payload, &a); err != nil {
		return nil, fmt.Errorf("failed to decode answer: %w", err)
	}
	return &a, nil
}

// DecodeAnswers parses a compound answer. Accepted forms are a list of
// answers carrying paths, or an object keyed by path whose entries are
// either answers or bare values (bare values are literals).
func DecodeAnswers(data []byte) ([]Answer, error) {
	payload, err := decodeDocument(data)
	if err != nil {
		return nil, err
	}

	switch t := payload.(type) {
	case []any:
		out := make([]Answer, 0, len(t))
		for i, item := range t {
			a, err := answerFrom(item)
			if err != nil {
				return nil, fmt.Errorf("answer %d: %w", i, err)
			}
			out = append(out, *a)
		}
		return out, nil
	case map[string]any:
		paths := make([]string, 0, len(t))
		for p := range t {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		out := make([]Answer, 0, len(paths))
		for _, p := range paths {
			item := t[p]
			if m, ok := item.(map[string]any); ok && isAnswerShape(m) {
				a, err := answerFrom(m)
				if err != nil {
					return nil, fmt.Errorf("answer %q: %w", p, err)
				}
				a.Path = p
				out = append(out, *a)
				continue
			}
			out = append(out, Answer{Path: p, Value: item})
		}
		return out, nil
	default:
		return nil, fmt.Errorf("compound answer must be a list or an object, got %T", payload)
	}
}

func isAnswerShape(m map[string]any) bool {
	_, hasValue := m["value"]
	_, hasError := m["error"]
	return hasValue || hasError
}
