package testcase

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Inputs are the tcinputs of a testcase as decoded from JSON.
type Inputs map[string]any

// LoadInputs reads tcinputs. A document keyed by testcaseID selects that entry,
// anything else is taken as a flat set of inputs.
func LoadInputs(r io.Reader, testcaseID string) (Inputs, error) {
	var doc map[string]any
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return Inputs{}, nil
		}
		return nil, fmt.Errorf("failed to decode tcinputs: %w", err)
	}

	if entry, ok := doc[testcaseID].(map[string]any); ok {
		return Inputs(entry), nil
	}
	return Inputs(doc), nil
}

func (in Inputs) Has(key string) bool {
	v, ok := in[key]
	if !ok || v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) != ""
	}
	return true
}

// Missing returns the keys that are absent or empty.
func (in Inputs) Missing(keys ...string) []string {
	var missing []string
	for _, k := range keys {
		if !in.Has(k) {
			missing = append(missing, k)
		}
	}
	return missing
}

func (in Inputs) String(key string) string {
	v, ok := in[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// StringSlice accepts a JSON array or a comma separated string.
func (in Inputs) StringSlice(key string) []string {
	switch v := in[key].(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case []string:
		return v
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	default:
		return nil
	}
}

func (in Inputs) Int(key string, def int) (int, error) {
	if !in.Has(key) {
		return def, nil
	}
	switch v := in[key].(type) {
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("input %s: %w", key, err)
		}
		return int(n), nil
	case float64:
		return int(v), nil
	case int:
		return v, nil
	default:
		n, err := strconv.Atoi(strings.TrimSpace(in.String(key)))
		if err != nil {
			return 0, fmt.Errorf("input %s is not an integer: %q", key, in.String(key))
		}
		return n, nil
	}
}

func (in Inputs) Bool(key string, def bool) (bool, error) {
	if !in.Has(key) {
		return def, nil
	}
	if b, ok := in[key].(bool); ok {
		return b, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(in.String(key)))
	if err != nil {
		return false, fmt.Errorf("input %s is not a boolean: %q", key, in.String(key))
	}
	return b, nil
}

// Minutes reads an integer number of minutes.
func (in Inputs) Minutes(key string, def time.Duration) (time.Duration, error) {
	if !in.Has(key) {
		return def, nil
	}
	n, err := in.Int(key, 0)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Minute, nil
}
