package dlp

import (
	"regexp"
	"strings"
)

type compiledRule struct {
	rule Rule
	re   *regexp.Regexp
}

// Redactor scrubs identifiers from raw feature records before they leave the
// request path (prediction log, events). It is read-only after construction.
type Redactor struct {
	drop  map[string]struct{}
	rules []compiledRule
}

func NewRedactor(cfg RulesConfig) (*Redactor, error) {
	r := &Redactor{drop: make(map[string]struct{}, len(cfg.DropFields))}
	for _, field := range cfg.DropFields {
		if trimmed := strings.ToLower(strings.TrimSpace(field)); trimmed != "" {
			r.drop[trimmed] = struct{}{}
		}
	}
	for _, rule := range cfg.Rules {
		if !rule.Enabled {
			continue
		}
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, err
		}
		r.rules = append(r.rules, compiledRule{rule: rule, re: re})
	}
	return r, nil
}

// Redact returns a scrubbed copy of data; the input is not modified.
func (r *Redactor) Redact(data map[string]interface{}) map[string]interface{} {
	if r == nil || data == nil {
		return data
	}
	out := make(map[string]interface{}, len(data))
	for key, value := range data {
		if _, ok := r.drop[strings.ToLower(key)]; ok {
			continue
		}
		out[key] = r.redactValue(value)
	}
	return out
}

// Detected lists the rule types matching anywhere in data.
func (r *Redactor) Detected(data map[string]interface{}) []string {
	if r == nil {
		return nil
	}
	found := make(map[string]struct{})
	var walk func(value interface{})
	walk = func(value interface{}) {
		switch v := value.(type) {
		case string:
			for _, cr := range r.rules {
				if cr.re.MatchString(v) {
					found[cr.rule.Type] = struct{}{}
				}
			}
		case map[string]interface{}:
			for _, nested := range v {
				walk(nested)
			}
		case []interface{}:
			for _, nested := range v {
				walk(nested)
			}
		}
	}
	walk(data)

	types := make([]string, 0, len(found))
	for _, cr := range r.rules {
		if _, ok := found[cr.rule.Type]; ok {
			types = append(types, cr.rule.Type)
			delete(found, cr.rule.Type)
		}
	}
	return types
}

func (r *Redactor) redactValue(value interface{}) interface{} {
	switch v := value.(type) {
	case string:
		masked := v
		for _, cr := range r.rules {
			masked = cr.re.ReplaceAllString(masked, cr.rule.Mask)
		}
		return masked
	case map[string]interface{}:
		return r.Redact(v)
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, nested := range v {
			out[i] = r.redactValue(nested)
		}
		return out
	default:
		return value
	}
}
