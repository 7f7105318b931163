package normalizer

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FeatureRecord is one urinalysis sample as received from a client: field name
// to raw JSON value.
type FeatureRecord map[string]interface{}

// Policy decides what happens to values that cannot be encoded.
type Policy string

const (
	// PolicyDefault encodes unknown categories, unparseable numbers and
	// missing fields as 0.
	PolicyDefault Policy = "default"
	// PolicyReject reports them as a FieldError.
	PolicyReject Policy = "reject"
)

func ParsePolicy(value string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(value))) {
	case "", PolicyDefault:
		return PolicyDefault, nil
	case PolicyReject:
		return PolicyReject, nil
	default:
		return "", fmt.Errorf("unknown normalization policy %q", value)
	}
}

var ErrInvalidField = errors.New("invalid field value")

type FieldError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *FieldError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("field %q: %s (got %v)", e.Field, e.Reason, e.Value)
}

func (e *FieldError) Unwrap() error {
	return ErrInvalidField
}

func IsFieldError(err error) bool {
	var fe *FieldError
	return errors.As(err, &fe)
}

// Normalizer turns feature records into vectors laid out by its schema. It
// holds no mutable state and is safe for concurrent use.
type Normalizer struct {
	schema Schema
	policy Policy
}

func New(schema Schema, policy Policy) (*Normalizer, error) {
	if err := schema.checkCategories(); err != nil {
		return nil, err
	}
	schema = schema.canonical()
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	if policy == "" {
		policy = PolicyDefault
	}
	if policy != PolicyDefault && policy != PolicyReject {
		return nil, fmt.Errorf("unknown normalization policy %q", policy)
	}
	return &Normalizer{schema: schema, policy: policy}, nil
}

func (n *Normalizer) Schema() Schema {
	return n.schema
}

func (n *Normalizer) Policy() Policy {
	return n.policy
}

// Normalize encodes record in schema order. Fields the schema does not know
// are ignored.
func (n *Normalizer) Normalize(record FeatureRecord) ([]float64, error) {
	vector := make([]float64, len(n.schema.Fields))
	for i, field := range n.schema.Fields {
		raw, ok := record[field.Name]
		if !ok || raw == nil {
			if n.policy == PolicyReject {
				return nil, &FieldError{Field: field.Name, Reason: "missing"}
			}
			continue
		}

		var (
			value float64
			err   error
		)
		switch field.Kind {
		case KindCategorical:
			value, err = encodeCategory(field, raw)
		default:
			value, err = encodeNumeric(field, raw)
		}
		if err != nil {
			if n.policy == PolicyReject {
				return nil, err
			}
			value = 0
		}
		vector[i] = value
	}
	return vector, nil
}

func encodeCategory(field Field, raw interface{}) (float64, error) {
	code, ok := field.Categories[categoryKey(stringify(raw))]
	if !ok {
		return 0, &FieldError{Field: field.Name, Value: raw, Reason: "unknown category"}
	}
	return float64(code), nil
}

func encodeNumeric(field Field, raw interface{}) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f, nil
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f, nil
		}
	}
	return 0, &FieldError{Field: field.Name, Value: raw, Reason: "not a number"}
}

func stringify(raw interface{}) string {
	switch v := raw.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
