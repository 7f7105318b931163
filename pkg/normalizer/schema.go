package normalizer

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

type Kind string

const (
	KindNumeric     Kind = "numeric"
	KindCategorical Kind = "categorical"
)

// Field describes one named input of the feature vector. Categories maps a
// categorical value to its integer code; lookups are case-insensitive.
type Field struct {
	Name       string         `yaml:"name" json:"name"`
	Kind       Kind           `yaml:"kind" json:"kind"`
	Categories map[string]int `yaml:"categories,omitempty" json:"categories,omitempty"`
}

// Schema is the ordered list of fields a model was trained on. The position of
// a field in Fields is its position in the normalized vector.
type Schema struct {
	Fields []Field `yaml:"fields" json:"fields"`
}

func LoadSchema(path string) (Schema, error) {
	if path == "" {
		return DefaultSchema(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Schema{}, fmt.Errorf("reading schema: %w", err)
	}

	var schema Schema
	if err := yaml.Unmarshal(content, &schema); err != nil {
		return Schema{}, fmt.Errorf("decoding schema: %w", err)
	}
	if err := schema.checkCategories(); err != nil {
		return Schema{}, err
	}
	schema = schema.canonical()
	if err := schema.Validate(); err != nil {
		return Schema{}, err
	}
	return schema, nil
}

// DefaultSchema is the urinalysis layout: three numeric measurements followed by
// the category table for cell counts, protein and bacteria. The lowest bucket
// of every categorical field is coded 0.
func DefaultSchema() Schema {
	cellCounts := map[string]int{
		"0-2":   0,
		"3-5":   1,
		"6-10":  2,
		"11-20": 3,
		"21-50": 4,
		"TNTC":  5,
	}
	return Schema{Fields: []Field{
		{Name: "Age", Kind: KindNumeric},
		{Name: "pH", Kind: KindNumeric},
		{Name: "Specific Gravity", Kind: KindNumeric},
		{Name: "WBC", Kind: KindCategorical, Categories: copyCategories(cellCounts)},
		{Name: "RBC", Kind: KindCategorical, Categories: copyCategories(cellCounts)},
		{Name: "Protein", Kind: KindCategorical, Categories: map[string]int{
			"NEGATIVE": 0,
			"TRACE":    1,
			"1+":       2,
			"2+":       3,
			"3+":       4,
		}},
		{Name: "Bacteria", Kind: KindCategorical, Categories: map[string]int{
			"NONE SEEN":  0,
			"RARE":       1,
			"OCCASIONAL": 2,
			"FEW":        3,
			"MODERATE":   4,
			"PLENTY":     5,
			"LOADED":     6,
		}},
	}}
}

func (s Schema) Validate() error {
	if len(s.Fields) == 0 {
		return errors.New("schema has no fields")
	}
	seen := make(map[string]struct{}, len(s.Fields))
	for i, f := range s.Fields {
		if strings.TrimSpace(f.Name) == "" {
			return fmt.Errorf("schema field %d has no name", i)
		}
		if _, ok := seen[f.Name]; ok {
			return fmt.Errorf("schema field %q declared twice", f.Name)
		}
		seen[f.Name] = struct{}{}

		switch f.Kind {
		case KindNumeric:
		case KindCategorical:
			if len(f.Categories) == 0 {
				return fmt.Errorf("categorical field %q has no categories", f.Name)
			}
		default:
			return fmt.Errorf("field %q has unknown kind %q", f.Name, f.Kind)
		}
	}
	return s.checkCategories()
}

// checkCategories rejects category keys that are blank or collide once case
// and surrounding whitespace are ignored.
func (s Schema) checkCategories() error {
	for _, f := range s.Fields {
		seen := make(map[string]string, len(f.Categories))
		for k := range f.Categories {
			key := categoryKey(k)
			if key == "" {
				return fmt.Errorf("field %q has a blank category", f.Name)
			}
			if prev, ok := seen[key]; ok {
				a, b := prev, k
				if b < a {
					a, b = b, a
				}
				return fmt.Errorf("field %q categories %q and %q collide", f.Name, a, b)
			}
			seen[key] = k
		}
	}
	return nil
}

func (s Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// CategoryTable returns the code tables of the categorical fields keyed by
// field name.
func (s Schema) CategoryTable() map[string]map[string]int {
	table := make(map[string]map[string]int)
	for _, f := range s.Fields {
		if f.Kind == KindCategorical {
			table[f.Name] = copyCategories(f.Categories)
		}
	}
	return table
}

// Fingerprint hashes field order, kinds and category codes. Two schemas with
// the same fingerprint produce identical vectors for the same record.
func (s Schema) Fingerprint() string {
	h := sha256.New()
	for _, f := range s.canonical().Fields {
		fmt.Fprintf(h, "%s|%s\n", f.Name, f.Kind)
		keys := make([]string, 0, len(f.Categories))
		for k := range f.Categories {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(h, "\t%s=%d\n", k, f.Categories[k])
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (s Schema) canonical() Schema {
	fields := make([]Field, len(s.Fields))
	for i, f := range s.Fields {
		f.Kind = Kind(strings.ToLower(strings.TrimSpace(string(f.Kind))))
		if f.Categories != nil {
			categories := make(map[string]int, len(f.Categories))
			for k, v := range f.Categories {
				categories[categoryKey(k)] = v
			}
			f.Categories = categories
		}
		fields[i] = f
	}
	return Schema{Fields: fields}
}

func categoryKey(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}

func copyCategories(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
