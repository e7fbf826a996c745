package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// WeightedValue is one entry of a weighted multiplier table.
type WeightedValue struct {
	Value  int `yaml:"value" json:"value"`
	Weight int `yaml:"weight" json:"weight"`
}

// MultiplierTable is the weighted multiplier value table. The preferred form
// is an explicit value/weight list; a legacy flat list of ints, where
// frequency equals repetition count, is also accepted.
type MultiplierTable []WeightedValue

// UnmarshalYAML accepts either [{value: 2, weight: 40}, ...] or the legacy
// flat form [2, 2, 3, 5].
func (t *MultiplierTable) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		return fmt.Errorf("multiplier table must be a sequence")
	}

	var flat []int
	if err := node.Decode(&flat); err == nil {
		counts := make(map[int]int)
		for _, v := range flat {
			counts[v]++
		}
		values := make([]int, 0, len(counts))
		for v := range counts {
			values = append(values, v)
		}
		sort.Ints(values)
		out := make(MultiplierTable, 0, len(values))
		for _, v := range values {
			out = append(out, WeightedValue{Value: v, Weight: counts[v]})
		}
		*t = out
		return nil
	}

	var entries []WeightedValue
	if err := node.Decode(&entries); err != nil {
		return fmt.Errorf("decoding multiplier table: %w", err)
	}
	*t = entries
	return nil
}

// LoadProfileFile reads a YAML profile overlay on top of the standard
// profile, so an operator file only needs to name the fields it changes.
func LoadProfileFile(path string) (*MathProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile file: %w", err)
	}
	p := Standard()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parsing profile file %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("profile file %s: %w", path, err)
	}
	return p, nil
}
