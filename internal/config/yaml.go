package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	yaml "go.yaml.in/yaml/v3"
)

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// yamlToJSON re-encodes a YAML config document as JSON for the strict
// decoder. Anchors and "<<" merges are resolved; a key may appear once per
// mapping; errors carry the YAML line.
func yamlToJSON(data []byte) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}
	if len(doc.Content) == 0 {
		return []byte("{}"), nil
	}
	v, err := yamlValue(doc.Content[0])
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

func yamlValue(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.AliasNode:
		return yamlValue(n.Alias)
	case yaml.MappingNode:
		return yamlMapping(n)
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := yamlValue(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("yaml line %d: %w", n.Line, err)
		}
		return v, nil
	}
	return nil, fmt.Errorf("yaml line %d: unexpected node", n.Line)
}

func yamlMapping(n *yaml.Node) (map[string]any, error) {
	out := make(map[string]any, len(n.Content)/2)
	var merged []map[string]any
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, val := n.Content[i], n.Content[i+1]
		if k.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("yaml line %d: mapping key must be a scalar", k.Line)
		}
		v, err := yamlValue(val)
		if err != nil {
			return nil, err
		}
		if k.Tag == "!!merge" {
			switch m := v.(type) {
			case map[string]any:
				merged = append(merged, m)
			case []any:
				for _, e := range m {
					if em, ok := e.(map[string]any); ok {
						merged = append(merged, em)
					}
				}
			default:
				return nil, fmt.Errorf("yaml line %d: merge value must be a mapping", k.Line)
			}
			continue
		}
		if _, dup := out[k.Value]; dup {
			return nil, fmt.Errorf("yaml line %d: duplicate key %q", k.Line, k.Value)
		}
		out[k.Value] = v
	}
	// explicit keys win over merged ones
	for _, m := range merged {
		for k, v := range m {
			if _, set := out[k]; !set {
				out[k] = v
			}
		}
	}
	return out, nil
}
