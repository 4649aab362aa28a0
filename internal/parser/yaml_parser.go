package parser

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/Laisky/errors/v2"
	"github.com/studiowebux/apitest/internal/types"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// LoadFile reads a spec file and returns it as a JSON document.
//
// The format follows the extension: .yaml/.yml are decoded as YAML, .jsonc may
// carry comments and trailing commas, anything else must be plain JSON.
// Read failures are returned as-is; malformed content is a *ParseError.
func LoadFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read file")
	}

	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".yaml", ".yml":
		converted, err := yamlToJSON(data)
		if err != nil {
			return nil, &ParseError{Err: errors.Wrapf(err, "failed to parse YAML %s", filePath)}
		}
		return converted, nil
	case ".jsonc":
		return jsonc.ToJSON(data), nil
	default:
		return data, nil
	}
}

// ParseFile loads and parses a spec file
func ParseFile(filePath string) (*types.RequestSpec, error) {
	data, err := LoadFile(filePath)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// yamlToJSON re-encodes a YAML document as JSON, keeping mapping order so that
// json_path and header rules are evaluated in the order they were written
func yamlToJSON(data []byte) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, errors.New("document is empty")
	}

	var buf bytes.Buffer
	if err := writeNode(&buf, &doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeNode(buf *bytes.Buffer, node *yaml.Node) error {
	switch node.Kind {
	case yaml.DocumentNode:
		return writeNode(buf, node.Content[0])
	case yaml.AliasNode:
		return writeNode(buf, node.Alias)
	case yaml.MappingNode:
		pairs, err := mappingPairs(node)
		if err != nil {
			return err
		}
		buf.WriteByte('{')
		for i, pair := range pairs {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(pair.key)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := writeNode(buf, pair.value); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, item := range node.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeNode(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case yaml.ScalarNode:
		var value any
		if err := node.Decode(&value); err != nil {
			return errors.Wrapf(err, "line %d", node.Line)
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return errors.Wrapf(err, "line %d", node.Line)
		}
		buf.Write(encoded)
	default:
		return errors.Errorf("unsupported YAML node at line %d", node.Line)
	}
	return nil
}

type nodePair struct {
	key   string
	value *yaml.Node
}

// mappingPairs lists the entries of a mapping in document order with merge
// keys (<<) expanded in place. Explicit keys win over merged ones, and an
// earlier mapping in a merged sequence wins over a later one.
func mappingPairs(node *yaml.Node) ([]nodePair, error) {
	explicit := make(map[string]bool)
	for i := 0; i+1 < len(node.Content); i += 2 {
		if !isMergeKey(node.Content[i]) {
			explicit[node.Content[i].Value] = true
		}
	}

	var pairs []nodePair
	seen := make(map[string]bool)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if !isMergeKey(key) {
			pairs = append(pairs, nodePair{key: key.Value, value: value})
			continue
		}

		merged, err := mergeSources(value)
		if err != nil {
			return nil, err
		}
		for _, pair := range merged {
			if explicit[pair.key] || seen[pair.key] {
				continue
			}
			seen[pair.key] = true
			pairs = append(pairs, pair)
		}
	}
	return pairs, nil
}

// mergeSources expands the value of a merge key: a mapping, or a sequence of mappings
func mergeSources(value *yaml.Node) ([]nodePair, error) {
	value = resolveAlias(value)
	switch value.Kind {
	case yaml.MappingNode:
		return mappingPairs(value)
	case yaml.SequenceNode:
		var pairs []nodePair
		for _, item := range value.Content {
			item = resolveAlias(item)
			if item.Kind != yaml.MappingNode {
				return nil, errors.Errorf("merge key at line %d must reference mappings", value.Line)
			}
			merged, err := mappingPairs(item)
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, merged...)
		}
		return pairs, nil
	default:
		return nil, errors.Errorf("merge key at line %d must reference a mapping", value.Line)
	}
}

func isMergeKey(key *yaml.Node) bool {
	return key.Kind == yaml.ScalarNode && key.ShortTag() == "!!merge"
}

func resolveAlias(node *yaml.Node) *yaml.Node {
	for node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	return node
}
