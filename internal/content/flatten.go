// Package content converts between the host's nested per-field content trees
// and the flat path-keyed representation used for file-based transport.
package content

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Delimiter joins the structural segments of a flattened path, so an item's
// title delta looks like "13][title][0][value".
const Delimiter = "]["

// Tree is a nested content structure. A node is a leaf when it carries a
// "#text" entry; an optional "#translate" of false excludes the leaf from
// transmission.
type Tree = map[string]any

const (
	textKey      = "#text"
	translateKey = "#translate"
)

// Field is one leaf of a flattened tree.
type Field struct {
	Path         string
	Text         string
	Translatable bool
}

// DecodeTree parses raw JSON content into a Tree. JSON arrays are normalized
// into index-keyed maps so flatten and unflatten stay symmetrical.
func DecodeTree(raw json.RawMessage) (Tree, error) {
	if len(raw) == 0 {
		return Tree{}, nil
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode content tree: %w", err)
	}

	normalized, ok := normalizeNode(decoded).(Tree)
	if !ok {
		return nil, fmt.Errorf("content tree must be a JSON object")
	}
	return normalized, nil
}

func normalizeNode(node any) any {
	switch value := node.(type) {
	case map[string]any:
		out := make(Tree, len(value))
		for key, child := range value {
			out[key] = normalizeNode(child)
		}
		return out
	case []any:
		out := make(Tree, len(value))
		for idx, child := range value {
			out[strconv.Itoa(idx)] = normalizeNode(child)
		}
		return out
	default:
		return node
	}
}

// Flatten walks the tree and returns one Field per leaf, ordered by a
// deterministic key sort at every level.
func Flatten(tree Tree) []Field {
	fields := make([]Field, 0, 16)
	flattenInto("", tree, &fields)
	return fields
}

func flattenInto(prefix string, node Tree, out *[]Field) {
	if isLeaf(node) {
		text, _ := node[textKey].(string)
		translatable := true
		if flag, ok := node[translateKey].(bool); ok {
			translatable = flag
		}
		*out = append(*out, Field{Path: prefix, Text: text, Translatable: translatable})
		return
	}

	for _, key := range sortedKeys(node) {
		child, ok := node[key].(map[string]any)
		if !ok {
			continue
		}
		childPrefix := key
		if prefix != "" {
			childPrefix = prefix + Delimiter + key
		}
		flattenInto(childPrefix, child, out)
	}
}

func isLeaf(node Tree) bool {
	_, ok := node[textKey]
	return ok
}

// sortedKeys orders numeric keys by value and everything else alphabetically,
// numbers first, so item "2" sorts before item "10".
func sortedKeys(node Tree) []string {
	keys := make([]string, 0, len(node))
	for key := range node {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		left, leftErr := strconv.Atoi(keys[i])
		right, rightErr := strconv.Atoi(keys[j])
		switch {
		case leftErr == nil && rightErr == nil:
			return left < right
		case leftErr == nil:
			return true
		case rightErr == nil:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
	return keys
}

// FilterTranslatable drops leaves with empty text or an explicit
// non-translatable flag. Only the remaining fields are ever transmitted.
func FilterTranslatable(fields []Field) []Field {
	kept := make([]Field, 0, len(fields))
	for _, field := range fields {
		if field.Text == "" || !field.Translatable {
			continue
		}
		kept = append(kept, field)
	}
	return kept
}

// Unflatten is the exact inverse of Flatten for the transmitted form: it
// rebuilds the nested tree from path-keyed texts.
func Unflatten(flat map[string]string) Tree {
	tree := Tree{}
	for path, text := range flat {
		parts := strings.Split(path, Delimiter)
		node := tree
		for _, part := range parts {
			child, ok := node[part].(Tree)
			if !ok {
				child = Tree{}
				node[part] = child
			}
			node = child
		}
		node[textKey] = text
	}
	return tree
}

// EncodeTree renders a tree back to JSON for storage.
func EncodeTree(tree Tree) (json.RawMessage, error) {
	raw, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("encode content tree: %w", err)
	}
	return raw, nil
}
