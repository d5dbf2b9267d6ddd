// Package extract walks decoded JSON documents along key/index paths.
// A missing key, a container of the wrong type or an index past the end is
// an ordinary outcome reported as an empty Node, never as an error; only
// malformed JSON fails.
package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Walk follows path from root. It returns false as soon as a step cannot be
// taken.
func Walk(root any, path Path) (any, bool) {
	current := root
	for _, step := range path {
		if step.isIndex {
			arr, ok := current.([]any)
			if !ok || step.index < 0 || step.index >= len(arr) {
				return nil, false
			}
			current = arr[step.index]
			continue
		}

		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		next, ok := obj[step.key]
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// -----------------------------------------------------------------------------

// Node is a decoded JSON value. The zero Node is the empty result.
type Node struct {
	value any
}

func Empty() Node {
	return Node{}
}

func NewNode(v any) Node {
	return Node{value: v}
}

// Parse decodes data, keeping numbers as json.Number.
func Parse(data []byte) (Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return Node{}, err
	}
	if dec.More() {
		return Node{}, fmt.Errorf("extract: trailing data after JSON value")
	}
	return Node{value: v}, nil
}

// -----------------------------------------------------------------------------

// IsEmpty is true for the empty result and for an explicit JSON null.
func (n Node) IsEmpty() bool {
	return n.value == nil
}

func (n Node) Value() any {
	return n.value
}

// Walk returns the node at path, or Empty when any step is missing.
func (n Node) Walk(path Path) Node {
	v, ok := Walk(n.value, path)
	if !ok {
		return Empty()
	}
	return Node{value: v}
}

func (n Node) Get(steps ...Step) Node {
	return n.Walk(Path(steps))
}

// Has reports whether path leads somewhere, even to a null.
func (n Node) Has(path Path) bool {
	_, ok := Walk(n.value, path)
	return ok
}

// Len is the element count of an array or object, 0 otherwise.
func (n Node) Len() int {
	switch v := n.value.(type) {
	case []any:
		return len(v)
	case map[string]any:
		return len(v)
	}
	return 0
}

// Elements returns the items of an array node.
func (n Node) Elements() []Node {
	arr, ok := n.value.([]any)
	if !ok {
		return nil
	}
	out := make([]Node, len(arr))
	for i, v := range arr {
		out[i] = Node{value: v}
	}
	return out
}

// Strings renders every element of an array node as its JSON text, except
// strings which are returned unquoted.
func (n Node) Strings() []string {
	elems := n.Elements()
	out := make([]string, 0, len(elems))
	for _, e := range elems {
		out = append(out, e.String())
	}
	return out
}

// String renders scalars without quotes and containers as compact JSON.
func (n Node) String() string {
	switch v := n.value.(type) {
	case nil:
		return "null"
	case string:
		return v
	case json.Number:
		return v.String()
	}
	data, err := json.Marshal(n.value)
	if err != nil {
		return fmt.Sprintf("%v", n.value)
	}
	return string(data)
}

func (n Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.value)
}

func (n *Node) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}
