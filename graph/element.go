package graph

import (
	"encoding/json"
	"fmt"
)

const (
	KindVertexStr = "vertex"
	KindEdgeStr   = "edge"
)

type Kind int

const (
	KindVertex Kind = iota
	KindEdge
)

func (k Kind) String() string {
	switch k {
	case KindEdge:
		return KindEdgeStr
	default:
		return KindVertexStr
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case KindVertexStr:
		*k = KindVertex
	case KindEdgeStr:
		*k = KindEdge
	default:
		return fmt.Errorf("unknown element kind: %q", text)
	}
	return nil
}

// Element is a vertex or an edge. The partition key value lives in Properties under
// the collection's partition key property.
type Element struct {
	Kind       Kind           `json:"kind"`
	ID         string         `json:"id,omitempty"`
	Label      string         `json:"label"`
	Properties map[string]any `json:"properties,omitempty"`

	// edges only
	OutVertexID           string `json:"outV,omitempty"`
	InVertexID            string `json:"inV,omitempty"`
	OutVertexLabel        string `json:"outVLabel,omitempty"`
	InVertexLabel         string `json:"inVLabel,omitempty"`
	OutVertexPartitionKey any    `json:"outVPartitionKey,omitempty"`
	InVertexPartitionKey  any    `json:"inVPartitionKey,omitempty"`
}

func NewVertex(id, label string) Element {
	return Element{
		Kind:       KindVertex,
		ID:         id,
		Label:      label,
		Properties: map[string]any{},
	}
}

func NewEdge(id, label, outID, inID string) Element {
	return Element{
		Kind:        KindEdge,
		ID:          id,
		Label:       label,
		Properties:  map[string]any{},
		OutVertexID: outID,
		InVertexID:  inID,
	}
}

func (e Element) IsEdge() bool {
	return e.Kind == KindEdge
}

// Property returns a property value, treating a nil value as absent.
func (e Element) Property(name string) (any, bool) {
	if e.Properties == nil {
		return nil, false
	}
	value, ok := e.Properties[name]
	if !ok || value == nil {
		return nil, false
	}
	return value, true
}

// WithProperty returns a copy of the element with the property set.
func (e Element) WithProperty(name string, value any) Element {
	props := make(map[string]any, len(e.Properties)+1)
	for k, v := range e.Properties {
		props[k] = v
	}
	props[name] = value
	e.Properties = props
	return e
}

// Encode serializes the element as a single line of JSON.
func (e Element) Encode() ([]byte, error) {
	return json.Marshal(e)
}

func (e Element) String() string {
	raw, err := e.Encode()
	if err != nil {
		return fmt.Sprintf("%s{id=%s label=%s}", e.Kind, e.ID, e.Label)
	}
	return string(raw)
}

// Validate reports the structural problems every store rejects.
func (e Element) Validate() error {
	if e.ID == "" {
		return NewValidationError(e.ID, "missing id")
	}
	if e.IsEdge() && (e.OutVertexID == "" || e.InVertexID == "") {
		return NewValidationError(e.ID, "edge is missing an endpoint")
	}
	return nil
}
