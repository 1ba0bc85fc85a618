// Package schema describes JSON Schema documents used as tool input schemas.
package schema

import "encoding/json"

const URL = "http://json-schema.org/draft-07/schema#"

type Type string

const (
	String  Type = "string"
	Integer Type = "integer"
	Boolean Type = "boolean"
	Array   Type = "array"
	Object  Type = "object"
)

// JSON is a way to describe a JSON Schema
type JSON struct {
	Type                 interface{}      `json:"type,omitzero"` // Can be Type or []interface{} for union types like ["string", "null"]
	Description          string           `json:"description,omitzero"`
	Properties           map[string]*JSON `json:"properties,omitzero"`
	Items                *JSON            `json:"items,omitzero"`
	Enum                 []string         `json:"enum,omitzero"`
	Required             []string         `json:"required,omitzero"`
	AdditionalProperties *bool            `json:"additionalProperties,omitzero"`
	Minimum              *int             `json:"minimum,omitzero"`
	Maximum              *int             `json:"maximum,omitzero"`
	MaxLength            *int             `json:"maxLength,omitzero"`
	Schema               string           `json:"$schema,omitzero"`
	OneOf                []*JSON          `json:"oneOf,omitzero"`
	AnyOf                []*JSON          `json:"anyOf,omitzero"`
	AllOf                []*JSON          `json:"allOf,omitzero"`
}

// NewObject returns an object schema with the given properties. Property names
// listed in required must be present in arguments.
func NewObject(properties map[string]*JSON, required ...string) *JSON {
	if properties == nil {
		properties = map[string]*JSON{}
	}
	if required == nil {
		required = []string{}
	}
	return &JSON{
		Type:       Object,
		Properties: properties,
		Required:   required,
	}
}

// Property returns a leaf schema of the given type.
func Property(t Type, description string) *JSON {
	return &JSON{Type: t, Description: description}
}

// Bounded sets inclusive numeric bounds on an integer property.
func (j *JSON) Bounded(min, max int) *JSON {
	j.Minimum = &min
	j.Maximum = &max
	return j
}

// Limit caps the length of a string property.
func (j *JSON) Limit(maxLength int) *JSON {
	j.MaxLength = &maxLength
	return j
}

// Raw marshals the schema. Object schemas always carry a required list, even when empty.
func (j *JSON) Raw() (json.RawMessage, error) {
	return json.Marshal(j)
}
