// Package token models the JSON value shapes returned by the ticket
// API and normalizes them into canonical display strings.
package token

import (
	"encoding/json"
	"strconv"
)

// Token is the closed set of shapes a raw field value can take.
// Decode always produces one of: Null, Scalar, Reference,
// WorkspaceRef, Array, Document.
type Token interface {
	isToken()
}

// Null is an absent or JSON-null value.
type Null struct{}

// ScalarKind distinguishes the primitive JSON types held by a Scalar.
type ScalarKind int

const (
	KindString ScalarKind = iota
	KindNumber
	KindBool
)

// Scalar is a primitive JSON value.
type Scalar struct {
	Kind ScalarKind
	Str  string
	Num  float64
	Bool bool
}

// Reference is an embedded object carrying its own descriptive
// fields, e.g. a status, user or option object.
type Reference struct {
	ID          string
	DisplayName string
	Name        string
	Value       string
	Email       string
	Key         string
}

// WorkspaceRef is a pointer-style object identifying an external
// object by workspace and object ids rather than embedding its data.
type WorkspaceRef struct {
	WorkspaceID string
	ObjectID    string
	ID          string
}

// Array is an ordered list of tokens.
type Array struct {
	Items []Token
}

// Document is a rich-text tree requiring recursive text extraction.
type Document struct {
	Root DocNode
}

// DocNode is one node of a rich-text document.
type DocNode struct {
	Type    string
	Text    string
	Content []DocNode
}

func (Null) isToken()         {}
func (Scalar) isToken()       {}
func (Reference) isToken()    {}
func (WorkspaceRef) isToken() {}
func (Array) isToken()        {}
func (Document) isToken()     {}

// Decode converts a value produced by encoding/json (nil, bool,
// float64, string, json.Number, []any, map[string]any) into a Token.
// Unrecognized shapes decode to an empty Reference, which normalizes
// to the object placeholder rather than failing.
func Decode(v any) Token {
	switch val := v.(type) {
	case nil:
		return Null{}
	case string:
		return Scalar{Kind: KindString, Str: val}
	case bool:
		return Scalar{Kind: KindBool, Bool: val}
	case float64:
		return Scalar{Kind: KindNumber, Num: val}
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return Scalar{Kind: KindString, Str: val.String()}
		}
		return Scalar{Kind: KindNumber, Num: f}
	case []any:
		items := make([]Token, 0, len(val))
		for _, elem := range val {
			items = append(items, Decode(elem))
		}
		return Array{Items: items}
	case map[string]any:
		return decodeObject(val)
	}
	return Reference{}
}

func decodeObject(obj map[string]any) Token {
	// Rich documents carry a node type plus nested content or text.
	if _, ok := obj["type"]; ok {
		if _, hasContent := obj["content"]; hasContent {
			return Document{Root: decodeDocNode(obj)}
		}
		if _, hasText := obj["text"]; hasText {
			return Document{Root: decodeDocNode(obj)}
		}
	}

	// Workspace pointers identify an object without embedding it.
	if _, ok := obj["workspaceId"]; ok {
		return WorkspaceRef{
			WorkspaceID: stringField(obj, "workspaceId"),
			ObjectID:    stringField(obj, "objectId"),
			ID:          stringField(obj, "id"),
		}
	}

	return Reference{
		ID:          stringField(obj, "id"),
		DisplayName: stringField(obj, "displayName"),
		Name:        stringField(obj, "name"),
		Value:       stringField(obj, "value"),
		Email:       stringField(obj, "emailAddress"),
		Key:         stringField(obj, "key"),
	}
}

func decodeDocNode(obj map[string]any) DocNode {
	node := DocNode{
		Type: stringField(obj, "type"),
		Text: stringField(obj, "text"),
	}
	if content, ok := obj["content"].([]any); ok {
		node.Content = make([]DocNode, 0, len(content))
		for _, child := range content {
			if childObj, ok := child.(map[string]any); ok {
				node.Content = append(node.Content, decodeDocNode(childObj))
			}
		}
	}
	return node
}

// stringField extracts a field as its string form, tolerating
// numeric ids that arrive as JSON numbers.
func stringField(obj map[string]any, key string) string {
	switch v := obj[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	}
	return ""
}
