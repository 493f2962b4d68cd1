package model

import "strings"

// FieldType identifies a logical category of ticket attribute.
// Fixed fields map to dedicated API endpoints; custom fields are
// backed by a synthetic "customfield_NNNNN" identifier.
type FieldType string

const (
	FieldStatus       FieldType = "status"
	FieldPriority     FieldType = "priority"
	FieldIssueType    FieldType = "issuetype"
	FieldAssignee     FieldType = "assignee"
	FieldOrganization FieldType = "organization"
	FieldArea         FieldType = "area"
	FieldApplication  FieldType = "application"
)

// customFieldIDs maps the known custom field types to their synthetic
// API identifiers. Arbitrary custom fields are built with CustomField.
var customFieldIDs = map[FieldType]string{
	FieldOrganization: "customfield_10002",
	FieldArea:         "customfield_10038",
	FieldApplication:  "customfield_10039",
}

// CustomField builds a FieldType for an arbitrary custom field id
// such as "customfield_10123".
func CustomField(id string) FieldType {
	return FieldType(id)
}

// IsCustom returns true if the field is backed by a synthetic
// customfield id rather than a fixed endpoint.
func (f FieldType) IsCustom() bool {
	if _, ok := customFieldIDs[f]; ok {
		return true
	}
	return strings.HasPrefix(string(f), "customfield_")
}

// CustomID returns the synthetic API identifier for a custom field,
// or the empty string for fixed fields.
func (f FieldType) CustomID() string {
	if id, ok := customFieldIDs[f]; ok {
		return id
	}
	if strings.HasPrefix(string(f), "customfield_") {
		return string(f)
	}
	return ""
}

// DisplayName returns the human-readable name of the field.
func (f FieldType) DisplayName() string {
	switch f {
	case FieldStatus:
		return "Status"
	case FieldPriority:
		return "Priority"
	case FieldIssueType:
		return "Issue Type"
	case FieldAssignee:
		return "Assignee"
	case FieldOrganization:
		return "Organization"
	case FieldArea:
		return "Area"
	case FieldApplication:
		return "Application"
	}
	return string(f)
}

// IsValid returns true if the field type is a recognized fixed field
// or a well-formed custom field.
func (f FieldType) IsValid() bool {
	switch f {
	case FieldStatus, FieldPriority, FieldIssueType, FieldAssignee,
		FieldOrganization, FieldArea, FieldApplication:
		return true
	}
	return strings.HasPrefix(string(f), "customfield_")
}

// FieldValue is one resolved legal value for a field: the original
// API-native value paired with its canonical display form.
type FieldValue struct {
	ID           string         `json:"id,omitempty"`
	Name         string         `json:"name,omitempty"`
	Value        string         `json:"value"`
	DisplayValue string         `json:"display_value"`
	FieldType    FieldType      `json:"field_type"`
	Properties   map[string]any `json:"properties,omitempty"`
}

// Clone creates a deep copy of the field value.
func (v FieldValue) Clone() FieldValue {
	clone := v
	if v.Properties != nil {
		clone.Properties = make(map[string]any, len(v.Properties))
		for k, val := range v.Properties {
			clone.Properties[k] = val
		}
	}
	return clone
}
