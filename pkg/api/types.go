package api

// Status is one entry of the status enumeration endpoint.
type Status struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	StatusCategory struct {
		Key  string `json:"key"`
		Name string `json:"name"`
	} `json:"statusCategory"`
}

// Priority is one entry of the priority enumeration endpoint.
type Priority struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// IssueType is one entry of the issue type enumeration endpoint.
type IssueType struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Subtask bool   `json:"subtask"`
}

// User is one assignable account.
type User struct {
	AccountID    string `json:"accountId"`
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
	Active       bool   `json:"active"`
}

// Organization is one entry of the paginated organization listing.
type Organization struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// organizationPage is the wire shape of one organization page.
type organizationPage struct {
	Values     []Organization `json:"values"`
	IsLastPage bool           `json:"isLastPage"`
}

// Issue is one ticket as returned by the structured search endpoint.
// Field values keep their raw JSON shapes; the token package
// normalizes them.
type Issue struct {
	ID     string         `json:"id"`
	Key    string         `json:"key"`
	Fields map[string]any `json:"fields"`
}

// SearchResult is the response of the structured search endpoint.
type SearchResult struct {
	Total      int     `json:"total"`
	StartAt    int     `json:"startAt"`
	MaxResults int     `json:"maxResults"`
	Issues     []Issue `json:"issues"`
}

// CreateMeta is the response of the field metadata endpoint: allowed
// values nested under project → issue type → field.
type CreateMeta struct {
	Projects []MetaProject `json:"projects"`
}

// MetaProject groups issue types of one project.
type MetaProject struct {
	Key        string          `json:"key"`
	IssueTypes []MetaIssueType `json:"issuetypes"`
}

// MetaIssueType carries per-field metadata for one issue type.
type MetaIssueType struct {
	Name   string               `json:"name"`
	Fields map[string]MetaField `json:"fields"`
}

// MetaField describes one field, including its allowed values in raw
// JSON shape.
type MetaField struct {
	Name          string `json:"name"`
	AllowedValues []any  `json:"allowedValues"`
}
