// Package query assembles structured search queries from resolved
// original values. It does plain string assembly only; parsing and
// validation belong to the remote service.
package query

import (
	"strings"

	"github.com/smarchetti/ticketdesk/pkg/model"
)

// Clause is one field condition built from a control's selected
// original value. An empty Original means "all" and produces no
// condition.
type Clause struct {
	Field    model.FieldType
	Original string
}

// Build assembles the query string for a project and a set of
// clauses. The result is ordered newest-first.
func Build(project string, clauses []Clause) string {
	var parts []string
	if project != "" {
		parts = append(parts, "project = "+project)
	}
	for _, c := range clauses {
		if c.Original == "" {
			continue
		}
		parts = append(parts, term(c.Field)+" = "+quote(c.Original))
	}
	q := strings.Join(parts, " AND ")
	if q == "" {
		return "ORDER BY created DESC"
	}
	return q + " ORDER BY created DESC"
}

// term maps a field type to its query-side identifier. Custom fields
// use the cf[NNNNN] form.
func term(field model.FieldType) string {
	if id := field.CustomID(); id != "" {
		return "cf[" + strings.TrimPrefix(id, "customfield_") + "]"
	}
	return string(field)
}

func quote(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `\"`) + `"`
}
