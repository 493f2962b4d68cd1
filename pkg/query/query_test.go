package query

import (
	"testing"

	"github.com/smarchetti/ticketdesk/pkg/model"
)

func TestBuild_FixedAndCustomFields(t *testing.T) {
	got := Build("HD", []Clause{
		{Field: model.FieldStatus, Original: "Da completare"},
		{Field: model.FieldArea, Original: "Civilia Next - Area Demografia"},
	})
	want := `project = HD AND status = "Da completare" AND cf[10038] = "Civilia Next - Area Demografia" ORDER BY created DESC`
	if got != want {
		t.Errorf("Build() = %q, want %q", got, want)
	}
}

func TestBuild_SkipsEmptySelections(t *testing.T) {
	got := Build("HD", []Clause{
		{Field: model.FieldStatus, Original: ""},
		{Field: model.FieldPriority, Original: "Alta"},
	})
	want := `project = HD AND priority = "Alta" ORDER BY created DESC`
	if got != want {
		t.Errorf("Build() = %q, want %q", got, want)
	}
}

func TestBuild_EscapesQuotes(t *testing.T) {
	got := Build("", []Clause{
		{Field: model.FieldOrganization, Original: `Comune "storico"`},
	})
	want := `cf[10002] = "Comune \"storico\"" ORDER BY created DESC`
	if got != want {
		t.Errorf("Build() = %q, want %q", got, want)
	}
}

func TestBuild_Empty(t *testing.T) {
	if got := Build("", nil); got != "ORDER BY created DESC" {
		t.Errorf("Build() = %q", got)
	}
}
