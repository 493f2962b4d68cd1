package fetch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/smarchetti/ticketdesk/pkg/api"
	"github.com/smarchetti/ticketdesk/pkg/model"
)

// fakeAPI implements TicketAPI through overridable function fields.
type fakeAPI struct {
	listStatuses        func(ctx context.Context) ([]api.Status, error)
	listPriorities      func(ctx context.Context) ([]api.Priority, error)
	listIssueTypes      func(ctx context.Context) ([]api.IssueType, error)
	listAssignableUsers func(ctx context.Context, project string) ([]api.User, error)
	listOrganizations   func(ctx context.Context, start, limit int) ([]api.Organization, error)
	createMeta          func(ctx context.Context) (*api.CreateMeta, error)
	searchTickets       func(ctx context.Context, query string, startAt, maxResults int) (*api.SearchResult, error)
}

func (f *fakeAPI) ListStatuses(ctx context.Context) ([]api.Status, error) {
	return f.listStatuses(ctx)
}
func (f *fakeAPI) ListPriorities(ctx context.Context) ([]api.Priority, error) {
	return f.listPriorities(ctx)
}
func (f *fakeAPI) ListIssueTypes(ctx context.Context) ([]api.IssueType, error) {
	return f.listIssueTypes(ctx)
}
func (f *fakeAPI) ListAssignableUsers(ctx context.Context, project string) ([]api.User, error) {
	return f.listAssignableUsers(ctx, project)
}
func (f *fakeAPI) ListOrganizations(ctx context.Context, start, limit int) ([]api.Organization, error) {
	return f.listOrganizations(ctx, start, limit)
}
func (f *fakeAPI) CreateMeta(ctx context.Context) (*api.CreateMeta, error) {
	return f.createMeta(ctx)
}
func (f *fakeAPI) SearchTickets(ctx context.Context, query string, startAt, maxResults int) (*api.SearchResult, error) {
	return f.searchTickets(ctx, query, startAt, maxResults)
}

func status(name, category string) api.Status {
	var s api.Status
	s.Name = name
	s.StatusCategory.Name = category
	return s
}

func testDispatcher(f *fakeAPI, opts Options) *Dispatcher {
	opts.BatchPause = time.Millisecond
	if opts.Project == "" {
		opts.Project = "HD"
	}
	return NewDispatcher(f, opts, nil)
}

func TestStrategyFor(t *testing.T) {
	cases := []struct {
		field model.FieldType
		want  Strategy
	}{
		{model.FieldOrganization, StrategyPaginated},
		{model.FieldStatus, StrategyDirect},
		{model.FieldPriority, StrategyDirect},
		{model.FieldIssueType, StrategyDirect},
		{model.FieldAssignee, StrategyDirect},
		{model.FieldArea, StrategyHybrid},
		{model.FieldApplication, StrategyHybrid},
		{model.CustomField("customfield_10123"), StrategyMeta},
	}
	for _, tc := range cases {
		if got := StrategyFor(tc.field); got != tc.want {
			t.Errorf("StrategyFor(%s) = %v, want %v", tc.field, got, tc.want)
		}
	}
}

func TestFetchDirect_StatusUsesCategoryNames(t *testing.T) {
	f := &fakeAPI{
		listStatuses: func(ctx context.Context) ([]api.Status, error) {
			return []api.Status{
				status("Aperto", "Da completare"),
				status("In lavorazione", "In corso"),
				status("Riaperto", "Da completare"),
			}, nil
		},
	}
	d := testDispatcher(f, Options{})

	got, err := d.Fetch(context.Background(), model.FieldStatus, nil)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	want := []string{"Da completare", "In corso"}
	assertStrings(t, got, want)
}

func TestFetchDirect_PriorityAllowList(t *testing.T) {
	f := &fakeAPI{
		listPriorities: func(ctx context.Context) ([]api.Priority, error) {
			return []api.Priority{
				{Name: "Blocker"}, {Name: "Alta"}, {Name: "Media"},
				{Name: "Bassa"}, {Name: "Trivial"},
			}, nil
		},
	}
	d := testDispatcher(f, Options{})

	got, err := d.Fetch(context.Background(), model.FieldPriority, nil)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	assertStrings(t, got, []string{"Alta", "Bassa", "Media"})
}

func TestFetchDirect_AssigneeExclusions(t *testing.T) {
	f := &fakeAPI{
		listAssignableUsers: func(ctx context.Context, project string) ([]api.User, error) {
			if project != "HD" {
				t.Errorf("project = %q, want HD", project)
			}
			return []api.User{
				{DisplayName: "Mario Rossi"},
				{DisplayName: "Automation for Jira"},
				{DisplayName: "Anna Bianchi"},
			}, nil
		},
	}
	d := testDispatcher(f, Options{})

	got, err := d.Fetch(context.Background(), model.FieldAssignee, nil)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	assertStrings(t, got, []string{"Anna Bianchi", "Mario Rossi"})
}

func TestFetchDirect_PropagatesFailure(t *testing.T) {
	f := &fakeAPI{
		listStatuses: func(ctx context.Context) ([]api.Status, error) {
			return nil, errors.New("transport down")
		},
	}
	d := testDispatcher(f, Options{})

	if _, err := d.Fetch(context.Background(), model.FieldStatus, nil); err == nil {
		t.Error("direct strategy must propagate fetch failures")
	}
}

func TestFetchPaginated_StopsOnShortPage(t *testing.T) {
	calls := 0
	f := &fakeAPI{
		listOrganizations: func(ctx context.Context, start, limit int) ([]api.Organization, error) {
			calls++
			if start == 0 {
				orgs := make([]api.Organization, limit)
				for i := range orgs {
					orgs[i].Name = "Org " + string(rune('A'+i%26)) + string(rune('a'+i/26))
				}
				return orgs, nil
			}
			return []api.Organization{{Name: "Ultima"}}, nil
		},
	}
	d := testDispatcher(f, Options{PageSize: 5})

	got, err := d.Fetch(context.Background(), model.FieldOrganization, nil)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2 (full page then short page)", calls)
	}
	if len(got) != 6 {
		t.Errorf("len = %d, want 6", len(got))
	}
}

// The pagination loop must terminate within the batch ceiling even if
// the remote source never returns a short page.
func TestFetchPaginated_BatchCeiling(t *testing.T) {
	calls := 0
	f := &fakeAPI{
		listOrganizations: func(ctx context.Context, start, limit int) ([]api.Organization, error) {
			calls++
			orgs := make([]api.Organization, limit)
			for i := range orgs {
				orgs[i].Name = "Org " + string(rune('a'+calls)) + string(rune('a'+i))
			}
			return orgs, nil
		},
	}
	d := testDispatcher(f, Options{PageSize: 3, BatchCeiling: 4})

	got, err := d.Fetch(context.Background(), model.FieldOrganization, nil)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if calls != 4 {
		t.Errorf("calls = %d, want exactly the batch ceiling", calls)
	}
	if len(got) != 12 {
		t.Errorf("len = %d, want 12", len(got))
	}
}

func TestFetchMeta_MergesAcrossIssueTypes(t *testing.T) {
	f := &fakeAPI{
		createMeta: func(ctx context.Context) (*api.CreateMeta, error) {
			return &api.CreateMeta{Projects: []api.MetaProject{{
				Key: "HD",
				IssueTypes: []api.MetaIssueType{
					{Name: "Bug", Fields: map[string]api.MetaField{
						"customfield_10123": {AllowedValues: []any{
							map[string]any{"value": "Uno"},
							map[string]any{"value": "Due"},
						}},
					}},
					{Name: "Task", Fields: map[string]api.MetaField{
						"customfield_10123": {AllowedValues: []any{
							map[string]any{"value": "Due"},
							map[string]any{"value": "Tre"},
						}},
					}},
				},
			}}}, nil
		},
	}
	d := testDispatcher(f, Options{})

	got, err := d.Fetch(context.Background(), model.CustomField("customfield_10123"), nil)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	assertStrings(t, got, []string{"Due", "Tre", "Uno"})
}

// Primary result below the success threshold triggers the fallback
// exactly once, and the fallback result is returned.
func TestFetchHybrid_FallsBackBelowThreshold(t *testing.T) {
	searchCalls := 0
	f := &fakeAPI{
		createMeta: func(ctx context.Context) (*api.CreateMeta, error) {
			allowed := make([]any, 10)
			for i := range allowed {
				allowed[i] = map[string]any{"value": "Area " + string(rune('A'+i))}
			}
			return &api.CreateMeta{Projects: []api.MetaProject{{
				IssueTypes: []api.MetaIssueType{{
					Fields: map[string]api.MetaField{
						"customfield_10038": {AllowedValues: allowed},
					},
				}},
			}}}, nil
		},
		searchTickets: func(ctx context.Context, query string, startAt, maxResults int) (*api.SearchResult, error) {
			searchCalls++
			return &api.SearchResult{
				Total: 2,
				Issues: []api.Issue{
					{Key: "HD-1", Fields: map[string]any{"customfield_10038": map[string]any{"value": "Area Tributi"}}},
					{Key: "HD-2", Fields: map[string]any{"customfield_10038": map[string]any{"value": "Area Demografia"}}},
				},
			}, nil
		},
	}
	d := testDispatcher(f, Options{HybridThreshold: 200})

	got, err := d.Fetch(context.Background(), model.FieldArea, nil)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if searchCalls != 1 {
		t.Errorf("fallback invoked %d times, want exactly 1", searchCalls)
	}
	assertStrings(t, got, []string{"Area Demografia", "Area Tributi"})
}

func TestFetchHybrid_SwallowsPrimaryFailure(t *testing.T) {
	f := &fakeAPI{
		createMeta: func(ctx context.Context) (*api.CreateMeta, error) {
			return nil, errors.New("metadata endpoint down")
		},
		searchTickets: func(ctx context.Context, query string, startAt, maxResults int) (*api.SearchResult, error) {
			return &api.SearchResult{
				Total: 1,
				Issues: []api.Issue{
					{Fields: map[string]any{"customfield_10038": map[string]any{"value": "Area Tributi"}}},
				},
			}, nil
		},
	}
	d := testDispatcher(f, Options{})

	got, err := d.Fetch(context.Background(), model.FieldArea, nil)
	if err != nil {
		t.Fatalf("hybrid must swallow the primary failure, got %v", err)
	}
	assertStrings(t, got, []string{"Area Tributi"})
}

func TestFetchHybrid_PropagatesFallbackFailure(t *testing.T) {
	f := &fakeAPI{
		createMeta: func(ctx context.Context) (*api.CreateMeta, error) {
			return nil, errors.New("metadata endpoint down")
		},
		searchTickets: func(ctx context.Context, query string, startAt, maxResults int) (*api.SearchResult, error) {
			return nil, errors.New("search down too")
		},
	}
	d := testDispatcher(f, Options{})

	if _, err := d.Fetch(context.Background(), model.FieldArea, nil); err == nil {
		t.Error("hybrid must propagate when the fallback itself fails")
	}
}

func TestFetchFromTickets_SkipsPlaceholdersAndDedupes(t *testing.T) {
	f := &fakeAPI{
		createMeta: func(ctx context.Context) (*api.CreateMeta, error) {
			return nil, errors.New("force fallback")
		},
		searchTickets: func(ctx context.Context, query string, startAt, maxResults int) (*api.SearchResult, error) {
			return &api.SearchResult{
				Total: 4,
				Issues: []api.Issue{
					{Fields: map[string]any{"customfield_10038": map[string]any{"value": "Area Tributi"}}},
					{Fields: map[string]any{"customfield_10038": map[string]any{"value": "Area Tributi"}}},
					{Fields: map[string]any{"customfield_10038": map[string]any{"weird": "shape"}}},
					{Fields: map[string]any{"customfield_10038": nil}},
				},
			}, nil
		},
	}
	d := testDispatcher(f, Options{})

	got, err := d.Fetch(context.Background(), model.FieldArea, nil)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	assertStrings(t, got, []string{"Area Tributi"})
}

func TestFetchFromTickets_BoundedScan(t *testing.T) {
	var windows []int
	f := &fakeAPI{
		createMeta: func(ctx context.Context) (*api.CreateMeta, error) {
			return nil, errors.New("force fallback")
		},
		searchTickets: func(ctx context.Context, query string, startAt, maxResults int) (*api.SearchResult, error) {
			windows = append(windows, maxResults)
			issues := make([]api.Issue, maxResults)
			for i := range issues {
				issues[i].Fields = map[string]any{}
			}
			return &api.SearchResult{Total: 100000, Issues: issues}, nil
		},
	}
	d := testDispatcher(f, Options{FallbackScan: 250})

	if _, err := d.Fetch(context.Background(), model.FieldArea, nil); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	total := 0
	for _, w := range windows {
		total += w
	}
	if total != 250 {
		t.Errorf("scanned %d tickets, want the 250 bound (windows %v)", total, windows)
	}
}

func TestFetch_ProgressIsReported(t *testing.T) {
	f := &fakeAPI{
		listStatuses: func(ctx context.Context) ([]api.Status, error) {
			return []api.Status{status("Aperto", "Da completare")}, nil
		},
	}
	d := testDispatcher(f, Options{})

	var messages []string
	_, err := d.Fetch(context.Background(), model.FieldStatus, func(s string) {
		messages = append(messages, s)
	})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(messages) == 0 {
		t.Error("expected at least one progress message")
	}
}

func assertStrings(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
