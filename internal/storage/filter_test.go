package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func filterFixture() []note {
	a := newNote("a", "Go generics", "go", "lang")
	a.Content = "Type parameters landed in 1.18"
	a.Source = "claude-code"
	a.DateSlug = "2024-01-10"

	b := newNote("b", "Coffee", "life")
	b.Content = "Pour over at 93C"
	b.Source = "manual"
	b.DateSlug = "2024-02-20"

	c := newNote("c", "Release notes", "go")
	c.Content = "Range over func"
	c.Source = "claude-code"
	c.CreatedAt = time.Date(2024, 3, 5, 23, 0, 0, 0, time.UTC)

	d := newNote("d", "Undated")
	d.CreatedAt = time.Time{}
	return []note{a, b, c, d}
}

func TestApplyFilter_Predicates(t *testing.T) {
	tests := []struct {
		name   string
		filter *Filter
		want   []string
	}{
		{name: "nil filter", filter: nil, want: []string{"a", "b", "c", "d"}},
		{name: "empty filter", filter: &Filter{}, want: []string{"a", "b", "c", "d"}},
		{name: "date from", filter: &Filter{DateFrom: "2024-02-01"}, want: []string{"b", "c", "d"}},
		{name: "date to inclusive", filter: &Filter{DateTo: "2024-02-20"}, want: []string{"a", "b", "d"}},
		{name: "date range falls back to created_at", filter: &Filter{DateFrom: "2024-03-05", DateTo: "2024-03-05"}, want: []string{"c", "d"}},
		{name: "tags are ORed", filter: &Filter{Tags: []string{"life", "lang"}}, want: []string{"a", "b"}},
		{name: "tag without matches", filter: &Filter{Tags: []string{"absent"}}, want: []string{}},
		{name: "content search in title", filter: &Filter{ContentSearch: "COFFEE"}, want: []string{"b"}},
		{name: "content search in content", filter: &Filter{ContentSearch: "range over"}, want: []string{"c"}},
		{name: "source is case sensitive", filter: &Filter{Source: "Claude-Code"}, want: []string{}},
		{name: "source", filter: &Filter{Source: "claude-code"}, want: []string{"a", "c"}},
		{name: "predicates combine with AND", filter: &Filter{Tags: []string{"go"}, DateTo: "2024-02-01"}, want: []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyFilter(filterFixture(), tt.filter, MissingAttributePolicy)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestApplyFilter_Pagination(t *testing.T) {
	tests := []struct {
		name   string
		filter *Filter
		want   []string
	}{
		{name: "offset", filter: &Filter{Offset: IntPtr(1)}, want: []string{"b", "c", "d"}},
		{name: "limit", filter: &Filter{Limit: IntPtr(2)}, want: []string{"a", "b"}},
		{name: "offset then limit", filter: &Filter{Offset: IntPtr(1), Limit: IntPtr(2)}, want: []string{"b", "c"}},
		{name: "offset past end", filter: &Filter{Offset: IntPtr(10)}, want: []string{}},
		{name: "limit zero", filter: &Filter{Limit: IntPtr(0)}, want: []string{}},
		{name: "limit larger than result", filter: &Filter{Limit: IntPtr(10)}, want: []string{"a", "b", "c", "d"}},
		{name: "negative values are ignored", filter: &Filter{Offset: IntPtr(-1), Limit: IntPtr(-5)}, want: []string{"a", "b", "c", "d"}},
		{name: "paging applies after predicates", filter: &Filter{Tags: []string{"go"}, Offset: IntPtr(1)}, want: []string{"c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyFilter(filterFixture(), tt.filter, MissingAttributePolicy)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestApplyFilter_MissingAttributePolicy(t *testing.T) {
	counters := []counter{{ID: "c1", Count: 1}, {ID: "c2", Count: 2}}
	filter := &Filter{
		Tags:          []string{"x"},
		ContentSearch: "anything",
		Source:        "manual",
		DateFrom:      "2024-01-01",
	}

	assert.Equal(t, PassMissing, MissingAttributePolicy)
	assert.Len(t, ApplyFilter(counters, filter, PassMissing), 2)
	assert.Empty(t, ApplyFilter(counters, filter, ExcludeMissing))

	// an undated note is excluded only under ExcludeMissing
	got := ApplyFilter(filterFixture(), &Filter{DateFrom: "2000-01-01"}, ExcludeMissing)
	assert.Equal(t, []string{"a", "b", "c"}, ids(got))
}

func TestApplyFilter_DoesNotModifyInput(t *testing.T) {
	input := filterFixture()
	ApplyFilter(input, &Filter{Tags: []string{"go"}, Limit: IntPtr(1)}, MissingAttributePolicy)
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(input))
}

func TestAttributePolicy_String(t *testing.T) {
	assert.Equal(t, "pass_missing", PassMissing.String())
	assert.Equal(t, "exclude_missing", ExcludeMissing.String())
}
