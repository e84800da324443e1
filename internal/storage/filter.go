package storage

import "strings"

// AttributePolicy decides how a predicate treats an entity that does not
// expose the attribute the predicate targets.
type AttributePolicy int

const (
	// PassMissing keeps the entity.
	PassMissing AttributePolicy = iota
	// ExcludeMissing drops the entity.
	ExcludeMissing
)

func (p AttributePolicy) String() string {
	if p == ExcludeMissing {
		return "exclude_missing"
	}
	return "pass_missing"
}

// MissingAttributePolicy is the policy backends apply unless configured
// otherwise. It is permissive: heterogeneous entity shapes are never
// filtered out by a predicate they cannot answer.
const MissingAttributePolicy = PassMissing

// Filter selects and pages entities. Zero-valued predicate fields and nil
// paging fields are absent and impose no constraint.
type Filter struct {
	Limit  *int `json:"limit,omitempty" mapstructure:"limit"`
	Offset *int `json:"offset,omitempty" mapstructure:"offset"`

	DateFrom      string   `json:"date_from,omitempty" mapstructure:"date_from"`
	DateTo        string   `json:"date_to,omitempty" mapstructure:"date_to"`
	Tags          []string `json:"tags,omitempty" mapstructure:"tags"`
	ContentSearch string   `json:"content_search,omitempty" mapstructure:"content_search"`
	Source        string   `json:"source,omitempty" mapstructure:"source"`
}

// IntPtr returns a pointer to v, for building paging filters.
func IntPtr(v int) *int {
	return &v
}

func (f *Filter) hasPredicates() bool {
	return f.DateFrom != "" || f.DateTo != "" || len(f.Tags) > 0 || f.ContentSearch != "" || f.Source != ""
}

// ApplyFilter narrows entities by every present predicate, then applies
// offset and limit. The input slice is not modified.
func ApplyFilter[T Entity](entities []T, filter *Filter, policy AttributePolicy) []T {
	if filter == nil {
		return entities
	}

	result := entities
	if filter.hasPredicates() {
		result = make([]T, 0, len(entities))
		for _, entity := range entities {
			if filter.matches(entity, policy) {
				result = append(result, entity)
			}
		}
	}

	return paginate(result, filter.Offset, filter.Limit)
}

func paginate[T any](items []T, offset, limit *int) []T {
	if offset != nil && *offset > 0 {
		if *offset >= len(items) {
			return items[:0]
		}
		items = items[*offset:]
	}
	if limit != nil && *limit >= 0 && *limit < len(items) {
		items = items[:*limit]
	}
	return items
}

func (f *Filter) matches(entity Entity, policy AttributePolicy) bool {
	missing := policy == PassMissing

	if f.DateFrom != "" || f.DateTo != "" {
		dated, ok := entity.(Dated)
		key := ""
		if ok {
			key = dated.DateKey()
		}
		if key == "" {
			if !missing {
				return false
			}
		} else {
			// ISO dates compare correctly as strings
			if f.DateFrom != "" && key < f.DateFrom {
				return false
			}
			if f.DateTo != "" && key > f.DateTo {
				return false
			}
		}
	}

	if len(f.Tags) > 0 {
		if tagged, ok := entity.(Tagged); ok {
			if !intersects(tagged.TagList(), f.Tags) {
				return false
			}
		} else if !missing {
			return false
		}
	}

	if f.ContentSearch != "" {
		if searchable, ok := entity.(Searchable); ok {
			if !containsFold(searchable.SearchText(), f.ContentSearch) {
				return false
			}
		} else if !missing {
			return false
		}
	}

	if f.Source != "" {
		if sourced, ok := entity.(Sourced); ok {
			if sourced.SourceName() != f.Source {
				return false
			}
		} else if !missing {
			return false
		}
	}

	return true
}

func intersects(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

func containsFold(fields []string, term string) bool {
	term = strings.ToLower(term)
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}
