package storage

import "time"

// Entity is any record type with a unique, immutable ID.
type Entity interface {
	EntityID() string
}

// Dated entities expose a YYYY-MM-DD key for date range filters. An empty
// key means the entity has no date.
type Dated interface {
	DateKey() string
}

// Tagged entities expose their tag set for tag filters.
type Tagged interface {
	TagList() []string
}

// Searchable entities expose the text fields (title, content) matched by
// content search.
type Searchable interface {
	SearchText() []string
}

// Sourced entities expose the origin matched by source filters.
type Sourced interface {
	SourceName() string
}

// Defaulter is implemented by entities that fill unset fields before
// their first write.
type Defaulter interface {
	SetDefaults(now time.Time)
}
