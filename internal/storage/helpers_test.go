package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JamesPrial/mcp-fleet/pkg/logging"
)

// note exposes every filterable attribute.
type note struct {
	ID        string    `json:"id" validate:"required"`
	Title     string    `json:"title" validate:"required"`
	Content   string    `json:"content,omitempty"`
	Source    string    `json:"source,omitempty"`
	Tags      []string  `json:"tags"`
	DateSlug  string    `json:"date_slug,omitempty"`
	Meta      *noteMeta `json:"meta,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type noteMeta struct {
	Author   string `json:"author,omitempty"`
	Revision int    `json:"revision,omitempty"`
}

func (n note) EntityID() string     { return n.ID }
func (n note) TagList() []string    { return n.Tags }
func (n note) SearchText() []string { return []string{n.Title, n.Content} }
func (n note) SourceName() string   { return n.Source }

func (n note) DateKey() string {
	if n.DateSlug != "" {
		return n.DateSlug
	}
	if n.CreatedAt.IsZero() {
		return ""
	}
	return n.CreatedAt.Format("2006-01-02")
}

func (n *note) SetDefaults(now time.Time) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = n.CreatedAt
	}
	if n.Tags == nil {
		n.Tags = []string{}
	}
}

// counter exposes no filterable attributes.
type counter struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
}

func (c counter) EntityID() string { return c.ID }

var testTime = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

func newNote(id, title string, tags ...string) note {
	if tags == nil {
		tags = []string{}
	}
	return note{
		ID:        id,
		Title:     title,
		Tags:      tags,
		CreatedAt: testTime,
		UpdatedAt: testTime,
	}
}

// backendCase builds a fresh, empty backend for the shared contract tests.
type backendCase struct {
	name string
	open func(t *testing.T, opts ...BackendOption) Backend[note]
}

func backendCases() []backendCase {
	return []backendCase{
		{
			name: BackendJSONFile,
			open: func(t *testing.T, opts ...BackendOption) Backend[note] {
				b, err := NewJSONFileBackend[note](t.TempDir(), opts...)
				require.NoError(t, err)
				return b
			},
		},
		{
			name: BackendMemory,
			open: func(t *testing.T, opts ...BackendOption) Backend[note] {
				return NewMemoryBackend[note](opts...)
			},
		},
		{
			name: BackendSqlite,
			open: func(t *testing.T, opts ...BackendOption) Backend[note] {
				b, err := NewSqliteBackend[note](filepath.Join(t.TempDir(), "notes.db"), "notes", true, opts...)
				require.NoError(t, err)
				t.Cleanup(func() { b.Close() })
				return b
			},
		},
	}
}

func quietLogger() BackendOption {
	return WithLogger(logging.NewTestLogger().GetLogger())
}

func seed(t *testing.T, b Backend[note], notes ...note) {
	t.Helper()
	for _, n := range notes {
		_, err := b.Create(context.Background(), n)
		require.NoError(t, err)
	}
}

func ids(notes []note) []string {
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.ID
	}
	return out
}

// writeRaw stores data under id, bypassing encoding and validation.
func writeRaw(t *testing.T, b Backend[note], id string, data []byte) {
	t.Helper()
	switch backend := b.(type) {
	case *JSONFileBackend[note]:
		require.NoError(t, os.WriteFile(filepath.Join(backend.Dir(), id+recordExt), data, 0o644))
	case *MemoryBackend[note]:
		backend.mu.Lock()
		backend.records[id] = data
		backend.mu.Unlock()
	case *SqliteBackend[note]:
		_, err := backend.db.Exec(`INSERT INTO `+backend.table+` (id, data) VALUES (?, ?)`, id, string(data))
		require.NoError(t, err)
	default:
		t.Fatalf("writeRaw: unsupported backend %T", b)
	}
}
