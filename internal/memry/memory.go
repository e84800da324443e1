package memry

import (
	"time"

	"github.com/JamesPrial/mcp-fleet/internal/storage"
)

// DefaultSource is recorded when a memory is created without a source
const DefaultSource = "claude-code"

// Memory is a stored note with markdown content.
type Memory struct {
	ID        string    `json:"id" validate:"required"`
	Title     string    `json:"title" validate:"required"`
	Content   string    `json:"content"`
	Source    string    `json:"source" validate:"required"`
	Tags      []string  `json:"tags"`
	TopicSlug string    `json:"topic_slug,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (m Memory) EntityID() string     { return m.ID }
func (m Memory) DateKey() string      { return m.DateSlug() }
func (m Memory) TagList() []string    { return m.Tags }
func (m Memory) SearchText() []string { return []string{m.Title, m.Content} }
func (m Memory) SourceName() string   { return m.Source }

// SetDefaults fills timestamps, tags and source on creation.
func (m *Memory) SetDefaults(now time.Time) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = m.CreatedAt
	}
	if m.Tags == nil {
		m.Tags = []string{}
	}
	if m.Source == "" {
		m.Source = DefaultSource
	}
}

// DateSlug is the creation date as YYYY-MM-DD.
func (m Memory) DateSlug() string {
	if m.CreatedAt.IsZero() {
		return ""
	}
	return m.CreatedAt.UTC().Format("2006-01-02")
}

// Topic returns the explicit topic slug, else one derived from the title.
func (m Memory) Topic() string {
	if m.TopicSlug != "" {
		return m.TopicSlug
	}
	return storage.Slugify(m.Title)
}

// Filename is the human-facing name, YYYY-MM-DD-topic-slug.md.
func (m Memory) Filename() string {
	return storage.SafeFilename(m.DateSlug() + "-" + m.Topic() + ".md")
}

// Summary is the listing view of a memory.
type Summary struct {
	ID             string   `json:"id"`
	Filename       string   `json:"filename"`
	Title          string   `json:"title"`
	Date           string   `json:"date"`
	Source         string   `json:"source"`
	Tags           []string `json:"tags"`
	ContentPreview string   `json:"content_preview"`
}

const previewLength = 200

// Summarize builds the listing view, truncating content to a preview.
func (m Memory) Summarize() Summary {
	preview := m.Content
	if runes := []rune(preview); len(runes) > previewLength {
		preview = string(runes[:previewLength]) + "..."
	}
	return Summary{
		ID:             m.ID,
		Filename:       m.Filename(),
		Title:          m.Title,
		Date:           m.DateSlug(),
		Source:         m.Source,
		Tags:           m.Tags,
		ContentPreview: preview,
	}
}
