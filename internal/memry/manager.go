package memry

import (
	"context"
	"log/slog"
	"sort"

	"github.com/JamesPrial/mcp-fleet/internal/storage"
	"github.com/JamesPrial/mcp-fleet/pkg/errors"
	"github.com/JamesPrial/mcp-fleet/pkg/logging"
	"github.com/JamesPrial/mcp-fleet/pkg/mcp"
)

// ServerName identifies the memry server
const ServerName = "memry"

// Manager serves the memry tools over an injected memory store
type Manager struct {
	store  *storage.EntityStorage[Memory]
	logger *slog.Logger
}

// NewManager creates a Manager backed by store
func NewManager(store *storage.EntityStorage[Memory]) *Manager {
	return &Manager{
		store:  store,
		logger: logging.GetGlobalLogger("memry"),
	}
}

func (m *Manager) Name() string {
	return ServerName
}

// CreateMemoryArgs are the arguments of create_memory
type CreateMemoryArgs struct {
	Title     string   `mapstructure:"title" json:"title" validate:"required"`
	Content   string   `mapstructure:"content" json:"content" validate:"required"`
	Source    string   `mapstructure:"source" json:"source,omitempty"`
	Tags      []string `mapstructure:"tags" json:"tags,omitempty"`
	TopicSlug string   `mapstructure:"topic_slug" json:"topic_slug,omitempty"`
}

// SearchMemoriesArgs are the arguments of search_memories
type SearchMemoriesArgs struct {
	DateFrom      string   `mapstructure:"date_from" validate:"omitempty,datetime=2006-01-02"`
	DateTo        string   `mapstructure:"date_to" validate:"omitempty,datetime=2006-01-02"`
	Tags          []string `mapstructure:"tags"`
	ContentSearch string   `mapstructure:"content_search"`
	Source        string   `mapstructure:"source"`
	Limit         *int     `mapstructure:"limit" validate:"omitempty,min=0"`
	Offset        *int     `mapstructure:"offset" validate:"omitempty,min=0"`
}

// MemoryIDArgs carry a single memory id
type MemoryIDArgs struct {
	ID string `mapstructure:"id" validate:"required"`
}

// UpdateMemoryArgs are the arguments of update_memory. Nil fields are left unchanged.
type UpdateMemoryArgs struct {
	ID      string    `mapstructure:"id" validate:"required"`
	Title   *string   `mapstructure:"title" validate:"omitempty,min=1"`
	Content *string   `mapstructure:"content"`
	Source  *string   `mapstructure:"source" validate:"omitempty,min=1"`
	Tags    *[]string `mapstructure:"tags"`
}

// CreateMemoryResult is returned by create_memory
type CreateMemoryResult struct {
	Success  bool     `json:"success"`
	ID       string   `json:"id"`
	Filename string   `json:"filename"`
	Title    string   `json:"title"`
	Date     string   `json:"date"`
	Tags     []string `json:"tags"`
}

// SearchResult is returned by search_memories and list_all_memories
type SearchResult struct {
	Success    bool      `json:"success"`
	TotalFound int       `json:"total_found"`
	Memories   []Summary `json:"memories"`
}

// StatsResult is returned by get_memory_stats
type StatsResult struct {
	Success        bool           `json:"success"`
	TotalMemories  int            `json:"total_memories"`
	Sources        map[string]int `json:"sources"`
	Tags           map[string]int `json:"tags"`
	Dates          map[string]int `json:"dates"`
	StorageBackend string         `json:"storage_backend"`
}

// DeleteResult is returned by delete_memory
type DeleteResult struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

var (
	stringArray = map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}}
	emptySchema = mcp.ObjectSchema(map[string]interface{}{})
	idSchema    = mcp.ObjectSchema(map[string]interface{}{
		"id": map[string]interface{}{"type": "string", "description": "Memory ID"},
	}, "id")
)

// HandleListTools returns the memry tools
func (m *Manager) HandleListTools() []mcp.Tool {
	return []mcp.Tool{
		{
			Name:        "create_memory",
			Description: "Create a memory with markdown content, a source and tags",
			InputSchema: mcp.ObjectSchema(map[string]interface{}{
				"title":      map[string]interface{}{"type": "string", "description": "Title of the memory"},
				"content":    map[string]interface{}{"type": "string", "description": "Content of the memory"},
				"source":     map[string]interface{}{"type": "string", "description": "Source of the memory (claude-desktop, claude-code, etc.)", "default": DefaultSource},
				"tags":       stringArray,
				"topic_slug": map[string]interface{}{"type": "string", "description": "Optional topic slug for the filename"},
			}, "title", "content"),
		},
		{
			Name:        "search_memories",
			Description: "Search memories by date range, tags, source or content",
			InputSchema: mcp.ObjectSchema(map[string]interface{}{
				"date_from":      map[string]interface{}{"type": "string", "description": "Start date (YYYY-MM-DD)"},
				"date_to":        map[string]interface{}{"type": "string", "description": "End date (YYYY-MM-DD)"},
				"tags":           stringArray,
				"content_search": map[string]interface{}{"type": "string", "description": "Text to search for in titles and content"},
				"source":         map[string]interface{}{"type": "string", "description": "Filter by source"},
				"limit":          map[string]interface{}{"type": "integer", "minimum": 0},
				"offset":         map[string]interface{}{"type": "integer", "minimum": 0},
			}),
		},
		{
			Name:        "list_all_memories",
			Description: "List all stored memories",
			InputSchema: emptySchema,
		},
		{
			Name:        "get_memory_stats",
			Description: "Get statistics about stored memories",
			InputSchema: emptySchema,
		},
		{
			Name:        "get_memory",
			Description: "Get a memory by ID",
			InputSchema: idSchema,
		},
		{
			Name:        "update_memory",
			Description: "Update the title, content, source or tags of a memory",
			InputSchema: mcp.ObjectSchema(map[string]interface{}{
				"id":      map[string]interface{}{"type": "string", "description": "Memory ID"},
				"title":   map[string]interface{}{"type": "string"},
				"content": map[string]interface{}{"type": "string"},
				"source":  map[string]interface{}{"type": "string"},
				"tags":    stringArray,
			}, "id"),
		},
		{
			Name:        "delete_memory",
			Description: "Delete a memory by ID",
			InputSchema: idSchema,
		},
	}
}

// HandleCallTool dispatches a memry tool call
func (m *Manager) HandleCallTool(ctx context.Context, toolName string, args map[string]interface{}) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Canceled(err)
	}

	switch toolName {
	case "create_memory":
		return m.handleCreateMemory(ctx, args)
	case "search_memories":
		return m.handleSearchMemories(ctx, args)
	case "list_all_memories":
		return m.handleSearchMemories(ctx, nil)
	case "get_memory_stats":
		return m.handleGetStats(ctx)
	case "get_memory":
		return m.handleGetMemory(ctx, args)
	case "update_memory":
		return m.handleUpdateMemory(ctx, args)
	case "delete_memory":
		return m.handleDeleteMemory(ctx, args)
	default:
		return nil, errors.Newf(errors.ErrCodeTransportMethodNotFound, "unknown tool: %s", toolName)
	}
}

func (m *Manager) handleCreateMemory(ctx context.Context, args map[string]interface{}) (*CreateMemoryResult, error) {
	var in CreateMemoryArgs
	if err := mcp.DecodeArguments(args, &in); err != nil {
		return nil, err
	}

	memory, err := m.store.Create(ctx, in)
	if err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "Memory created",
		slog.String("memory_id", memory.ID),
		slog.String("source", memory.Source),
		slog.Int("tags", len(memory.Tags)),
	)
	return &CreateMemoryResult{
		Success:  true,
		ID:       memory.ID,
		Filename: memory.Filename(),
		Title:    memory.Title,
		Date:     memory.DateSlug(),
		Tags:     memory.Tags,
	}, nil
}

func (m *Manager) handleSearchMemories(ctx context.Context, args map[string]interface{}) (*SearchResult, error) {
	var in SearchMemoriesArgs
	if err := mcp.DecodeArguments(args, &in); err != nil {
		return nil, err
	}

	// Paging happens after sorting, so the store only evaluates predicates.
	memories, err := m.store.List(ctx, &storage.Filter{
		DateFrom:      in.DateFrom,
		DateTo:        in.DateTo,
		Tags:          in.Tags,
		ContentSearch: in.ContentSearch,
		Source:        in.Source,
	})
	if err != nil {
		return nil, err
	}

	sortNewestFirst(memories)
	memories = storage.ApplyFilter(memories, &storage.Filter{Limit: in.Limit, Offset: in.Offset}, storage.MissingAttributePolicy)

	summaries := make([]Summary, 0, len(memories))
	for _, memory := range memories {
		summaries = append(summaries, memory.Summarize())
	}

	m.logger.DebugContext(ctx, "Memories listed", slog.Int("count", len(summaries)))
	return &SearchResult{
		Success:    true,
		TotalFound: len(summaries),
		Memories:   summaries,
	}, nil
}

func sortNewestFirst(memories []Memory) {
	sort.SliceStable(memories, func(i, j int) bool {
		if !memories[i].CreatedAt.Equal(memories[j].CreatedAt) {
			return memories[i].CreatedAt.After(memories[j].CreatedAt)
		}
		return memories[i].ID > memories[j].ID
	})
}

func (m *Manager) handleGetStats(ctx context.Context) (*StatsResult, error) {
	memories, err := m.store.List(ctx, nil)
	if err != nil {
		return nil, err
	}

	result := &StatsResult{
		Success:        true,
		TotalMemories:  len(memories),
		Sources:        make(map[string]int),
		Tags:           make(map[string]int),
		Dates:          make(map[string]int),
		StorageBackend: m.store.Backend().Name(),
	}
	for _, memory := range memories {
		result.Sources[memory.Source]++
		for _, tag := range memory.Tags {
			result.Tags[tag]++
		}
		result.Dates[memory.DateSlug()]++
	}
	return result, nil
}

func (m *Manager) handleGetMemory(ctx context.Context, args map[string]interface{}) (*Memory, error) {
	var in MemoryIDArgs
	if err := mcp.DecodeArguments(args, &in); err != nil {
		return nil, err
	}

	memory, err := m.store.Get(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	if memory == nil {
		return nil, errors.NotFound("Memory '" + in.ID + "'")
	}
	return memory, nil
}

func (m *Manager) handleUpdateMemory(ctx context.Context, args map[string]interface{}) (*Memory, error) {
	var in UpdateMemoryArgs
	if err := mcp.DecodeArguments(args, &in); err != nil {
		return nil, err
	}

	patch := make(map[string]interface{})
	if in.Title != nil {
		patch["title"] = *in.Title
	}
	if in.Content != nil {
		patch["content"] = *in.Content
	}
	if in.Source != nil {
		patch["source"] = *in.Source
	}
	if in.Tags != nil {
		patch["tags"] = *in.Tags
	}
	if len(patch) == 0 {
		return nil, errors.New(errors.ErrCodeValidationRequired, "at least one of title, content, source or tags is required")
	}

	memory, err := m.store.Update(ctx, in.ID, patch)
	if err != nil {
		return nil, err
	}
	if memory == nil {
		return nil, errors.NotFound("Memory '" + in.ID + "'")
	}

	m.logger.InfoContext(ctx, "Memory updated", slog.String("memory_id", in.ID))
	return memory, nil
}

func (m *Manager) handleDeleteMemory(ctx context.Context, args map[string]interface{}) (*DeleteResult, error) {
	var in MemoryIDArgs
	if err := mcp.DecodeArguments(args, &in); err != nil {
		return nil, err
	}

	deleted, err := m.store.Delete(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	if deleted {
		m.logger.InfoContext(ctx, "Memory deleted", slog.String("memory_id", in.ID))
	}
	return &DeleteResult{Success: true, ID: in.ID, Deleted: deleted}, nil
}
