package tides

import (
	"context"
	"log/slog"
	"time"

	"github.com/JamesPrial/mcp-fleet/internal/storage"
	"github.com/JamesPrial/mcp-fleet/pkg/errors"
	"github.com/JamesPrial/mcp-fleet/pkg/logging"
	"github.com/JamesPrial/mcp-fleet/pkg/mcp"
)

// ServerName identifies the tides server
const ServerName = "tides"

// DefaultFlowDuration is the flow length in minutes when none is given
const DefaultFlowDuration = 25

var flowGuidance = map[string]string{
	IntensityGentle:   "🌊 Begin with calm, steady focus. Let thoughts flow naturally without forcing. Take breaks as needed.",
	IntensityModerate: "🌊 Maintain focused attention with deliberate action. Balance effort with ease. Stay present to the work.",
	IntensityStrong:   "🌊 Dive deep with sustained concentration. Channel energy into meaningful progress. Push through resistance mindfully.",
}

var nextActions = []string{
	"🎯 Set clear intention for this flow session",
	"⏰ Start timer and begin focused work",
	"🧘 Take mindful breaks if needed",
	"📝 Capture insights and progress",
	"🌊 Honor the natural rhythm of the work",
}

// Manager serves the tides tools over an injected tide store
type Manager struct {
	store  *storage.EntityStorage[Tide]
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Manager
type Option func(*Manager)

// WithClock replaces the clock used to stamp flows
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a Manager backed by store
func NewManager(store *storage.EntityStorage[Tide], opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		logger: logging.GetGlobalLogger("tides"),
		now:    storage.CurrentTimestamp,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Name() string {
	return ServerName
}

// CreateTideArgs are the arguments of create_tide
type CreateTideArgs struct {
	Name        string `mapstructure:"name" json:"name" validate:"required"`
	FlowType    string `mapstructure:"flow_type" json:"flow_type" validate:"required,oneof=daily weekly project seasonal"`
	Description string `mapstructure:"description" json:"description,omitempty"`
}

// ListTidesArgs are the arguments of list_tides
type ListTidesArgs struct {
	FlowType   string `mapstructure:"flow_type" validate:"omitempty,oneof=daily weekly project seasonal"`
	ActiveOnly bool   `mapstructure:"active_only"`
}

// FlowTideArgs are the arguments of flow_tide
type FlowTideArgs struct {
	TideID    string `mapstructure:"tide_id" validate:"required"`
	Intensity string `mapstructure:"intensity" validate:"omitempty,oneof=gentle moderate strong"`
	Duration  int    `mapstructure:"duration" validate:"omitempty,min=1,max=480"`
}

// CreateTideResult is returned by create_tide
type CreateTideResult struct {
	Success   bool       `json:"success"`
	TideID    string     `json:"tide_id"`
	Name      string     `json:"name"`
	FlowType  string     `json:"flow_type"`
	CreatedAt time.Time  `json:"created_at"`
	NextFlow  *time.Time `json:"next_flow,omitempty"`
}

// ListTidesResult is returned by list_tides
type ListTidesResult struct {
	Tides []Summary `json:"tides"`
	Total int       `json:"total"`
}

// FlowTideResult is returned by flow_tide
type FlowTideResult struct {
	Success             bool      `json:"success"`
	TideID              string    `json:"tide_id"`
	FlowStarted         time.Time `json:"flow_started"`
	EstimatedCompletion time.Time `json:"estimated_completion"`
	FlowGuidance        string    `json:"flow_guidance"`
	NextActions         []string  `json:"next_actions"`
}

var flowTypeSchema = map[string]interface{}{
	"type": "string",
	"enum": []string{FlowDaily, FlowWeekly, FlowProject, FlowSeasonal},
}

// HandleListTools returns the tides tools
func (m *Manager) HandleListTools() []mcp.Tool {
	return []mcp.Tool{
		{
			Name:        "create_tide",
			Description: "Create a new tidal workflow for rhythmic productivity",
			InputSchema: mcp.ObjectSchema(map[string]interface{}{
				"name":        map[string]interface{}{"type": "string", "description": "Name of the tidal workflow"},
				"flow_type":   flowTypeSchema,
				"description": map[string]interface{}{"type": "string", "description": "Description of the workflow"},
			}, "name", "flow_type"),
		},
		{
			Name:        "list_tides",
			Description: "List all tidal workflows with their current status",
			InputSchema: mcp.ObjectSchema(map[string]interface{}{
				"flow_type":   flowTypeSchema,
				"active_only": map[string]interface{}{"type": "boolean", "description": "Show only active tides"},
			}),
		},
		{
			Name:        "flow_tide",
			Description: "Start a flow session for a specific tidal workflow",
			InputSchema: mcp.ObjectSchema(map[string]interface{}{
				"tide_id": map[string]interface{}{"type": "string", "description": "ID of the tide to flow"},
				"intensity": map[string]interface{}{
					"type":    "string",
					"enum":    []string{IntensityGentle, IntensityModerate, IntensityStrong},
					"default": IntensityModerate,
				},
				"duration": map[string]interface{}{"type": "integer", "description": "Flow duration in minutes", "default": DefaultFlowDuration},
			}, "tide_id"),
		},
	}
}

// HandleCallTool dispatches a tides tool call
func (m *Manager) HandleCallTool(ctx context.Context, toolName string, args map[string]interface{}) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Canceled(err)
	}

	switch toolName {
	case "create_tide":
		return m.handleCreateTide(ctx, args)
	case "list_tides":
		return m.handleListTides(ctx, args)
	case "flow_tide":
		return m.handleFlowTide(ctx, args)
	default:
		return nil, errors.Newf(errors.ErrCodeTransportMethodNotFound, "unknown tool: %s", toolName)
	}
}

func (m *Manager) handleCreateTide(ctx context.Context, args map[string]interface{}) (*CreateTideResult, error) {
	var in CreateTideArgs
	if err := mcp.DecodeArguments(args, &in); err != nil {
		return nil, err
	}

	tide, err := m.store.Create(ctx, in)
	if err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "Tide created",
		slog.String("tide_id", tide.ID),
		slog.String("flow_type", tide.FlowType),
	)
	return &CreateTideResult{
		Success:   true,
		TideID:    tide.ID,
		Name:      tide.Name,
		FlowType:  tide.FlowType,
		CreatedAt: tide.CreatedAt,
		NextFlow:  tide.NextFlow,
	}, nil
}

func (m *Manager) handleListTides(ctx context.Context, args map[string]interface{}) (*ListTidesResult, error) {
	var in ListTidesArgs
	if err := mcp.DecodeArguments(args, &in); err != nil {
		return nil, err
	}

	tides, err := m.store.List(ctx, nil)
	if err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, len(tides))
	for _, tide := range tides {
		if in.FlowType != "" && tide.FlowType != in.FlowType {
			continue
		}
		if in.ActiveOnly && tide.Status != StatusActive {
			continue
		}
		summaries = append(summaries, tide.Summarize())
	}
	return &ListTidesResult{Tides: summaries, Total: len(summaries)}, nil
}

func (m *Manager) handleFlowTide(ctx context.Context, args map[string]interface{}) (*FlowTideResult, error) {
	var in FlowTideArgs
	if err := mcp.DecodeArguments(args, &in); err != nil {
		return nil, err
	}
	if in.Intensity == "" {
		in.Intensity = IntensityModerate
	}
	if in.Duration == 0 {
		in.Duration = DefaultFlowDuration
	}

	tide, err := m.store.Get(ctx, in.TideID)
	if err != nil {
		return nil, err
	}
	if tide == nil {
		return nil, errors.NotFound("Tide '" + in.TideID + "'")
	}

	started := m.now()
	history := append(append([]FlowEntry{}, tide.FlowHistory...), FlowEntry{
		Timestamp: started,
		Intensity: in.Intensity,
		Duration:  in.Duration,
	})
	next := NextFlowAfter(tide.FlowType, started)

	if _, err := m.store.Update(ctx, in.TideID, map[string]interface{}{
		"flow_history": history,
		"last_flow":    started,
		"next_flow":    next,
	}); err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "Flow started",
		slog.String("tide_id", in.TideID),
		slog.String("intensity", in.Intensity),
		slog.Int("duration_minutes", in.Duration),
	)
	return &FlowTideResult{
		Success:             true,
		TideID:              in.TideID,
		FlowStarted:         started,
		EstimatedCompletion: started.Add(time.Duration(in.Duration) * time.Minute),
		FlowGuidance:        flowGuidance[in.Intensity],
		NextActions:         append([]string(nil), nextActions...),
	}, nil
}
