package tides

import (
	"time"
)

// Flow types
const (
	FlowDaily    = "daily"
	FlowWeekly   = "weekly"
	FlowProject  = "project"
	FlowSeasonal = "seasonal"
)

// Tide statuses
const (
	StatusActive    = "active"
	StatusPaused    = "paused"
	StatusCompleted = "completed"
)

// Flow intensities
const (
	IntensityGentle   = "gentle"
	IntensityModerate = "moderate"
	IntensityStrong   = "strong"
)

// FlowEntry records one flow session.
type FlowEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Intensity string    `json:"intensity"`
	Duration  int       `json:"duration"`
}

// Tide is a recurring workflow with a rhythm.
type Tide struct {
	ID          string      `json:"id" validate:"required"`
	Name        string      `json:"name" validate:"required"`
	FlowType    string      `json:"flow_type" validate:"oneof=daily weekly project seasonal"`
	Description string      `json:"description,omitempty"`
	Status      string      `json:"status" validate:"oneof=active paused completed"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	LastFlow    *time.Time  `json:"last_flow,omitempty"`
	NextFlow    *time.Time  `json:"next_flow,omitempty"`
	FlowHistory []FlowEntry `json:"flow_history"`
}

func (t Tide) EntityID() string     { return t.ID }
func (t Tide) SearchText() []string { return []string{t.Name, t.Description} }

func (t Tide) DateKey() string {
	if t.CreatedAt.IsZero() {
		return ""
	}
	return t.CreatedAt.UTC().Format("2006-01-02")
}

// SetDefaults marks a new tide active and schedules its first flow.
func (t *Tide) SetDefaults(now time.Time) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
	if t.Status == "" {
		t.Status = StatusActive
	}
	if t.FlowHistory == nil {
		t.FlowHistory = []FlowEntry{}
	}
	if t.NextFlow == nil {
		next := NextFlowAfter(t.FlowType, t.CreatedAt)
		t.NextFlow = &next
	}
}

// NextFlowAfter returns when a tide of flowType is next due after from.
func NextFlowAfter(flowType string, from time.Time) time.Time {
	switch flowType {
	case FlowWeekly:
		return from.AddDate(0, 0, 7)
	case FlowProject:
		return from.AddDate(0, 0, 3)
	case FlowSeasonal:
		return from.AddDate(0, 0, 90)
	default:
		return from.AddDate(0, 0, 1)
	}
}

// Summary is the listing view of a tide.
type Summary struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	FlowType  string     `json:"flow_type"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	LastFlow  *time.Time `json:"last_flow,omitempty"`
	NextFlow  *time.Time `json:"next_flow,omitempty"`
}

// Summarize builds the listing view.
func (t Tide) Summarize() Summary {
	return Summary{
		ID:        t.ID,
		Name:      t.Name,
		FlowType:  t.FlowType,
		Status:    t.Status,
		CreatedAt: t.CreatedAt,
		LastFlow:  t.LastFlow,
		NextFlow:  t.NextFlow,
	}
}
