// Package types defines core data structures for the maxd agent market.
package types

import (
	"fmt"
	"time"
)

// Sector represents a market sector tracked by the simulator.
type Sector struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Symbol        string        `json:"symbol"`
	CreatedAt     time.Time     `json:"createdAt"`
	CurrentPrice  float64       `json:"currentPrice"`
	Change        float64       `json:"change"`
	ChangePercent float64       `json:"changePercent"`
	Volume        int           `json:"volume"`
	CandleData    []CandlePoint `json:"candleData,omitempty"`
}

// CandlePoint is a single point on a sector price chart.
type CandlePoint struct {
	Time  string  `json:"time"` // "HH:MM"
	Value float64 `json:"value"`
}

// AgentPersonality holds the behavioral traits assigned to an agent.
type AgentPersonality struct {
	RiskTolerance      string `json:"riskTolerance,omitempty"`
	DecisionStyle      string `json:"decisionStyle,omitempty"`
	CommunicationStyle string `json:"communicationStyle,omitempty"`
}

// AgentStatus represents the current activity state of an agent.
type AgentStatus string

// Agent status constants
const (
	AgentActive     AgentStatus = "active"
	AgentIdle       AgentStatus = "idle"
	AgentProcessing AgentStatus = "processing"
	AgentOffline    AgentStatus = "offline"
)

// IsValid checks if the agent status value is valid
func (s AgentStatus) IsValid() bool {
	switch s {
	case AgentActive, AgentIdle, AgentProcessing, AgentOffline:
		return true
	}
	return false
}

// Agent represents a market participant bound to a sector.
type Agent struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Role        string           `json:"role"`
	Status      AgentStatus      `json:"status"`
	Performance float64          `json:"performance"`
	Trades      int              `json:"trades"`
	SectorID    string           `json:"sectorId"`
	Personality AgentPersonality `json:"personality"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// Validate checks if the agent has valid field values
func (a *Agent) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("agent id is required")
	}
	if a.Name == "" {
		return fmt.Errorf("agent name is required")
	}
	if a.SectorID == "" {
		return fmt.Errorf("agent must belong to a sector")
	}
	if !a.Status.IsValid() {
		return fmt.Errorf("invalid agent status: %s", a.Status)
	}
	return nil
}

// Message is a single utterance inside a discussion, in chronological order.
type Message struct {
	ID           string    `json:"id"`
	DiscussionID string    `json:"discussionId"`
	AgentID      string    `json:"agentId,omitempty"`
	AgentName    string    `json:"agentName"`
	Content      string    `json:"content"`
	Timestamp    time.Time `json:"timestamp"`
}

// Discussion is a lifecycle-tracked deliberation room tied to a sector.
// Checklist holds finalized proposed actions; ChecklistDraft holds items the
// manager has drafted but not yet finalized. DecidedAt and ClosedAt are set
// the first time the respective status is reached and never overwritten.
type Discussion struct {
	ID             string          `json:"id"`
	SectorID       string          `json:"sectorId"`
	Title          string          `json:"title"`
	Status         Status          `json:"status"`
	AgentIDs       []string        `json:"agentIds,omitempty"`
	Messages       []Message       `json:"messages,omitempty"`
	Checklist      []ChecklistItem `json:"checklist,omitempty"`
	ChecklistDraft []ChecklistItem `json:"checklistDraft,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
	DecidedAt      *time.Time      `json:"decidedAt,omitempty"`
	ClosedAt       *time.Time      `json:"closedAt,omitempty"`
}

// HasChecklistItems reports whether the discussion owns at least one
// checklist item, draft or finalized. A discussion cannot be decided
// without an actionable artifact.
func (d *Discussion) HasChecklistItems() bool {
	return len(d.Checklist) > 0 || len(d.ChecklistDraft) > 0
}

// AllChecklistItems returns pointers to every item, finalized first.
// Mutations through the returned pointers are visible on the discussion.
func (d *Discussion) AllChecklistItems() []*ChecklistItem {
	items := make([]*ChecklistItem, 0, len(d.Checklist)+len(d.ChecklistDraft))
	for i := range d.Checklist {
		items = append(items, &d.Checklist[i])
	}
	for i := range d.ChecklistDraft {
		items = append(items, &d.ChecklistDraft[i])
	}
	return items
}

// FindChecklistItem locates an item by ID across both lists.
// Returns nil if no item matches.
func (d *Discussion) FindChecklistItem(itemID string) *ChecklistItem {
	for _, item := range d.AllChecklistItems() {
		if item.ID == itemID {
			return item
		}
	}
	return nil
}

// Validate checks if the discussion has valid field values
func (d *Discussion) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("discussion id is required")
	}
	if d.SectorID == "" {
		return fmt.Errorf("discussion must belong to a sector")
	}
	if d.Title == "" {
		return fmt.Errorf("discussion title is required")
	}
	normalized, err := NormalizeStatus(string(d.Status))
	if err != nil {
		return err
	}
	if normalized == StatusDecided && !d.HasChecklistItems() {
		return fmt.Errorf("decided discussions must have at least one checklist item")
	}
	return nil
}

// RejectionReason records why and how a checklist item was rejected.
type RejectionReason struct {
	Reason             string    `json:"reason"`
	TimePendingSeconds float64   `json:"timePendingSeconds,omitempty"`
	ResolutionMethod   string    `json:"resolutionMethod,omitempty"`
	RejectedAt         time.Time `json:"rejectedAt"`
}

// ChecklistItem is a single proposed action awaiting approval within a
// discussion. Evaluation carries opaque voting/confidence metadata owned by
// the decision-evaluation subsystem; this core only persists it.
type ChecklistItem struct {
	ID              string           `json:"id"`
	Title           string           `json:"title,omitempty"`
	Status          ChecklistStatus  `json:"status,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
	Evaluation      map[string]any   `json:"evaluation,omitempty"`
	CanRevise       *bool            `json:"canRevise,omitempty"`
	RejectionReason *RejectionReason `json:"rejectionReason,omitempty"`
}

// LastTouched returns the later of CreatedAt and UpdatedAt. Pending age is
// measured from this instant.
func (c *ChecklistItem) LastTouched() time.Time {
	if c.UpdatedAt.After(c.CreatedAt) {
		return c.UpdatedAt
	}
	return c.CreatedAt
}

// ChecklistStatus represents the approval state of a checklist item.
type ChecklistStatus string

// Checklist item status constants. ChecklistRejectedFinal is terminal:
// the item can never be resubmitted.
const (
	ChecklistPending        ChecklistStatus = "pending"
	ChecklistApproved       ChecklistStatus = "approved"
	ChecklistRejected       ChecklistStatus = "rejected"
	ChecklistReviseRequired ChecklistStatus = "revise_required"
	ChecklistRejectedFinal  ChecklistStatus = "rejected_final"
	ChecklistResubmitted    ChecklistStatus = "resubmitted"
)

// IsValid checks if the checklist status value is valid. The empty string is
// accepted and treated as pending (items created before status stamping).
func (s ChecklistStatus) IsValid() bool {
	switch s {
	case "", ChecklistPending, ChecklistApproved, ChecklistRejected,
		ChecklistReviseRequired, ChecklistRejectedFinal, ChecklistResubmitted:
		return true
	}
	return false
}

// IsPending reports whether the item still awaits evaluation. Empty and
// resubmitted statuses count as pending.
func (s ChecklistStatus) IsPending() bool {
	switch s {
	case "", ChecklistPending, ChecklistResubmitted:
		return true
	}
	return false
}

// IsTerminal reports whether the status permits no further evaluation.
func (s ChecklistStatus) IsTerminal() bool {
	return s == ChecklistRejectedFinal
}
