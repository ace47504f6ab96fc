package model

import (
	"strings"
	"time"
)

// Priority is the urgency of an action or task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority normalizes s into a Priority. The bool is false for anything
// outside low/medium/high.
func ParsePriority(s string) (Priority, bool) {
	switch Priority(strings.ToLower(strings.TrimSpace(s))) {
	case PriorityLow:
		return PriorityLow, true
	case PriorityMedium:
		return PriorityMedium, true
	case PriorityHigh:
		return PriorityHigh, true
	default:
		return "", false
	}
}

// Valid reports whether p is one of the three known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// TaskType categorizes a suggested task.
type TaskType string

const (
	TaskTypeCall     TaskType = "call"
	TaskTypeEmail    TaskType = "email"
	TaskTypeMeeting  TaskType = "meeting"
	TaskTypeFollowUp TaskType = "follow_up"
	TaskTypeProposal TaskType = "proposal"
	TaskTypeOther    TaskType = "other"
)

// TaskTypes lists every known task type in prompt order.
var TaskTypes = []TaskType{
	TaskTypeCall,
	TaskTypeEmail,
	TaskTypeMeeting,
	TaskTypeFollowUp,
	TaskTypeProposal,
	TaskTypeOther,
}

// ParseTaskType normalizes s into a TaskType. Hyphens and spaces are accepted
// in place of underscores ("follow-up", "follow up").
func ParseTaskType(s string) (TaskType, bool) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	for _, t := range TaskTypes {
		if TaskType(norm) == t {
			return t, true
		}
	}
	if norm == "followup" {
		return TaskTypeFollowUp, true
	}
	return "", false
}

// Source records whether a result came from a generative provider or from
// the deterministic fallback.
type Source string

const (
	SourceAI       Source = "ai"
	SourceFallback Source = "fallback"
)

// TaskDraft is an unvalidated task as decoded from provider output (or built
// by the fallback generator). Priority and DueDate are raw and may be invalid.
type TaskDraft struct {
	Title             string   `json:"title"`
	Description       string   `json:"description,omitempty"`
	Type              TaskType `json:"type,omitempty"`
	Priority          string   `json:"priority,omitempty"`
	DueDate           string   `json:"due_date,omitempty"`
	EstimatedDuration int      `json:"estimated_duration,omitempty"`
}

// SuggestedTask is a corrected task ready for persistence.
type SuggestedTask struct {
	ID                string    `json:"id"`
	ClientID          string    `json:"client_id"`
	Title             string    `json:"title"`
	Description       string    `json:"description,omitempty"`
	Type              TaskType  `json:"type"`
	Priority          Priority  `json:"priority"`
	DueDate           time.Time `json:"due_date"`
	EstimatedDuration int       `json:"estimated_duration"` // minutes
	Source            Source    `json:"source"`
	CreatedAt         time.Time `json:"created_at"`
}
