package model

import (
	"strings"
	"time"
)

// ClientType classifies where a client sits in the sales funnel.
type ClientType string

const (
	ClientTypeLead     ClientType = "lead"
	ClientTypeProspect ClientType = "prospect"
	ClientTypeCustomer ClientType = "customer"
	ClientTypeInactive ClientType = "inactive"
)

// ParseClientType normalizes s into a ClientType. The bool reports whether s
// named a known type.
func ParseClientType(s string) (ClientType, bool) {
	switch ClientType(strings.ToLower(strings.TrimSpace(s))) {
	case ClientTypeLead:
		return ClientTypeLead, true
	case ClientTypeProspect:
		return ClientTypeProspect, true
	case ClientTypeCustomer:
		return ClientTypeCustomer, true
	case ClientTypeInactive:
		return ClientTypeInactive, true
	default:
		return "", false
	}
}

// Client status values.
const (
	ClientStatusActive   = "active"
	ClientStatusInactive = "inactive"
)

// Client is a CRM client record.
type Client struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email,omitempty"`
	Phone           string     `json:"phone,omitempty"`
	Company         string     `json:"company,omitempty"`
	Type            ClientType `json:"type"`
	Status          string     `json:"status"`
	LeadScore       int        `json:"lead_score"`
	UpsellPotential bool       `json:"upsell_potential"`
	Notes           string     `json:"notes,omitempty"`
	// Analysis is the most recent lead analysis, if any.
	Analysis  *LeadAnalysis `json:"analysis,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// IsActive reports whether the client is in an active state. An empty status
// is treated as active.
func (c Client) IsActive() bool {
	return c.Status == "" || strings.EqualFold(c.Status, ClientStatusActive)
}

// InteractionKind is the channel of a logged interaction.
type InteractionKind string

const (
	InteractionCall     InteractionKind = "call"
	InteractionEmail    InteractionKind = "email"
	InteractionMeeting  InteractionKind = "meeting"
	InteractionWhatsApp InteractionKind = "whatsapp"
	InteractionNote     InteractionKind = "note"
)

// Interaction is a single touchpoint with a client.
type Interaction struct {
	ID         string          `json:"id"`
	ClientID   string          `json:"client_id"`
	Kind       InteractionKind `json:"kind"`
	Summary    string          `json:"summary"`
	Outcome    string          `json:"outcome,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}
