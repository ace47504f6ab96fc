package model

import "strings"

// LeadAnalysis is the scored assessment of a client's sales readiness.
type LeadAnalysis struct {
	LeadScore      int      `json:"lead_score"`
	NextAction     string   `json:"next_action"`
	ActionPriority Priority `json:"action_priority"`
	Reasoning      string   `json:"reasoning"`
	Source         Source   `json:"source"`
	Provider       string   `json:"provider,omitempty"`
}

// Channel is the delivery channel a generated message is written for.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelProposal Channel = "proposal"
)

// ParseChannel normalizes s into a Channel.
func ParseChannel(s string) (Channel, bool) {
	switch Channel(strings.ToLower(strings.TrimSpace(s))) {
	case ChannelEmail:
		return ChannelEmail, true
	case ChannelWhatsApp:
		return ChannelWhatsApp, true
	case ChannelProposal:
		return ChannelProposal, true
	default:
		return "", false
	}
}

// DefaultTone is used when a message request does not specify one.
const DefaultTone = "professional"

// GeneratedMessage is a message drafted for a client.
type GeneratedMessage struct {
	Subject  string  `json:"subject,omitempty"`
	Body     string  `json:"body"`
	Channel  Channel `json:"channel"`
	Tone     string  `json:"tone"`
	Source   Source  `json:"source"`
	Provider string  `json:"provider,omitempty"`
}

// SearchRelevance is the ordered set of candidate IDs judged relevant to a
// natural-language query.
type SearchRelevance struct {
	Query  string   `json:"query"`
	IDs    []string `json:"ids"`
	Source Source   `json:"source"`
}
