// Package fallback produces deterministic, schema-valid results for when no
// provider can.
package fallback

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/crm-assist/internal/model"
	"github.com/sells-group/crm-assist/internal/policy"
)

// Neutral lead analysis values.
const (
	NeutralLeadScore  = 50
	NeutralNextAction = "Schedule a follow-up call to confirm the client's current needs and timeline."
	NeutralReasoning  = "Automatic analysis is unavailable; a neutral score was assigned. Review the client's recent interactions manually."
)

// Generator builds canned records. It holds no mutable state and is safe
// for concurrent use.
type Generator struct {
	templates Templates
	window    policy.DueWindow
}

// Option configures a Generator.
type Option func(*Generator)

// WithTemplates replaces the built-in message templates.
func WithTemplates(t Templates) Option {
	return func(g *Generator) {
		g.templates = t
	}
}

// New creates a Generator using window for canned task due dates.
func New(window policy.DueWindow, opts ...Option) *Generator {
	g := &Generator{templates: DefaultTemplates(), window: window}
	for _, o := range opts {
		o(g)
	}
	return g
}

// LeadAnalysis returns the fixed neutral analysis.
func (g *Generator) LeadAnalysis() model.LeadAnalysis {
	return model.LeadAnalysis{
		LeadScore:      NeutralLeadScore,
		NextAction:     NeutralNextAction,
		ActionPriority: model.PriorityMedium,
		Reasoning:      NeutralReasoning,
		Source:         model.SourceFallback,
	}
}

// Message renders the channel template for the recipient.
func (g *Generator) Message(channel model.Channel, name, tone string) model.GeneratedMessage {
	if _, ok := model.ParseChannel(string(channel)); !ok {
		channel = model.ChannelEmail
	}
	if strings.TrimSpace(tone) == "" {
		tone = model.DefaultTone
	}

	tmpl := g.templates.For(channel)
	r := strings.NewReplacer("{name}", displayName(name), "{tone}", tone)
	return model.GeneratedMessage{
		Subject: r.Replace(tmpl.Subject),
		Body:    r.Replace(tmpl.Body),
		Channel: channel,
		Tone:    tone,
		Source:  model.SourceFallback,
	}
}

// displayName title-cases name, or returns "there" when it is blank.
func displayName(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return "there"
	}
	return cases.Title(language.Und).String(name)
}

// TaskDrafts returns the two canned tasks: a follow-up call due at the
// window's default time and a send-materials email the day after. Both carry
// the rubric priority for c.
func (g *Generator) TaskDrafts(c model.Client, now time.Time) []model.TaskDraft {
	first := g.window.Default(now)
	second := first.AddDate(0, 0, 1)
	priority := string(policy.Priority(c))
	name := displayName(c.Name)

	return []model.TaskDraft{
		{
			Title:             "Follow-up call with " + name,
			Description:       "Call to review the client's needs and agree on next steps.",
			Type:              model.TaskTypeCall,
			Priority:          priority,
			DueDate:           first.Format(time.RFC3339),
			EstimatedDuration: 30,
		},
		{
			Title:             "Send materials to " + name,
			Description:       "Email relevant product information and pricing discussed on the call.",
			Type:              model.TaskTypeEmail,
			Priority:          priority,
			DueDate:           second.Format(time.RFC3339),
			EstimatedDuration: 15,
		},
	}
}

// Search returns the IDs of candidates whose name, email or notes contain
// query, case-insensitively, in candidate order. A blank query matches
// nothing.
func (g *Generator) Search(query string, candidates []model.Client) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	ids := []string{}
	if q == "" {
		return ids
	}
	for _, c := range candidates {
		if strings.Contains(strings.ToLower(c.Name), q) ||
			strings.Contains(strings.ToLower(c.Email), q) ||
			strings.Contains(strings.ToLower(c.Notes), q) {
			ids = append(ids, c.ID)
		}
	}
	return ids
}
