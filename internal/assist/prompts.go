package assist

import (
	"fmt"
	"strings"
	"time"

	"github.com/sells-group/crm-assist/internal/model"
	"github.com/sells-group/crm-assist/internal/policy"
)

const maxNoteChars = 300

const leadSystemPrompt = `You are a sales analyst for a small business CRM. You score how ready a client is to buy and recommend the single best next action.
Respond with JSON only, no commentary, in exactly this shape:
{"leadScore": <integer 0-100>, "nextAction": "<one sentence>", "actionPriority": "low" | "medium" | "high", "reasoning": "<two sentences at most>"}`

const searchSystemPrompt = `You match a natural-language query against a list of CRM clients.
Respond with a JSON array of the matching client IDs ordered from most to least relevant, for example ["id1", "id2"].
Use only IDs from the list. Respond with [] if nothing matches. Do not add any other text.`

const taskSystemPrompt = `You plan follow-up work for sales representatives using a CRM.
Respond with a JSON array only, no commentary. Each element must be an object with the keys
"title", "description", "type", "priority", "dueDate" and "estimatedDuration" (minutes).`

func writeClientProfile(b *strings.Builder, c model.Client) {
	b.WriteString("Client profile:\n")
	fmt.Fprintf(b, "- Name: %s\n", c.Name)
	if c.Company != "" {
		fmt.Fprintf(b, "- Company: %s\n", c.Company)
	}
	fmt.Fprintf(b, "- Type: %s\n", c.Type)
	status := c.Status
	if status == "" {
		status = model.ClientStatusActive
	}
	fmt.Fprintf(b, "- Status: %s\n", status)
	fmt.Fprintf(b, "- Current lead score: %d\n", c.LeadScore)
	if c.Type == model.ClientTypeCustomer {
		fmt.Fprintf(b, "- Upsell potential: %t\n", c.UpsellPotential)
	}
	if c.Notes != "" {
		fmt.Fprintf(b, "- Notes: %s\n", truncate(c.Notes, maxNoteChars))
	}
}

func buildLeadPrompt(c model.Client, history []model.Interaction) string {
	var b strings.Builder
	writeClientProfile(&b, c)

	b.WriteString("\nRecent interactions (newest first):\n")
	if len(history) == 0 {
		b.WriteString("- none recorded\n")
	}
	for _, in := range history {
		fmt.Fprintf(&b, "- %s [%s] %s", in.OccurredAt.Format(policy.DateLayout), in.Kind, in.Summary)
		if in.Outcome != "" {
			fmt.Fprintf(&b, " (outcome: %s)", in.Outcome)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(policy.RubricText())
	b.WriteString("\n\nScore this client and return the JSON object.")
	return b.String()
}

func messageSystemPrompt(channel model.Channel, tone string) string {
	var style string
	switch channel {
	case model.ChannelWhatsApp:
		style = "Write a short instant message of at most three sentences. No subject line, no signature, no markdown."
	case model.ChannelProposal:
		style = "Write a structured commercial proposal with a first line \"Subject: <title>\" followed by the sections Overview, Scope and Next steps. Use plain text headings, no markdown."
	default:
		style = "Write a formal business email. Start with a line \"Subject: <subject>\", then the greeting, body and sign-off. No markdown."
	}
	return fmt.Sprintf("You write client communications for a sales team. Use a %s tone. %s Return only the message text.", tone, style)
}

func buildMessagePrompt(req MessageRequest) string {
	var b strings.Builder
	writeClientProfile(&b, req.Client)
	fmt.Fprintf(&b, "\nChannel: %s\n", req.Channel)
	purpose := strings.TrimSpace(req.Purpose)
	if purpose == "" {
		purpose = "follow up on our last conversation and propose a next step"
	}
	fmt.Fprintf(&b, "Purpose: %s\n", purpose)
	fmt.Fprintf(&b, "\nAddress the client by name (%s).", req.Client.Name)
	return b.String()
}

func buildSearchPrompt(query string, candidates []model.Client) string {
	var b strings.Builder
	b.WriteString("Clients:\n")
	for _, c := range candidates {
		fmt.Fprintf(&b, "- id=%s | name=%s | email=%s | type=%s", c.ID, c.Name, c.Email, c.Type)
		if c.Notes != "" {
			fmt.Fprintf(&b, " | notes=%s", truncate(oneLine(c.Notes), maxNoteChars))
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nQuery: %s\n", query)
	return b.String()
}

func buildTaskPrompt(c model.Client, allowedDates []string, now time.Time) string {
	var b strings.Builder
	writeClientProfile(&b, c)

	fmt.Fprintf(&b, "\nToday is %s.\n", now.Format(policy.DateLayout))
	b.WriteString("Suggest 2 to 3 concrete follow-up tasks for this client.\n")

	types := make([]string, len(model.TaskTypes))
	for i, t := range model.TaskTypes {
		types[i] = `"` + string(t) + `"`
	}
	fmt.Fprintf(&b, "- type must be one of: %s\n", strings.Join(types, ", "))
	fmt.Fprintf(&b, "- dueDate must be one of: %s (format YYYY-MM-DD)\n", strings.Join(allowedDates, ", "))
	b.WriteString("- estimatedDuration is a positive number of minutes\n\n")
	b.WriteString(policy.RubricText())
	b.WriteString("\n")
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
