package assist

import (
	"context"
	"sort"

	"github.com/sells-group/crm-assist/internal/extract"
	"github.com/sells-group/crm-assist/internal/fallback"
	"github.com/sells-group/crm-assist/internal/model"
	"github.com/sells-group/crm-assist/internal/policy"
	"github.com/sells-group/crm-assist/internal/provider"
)

// DefaultHistoryLimit is how many recent interactions are sent for analysis.
const DefaultHistoryLimit = 10

const (
	leadTemperature = 0.3
	leadMaxTokens   = 600
)

// LeadAnalyzer scores a client's sales readiness.
type LeadAnalyzer struct {
	completer    Completer
	fallback     *fallback.Generator
	historyLimit int
}

// NewLeadAnalyzer creates a LeadAnalyzer. A non-positive historyLimit uses
// DefaultHistoryLimit.
func NewLeadAnalyzer(c Completer, fb *fallback.Generator, historyLimit int) *LeadAnalyzer {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &LeadAnalyzer{completer: c, fallback: fb, historyLimit: historyLimit}
}

// HistoryLimit is the number of interactions included in a prompt.
func (a *LeadAnalyzer) HistoryLimit() int { return a.historyLimit }

// Analyze scores client from its profile and most recent interactions. It
// never fails; when no provider yields a valid analysis the neutral fallback
// is returned.
func (a *LeadAnalyzer) Analyze(ctx context.Context, client model.Client, history []model.Interaction) model.LeadAnalysis {
	req := provider.Request{
		Messages: []provider.Message{
			provider.System(leadSystemPrompt),
			provider.User(buildLeadPrompt(client, recent(history, a.historyLimit))),
		},
		Temperature: leadTemperature,
		MaxTokens:   leadMaxTokens,
	}

	res, err := a.completer.Invoke(ctx, req)
	if err != nil {
		recordFallback(adapterLead, fallbackReason(err), err)
		return a.fallback.LeadAnalysis()
	}

	analysis, err := extract.DecodeLeadAnalysis(res.Text, func(score int) model.Priority {
		return policy.PriorityForScore(client, score)
	})
	if err != nil {
		recordFallback(adapterLead, fallbackReason(err), err)
		return a.fallback.LeadAnalysis()
	}

	if analysis.NextAction == "" {
		analysis.NextAction = fallback.NeutralNextAction
	}
	analysis.Source = model.SourceAI
	analysis.Provider = res.Provider
	return analysis
}

// recent returns up to limit interactions, newest first.
func recent(history []model.Interaction, limit int) []model.Interaction {
	sorted := make([]model.Interaction, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OccurredAt.After(sorted[j].OccurredAt)
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}
