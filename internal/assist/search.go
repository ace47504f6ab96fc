package assist

import (
	"context"
	"strings"

	"github.com/sells-group/crm-assist/internal/extract"
	"github.com/sells-group/crm-assist/internal/fallback"
	"github.com/sells-group/crm-assist/internal/model"
	"github.com/sells-group/crm-assist/internal/provider"
)

const (
	searchTemperature = 0.1
	searchMaxTokens   = 400
)

// Searcher ranks clients against a natural-language query.
type Searcher struct {
	completer Completer
	fallback  *fallback.Generator
}

// NewSearcher creates a Searcher.
func NewSearcher(c Completer, fb *fallback.Generator) *Searcher {
	return &Searcher{completer: c, fallback: fb}
}

// Search returns the IDs of relevant candidates, most relevant first. When
// generation or decoding fails it falls back to substring matching.
func (s *Searcher) Search(ctx context.Context, query string, candidates []model.Client) model.SearchRelevance {
	query = strings.TrimSpace(query)
	out := model.SearchRelevance{Query: query, IDs: []string{}, Source: model.SourceFallback}
	if query == "" || len(candidates) == 0 {
		return out
	}

	res, err := s.completer.Invoke(ctx, provider.Request{
		Messages: []provider.Message{
			provider.System(searchSystemPrompt),
			provider.User(buildSearchPrompt(query, candidates)),
		},
		Temperature: searchTemperature,
		MaxTokens:   searchMaxTokens,
	})
	if err == nil {
		var ids []string
		ids, err = extract.DecodeSearchRelevance(res.Text, candidateIDs(candidates))
		if err == nil {
			out.IDs = ids
			out.Source = model.SourceAI
			return out
		}
	}

	recordFallback(adapterSearch, fallbackReason(err), err)
	out.IDs = s.fallback.Search(query, candidates)
	return out
}

func candidateIDs(candidates []model.Client) []string {
	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}
	return ids
}
