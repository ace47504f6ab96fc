package assist

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crm-assist/internal/fallback"
	"github.com/sells-group/crm-assist/internal/model"
	"github.com/sells-group/crm-assist/internal/policy"
	"github.com/sells-group/crm-assist/internal/provider"
)

var testNow = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

func testWindow() policy.DueWindow {
	return policy.NewDueWindow(nil, 9, 0, time.UTC)
}

func testGen() *fallback.Generator {
	return fallback.New(testWindow())
}

var acme = model.Client{
	ID:     "c1",
	Name:   "jane doe",
	Email:  "jane@acme.test",
	Type:   model.ClientTypeProspect,
	Status: model.ClientStatusActive,
	Notes:  "Interested in the premium plan.",
}

func TestLeadAnalyzer_AIResult(t *testing.T) {
	m := respond("```json\n{\"leadScore\": 130, \"nextAction\": \"Send the quote\", \"actionPriority\": \"low\", \"reasoning\": \"Engaged.\"}\n```")
	a := NewLeadAnalyzer(m, testGen(), 0)

	got := a.Analyze(context.Background(), acme, nil)

	assert.Equal(t, 100, got.LeadScore)
	assert.Equal(t, "Send the quote", got.NextAction)
	assert.Equal(t, model.SourceAI, got.Source)
	assert.Equal(t, "groq", got.Provider)
	assert.True(t, got.ActionPriority.Valid())
}

func TestLeadAnalyzer_AllProvidersFail(t *testing.T) {
	a := NewLeadAnalyzer(failAll(), testGen(), 0)

	got := a.Analyze(context.Background(), acme, nil)

	assert.Equal(t, 50, got.LeadScore)
	assert.Equal(t, model.PriorityMedium, got.ActionPriority)
	assert.Equal(t, fallback.NeutralReasoning, got.Reasoning)
	assert.Equal(t, model.SourceFallback, got.Source)
}

func TestLeadAnalyzer_FallbackIsIdempotent(t *testing.T) {
	a := NewLeadAnalyzer(failAll(), testGen(), 0)
	first := a.Analyze(context.Background(), acme, nil)
	second := a.Analyze(context.Background(), acme, nil)
	assert.Equal(t, first, second)
}

func TestLeadAnalyzer_DecodeFailureFallsBack(t *testing.T) {
	a := NewLeadAnalyzer(respond("I think this client is great."), testGen(), 0)
	got := a.Analyze(context.Background(), acme, nil)
	assert.Equal(t, model.SourceFallback, got.Source)
}

func TestLeadAnalyzer_MissingNextAction(t *testing.T) {
	a := NewLeadAnalyzer(respond(`{"score": 45}`), testGen(), 0)
	got := a.Analyze(context.Background(), acme, nil)
	assert.Equal(t, 45, got.LeadScore)
	assert.Equal(t, fallback.NeutralNextAction, got.NextAction)
}

func TestLeadAnalyzer_SendsNewestHistory(t *testing.T) {
	var history []model.Interaction
	for i := 0; i < 5; i++ {
		history = append(history, model.Interaction{
			Kind:       model.InteractionCall,
			Summary:    "call " + string(rune('a'+i)),
			OccurredAt: testNow.AddDate(0, 0, -i),
		})
	}

	m := &mockCompleter{}
	m.On("Invoke", mock.Anything, mock.MatchedBy(func(req provider.Request) bool {
		prompt := req.Messages[1].Content
		return req.Temperature == leadTemperature &&
			req.Messages[0].Role == provider.RoleSystem &&
			strings.Contains(prompt, "call a") && strings.Contains(prompt, "call b") && !strings.Contains(prompt, "call c")
	})).Return(&provider.Result{Text: `{"leadScore": 60}`, Provider: "groq"}, nil)

	a := NewLeadAnalyzer(m, testGen(), 2)
	got := a.Analyze(context.Background(), acme, history)

	assert.Equal(t, 60, got.LeadScore)
	m.AssertExpectations(t)
}

func TestRecent(t *testing.T) {
	history := []model.Interaction{
		{ID: "old", OccurredAt: testNow.AddDate(0, -1, 0)},
		{ID: "new", OccurredAt: testNow},
		{ID: "mid", OccurredAt: testNow.AddDate(0, 0, -3)},
	}
	got := recent(history, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "new", got[0].ID)
	assert.Equal(t, "mid", got[1].ID)
	assert.Equal(t, "old", history[0].ID)
}

func TestMessageWriter_Email(t *testing.T) {
	w := NewMessageWriter(respond("**Subject: Your premium plan**\n\nHi Jane,\n\nThanks for your time."), testGen())

	got := w.Write(context.Background(), MessageRequest{Client: acme, Channel: model.ChannelEmail})

	assert.Equal(t, "Your premium plan", got.Subject)
	assert.Equal(t, "Hi Jane,\n\nThanks for your time.", got.Body)
	assert.Equal(t, model.DefaultTone, got.Tone)
	assert.Equal(t, model.SourceAI, got.Source)
}

func TestMessageWriter_WhatsAppHasNoSubject(t *testing.T) {
	w := NewMessageWriter(respond("\"Hi Jane! Are you free for a quick call tomorrow?\""), testGen())

	got := w.Write(context.Background(), MessageRequest{Client: acme, Channel: model.ChannelWhatsApp, Tone: "friendly"})

	assert.Empty(t, got.Subject)
	assert.Equal(t, "Hi Jane! Are you free for a quick call tomorrow?", got.Body)
	assert.Equal(t, "friendly", got.Tone)
}

func TestMessageWriter_Fallbacks(t *testing.T) {
	tests := []struct {
		name      string
		completer *mockCompleter
		channel   model.Channel
		want      model.Channel
	}{
		{"providers fail", failAll(), model.ChannelProposal, model.ChannelProposal},
		{"empty body", respond("``` ```"), model.ChannelEmail, model.ChannelEmail},
		{"unknown channel", failAll(), model.Channel("fax"), model.ChannelEmail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewMessageWriter(tt.completer, testGen())
			got := w.Write(context.Background(), MessageRequest{Client: acme, Channel: tt.channel})

			assert.Equal(t, model.SourceFallback, got.Source)
			assert.Equal(t, tt.want, got.Channel)
			assert.Contains(t, got.Body, "Jane Doe")
		})
	}
}

func TestSplitSubject(t *testing.T) {
	subject, body := splitSubject("SUBJECT: Hello\nBody text")
	assert.Equal(t, "Hello", subject)
	assert.Equal(t, "Body text", body)

	subject, body = splitSubject("Just a body")
	assert.Empty(t, subject)
	assert.Equal(t, "Just a body", body)
}

func TestSearcher_AIResult(t *testing.T) {
	candidates := []model.Client{acme, {ID: "c2", Name: "Bob"}}
	s := NewSearcher(respond(`["c2", "ghost", "c1"]`), testGen())

	got := s.Search(context.Background(), "premium buyers", candidates)

	assert.Equal(t, []string{"c2", "c1"}, got.IDs)
	assert.Equal(t, model.SourceAI, got.Source)
}

func TestSearcher_ProseFallsBackToSubstring(t *testing.T) {
	candidates := []model.Client{
		acme,
		{ID: "c2", Name: "Bob", Email: "bob@example.test"},
		{ID: "c3", Name: "Carol", Notes: "Asked about ACME integration"},
	}
	s := NewSearcher(respond("The best matches are Jane and Carol."), testGen())

	got := s.Search(context.Background(), "acme", candidates)

	assert.Equal(t, []string{"c1", "c3"}, got.IDs)
	assert.Equal(t, model.SourceFallback, got.Source)
}

func TestSearcher_EmptyInputsSkipProviders(t *testing.T) {
	m := &mockCompleter{}
	s := NewSearcher(m, testGen())

	got := s.Search(context.Background(), "   ", []model.Client{acme})
	assert.NotNil(t, got.IDs)
	assert.Empty(t, got.IDs)

	got = s.Search(context.Background(), "jane", nil)
	assert.Empty(t, got.IDs)

	m.AssertNotCalled(t, "Invoke", mock.Anything, mock.Anything)
}

func TestTaskSuggester_AIResult(t *testing.T) {
	m := respond(`[{"title": "Call Jane", "type": "call", "priority": "urgent", "dueDate": "2026-03-11"}]`)
	s := NewTaskSuggester(m, testGen(), testWindow())
	s.now = func() time.Time { return testNow }

	got := s.Suggest(context.Background(), acme)

	require.Len(t, got.Drafts, 1)
	assert.Equal(t, "Call Jane", got.Drafts[0].Title)
	assert.Equal(t, "urgent", got.Drafts[0].Priority)
	assert.Equal(t, model.SourceAI, got.Source)
	assert.Equal(t, "groq", got.Provider)
}

func TestTaskSuggester_PromptListsAllowedDates(t *testing.T) {
	m := &mockCompleter{}
	m.On("Invoke", mock.Anything, mock.MatchedBy(func(req provider.Request) bool {
		return strings.Contains(req.Messages[1].Content, "2026-03-11, 2026-03-12")
	})).Return(&provider.Result{Text: `[{"title": "Call Jane"}]`, Provider: "groq"}, nil)

	s := NewTaskSuggester(m, testGen(), testWindow())
	s.now = func() time.Time { return testNow }

	got := s.Suggest(context.Background(), acme)
	assert.Len(t, got.Drafts, 1)
	m.AssertExpectations(t)
}

func TestTaskSuggester_Fallback(t *testing.T) {
	s := NewTaskSuggester(failAll(), testGen(), testWindow())
	s.now = func() time.Time { return testNow }

	got := s.Suggest(context.Background(), acme)

	require.Len(t, got.Drafts, 2)
	assert.Equal(t, model.SourceFallback, got.Source)
	assert.Empty(t, got.Provider)
	assert.Equal(t, "Follow-up call with Jane Doe", got.Drafts[0].Title)
	assert.Equal(t, "2026-03-11T09:00:00Z", got.Drafts[0].DueDate)
}
