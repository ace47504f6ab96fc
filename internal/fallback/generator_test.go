package fallback

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/crm-assist/internal/model"
	"github.com/sells-group/crm-assist/internal/policy"
)

func newGen(opts ...Option) *Generator {
	return New(policy.NewDueWindow(nil, 9, 0, time.UTC), opts...)
}

func TestLeadAnalysis_Idempotent(t *testing.T) {
	g := newGen()
	a := g.LeadAnalysis()
	b := g.LeadAnalysis()

	assert.Equal(t, a, b)
	assert.Equal(t, 50, a.LeadScore)
	assert.Equal(t, model.PriorityMedium, a.ActionPriority)
	assert.Equal(t, model.SourceFallback, a.Source)
	assert.NotEmpty(t, a.NextAction)
	assert.NotEmpty(t, a.Reasoning)
}

func TestMessage_PerChannel(t *testing.T) {
	g := newGen()

	email := g.Message(model.ChannelEmail, "maria lopez", "")
	assert.Contains(t, email.Body, "Dear Maria Lopez,")
	assert.Equal(t, "Following up", email.Subject)
	assert.Equal(t, model.DefaultTone, email.Tone)
	assert.Equal(t, model.SourceFallback, email.Source)

	wa := g.Message(model.ChannelWhatsApp, "JOÃO", "friendly")
	assert.Contains(t, wa.Body, "Hi João!")
	assert.Empty(t, wa.Subject)
	assert.Equal(t, "friendly", wa.Tone)

	prop := g.Message(model.ChannelProposal, "acme corp", "formal")
	assert.Equal(t, "Proposal for Acme Corp", prop.Subject)
	assert.Contains(t, prop.Body, "Next steps")
}

func TestMessage_BlankNameAndUnknownChannel(t *testing.T) {
	msg := newGen().Message("fax", "  ", "")
	assert.Equal(t, model.ChannelEmail, msg.Channel)
	assert.Contains(t, msg.Body, "Dear there,")
}

func TestTaskDrafts(t *testing.T) {
	now := time.Date(2026, 3, 10, 16, 0, 0, 0, time.UTC)
	client := model.Client{ID: "c1", Name: "maria", Type: model.ClientTypeCustomer, LeadScore: 85}

	drafts := newGen().TaskDrafts(client, now)
	require.Len(t, drafts, 2)

	assert.Equal(t, model.TaskTypeCall, drafts[0].Type)
	assert.Equal(t, "Follow-up call with Maria", drafts[0].Title)
	assert.Equal(t, "2026-03-11T09:00:00Z", drafts[0].DueDate)
	assert.Equal(t, "high", drafts[0].Priority)
	assert.Equal(t, 30, drafts[0].EstimatedDuration)

	assert.Equal(t, model.TaskTypeEmail, drafts[1].Type)
	assert.Equal(t, "2026-03-12T09:00:00Z", drafts[1].DueDate)
	assert.Equal(t, "high", drafts[1].Priority)
}

func TestTaskDrafts_LowPriorityClient(t *testing.T) {
	drafts := newGen().TaskDrafts(model.Client{Type: model.ClientTypeInactive}, time.Now())
	for _, d := range drafts {
		assert.Equal(t, "low", d.Priority)
	}
}

func TestSearch(t *testing.T) {
	candidates := []model.Client{
		{ID: "c1", Name: "Maria Lopez", Email: "maria@acme.com"},
		{ID: "c2", Name: "John Smith", Email: "john@globex.com", Notes: "Interested in ACME integration"},
		{ID: "c3", Name: "Ana Perez", Email: "ana@initech.com"},
	}
	g := newGen()

	assert.Equal(t, []string{"c1", "c2"}, g.Search("acme", candidates))
	assert.Equal(t, []string{"c3"}, g.Search("  ANA ", candidates))
	assert.Empty(t, g.Search("zzz", candidates))

	blank := g.Search("   ", candidates)
	assert.NotNil(t, blank)
	assert.Empty(t, blank)
}

func TestLoadTemplates_MergesOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
whatsapp:
  body: "Olá {name}! Tudo bem? ({tone})"
proposal:
  subject: "Custom proposal"
`), 0o600))

	tmpl, err := LoadTemplates(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultTemplates().Email, tmpl.Email)
	assert.Equal(t, "Custom proposal", tmpl.Proposal.Subject)
	assert.Equal(t, DefaultTemplates().Proposal.Body, tmpl.Proposal.Body)

	msg := newGen(WithTemplates(tmpl)).Message(model.ChannelWhatsApp, "maria", "casual")
	assert.Equal(t, "Olá Maria! Tudo bem? (casual)", msg.Body)
}

func TestLoadTemplates_Errors(t *testing.T) {
	_, err := LoadTemplates(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fallback: read templates")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("email: [unclosed"), 0o600))
	_, err = LoadTemplates(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fallback: parse templates")
}
