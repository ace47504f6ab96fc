package fallback

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/crm-assist/internal/model"
)

// MessageTemplate is a canned message. {name} and {tone} are replaced when
// the template is rendered.
type MessageTemplate struct {
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
}

// Templates holds one MessageTemplate per channel.
type Templates struct {
	Email    MessageTemplate `yaml:"email"`
	WhatsApp MessageTemplate `yaml:"whatsapp"`
	Proposal MessageTemplate `yaml:"proposal"`
}

// DefaultTemplates returns the built-in channel templates.
func DefaultTemplates() Templates {
	return Templates{
		Email: MessageTemplate{
			Subject: "Following up",
			Body: "Dear {name},\n\n" +
				"I hope you are doing well. I wanted to follow up on our recent conversation " +
				"and see whether you have any questions I can help with.\n\n" +
				"I would be glad to schedule a short call at a time that suits you.\n\n" +
				"Best regards",
		},
		WhatsApp: MessageTemplate{
			Body: "Hi {name}! Just checking in to see if there is anything I can help you with. " +
				"Let me know a good time to talk.",
		},
		Proposal: MessageTemplate{
			Subject: "Proposal for {name}",
			Body: "Proposal for {name}\n\n" +
				"Overview\nThank you for the opportunity to work together. This proposal outlines " +
				"how we can support your goals.\n\n" +
				"Scope\nWe will agree on the scope and deliverables in a short discovery call.\n\n" +
				"Next steps\nReply to this message to schedule the call and we will prepare a detailed quote.",
		},
	}
}

// For returns the template for channel, defaulting to email.
func (t Templates) For(channel model.Channel) MessageTemplate {
	switch channel {
	case model.ChannelWhatsApp:
		return t.WhatsApp
	case model.ChannelProposal:
		return t.Proposal
	default:
		return t.Email
	}
}

// LoadTemplates reads template overrides from a YAML file. Channels or
// fields left empty keep the built-in text.
func LoadTemplates(path string) (Templates, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Templates{}, eris.Wrapf(err, "fallback: read templates %s", path)
	}

	var overrides Templates
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return Templates{}, eris.Wrap(err, "fallback: parse templates")
	}

	t := DefaultTemplates()
	merge(&t.Email, overrides.Email)
	merge(&t.WhatsApp, overrides.WhatsApp)
	merge(&t.Proposal, overrides.Proposal)
	return t, nil
}

func merge(dst *MessageTemplate, src MessageTemplate) {
	if src.Subject != "" {
		dst.Subject = src.Subject
	}
	if src.Body != "" {
		dst.Body = src.Body
	}
}
