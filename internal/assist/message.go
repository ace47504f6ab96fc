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
	messageTemperature = 0.8
	messageMaxTokens   = 900
)

// MessageRequest describes the message to draft.
type MessageRequest struct {
	Client  model.Client
	Channel model.Channel
	Tone    string
	Purpose string
}

// MessageWriter drafts client communications.
type MessageWriter struct {
	completer Completer
	fallback  *fallback.Generator
}

// NewMessageWriter creates a MessageWriter.
func NewMessageWriter(c Completer, fb *fallback.Generator) *MessageWriter {
	return &MessageWriter{completer: c, fallback: fb}
}

// Write drafts a message for req.Channel. An unknown channel is treated as
// email and a blank tone as model.DefaultTone. Failures and empty output
// return the channel template personalized with the client's name.
func (w *MessageWriter) Write(ctx context.Context, req MessageRequest) model.GeneratedMessage {
	if ch, ok := model.ParseChannel(string(req.Channel)); ok {
		req.Channel = ch
	} else {
		req.Channel = model.ChannelEmail
	}
	req.Tone = strings.TrimSpace(req.Tone)
	if req.Tone == "" {
		req.Tone = model.DefaultTone
	}

	res, err := w.completer.Invoke(ctx, provider.Request{
		Messages: []provider.Message{
			provider.System(messageSystemPrompt(req.Channel, req.Tone)),
			provider.User(buildMessagePrompt(req)),
		},
		Temperature: messageTemperature,
		MaxTokens:   messageMaxTokens,
	})
	if err != nil {
		recordFallback(adapterMessage, fallbackReason(err), err)
		return w.fallback.Message(req.Channel, req.Client.Name, req.Tone)
	}

	subject, body := splitSubject(extract.Normalize(res.Text, extract.ModeProse))
	if body == "" {
		recordFallback(adapterMessage, reasonEmpty, nil)
		return w.fallback.Message(req.Channel, req.Client.Name, req.Tone)
	}

	msg := model.GeneratedMessage{
		Body:     body,
		Channel:  req.Channel,
		Tone:     req.Tone,
		Source:   model.SourceAI,
		Provider: res.Provider,
	}
	if req.Channel != model.ChannelWhatsApp {
		msg.Subject = subject
		if msg.Subject == "" {
			msg.Subject = w.fallback.Message(req.Channel, req.Client.Name, req.Tone).Subject
		}
	}
	return msg
}

// splitSubject separates a leading "Subject:" line from the body.
func splitSubject(text string) (subject, body string) {
	first, rest, _ := strings.Cut(text, "\n")
	line := strings.TrimSpace(first)
	if len(line) >= len("subject:") && strings.EqualFold(line[:len("subject:")], "subject:") {
		return strings.TrimSpace(line[len("subject:"):]), strings.TrimSpace(rest)
	}
	return "", strings.TrimSpace(text)
}
