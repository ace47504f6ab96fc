package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePriority(t *testing.T) {
	tests := []struct {
		in   string
		want Priority
		ok   bool
	}{
		{"high", PriorityHigh, true},
		{"  Medium ", PriorityMedium, true},
		{"LOW", PriorityLow, true},
		{"urgent", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParsePriority(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestPriority_Valid(t *testing.T) {
	assert.True(t, PriorityHigh.Valid())
	assert.False(t, Priority("High").Valid())
	assert.False(t, Priority("").Valid())
}

func TestParseTaskType(t *testing.T) {
	tests := []struct {
		in   string
		want TaskType
		ok   bool
	}{
		{"call", TaskTypeCall, true},
		{"Follow-Up", TaskTypeFollowUp, true},
		{"follow up", TaskTypeFollowUp, true},
		{"followup", TaskTypeFollowUp, true},
		{"proposal", TaskTypeProposal, true},
		{"lunch", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseTaskType(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestParseChannel(t *testing.T) {
	ch, ok := ParseChannel("WhatsApp")
	assert.True(t, ok)
	assert.Equal(t, ChannelWhatsApp, ch)

	_, ok = ParseChannel("sms")
	assert.False(t, ok)
}

func TestParseClientType(t *testing.T) {
	ct, ok := ParseClientType(" Customer")
	assert.True(t, ok)
	assert.Equal(t, ClientTypeCustomer, ct)

	_, ok = ParseClientType("partner")
	assert.False(t, ok)
}

func TestClient_IsActive(t *testing.T) {
	assert.True(t, Client{}.IsActive())
	assert.True(t, Client{Status: "Active"}.IsActive())
	assert.False(t, Client{Status: ClientStatusInactive}.IsActive())
}
