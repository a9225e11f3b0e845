// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package sse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatEvent(t *testing.T) {
	tests := []struct {
		name      string
		eventName string
		data      string
		expected  string
	}{
		{
			name:     "without event name",
			data:     "hello",
			expected: "data: hello\n\n",
		},
		{
			name:      "with event name",
			eventName: "application_submitted",
			data:      `{"reference":"abc"}`,
			expected:  "event: application_submitted\ndata: {\"reference\":\"abc\"}\n\n",
		},
		{
			name:     "multiline data",
			data:     "line1\nline2\nline3",
			expected: "data: line1\ndata: line2\ndata: line3\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatEvent(tt.eventName, tt.data))
		})
	}
}

func TestMessage_Format(t *testing.T) {
	m := Message{Event: "stats", Data: `{"pending":3}`}

	assert.Equal(t, "event: stats\ndata: {\"pending\":3}\n\n", m.Format())
}

func TestHeartbeat(t *testing.T) {
	assert.Equal(t, ": heartbeat\n\n", Heartbeat)
	assert.Equal(t, ':', rune(Heartbeat[0]))
}
