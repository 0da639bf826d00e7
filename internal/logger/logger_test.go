package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}

func TestGetAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	SetupWithWriter("debug", "json", &buf)
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	l := Get("docstore")
	l.Info().Msg("opened")

	assert.Contains(t, buf.String(), `"component":"docstore"`)
	assert.Contains(t, buf.String(), `"message":"opened"`)
}
