package logger

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want logrus.Level
	}{
		{"debug", logrus.DebugLevel},
		{"DEBUG", logrus.DebugLevel},
		{"warning", logrus.WarnLevel},
		{"warn", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"", logrus.InfoLevel},
		{"nonsense", logrus.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), "level %q", tt.in)
	}
}

func TestNewWritesFields(t *testing.T) {
	var buf bytes.Buffer
	l := New("debug", &buf)

	l.WithFields(logrus.Fields{"page_id": 7, "frame_id": 2}).Debug("evict")

	out := buf.String()
	assert.Contains(t, out, "[DEBU]")
	assert.Contains(t, out, "evict frame_id=2 page_id=7")
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New("warn", &buf)
	l.Info("hidden")
	assert.Empty(t, buf.String())
}
