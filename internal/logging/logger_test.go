package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"debug", "debug"},
		{"WARN", "warn"},
		{"warning", "warn"},
		{"error", "error"},
		{"verbose", "info"},
		{"", "info"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in).String())
		})
	}
}

func TestNew(t *testing.T) {
	assert.NotNil(t, New("info", "console"))
	assert.NotNil(t, New("debug", "json"))
	assert.False(t, New("warn", "json").Core().Enabled(zap.InfoLevel))
}

func TestComponent(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := Component(zap.New(core), "engine")

	log.Infow("position opened", "symbol", "AAA")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "engine", entries[0].LoggerName)
		assert.Equal(t, "AAA", entries[0].ContextMap()["symbol"])
	}
}
