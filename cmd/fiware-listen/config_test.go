package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "listener.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
listen:
  address: ":1028"
log:
  file: events.cborlog
  level: debug
subscriptions:
  - id: sub-1
  - id: sub-2
    mode: diff
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":1028", cfg.Listen.Address)
	assert.Equal(t, "events.cborlog", cfg.Log.File)
	assert.Equal(t, "debug", cfg.Log.Level)
	require.Len(t, cfg.Subscriptions, 2)
	assert.Equal(t, "diff", cfg.Subscriptions[1].Mode)
}

func TestLoadConfigNATS(t *testing.T) {
	path := writeConfig(t, `
listen:
  nats:
    url: nats://localhost:4222
    topic: notifications
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "nats://localhost:4222", cfg.Listen.NATS.URL)
	assert.Equal(t, "notifications", cfg.Listen.NATS.Topic)
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no transport", `log: {level: info}`},
		{"both transports", "listen:\n  address: \":1028\"\n  nats:\n    url: nats://x\n    topic: t"},
		{"nats without topic", "listen:\n  nats:\n    url: nats://x"},
		{"subscription without id", "listen:\n  address: \":1028\"\nsubscriptions:\n  - mode: full"},
		{"bad mode", "listen:\n  address: \":1028\"\nsubscriptions:\n  - id: s\n    mode: sometimes"},
		{"not yaml", `: [`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tc.content))
			assert.Error(t, err)
		})
	}
}
