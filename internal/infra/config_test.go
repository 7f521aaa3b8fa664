package infra

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/site-overview/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
engine:
  query_timeout: 4s
  fanout_limit: 3
overview:
  decode_mode: lenient
  title: "$DEFAULT_TITLE$ ($SITE$)"
sites:
  - id: muc
    alias: Munich
    address: tcp:muc.example.com:6557
    transport: livestatus
  - id: demo
    alias: Demo
    address: ./fixtures/demo.json
    transport: mock
    local: true
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 4*time.Second, cfg.Engine.QueryTimeout)
	assert.Equal(t, 3, cfg.Engine.FanoutLimit)
	assert.Equal(t, 3*time.Second, cfg.Engine.ProbeTimeout, "default")
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "lenient", cfg.Overview.DecodeMode)
	require.Len(t, cfg.Sites, 2)
	assert.Equal(t, domain.TransportMock, cfg.Sites[1].Transport)
	assert.True(t, cfg.Sites[1].Local)
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "overview:\n  decode_mode: fuzzy\n"))
	assert.ErrorContains(t, err, "decode_mode")

	_, err = LoadConfig(writeConfig(t, "sites:\n  - id: x\n    transport: smoke-signals\n"))
	assert.ErrorContains(t, err, "unknown transport")

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	l, err := NewLogger(LoggerConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, l)

	_, err = NewLogger(LoggerConfig{Level: "loud"})
	assert.Error(t, err)

	_, err = NewLogger(LoggerConfig{Level: "info", Format: "xml"})
	assert.Error(t, err)
}
