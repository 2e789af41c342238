package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvDefaults(t *testing.T) {
	t.Setenv("EDITOR_PREFIX", "/product_editor/")
	cfg := LoadEnv()

	assert.Equal(t, "/product_editor/", cfg.Editor.Prefix)
	assert.Equal(t, time.Hour, cfg.Server.ValidationInterval)
	assert.Equal(t, "product_ranges", cfg.Elastic.Index)
	assert.NoError(t, cfg.Validate())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("VALIDATION_INTERVAL", "10m")
	t.Setenv("POSTGRES_MAX_OPEN_CONNS", "not-a-number")

	cfg := LoadEnv()

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 10*time.Minute, cfg.Server.ValidationInterval)
	assert.Equal(t, 10, cfg.Postgres.MaxOpenConns)
}

func TestLoadYAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "backoffice.yaml")
	content := "editor:\n  prefix: /editor/\nserver:\n  http_addr: \":9999\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/editor/", cfg.Editor.Prefix)
	assert.Equal(t, ":9999", cfg.Server.HTTPAddr)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := LoadEnv()
	cfg.Editor.Prefix = "product_editor"
	cfg.Server.ValidationInterval = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "editor.prefix")
	assert.Contains(t, err.Error(), "validation_interval")
}
