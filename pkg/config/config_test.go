package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultMatchesSpecDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 10, cfg.RequestQueueSize)
	assert.Equal(t, 2, cfg.DataQueueSize)
	assert.Equal(t, 2*time.Second, cfg.PollTimeout)
	assert.Equal(t, time.Second, cfg.BackoffSlot)
}

func TestLoadEmptyPathReturnsDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesOnlyGivenKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "switch.ini")
	contents := "[switch]\nrequest_queue_size = 5\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.RequestQueueSize)
	assert.Equal(t, 2, cfg.DataQueueSize) // untouched, stays default
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load("/nonexistent/switch.ini")
	assert.Error(t, err)
}
