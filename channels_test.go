package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRegistry(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "channels.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadRegistry(t *testing.T) {
	path := writeRegistry(t, `
channels:
  - key: smileclinic
    name: Smile Clinic
    id: UCsmile0000000000000000
    handle: "@smileclinic"
  - key: molarcare
    name: Molar Care Academy
`)
	reg, err := LoadRegistry(path)
	require.NoError(t, err)
	require.Len(t, reg.Channels, 2)

	ch, ok := reg.Get("smileclinic")
	require.True(t, ok)
	assert.Equal(t, "Smile Clinic", ch.Name)
	assert.Equal(t, "UCsmile0000000000000000", ch.ID)
	assert.Equal(t, "@smileclinic", ch.Handle)

	_, ok = reg.Get("nope")
	assert.False(t, ok)

	assert.Equal(t, []string{"smileclinic", "molarcare"}, reg.Keys())
}

func TestLoadRegistryRejectsEmpty(t *testing.T) {
	path := writeRegistry(t, "channels: []\n")
	_, err := LoadRegistry(path)
	assert.ErrorContains(t, err, "no channels")
}

func TestLoadRegistryRejectsDuplicateKeys(t *testing.T) {
	path := writeRegistry(t, `
channels:
  - key: smileclinic
  - key: smileclinic
`)
	_, err := LoadRegistry(path)
	assert.ErrorContains(t, err, "duplicate channel key")
}

func TestLoadRegistryRejectsMissingKey(t *testing.T) {
	path := writeRegistry(t, `
channels:
  - name: No Key Here
`)
	_, err := LoadRegistry(path)
	assert.ErrorContains(t, err, "empty key")
}

func TestLoadRegistryMissingFile(t *testing.T) {
	_, err := LoadRegistry(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
