package refid

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pgerbes1/kfs/keyalg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenGeneratesAndPersists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "table.kfs")

	r1, err := Open(dir, nil)
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(dir, FileName))
	require.NoError(t, err)
	assert.EqualValues(t, keyalg.KeySize, info.Size())

	r2, err := Open(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, r1, r2, "second open must load the same id, not regenerate")
}

func TestOpenHonorsOverrideOnlyOnCreate(t *testing.T) {
	dir := t.TempDir()
	override, err := keyalg.Parse("adc83b19e793491b1c6ea0fd8b46cd9f32e592fc")
	require.NoError(t, err)

	r1, err := Open(dir, &override)
	require.NoError(t, err)
	assert.Equal(t, override, r1)

	other, err := keyalg.Parse("0000000000000000000000000000000000000000")
	require.NoError(t, err)
	r2, err := Open(dir, &other)
	require.NoError(t, err)
	assert.Equal(t, override, r2, "existing reference id must not be overwritten")
}

func TestOpenRejectsTruncatedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("short"), 0o600))

	_, err := Open(dir, nil)
	assert.Error(t, err)
}
