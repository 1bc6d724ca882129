package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/heapkit/heap/mem"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	r, err := cfg.MemRegion()
	require.NoError(t, err)
	assert.Equal(t, mem.Addr(0x02000000), r.Start())
	assert.Equal(t, uint32(256*1024), r.Size())
}

func TestDecodeOverridesDefaults(t *testing.T) {
	const profile = `
[region]
base = 0x03000000
size = 0x8000

[log]
enabled = true
level = "debug"
`
	cfg, err := Decode(strings.NewReader(profile))
	require.NoError(t, err)
	assert.Equal(t, uint32(0x03000000), cfg.Region.Base)
	assert.Equal(t, uint32(0x8000), cfg.Region.Size)
	assert.False(t, cfg.Region.Mapped, "missing keys keep their defaults")

	opts := cfg.LoggerOptions()
	assert.True(t, opts.Enabled)
	assert.Equal(t, slog.LevelDebug, opts.Level)
	assert.Empty(t, opts.LogDir)
}

func TestDecodeRejectsBadProfiles(t *testing.T) {
	tests := []struct {
		name    string
		profile string
	}{
		{"unknown key", "[region]\nbsae = 1\n"},
		{"zero base", "[region]\nbase = 0\n"},
		{"overflowing region", "[region]\nbase = 0xFFFFFF00\nsize = 0x1000\n"},
		{"tiny region", "[region]\nsize = 4\n"},
		{"bad level", "[log]\nlevel = \"chatty\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.profile))
			require.ErrorIs(t, err, ErrInvalid)
		})
	}

	_, err := Decode(strings.NewReader("[region\n"))
	require.Error(t, err, "malformed TOML")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heap.toml")
	require.NoError(t, os.WriteFile(path, []byte("[region]\nmapped = true\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Region.Mapped)
	assert.Equal(t, uint32(DefaultSize), cfg.Region.Size)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestEncodeRoundTrips(t *testing.T) {
	cfg := Default()
	cfg.Region.Size = 4096
	cfg.Log.Dir = "/var/log/heapkit"

	var buf bytes.Buffer
	require.NoError(t, cfg.Encode(&buf))
	assert.Contains(t, buf.String(), "[region]")

	got, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}
